// Package postgres stores task records in PostgreSQL through the marked
// query runner.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/lib/pq"

	"productstudio/internal/domain"
	"productstudio/internal/infra"
	"productstudio/internal/migrate"
	"productstudio/internal/sqlinline"
)

// OpenSQL opens a database/sql handle over lib/pq. goose does not speak pgx
// pools, so schema work goes through this connection.
func OpenSQL(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return db, nil
}

// Migrate applies the schema over a short-lived connection.
func Migrate(ctx context.Context, databaseURL string) error {
	db, err := OpenSQL(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return migrate.Up(ctx, db, migrate.Postgres)
}

// Repository implements domain.TaskRepository and domain.KeyValueStore.
type Repository struct {
	db infra.SQLExecutor
}

// NewRepository wraps a marked query executor, usually an *infra.SQLRunner.
func NewRepository(db infra.SQLExecutor) *Repository {
	return &Repository{db: db}
}

func (r *Repository) PutTask(ctx context.Context, rec *domain.TaskRecord) error {
	inputs, analysis, plan, err := encodeTask(rec)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, sqlinline.QUpsertTask,
		rec.ID,
		rec.UserID,
		rec.ProductName,
		rec.ProductDescription,
		rec.Vibe,
		inputs,
		analysis,
		plan,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: put task %s: %w", rec.ID, err)
	}
	return nil
}

func (r *Repository) GetTask(ctx context.Context, id string) (*domain.TaskRecord, error) {
	rec, err := scanTask(r.db.QueryRow(ctx, sqlinline.QGetTask, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get task %s: %w", id, err)
	}
	return rec, nil
}

func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, sqlinline.QDeleteTask, id); err != nil {
		return fmt.Errorf("postgres: delete task %s: %w", id, err)
	}
	return nil
}

func (r *Repository) ListTasksByUser(ctx context.Context, userID string) ([]domain.TaskRecord, error) {
	return r.listTasks(ctx, sqlinline.QListTasksByUser, userID)
}

func (r *Repository) ListTasks(ctx context.Context) ([]domain.TaskRecord, error) {
	return r.listTasks(ctx, sqlinline.QListTasks)
}

func (r *Repository) listTasks(ctx context.Context, query string, args ...any) ([]domain.TaskRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.TaskRecord
	for rows.Next() {
		rec, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan task: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list tasks: %w", err)
	}
	return out, nil
}

func (r *Repository) PutImage(ctx context.Context, rec *domain.ImageRecord) error {
	_, err := r.db.Exec(ctx, sqlinline.QUpsertTaskImage, rec.ID, rec.TaskID, rec.ImageIndex, rec.Image.MimeType, rec.Image.Data)
	if err != nil {
		return fmt.Errorf("postgres: put image %s: %w", rec.ID, err)
	}
	return nil
}

func (r *Repository) ListImagesByTask(ctx context.Context, taskID string) ([]domain.ImageRecord, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListTaskImages, taskID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list images for %s: %w", taskID, err)
	}
	defer rows.Close()

	var out []domain.ImageRecord
	for rows.Next() {
		var rec domain.ImageRecord
		if err := rows.Scan(&rec.ID, &rec.TaskID, &rec.ImageIndex, &rec.Image.MimeType, &rec.Image.Data); err != nil {
			return nil, fmt.Errorf("postgres: scan image: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list images for %s: %w", taskID, err)
	}
	return out, nil
}

func (r *Repository) DeleteImage(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, sqlinline.QDeleteTaskImage, id); err != nil {
		return fmt.Errorf("postgres: delete image %s: %w", id, err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRow(ctx, sqlinline.QGetKV, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: postgres kv get %s: %v", domain.ErrStorage, key, err)
	}
	return value, nil
}

func (r *Repository) Put(ctx context.Context, key string, value []byte) error {
	if _, err := r.db.Exec(ctx, sqlinline.QPutKV, key, value); err != nil {
		return fmt.Errorf("%w: postgres kv put %s: %v", domain.ErrStorage, key, err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.Exec(ctx, sqlinline.QDeleteKV, key); err != nil {
		return fmt.Errorf("%w: postgres kv delete %s: %v", domain.ErrStorage, key, err)
	}
	return nil
}

func encodeTask(rec *domain.TaskRecord) (string, string, string, error) {
	inputs, err := json.Marshal(rec.InputImages)
	if err != nil {
		return "", "", "", fmt.Errorf("postgres: encode input images: %w", err)
	}
	analysis, err := json.Marshal(rec.Analysis)
	if err != nil {
		return "", "", "", fmt.Errorf("postgres: encode analysis: %w", err)
	}
	plan := rec.Plan
	if plan == nil {
		plan = []domain.ImagePlan{}
	}
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return "", "", "", fmt.Errorf("postgres: encode plan: %w", err)
	}
	return string(inputs), string(analysis), string(planJSON), nil
}

func scanTask(row pgx.Row) (*domain.TaskRecord, error) {
	var (
		rec                    domain.TaskRecord
		inputs, analysis, plan []byte
		createdAt              time.Time
	)
	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.ProductName,
		&rec.ProductDescription,
		&rec.Vibe,
		&inputs,
		&analysis,
		&plan,
		&createdAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(inputs, &rec.InputImages); err != nil {
		return nil, fmt.Errorf("decode input images of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal(analysis, &rec.Analysis); err != nil {
		return nil, fmt.Errorf("decode analysis of %s: %w", rec.ID, err)
	}
	if len(plan) > 0 {
		if err := json.Unmarshal(plan, &rec.Plan); err != nil {
			return nil, fmt.Errorf("decode plan of %s: %w", rec.ID, err)
		}
	}
	rec.CreatedAt = createdAt.UTC()
	return &rec, nil
}

var (
	_ domain.TaskRepository = (*Repository)(nil)
	_ domain.KeyValueStore  = (*Repository)(nil)
)
