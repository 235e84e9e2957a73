// Package sqlite stores task records in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"productstudio/internal/domain"
	"productstudio/internal/migrate"
	"productstudio/internal/sqlinline"
)

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	raw, err := OpenSQL(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := migrate.Up(ctx, raw, migrate.SQLite); err != nil {
		raw.Close()
		return nil, err
	}
	return sqlx.NewDb(raw, "sqlite"), nil
}

// OpenSQL opens the database without touching the schema.
func OpenSQL(ctx context.Context, path string) (*sql.DB, error) {
	dsn := "file::memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: ensure directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return db, nil
}

// Repository implements domain.TaskRepository and domain.KeyValueStore.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps an opened database.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

type taskRow struct {
	ID                 string `db:"id"`
	UserID             string `db:"user_id"`
	ProductName        string `db:"product_name"`
	ProductDescription string `db:"product_description"`
	Vibe               string `db:"vibe"`
	InputImages        string `db:"input_images"`
	Analysis           string `db:"analysis"`
	Plan               string `db:"plan"`
	CreatedAt          int64  `db:"created_at"`
}

type imageRow struct {
	ID         string `db:"id"`
	TaskID     string `db:"task_id"`
	ImageIndex int    `db:"image_index"`
	MimeType   string `db:"mime_type"`
	Data       string `db:"data"`
}

func (r *Repository) PutTask(ctx context.Context, rec *domain.TaskRecord) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, sqlinline.QSQLiteUpsertTask, row)
	if err != nil {
		return fmt.Errorf("sqlite: put task %s: %w", rec.ID, err)
	}
	return nil
}

func (r *Repository) GetTask(ctx context.Context, id string) (*domain.TaskRecord, error) {
	var row taskRow
	err := r.db.GetContext(ctx, &row, sqlinline.QSQLiteGetTask, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get task %s: %w", id, err)
	}
	return fromRow(row)
}

func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, sqlinline.QSQLiteDeleteTask, id); err != nil {
		return fmt.Errorf("sqlite: delete task %s: %w", id, err)
	}
	return nil
}

func (r *Repository) ListTasksByUser(ctx context.Context, userID string) ([]domain.TaskRecord, error) {
	var rows []taskRow
	if err := r.db.SelectContext(ctx, &rows, sqlinline.QSQLiteListTasksByUser, userID); err != nil {
		return nil, fmt.Errorf("sqlite: list tasks for %s: %w", userID, err)
	}
	return fromRows(rows)
}

func (r *Repository) ListTasks(ctx context.Context) ([]domain.TaskRecord, error) {
	var rows []taskRow
	if err := r.db.SelectContext(ctx, &rows, sqlinline.QSQLiteListTasks); err != nil {
		return nil, fmt.Errorf("sqlite: list tasks: %w", err)
	}
	return fromRows(rows)
}

func (r *Repository) PutImage(ctx context.Context, rec *domain.ImageRecord) error {
	_, err := r.db.NamedExecContext(ctx, sqlinline.QSQLiteUpsertTaskImage, imageRow{
		ID:         rec.ID,
		TaskID:     rec.TaskID,
		ImageIndex: rec.ImageIndex,
		MimeType:   rec.Image.MimeType,
		Data:       rec.Image.Data,
	})
	if err != nil {
		return fmt.Errorf("sqlite: put image %s: %w", rec.ID, err)
	}
	return nil
}

func (r *Repository) ListImagesByTask(ctx context.Context, taskID string) ([]domain.ImageRecord, error) {
	var rows []imageRow
	err := r.db.SelectContext(ctx, &rows, sqlinline.QSQLiteListImagesByTask, taskID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list images for %s: %w", taskID, err)
	}
	out := make([]domain.ImageRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ImageRecord{
			ID:         row.ID,
			TaskID:     row.TaskID,
			ImageIndex: row.ImageIndex,
			Image:      domain.Image{MimeType: row.MimeType, Data: row.Data},
		})
	}
	return out, nil
}

func (r *Repository) DeleteImage(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, sqlinline.QSQLiteDeleteTaskImage, id); err != nil {
		return fmt.Errorf("sqlite: delete image %s: %w", id, err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.GetContext(ctx, &value, sqlinline.QSQLiteGetKV, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite kv get %s: %v", domain.ErrStorage, key, err)
	}
	return value, nil
}

func (r *Repository) Put(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, sqlinline.QSQLitePutKV, key, value)
	if err != nil {
		return fmt.Errorf("%w: sqlite kv put %s: %v", domain.ErrStorage, key, err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, sqlinline.QSQLiteDeleteKV, key); err != nil {
		return fmt.Errorf("%w: sqlite kv delete %s: %v", domain.ErrStorage, key, err)
	}
	return nil
}

func toRow(rec *domain.TaskRecord) (taskRow, error) {
	inputs, err := json.Marshal(rec.InputImages)
	if err != nil {
		return taskRow{}, fmt.Errorf("sqlite: encode input images: %w", err)
	}
	analysis, err := json.Marshal(rec.Analysis)
	if err != nil {
		return taskRow{}, fmt.Errorf("sqlite: encode analysis: %w", err)
	}
	plan := rec.Plan
	if plan == nil {
		plan = []domain.ImagePlan{}
	}
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return taskRow{}, fmt.Errorf("sqlite: encode plan: %w", err)
	}
	return taskRow{
		ID:                 rec.ID,
		UserID:             rec.UserID,
		ProductName:        rec.ProductName,
		ProductDescription: rec.ProductDescription,
		Vibe:               rec.Vibe,
		InputImages:        string(inputs),
		Analysis:           string(analysis),
		Plan:               string(planJSON),
		CreatedAt:          rec.CreatedAt.UnixMilli(),
	}, nil
}

func fromRow(row taskRow) (*domain.TaskRecord, error) {
	rec := &domain.TaskRecord{
		ID:                 row.ID,
		UserID:             row.UserID,
		ProductName:        row.ProductName,
		ProductDescription: row.ProductDescription,
		Vibe:               row.Vibe,
		CreatedAt:          time.UnixMilli(row.CreatedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(row.InputImages), &rec.InputImages); err != nil {
		return nil, fmt.Errorf("sqlite: decode input images of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Analysis), &rec.Analysis); err != nil {
		return nil, fmt.Errorf("sqlite: decode analysis of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Plan), &rec.Plan); err != nil {
		return nil, fmt.Errorf("sqlite: decode plan of %s: %w", row.ID, err)
	}
	return rec, nil
}

func fromRows(rows []taskRow) ([]domain.TaskRecord, error) {
	out := make([]domain.TaskRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

var (
	_ domain.TaskRepository = (*Repository)(nil)
	_ domain.KeyValueStore  = (*Repository)(nil)
)
