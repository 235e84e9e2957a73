package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"productstudio/internal/domain"
	"productstudio/internal/sqlinline"
)

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

type sliceRows struct {
	rows []func(dest ...any) error
	idx  int
}

func (r *sliceRows) Close()                                       {}
func (r *sliceRows) Err() error                                   { return nil }
func (r *sliceRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *sliceRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *sliceRows) Conn() *pgx.Conn                              { return nil }
func (r *sliceRows) RawValues() [][]byte                          { return nil }
func (r *sliceRows) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (r *sliceRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *sliceRows) Scan(dest ...any) error {
	return r.rows[r.idx-1](dest...)
}

type call struct {
	query string
	args  []any
}

type fakeExecutor struct {
	calls    []call
	row      func(dest ...any) error
	rows     []func(dest ...any) error
	execErr  error
	queryErr error
}

func (f *fakeExecutor) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, call{query, args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeExecutor) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	f.calls = append(f.calls, call{query, args})
	return simpleRow{scan: f.row}
}

func (f *fakeExecutor) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	f.calls = append(f.calls, call{query, args})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &sliceRows{rows: f.rows}, nil
}

func taskScanner(id string, created time.Time) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = id
		*(dest[1].(*string)) = "u1"
		*(dest[2].(*string)) = "Scarf"
		*(dest[3].(*string)) = "soft"
		*(dest[4].(*string)) = "cozy"
		*(dest[5].(*[]byte)) = []byte(`[{"mimeType":"image/png","data":"AAAA"}]`)
		*(dest[6].(*[]byte)) = []byte(`{"analysis":{"sketch":"s","dimensions":null,"materials":{"primary":"wool","location":"","description":""}},"seo":{"titles":["Scarf"],"tags":[]}}`)
		*(dest[7].(*[]byte)) = []byte(`[{"angle":"front","background":"white","description":"hero"}]`)
		*(dest[8].(*time.Time)) = created
		return nil
	}
}

func TestPutTaskEncodesJSONColumns(t *testing.T) {
	exec := &fakeExecutor{}
	repo := NewRepository(exec)

	err := repo.PutTask(context.Background(), &domain.TaskRecord{
		ID:          "t1",
		UserID:      "u1",
		InputImages: []domain.Image{{MimeType: "image/png", Data: "AAAA"}},
		CreatedAt:   time.Unix(0, 0),
	})
	if err != nil {
		t.Fatalf("PutTask returned error: %v", err)
	}
	if len(exec.calls) != 1 || exec.calls[0].query != sqlinline.QUpsertTask {
		t.Fatalf("unexpected calls: %#v", exec.calls)
	}
	args := exec.calls[0].args
	if args[5] != `[{"mimeType":"image/png","data":"AAAA"}]` {
		t.Fatalf("input images arg mismatch: %v", args[5])
	}
	if args[7] != `[]` {
		t.Fatalf("nil plan should encode as empty array, got %v", args[7])
	}
}

func TestGetTaskDecodesRow(t *testing.T) {
	created := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	exec := &fakeExecutor{row: taskScanner("t1", created)}
	repo := NewRepository(exec)

	rec, err := repo.GetTask(context.Background(), "t1")
	if err != nil {
		t.Fatalf("GetTask returned error: %v", err)
	}
	if rec.Analysis.Analysis.Materials.Primary != "wool" || len(rec.Plan) != 1 || rec.Plan[0].Angle != "front" {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if !rec.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt mismatch: %v", rec.CreatedAt)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	repo := NewRepository(&fakeExecutor{})
	if _, err := repo.GetTask(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.Get(context.Background(), "analysis_cache"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from kv, got %v", err)
	}
}

func TestListTasksByUser(t *testing.T) {
	created := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	exec := &fakeExecutor{rows: []func(dest ...any) error{
		taskScanner("t1", created),
		taskScanner("t2", created.Add(time.Hour)),
	}}
	repo := NewRepository(exec)

	recs, err := repo.ListTasksByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListTasksByUser returned error: %v", err)
	}
	if len(recs) != 2 || recs[1].ID != "t2" {
		t.Fatalf("unexpected records: %#v", recs)
	}
	if exec.calls[0].args[0] != "u1" {
		t.Fatalf("user id not forwarded: %#v", exec.calls[0].args)
	}
}

func TestListImagesByTask(t *testing.T) {
	exec := &fakeExecutor{rows: []func(dest ...any) error{
		func(dest ...any) error {
			*(dest[0].(*string)) = "t1-1"
			*(dest[1].(*string)) = "t1"
			*(dest[2].(*int)) = 1
			*(dest[3].(*string)) = "image/jpeg"
			*(dest[4].(*string)) = "Qg=="
			return nil
		},
	}}
	repo := NewRepository(exec)

	images, err := repo.ListImagesByTask(context.Background(), "t1")
	if err != nil {
		t.Fatalf("ListImagesByTask returned error: %v", err)
	}
	if len(images) != 1 || images[0].ImageIndex != 1 || images[0].Image.Data != "Qg==" {
		t.Fatalf("unexpected images: %#v", images)
	}
}

func TestQueriesCarryMarkers(t *testing.T) {
	for name, q := range map[string]string{
		"QUpsertTask":      sqlinline.QUpsertTask,
		"QGetTask":         sqlinline.QGetTask,
		"QDeleteTask":      sqlinline.QDeleteTask,
		"QListTasksByUser": sqlinline.QListTasksByUser,
		"QListTasks":       sqlinline.QListTasks,
		"QUpsertTaskImage": sqlinline.QUpsertTaskImage,
		"QListTaskImages":  sqlinline.QListTaskImages,
		"QDeleteTaskImage": sqlinline.QDeleteTaskImage,
		"QGetKV":           sqlinline.QGetKV,
		"QPutKV":           sqlinline.QPutKV,
		"QDeleteKV":        sqlinline.QDeleteKV,
	} {
		if !strings.HasPrefix(q, "--sql ") {
			t.Fatalf("%s lacks a marker line", name)
		}
	}
}

func TestExecErrorsAreWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	repo := NewRepository(&fakeExecutor{execErr: boom})
	if err := repo.DeleteImage(context.Background(), "t1-0"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if err := repo.Put(context.Background(), "k", []byte("v")); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}
