// Package memory keeps task records in process memory. It backs tests and
// the STORE_BACKEND=memory mode.
package memory

import (
	"context"
	"slices"
	"sync"

	"productstudio/internal/domain"
)

// Repository is a map-backed domain.TaskRepository. Lists come back in map
// iteration order, which is deliberately unordered.
type Repository struct {
	mu     sync.RWMutex
	tasks  map[string]domain.TaskRecord
	images map[string]domain.ImageRecord
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{
		tasks:  make(map[string]domain.TaskRecord),
		images: make(map[string]domain.ImageRecord),
	}
}

func (r *Repository) PutTask(ctx context.Context, rec *domain.TaskRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[rec.ID] = cloneTask(*rec)
	return nil
}

func (r *Repository) GetTask(ctx context.Context, id string) (*domain.TaskRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneTask(rec)
	return &out, nil
}

func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
	return nil
}

func (r *Repository) ListTasksByUser(ctx context.Context, userID string) ([]domain.TaskRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.TaskRecord
	for _, rec := range r.tasks {
		if rec.UserID == userID {
			out = append(out, cloneTask(rec))
		}
	}
	return out, nil
}

func (r *Repository) ListTasks(ctx context.Context) ([]domain.TaskRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TaskRecord, 0, len(r.tasks))
	for _, rec := range r.tasks {
		out = append(out, cloneTask(rec))
	}
	return out, nil
}

func (r *Repository) PutImage(ctx context.Context, rec *domain.ImageRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images[rec.ID] = *rec
	return nil
}

func (r *Repository) ListImagesByTask(ctx context.Context, taskID string) ([]domain.ImageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ImageRecord
	for _, rec := range r.images {
		if rec.TaskID == taskID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *Repository) DeleteImage(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.images, id)
	return nil
}

// ImageCount reports how many image records exist across all tasks.
func (r *Repository) ImageCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.images)
}

func cloneTask(rec domain.TaskRecord) domain.TaskRecord {
	rec.InputImages = slices.Clone(rec.InputImages)
	rec.Plan = slices.Clone(rec.Plan)
	return rec
}

var _ domain.TaskRepository = (*Repository)(nil)
