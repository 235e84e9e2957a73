package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"productstudio/internal/domain"
	"productstudio/internal/infra"
)

const (
	// DefaultPageSize is used when a page size is not positive.
	DefaultPageSize = 5
	// MaxPageSize bounds page sizes accepted from callers.
	MaxPageSize = 100
	// DefaultRetention is how long tasks survive CleanupOldTasks by default.
	DefaultRetention = 30 * 24 * time.Hour
)

// TaskStore persists tasks as one metadata record plus one record per
// generated image, and reassembles them in image index order.
type TaskStore struct {
	repo   domain.TaskRepository
	now    func() time.Time
	logger *infra.Logger
}

// TaskStoreOptions configures a TaskStore.
type TaskStoreOptions struct {
	Now    func() time.Time
	Logger *infra.Logger
}

// NewTaskStore wraps a record repository.
func NewTaskStore(repo domain.TaskRepository, opts TaskStoreOptions) *TaskStore {
	s := &TaskStore{repo: repo, now: opts.Now, logger: opts.Logger}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = infra.NopLogger()
	}
	return s
}

// ImageID is the primary key of a generated image record.
func ImageID(taskID string, index int) string {
	return fmt.Sprintf("%s-%d", taskID, index)
}

// SaveTask writes the images first and the metadata last, so a task becomes
// visible only once all of its images are stored. Image records left over
// from a previous, longer version of the task are removed.
func (s *TaskStore) SaveTask(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	existing, err := s.repo.ListImagesByTask(ctx, task.ID)
	if err != nil {
		return storageErr("list images", err)
	}

	written := make([]string, 0, len(task.GeneratedImages))
	for i, img := range task.GeneratedImages {
		rec := &domain.ImageRecord{ID: ImageID(task.ID, i), TaskID: task.ID, ImageIndex: i, Image: img}
		if err := s.repo.PutImage(ctx, rec); err != nil {
			if len(existing) == 0 {
				s.rollback(ctx, task.ID, written)
			}
			return storageErr("put image", err)
		}
		written = append(written, rec.ID)
	}

	if err := s.repo.PutTask(ctx, toRecord(task)); err != nil {
		if len(existing) == 0 {
			s.rollback(ctx, task.ID, written)
		}
		return storageErr("put task", err)
	}

	for _, rec := range existing {
		if rec.ImageIndex >= len(task.GeneratedImages) {
			if err := s.repo.DeleteImage(ctx, rec.ID); err != nil {
				return storageErr("delete stale image", err)
			}
		}
	}

	s.logger.Debug().Str("task_id", task.ID).Int("images", len(task.GeneratedImages)).Msg("store: task saved")
	return nil
}

func (s *TaskStore) rollback(ctx context.Context, taskID string, ids []string) {
	for _, id := range ids {
		if err := s.repo.DeleteImage(ctx, id); err != nil {
			s.logger.Error().Err(err).Str("task_id", taskID).Str("image_id", id).Msg("store: rollback failed")
		}
	}
}

// GetTask returns the task with its images in index order, or domain.ErrNotFound.
func (s *TaskStore) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	rec, err := s.repo.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, storageErr("get task", err)
	}
	return s.assemble(ctx, rec)
}

// ListQuery selects, orders and pages a user's tasks.
type ListQuery struct {
	UserID   string
	Search   string
	Sort     domain.TaskSort
	Page     int
	PageSize int
}

// LoadTasksLazy returns one page of a user's tasks, newest first.
func (s *TaskStore) LoadTasksLazy(ctx context.Context, userID string, page, pageSize int) (domain.TaskPage, error) {
	return s.ListTasks(ctx, ListQuery{UserID: userID, Sort: domain.SortNewest, Page: page, PageSize: pageSize})
}

// ListTasks filters by a case-insensitive match on name, description or
// vibe, sorts, then slices out the requested page. Only tasks on the page
// have their images loaded.
func (s *TaskStore) ListTasks(ctx context.Context, q ListQuery) (domain.TaskPage, error) {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}

	recs, err := s.repo.ListTasksByUser(ctx, q.UserID)
	if err != nil {
		return domain.TaskPage{}, storageErr("list tasks", err)
	}

	if needle := strings.ToLower(strings.TrimSpace(q.Search)); needle != "" {
		recs = slices.DeleteFunc(recs, func(r domain.TaskRecord) bool {
			return !strings.Contains(strings.ToLower(r.ProductName), needle) &&
				!strings.Contains(strings.ToLower(r.ProductDescription), needle) &&
				!strings.Contains(strings.ToLower(r.Vibe), needle)
		})
	}
	sortRecords(recs, q.Sort)

	total := len(recs)
	page := domain.TaskPage{Tasks: []domain.Task{}}
	// compare before multiplying so huge page indexes cannot overflow
	if total == 0 || q.Page > (total-1)/q.PageSize {
		return page, nil
	}
	start := q.Page * q.PageSize
	end := start + min(q.PageSize, total-start)
	page.HasMore = end < total

	for i := start; i < end; i++ {
		task, err := s.assemble(ctx, &recs[i])
		if err != nil {
			return domain.TaskPage{}, err
		}
		page.Tasks = append(page.Tasks, *task)
	}
	return page, nil
}

func sortRecords(recs []domain.TaskRecord, order domain.TaskSort) {
	newest := func(a, b domain.TaskRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	}
	switch order {
	case domain.SortOldest:
		slices.SortStableFunc(recs, func(a, b domain.TaskRecord) int { return newest(b, a) })
	case domain.SortNameAsc:
		slices.SortStableFunc(recs, func(a, b domain.TaskRecord) int {
			if c := cmp.Compare(strings.ToLower(a.ProductName), strings.ToLower(b.ProductName)); c != 0 {
				return c
			}
			return newest(a, b)
		})
	case domain.SortNameDesc:
		slices.SortStableFunc(recs, func(a, b domain.TaskRecord) int {
			if c := cmp.Compare(strings.ToLower(b.ProductName), strings.ToLower(a.ProductName)); c != 0 {
				return c
			}
			return newest(a, b)
		})
	default:
		slices.SortStableFunc(recs, newest)
	}
}

// DeleteTask removes the images and then the metadata record. Deleting a
// missing task is not an error.
func (s *TaskStore) DeleteTask(ctx context.Context, id string) error {
	images, err := s.repo.ListImagesByTask(ctx, id)
	if err != nil {
		return storageErr("list images", err)
	}
	for _, img := range images {
		if err := s.repo.DeleteImage(ctx, img.ID); err != nil {
			return storageErr("delete image", err)
		}
	}
	if err := s.repo.DeleteTask(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return storageErr("delete task", err)
	}
	return nil
}

// CleanupOldTasks deletes every task created before now-maxAge and reports
// how many were removed. A non-positive maxAge means DefaultRetention.
func (s *TaskStore) CleanupOldTasks(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultRetention
	}
	cutoff := s.now().Add(-maxAge)

	recs, err := s.repo.ListTasks(ctx)
	if err != nil {
		return 0, storageErr("list tasks", err)
	}

	removed := 0
	for _, rec := range recs {
		if !rec.CreatedAt.Before(cutoff) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := s.DeleteTask(ctx, rec.ID); err != nil {
			return removed, err
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info().Int("removed", removed).Time("cutoff", cutoff).Msg("store: cleaned up old tasks")
	}
	return removed, nil
}

// ReplaceImage swaps the generated image at index for img.
func (s *TaskStore) ReplaceImage(ctx context.Context, taskID string, index int, img domain.Image) error {
	rec, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return storageErr("get task", err)
	}
	images, err := s.repo.ListImagesByTask(ctx, taskID)
	if err != nil {
		return storageErr("list images", err)
	}
	if index < 0 || index >= len(images) {
		return fmt.Errorf("%w: task %s has no image at index %d", domain.ErrInvalidInput, rec.ID, index)
	}
	if err := s.repo.PutImage(ctx, &domain.ImageRecord{
		ID:         ImageID(taskID, index),
		TaskID:     taskID,
		ImageIndex: index,
		Image:      img,
	}); err != nil {
		return storageErr("put image", err)
	}
	return nil
}

func (s *TaskStore) assemble(ctx context.Context, rec *domain.TaskRecord) (*domain.Task, error) {
	images, err := s.repo.ListImagesByTask(ctx, rec.ID)
	if err != nil {
		return nil, storageErr("list images", err)
	}
	slices.SortFunc(images, func(a, b domain.ImageRecord) int { return cmp.Compare(a.ImageIndex, b.ImageIndex) })

	task := &domain.Task{
		ID:                 rec.ID,
		UserID:             rec.UserID,
		ProductName:        rec.ProductName,
		ProductDescription: rec.ProductDescription,
		InputImages:        rec.InputImages,
		Analysis:           rec.Analysis,
		Plan:               rec.Plan,
		CreatedAt:          rec.CreatedAt,
		Vibe:               rec.Vibe,
		GeneratedImages:    make([]domain.Image, 0, len(images)),
	}
	for _, img := range images {
		task.GeneratedImages = append(task.GeneratedImages, img.Image)
	}
	return task, nil
}

func toRecord(t *domain.Task) *domain.TaskRecord {
	return &domain.TaskRecord{
		ID:                 t.ID,
		UserID:             t.UserID,
		ProductName:        t.ProductName,
		ProductDescription: t.ProductDescription,
		Vibe:               t.Vibe,
		InputImages:        t.InputImages,
		Analysis:           t.Analysis,
		Plan:               t.Plan,
		CreatedAt:          t.CreatedAt,
	}
}

func storageErr(op string, err error) error {
	if errors.Is(err, domain.ErrStorage) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("store: %s: %w", op, err)
	}
	return fmt.Errorf("store: %s: %w", op, errors.Join(domain.ErrStorage, err))
}
