package domain

import (
	"context"
	"time"
)

// TaskRecord is the metadata half of a normalized task.
type TaskRecord struct {
	ID                 string
	UserID             string
	ProductName        string
	ProductDescription string
	Vibe               string
	InputImages        []Image
	Analysis           AnalysisResult
	Plan               []ImagePlan
	CreatedAt          time.Time
}

// ImageRecord stores one generated image keyed by (TaskID, ImageIndex).
type ImageRecord struct {
	ID         string
	TaskID     string
	ImageIndex int
	Image      Image
}

// TaskRepository is the record store behind the task store. Implementations
// return records in any order; callers sort.
type TaskRepository interface {
	PutTask(ctx context.Context, rec *TaskRecord) error
	GetTask(ctx context.Context, id string) (*TaskRecord, error)
	DeleteTask(ctx context.Context, id string) error
	ListTasksByUser(ctx context.Context, userID string) ([]TaskRecord, error)
	ListTasks(ctx context.Context) ([]TaskRecord, error)
	PutImage(ctx context.Context, rec *ImageRecord) error
	ListImagesByTask(ctx context.Context, taskID string) ([]ImageRecord, error)
	DeleteImage(ctx context.Context, id string) error
}

// KeyValueStore is a flat durable store for small blobs.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
