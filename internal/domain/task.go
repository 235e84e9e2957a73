package domain

import (
	"fmt"
	"time"
)

// Task is the aggregate root of one generation run. GeneratedImages[i] was
// produced from Plan[i]; the two slices are always index-aligned.
type Task struct {
	ID                 string         `json:"id"`
	UserID             string         `json:"userId"`
	ProductName        string         `json:"productName"`
	ProductDescription string         `json:"productDescription"`
	InputImages        []Image        `json:"inputImages"`
	Analysis           AnalysisResult `json:"analysis"`
	GeneratedImages    []Image        `json:"generatedImages"`
	Plan               []ImagePlan    `json:"plan"`
	CreatedAt          time.Time      `json:"createdAt"`
	Vibe               string         `json:"vibe"`
}

// Validate checks the invariants every persisted task must satisfy.
func (t *Task) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: task is nil", ErrInvalidInput)
	}
	if t.ID == "" {
		return fmt.Errorf("%w: task id is required", ErrInvalidInput)
	}
	if len(t.InputImages) == 0 {
		return fmt.Errorf("%w: task %s has no input images", ErrInvalidInput, t.ID)
	}
	if len(t.Plan) > 0 && len(t.Plan) != len(t.GeneratedImages) {
		return fmt.Errorf("%w: task %s has %d plan entries for %d images", ErrInvalidInput, t.ID, len(t.Plan), len(t.GeneratedImages))
	}
	return nil
}

// GeneratedImage pairs an image with the plan entry that produced it. The
// pair travels through the pipeline and is only flattened at the storage
// boundary.
type GeneratedImage struct {
	PlanIndex int
	Plan      ImagePlan
	Image     Image
}

// TaskPage is one page of a user's tasks, newest first.
type TaskPage struct {
	Tasks   []Task `json:"tasks"`
	HasMore bool   `json:"hasMore"`
}

// TaskSort enumerates list orderings.
type TaskSort string

const (
	SortNewest   TaskSort = "newest"
	SortOldest   TaskSort = "oldest"
	SortNameAsc  TaskSort = "name-asc"
	SortNameDesc TaskSort = "name-desc"
)
