package generation

import (
	"context"
	"fmt"

	"productstudio/internal/domain"
	"productstudio/internal/imagegen"
	"productstudio/internal/resilience"
)

// Regenerate replaces the image at index with a fresh one built from the
// plan entry stored on the task, so the angle and background always match
// the image being replaced.
func (o *Orchestrator) Regenerate(ctx context.Context, taskID string, index int) (*domain.Task, error) {
	task, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(task.GeneratedImages) {
		return nil, fmt.Errorf("%w: task %s has no image at index %d", domain.ErrInvalidInput, taskID, index)
	}

	plan := planFor(task, index)
	prompt := imagegen.BuildPhotoInstruction(imagegen.PhotoRequest{
		Plan:           plan,
		Analysis:       task.Analysis,
		Vibe:           task.Vibe,
		Description:    task.ProductDescription,
		ReferenceCount: len(task.InputImages),
	})

	img, err := o.generateOne(ctx, prompt, task.InputImages)
	o.record(index, plan, img, err)
	if err != nil {
		return nil, fmt.Errorf("regenerate image %d: %w", index+1, err)
	}

	stored := o.compress(img)
	if err := o.store.ReplaceImage(ctx, taskID, index, stored); err != nil {
		return nil, err
	}
	task.GeneratedImages[index] = stored
	o.logger.Info().Str("task_id", taskID).Int("plan_index", index).Msg("generation: image regenerated")
	return task, nil
}

// planFor falls back to the catalogue for tasks saved without a plan.
func planFor(task *domain.Task, index int) domain.ImagePlan {
	if index < len(task.Plan) {
		return task.Plan[index]
	}
	catalogue := imagegen.Catalogue()
	return catalogue[min(index, len(catalogue)-1)]
}

// BreakerSnapshots reports the state of every guarded endpoint.
func (o *Orchestrator) BreakerSnapshots() []resilience.Snapshot {
	out := make([]resilience.Snapshot, 0, 2)
	for _, b := range o.Breakers() {
		out = append(out, b.Snapshot())
	}
	return out
}

// ResetBreakers closes every breaker.
func (o *Orchestrator) ResetBreakers() {
	for _, b := range o.Breakers() {
		b.Reset()
	}
}
