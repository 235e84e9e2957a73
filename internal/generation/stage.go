package generation

import "sync"

// Stage is the position of a run in its lifecycle.
type Stage string

const (
	StageIdle       Stage = "IDLE"
	StageAnalyzing  Stage = "ANALYZING"
	StagePlanning   Stage = "PLANNING"
	StageGenerating Stage = "GENERATING"
	StagePersisting Stage = "PERSISTING"
	StageDone       Stage = "DONE"
	StageFailed     Stage = "FAILED"
)

type stageTracker struct {
	current Stage
	notify  func(Stage)
}

func newStageTracker(notify func(Stage)) *stageTracker {
	return &stageTracker{current: StageIdle, notify: notify}
}

func (t *stageTracker) set(s Stage) {
	t.current = s
	if t.notify != nil {
		t.notify(s)
	}
}

// progress counts resolved plan entries. Steps are serialised so observers
// always see current strictly increasing.
type progress struct {
	mu      sync.Mutex
	current int
	total   int
	notify  func(current, total int)
}

func newProgress(total int, notify func(current, total int)) *progress {
	return &progress{total: total, notify: notify}
}

func (p *progress) step() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current++
	if p.notify != nil {
		p.notify(p.current, p.total)
	}
}
