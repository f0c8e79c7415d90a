// Package player reconstructs timeline state at arbitrary step indices
// and walks timelines sequentially, evaluating breakpoints along the way.
// Nothing here re-executes a command: every operation is a pure read over
// steps that were already captured.
package player

import (
	"github.com/devrewind/rewind/internal/timeline/domain"
)

// Snapshot describes the recorded state at a single step index.
type Snapshot struct {
	Step       domain.Step
	WorkingDir string
	// FailuresBefore holds the indices < Step.Index with non-zero exit codes.
	FailuresBefore []int
	// FailuresAfter holds the indices > Step.Index with non-zero exit codes,
	// known because the timeline is fully recorded up to its last step.
	FailuresAfter []int
}

// Rewind returns the state snapshot at step n of the timeline. It fails
// with OutOfRangeError when n is negative or past the last recorded
// step. Breakpoints do not apply here: rewind is a direct-index lookup
// with no traversal semantics.
func Rewind(t *domain.Timeline, n int) (Snapshot, error) {
	step, err := t.StepAt(n)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Step:       step,
		WorkingDir: step.WorkingDir,
	}
	for _, idx := range t.FailedSteps() {
		switch {
		case idx < n:
			snap.FailuresBefore = append(snap.FailuresBefore, idx)
		case idx > n:
			snap.FailuresAfter = append(snap.FailuresAfter, idx)
		}
	}
	return snap, nil
}

// Hit pairs a step with the breakpoints that fired for it during replay.
type Hit struct {
	Step        domain.Step
	Breakpoints []domain.Breakpoint
}

// Triggered reports whether any breakpoint fired for this step.
func (h Hit) Triggered() bool {
	return len(h.Breakpoints) > 0
}

// Replay is a pull-based cursor over a timeline's steps. It is finite,
// bounded by the timeline length, and not restartable: a fresh walk
// starts over with a new call to NewReplay. The caller decides what
// pausing on a breakpoint means; the cursor never blocks.
type Replay struct {
	steps       []domain.Step
	breakpoints []domain.Breakpoint
	pos         int
	current     Hit
}

// NewReplay creates a replay cursor starting at the given index. It
// fails with OutOfRangeError when start is outside the recorded range,
// except that replaying an empty timeline from index 0 yields an
// immediately exhausted cursor.
func NewReplay(t *domain.Timeline, start int) (*Replay, error) {
	if t.Len() == 0 && start == 0 {
		return &Replay{}, nil
	}
	if start < 0 || start >= t.Len() {
		return nil, &domain.OutOfRangeError{Index: start, Steps: t.Len()}
	}
	return &Replay{
		steps:       t.Steps()[start:],
		breakpoints: t.Breakpoints(),
		pos:         0,
	}, nil
}

// Next advances the cursor, reporting false once the walk is exhausted.
// After Next returns true, Current returns the step and the breakpoints
// that fired for it.
func (r *Replay) Next() bool {
	if r.pos >= len(r.steps) {
		return false
	}
	step := r.steps[r.pos]
	r.current = Hit{
		Step:        step,
		Breakpoints: domain.EvaluateBreakpoints(r.breakpoints, step.Index, step),
	}
	r.pos++
	return true
}

// Current returns the hit produced by the last successful Next call.
func (r *Replay) Current() Hit {
	return r.current
}
