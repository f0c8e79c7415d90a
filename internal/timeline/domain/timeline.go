package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Timeline is an ordered, append-only sequence of Steps plus lineage
// metadata. A root timeline has no parent; a branch records the parent
// timeline it was forked from and the index of the last inherited step.
//
// Lineage is carried as identifier references rather than live object
// links: a parent is resolved through the repository, never held in
// memory, so every timeline is independently serializable and the
// parent/branch graph stays a forest.
type Timeline struct {
	id          string
	name        string
	createdAt   time.Time
	steps       []Step
	parentID    string
	branchPoint *int
	breakpoints []Breakpoint
}

// NewTimeline creates an empty root timeline with a fresh UUID.
func NewTimeline(name string) *Timeline {
	return &Timeline{
		id:        uuid.NewString(),
		name:      name,
		createdAt: time.Now().UTC(),
	}
}

// NewBranch creates an empty branch timeline linked to a parent. The
// caller (the brancher) is responsible for copying the inherited prefix.
func NewBranch(name, parentID string, branchPoint int) *Timeline {
	bp := branchPoint
	return &Timeline{
		id:          uuid.NewString(),
		name:        name,
		createdAt:   time.Now().UTC(),
		parentID:    parentID,
		branchPoint: &bp,
	}
}

// Reconstitute rebuilds a Timeline from persisted state. It is intended
// for repository implementations and bypasses append validation; the
// store is trusted to have preserved step ordering.
func Reconstitute(id, name string, createdAt time.Time, steps []Step, parentID string, branchPoint *int, breakpoints []Breakpoint) *Timeline {
	return &Timeline{
		id:          id,
		name:        name,
		createdAt:   createdAt,
		steps:       steps,
		parentID:    parentID,
		branchPoint: branchPoint,
		breakpoints: breakpoints,
	}
}

// ID returns the globally unique timeline identifier.
func (t *Timeline) ID() string { return t.id }

// Name returns the human-assigned label.
func (t *Timeline) Name() string { return t.name }

// CreatedAt returns the timeline creation time.
func (t *Timeline) CreatedAt() time.Time { return t.createdAt }

// ParentID returns the parent timeline id, or "" for a root timeline.
func (t *Timeline) ParentID() string { return t.parentID }

// BranchPoint returns the index of the last step inherited from the
// parent, or nil for a root timeline.
func (t *Timeline) BranchPoint() *int { return t.branchPoint }

// IsBranch reports whether this timeline was forked from another.
func (t *Timeline) IsBranch() bool { return t.parentID != "" }

// Len returns the number of recorded steps.
func (t *Timeline) Len() int { return len(t.steps) }

// Steps returns the recorded steps in index order. The returned slice is
// a copy; mutating it does not affect the timeline.
func (t *Timeline) Steps() []Step {
	out := make([]Step, len(t.steps))
	copy(out, t.steps)
	return out
}

// StepAt returns the step at the given index.
func (t *Timeline) StepAt(index int) (Step, error) {
	if index < 0 || index >= len(t.steps) {
		return Step{}, &OutOfRangeError{Index: index, Steps: len(t.steps)}
	}
	return t.steps[index], nil
}

// LastStep returns the most recently recorded step and false when the
// timeline is empty.
func (t *Timeline) LastStep() (Step, bool) {
	if len(t.steps) == 0 {
		return Step{}, false
	}
	return t.steps[len(t.steps)-1], true
}

// Append records a new step. The step's index must equal the current
// length so indices stay contiguous and zero-based.
func (t *Timeline) Append(step Step) error {
	if step.Index != len(t.steps) {
		return fmt.Errorf("step index %d breaks contiguity: expected %d", step.Index, len(t.steps))
	}
	t.steps = append(t.steps, step)
	return nil
}

// CopyPrefix returns a deep copy of steps 0..end inclusive. Appends to
// either the source or the copy afterwards never affect the other.
func (t *Timeline) CopyPrefix(end int) []Step {
	out := make([]Step, 0, end+1)
	for _, s := range t.steps[:end+1] {
		out = append(out, s.clone())
	}
	return out
}

// Clone returns a deep copy of the timeline: same identity, no shared
// mutable state. Used by stores that must hand out value copies.
func (t *Timeline) Clone() *Timeline {
	steps := make([]Step, 0, len(t.steps))
	for _, s := range t.steps {
		steps = append(steps, s.clone())
	}
	bps := make([]Breakpoint, len(t.breakpoints))
	copy(bps, t.breakpoints)

	var branchPoint *int
	if t.branchPoint != nil {
		bp := *t.branchPoint
		branchPoint = &bp
	}
	return Reconstitute(t.id, t.name, t.createdAt, steps, t.parentID, branchPoint, bps)
}

// Duration returns the wall-clock span between the first and last step,
// or zero when fewer than two steps are recorded.
func (t *Timeline) Duration() time.Duration {
	if len(t.steps) < 2 {
		return 0
	}
	return t.steps[len(t.steps)-1].Timestamp.Sub(t.steps[0].Timestamp)
}

// FailedSteps returns the indices of all steps with non-zero exit codes.
func (t *Timeline) FailedSteps() []int {
	var out []int
	for _, s := range t.steps {
		if s.Failed() {
			out = append(out, s.Index)
		}
	}
	return out
}

// Validate checks the step ordering invariant: indices are contiguous
// and zero-based, and a branch point is present iff a parent is.
func (t *Timeline) Validate() error {
	for i, s := range t.steps {
		if s.Index != i {
			return fmt.Errorf("timeline %s: step at position %d has index %d", t.id, i, s.Index)
		}
	}
	if (t.parentID == "") != (t.branchPoint == nil) {
		return fmt.Errorf("timeline %s: parent id and branch point must be set together", t.id)
	}
	return nil
}

// Breakpoints returns the timeline's breakpoint set. Order is not
// meaningful; the returned slice is a copy.
func (t *Timeline) Breakpoints() []Breakpoint {
	out := make([]Breakpoint, len(t.breakpoints))
	copy(out, t.breakpoints)
	return out
}

// AddBreakpoint adds a breakpoint to the set. Adding an equivalent
// breakpoint twice is a no-op, preserving set semantics.
func (t *Timeline) AddBreakpoint(bp Breakpoint) bool {
	for _, existing := range t.breakpoints {
		if existing.Equal(bp) {
			return false
		}
	}
	t.breakpoints = append(t.breakpoints, bp)
	return true
}

// RemoveBreakpoint removes the breakpoint equal to bp, reporting whether
// anything was removed.
func (t *Timeline) RemoveBreakpoint(bp Breakpoint) bool {
	for i, existing := range t.breakpoints {
		if existing.Equal(bp) {
			t.breakpoints = append(t.breakpoints[:i], t.breakpoints[i+1:]...)
			return true
		}
	}
	return false
}
