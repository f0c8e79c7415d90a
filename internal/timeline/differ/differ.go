// Package differ compares two timelines position by position and locates
// the exact point where they diverge.
//
// The comparison is deliberately positional, not an edit-distance
// alignment: branches are created by exact prefix copy, so timelines
// that share lineage are always index-aligned up to their branch point,
// and a lockstep walk is both correct and cheap. Timelines with no
// common ancestor get no special alignment treatment.
package differ

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/devrewind/rewind/internal/timeline/domain"
)

// Change is a bitmask classifying how two steps at the same index differ.
type Change uint8

const (
	// ChangeCommand is set when the command text differs.
	ChangeCommand Change = 1 << iota
	// ChangeOutput is set when stdout or stderr differ.
	ChangeOutput
	// ChangeExitCode is set when the exit codes differ.
	ChangeExitCode
)

// Has reports whether the mask includes the given change.
func (c Change) Has(flag Change) bool {
	return c&flag != 0
}

// Identical reports whether no field differed.
func (c Change) Identical() bool {
	return c == 0
}

// String renders the classification for diagnostic display.
func (c Change) String() string {
	if c == 0 {
		return "identical"
	}
	var parts []string
	if c.Has(ChangeCommand) {
		parts = append(parts, "command")
	}
	if c.Has(ChangeOutput) {
		parts = append(parts, "output")
	}
	if c.Has(ChangeExitCode) {
		parts = append(parts, "exit code")
	}
	return strings.Join(parts, "+") + " changed"
}

// StepDiff classifies the difference between the steps at one index.
type StepDiff struct {
	Index  int
	A      domain.Step
	B      domain.Step
	Change Change
}

// DiffResult is the full comparison of two timelines.
type DiffResult struct {
	AID  string
	BID  string
	LenA int
	LenB int
	// Steps holds one classification per index up to the end of the
	// shorter timeline.
	Steps []StepDiff
	// DivergeIndex is the first index at which the timelines diverge, or
	// -1 when no divergence was found. When every compared field matches
	// but the lengths differ, it is the index one past the shorter
	// timeline's last step.
	DivergeIndex int
}

// Diverged reports whether any divergence was found.
func (r DiffResult) Diverged() bool {
	return r.DivergeIndex >= 0
}

// Changed returns the per-step diffs where any field differed.
func (r DiffResult) Changed() []StepDiff {
	var out []StepDiff
	for _, d := range r.Steps {
		if !d.Change.Identical() {
			out = append(out, d)
		}
	}
	return out
}

// Diff walks both timelines index by index from fromStep and classifies
// every pair of steps up to the end of the shorter timeline. The
// divergence index is the smallest index where command, stdout, stderr,
// or exit code differ; absent any field difference, a length mismatch
// diverges at the shorter length. Two identical-length, field-identical
// timelines report no divergence.
func Diff(a, b *domain.Timeline, fromStep int) DiffResult {
	result := DiffResult{
		AID:          a.ID(),
		BID:          b.ID(),
		LenA:         a.Len(),
		LenB:         b.Len(),
		DivergeIndex: -1,
	}

	shorter := min(a.Len(), b.Len())
	if fromStep < 0 {
		fromStep = 0
	}
	for i := fromStep; i < shorter; i++ {
		stepA, _ := a.StepAt(i)
		stepB, _ := b.StepAt(i)
		d := StepDiff{Index: i, A: stepA, B: stepB, Change: classify(stepA, stepB)}
		result.Steps = append(result.Steps, d)
		if result.DivergeIndex < 0 && !d.Change.Identical() {
			result.DivergeIndex = i
		}
	}

	if result.DivergeIndex < 0 && a.Len() != b.Len() && shorter >= fromStep {
		result.DivergeIndex = shorter
	}
	return result
}

func classify(a, b domain.Step) Change {
	var c Change
	if a.Command != b.Command {
		c |= ChangeCommand
	}
	if a.Stdout != b.Stdout || a.Stderr != b.Stderr {
		c |= ChangeOutput
	}
	if a.ExitCode != b.ExitCode {
		c |= ChangeExitCode
	}
	return c
}

// OutputPatch returns a unified character-level diff of the two steps'
// combined output, for rendering alongside an OutputChanged
// classification. Equal outputs produce an empty string.
func OutputPatch(a, b domain.Step) string {
	if a.Output() == b.Output() {
		return ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a.Output(), b.Output(), false)
	dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyText(diffs)
}
