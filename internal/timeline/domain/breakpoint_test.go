package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// ===========================================================================
// Variant matching
// ===========================================================================

func TestBreakpoint_Matches(t *testing.T) {
	okStep := testStep(1, "make build", 0)
	failStep := testStep(2, "make deploy", 1)

	t.Run("step breakpoint fires only at its index", func(t *testing.T) {
		bp := StepBreakpoint(2)
		require.False(t, bp.Matches(1, okStep))
		require.True(t, bp.Matches(2, failStep))
	})

	t.Run("pattern breakpoint fires on command regex match", func(t *testing.T) {
		bp, err := PatternBreakpoint(`deploy`)
		require.NoError(t, err)
		require.False(t, bp.Matches(1, okStep))
		require.True(t, bp.Matches(2, failStep))
	})

	t.Run("pattern supports full regex syntax", func(t *testing.T) {
		bp, err := PatternBreakpoint(`^make (build|deploy)$`)
		require.NoError(t, err)
		require.True(t, bp.Matches(1, okStep))
		require.True(t, bp.Matches(2, failStep))
		require.False(t, bp.Matches(0, testStep(0, "git pull", 0)))
	})

	t.Run("error breakpoint fires only on non-zero exit", func(t *testing.T) {
		bp := ErrorBreakpoint()
		require.False(t, bp.Matches(1, okStep))
		require.True(t, bp.Matches(2, failStep))
	})
}

func TestPatternBreakpoint_InvalidRegex(t *testing.T) {
	_, err := PatternBreakpoint(`[unclosed`)
	require.Error(t, err)
}

// ===========================================================================
// Set semantics
// ===========================================================================

func TestTimeline_BreakpointSet(t *testing.T) {
	t.Run("adding an equivalent breakpoint twice is idempotent", func(t *testing.T) {
		tl := NewTimeline("deploy")
		require.True(t, tl.AddBreakpoint(StepBreakpoint(3)))
		require.False(t, tl.AddBreakpoint(StepBreakpoint(3)))
		require.Len(t, tl.Breakpoints(), 1)
	})

	t.Run("distinct breakpoints accumulate", func(t *testing.T) {
		tl := NewTimeline("deploy")
		pattern, err := PatternBreakpoint(`deploy`)
		require.NoError(t, err)
		require.True(t, tl.AddBreakpoint(StepBreakpoint(3)))
		require.True(t, tl.AddBreakpoint(pattern))
		require.True(t, tl.AddBreakpoint(ErrorBreakpoint()))
		require.Len(t, tl.Breakpoints(), 3)
	})

	t.Run("remove reports whether anything changed", func(t *testing.T) {
		tl := NewTimeline("deploy")
		tl.AddBreakpoint(StepBreakpoint(3))
		require.True(t, tl.RemoveBreakpoint(StepBreakpoint(3)))
		require.False(t, tl.RemoveBreakpoint(StepBreakpoint(3)))
		require.Empty(t, tl.Breakpoints())
	})
}

// ===========================================================================
// Evaluation
// ===========================================================================

func TestEvaluateBreakpoints(t *testing.T) {
	pattern, err := PatternBreakpoint(`deploy`)
	require.NoError(t, err)
	bps := []Breakpoint{StepBreakpoint(2), pattern, ErrorBreakpoint()}

	t.Run("reports every breakpoint that fired", func(t *testing.T) {
		fired := EvaluateBreakpoints(bps, 2, testStep(2, "make deploy", 1))
		require.Len(t, fired, 3, "step index, pattern, and error should all fire")
	})

	t.Run("no breakpoints fire on a clean unrelated step", func(t *testing.T) {
		fired := EvaluateBreakpoints(bps, 0, testStep(0, "git pull", 0))
		require.Empty(t, fired)
	})

	t.Run("evaluation never mutates the set", func(t *testing.T) {
		before := len(bps)
		_ = EvaluateBreakpoints(bps, 2, testStep(2, "make deploy", 1))
		require.Len(t, bps, before)
	})
}
