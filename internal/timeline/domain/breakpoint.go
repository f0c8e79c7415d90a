package domain

import (
	"fmt"
	"regexp"
)

// BreakpointKind enumerates the closed set of breakpoint variants.
type BreakpointKind string

const (
	// BreakAtStep triggers when playback reaches a specific step index.
	BreakAtStep BreakpointKind = "step"
	// BreakOnPattern triggers when the command matches a regular expression.
	BreakOnPattern BreakpointKind = "pattern"
	// BreakOnError triggers on any non-zero exit code.
	BreakOnError BreakpointKind = "error"
)

// Breakpoint is a pure, stateless predicate over (index, Step). It never
// mutates the timeline it is attached to; evaluation only decides whether
// playback should pause.
type Breakpoint struct {
	Kind      BreakpointKind
	StepIndex int    // target index for BreakAtStep
	Pattern   string // regex source for BreakOnPattern
}

// StepBreakpoint returns a breakpoint that fires at the given index.
func StepBreakpoint(index int) Breakpoint {
	return Breakpoint{Kind: BreakAtStep, StepIndex: index}
}

// PatternBreakpoint returns a breakpoint that fires when a command
// matches the given regular expression. The pattern is validated here so
// an invalid regex surfaces at configuration time, not during replay.
func PatternBreakpoint(pattern string) (Breakpoint, error) {
	if _, err := regexp.Compile(pattern); err != nil {
		return Breakpoint{}, fmt.Errorf("invalid breakpoint pattern %q: %w", pattern, err)
	}
	return Breakpoint{Kind: BreakOnPattern, Pattern: pattern}, nil
}

// ErrorBreakpoint returns a breakpoint that fires on any failed step.
func ErrorBreakpoint() Breakpoint {
	return Breakpoint{Kind: BreakOnError}
}

// Matches reports whether this breakpoint triggers for the step at the
// given index. The switch is exhaustive over BreakpointKind.
func (b Breakpoint) Matches(index int, step Step) bool {
	switch b.Kind {
	case BreakAtStep:
		return index == b.StepIndex
	case BreakOnPattern:
		re, err := regexp.Compile(b.Pattern)
		if err != nil {
			return false
		}
		return re.MatchString(step.Command)
	case BreakOnError:
		return step.ExitCode != 0
	default:
		return false
	}
}

// Equal reports whether two breakpoints are equivalent configurations.
// Equivalent breakpoints are deduplicated by Timeline.AddBreakpoint.
func (b Breakpoint) Equal(other Breakpoint) bool {
	return b.Kind == other.Kind && b.StepIndex == other.StepIndex && b.Pattern == other.Pattern
}

// String returns a short human-readable description for diagnostics.
func (b Breakpoint) String() string {
	switch b.Kind {
	case BreakAtStep:
		return fmt.Sprintf("at step %d", b.StepIndex)
	case BreakOnPattern:
		return fmt.Sprintf("on pattern /%s/", b.Pattern)
	case BreakOnError:
		return "on any error"
	default:
		return string(b.Kind)
	}
}

// EvaluateBreakpoints returns every breakpoint in the set that fires for
// the step at the given index. The overall trigger decision is the
// logical OR over the set; the returned slice identifies which
// breakpoints fired, for diagnostic display.
func EvaluateBreakpoints(bps []Breakpoint, index int, step Step) []Breakpoint {
	var fired []Breakpoint
	for _, bp := range bps {
		if bp.Matches(index, step) {
			fired = append(fired, bp)
		}
	}
	return fired
}
