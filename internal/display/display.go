// Package display renders timelines, steps, and diff results for the
// terminal. It consumes fully-formed values read-only; nothing here
// mutates engine state.
package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/devrewind/rewind/internal/timeline/application"
	"github.com/devrewind/rewind/internal/timeline/differ"
	"github.com/devrewind/rewind/internal/timeline/domain"
	"github.com/devrewind/rewind/internal/timeline/player"
)

const outputWidth = 100

// Renderer renders engine values as terminal text.
type Renderer struct {
	color      bool
	showOutput bool

	ok      lipgloss.Style
	fail    lipgloss.Style
	dim     lipgloss.Style
	title   lipgloss.Style
	warn    lipgloss.Style
	panel   lipgloss.Style
	failBox lipgloss.Style
}

// New creates a Renderer. With color disabled, styles collapse to plain
// text so output is pipe-friendly.
func New(color, showOutput bool) *Renderer {
	r := &Renderer{color: color, showOutput: showOutput}
	if color {
		r.ok = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
		r.fail = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
		r.dim = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
		r.title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
		r.warn = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
		r.panel = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
		r.failBox = r.panel.BorderForeground(lipgloss.Color("9"))
	} else {
		plain := lipgloss.NewStyle()
		r.ok, r.fail, r.dim, r.title, r.warn = plain, plain, plain, plain, plain
		r.panel = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
		r.failBox = r.panel
	}
	return r
}

func (r *Renderer) exitLabel(code int) string {
	if code == 0 {
		return r.ok.Render("OK")
	}
	return r.fail.Render(fmt.Sprintf("ERR %d", code))
}

// Step renders one step, optionally with its captured output.
func (r *Renderer) Step(s domain.Step, withOutput bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s\n",
		r.title.Render(fmt.Sprintf("[%d]", s.Index)),
		s.Command,
		r.exitLabel(s.ExitCode))
	b.WriteString(r.dim.Render(fmt.Sprintf("    %s  %s", s.Timestamp.Format("15:04:05"), s.WorkingDir)))

	if withOutput && r.showOutput {
		if out := strings.TrimRight(s.Stdout, "\n"); out != "" {
			b.WriteString("\n" + indent(wordwrap.String(out, outputWidth), "    "))
		}
		if errOut := strings.TrimRight(s.Stderr, "\n"); errOut != "" {
			b.WriteString("\n" + indent(r.fail.Render(wordwrap.String(errOut, outputWidth)), "    "))
		}
	}
	return b.String()
}

// TimelineInfo renders a summary panel for a timeline.
func (r *Renderer) TimelineInfo(t *domain.Timeline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", r.title.Render("Timeline:"), t.Name())
	fmt.Fprintf(&b, "ID:      %s\n", t.ID())
	fmt.Fprintf(&b, "Created: %s\n", t.CreatedAt().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Steps:   %d", t.Len())
	if d := t.Duration(); d > 0 {
		fmt.Fprintf(&b, "\nSpan:    %s", d.Round(time.Millisecond))
	}
	if t.IsBranch() {
		fmt.Fprintf(&b, "\n%s %s (from step %d)", r.warn.Render("Branch of:"), t.ParentID(), *t.BranchPoint())
	}
	if failed := t.FailedSteps(); len(failed) > 0 {
		fmt.Fprintf(&b, "\n%s %d step(s)", r.fail.Render("Failures:"), len(failed))
	} else if t.Len() > 0 {
		fmt.Fprintf(&b, "\n%s", r.ok.Render("All steps succeeded"))
	}
	return r.panel.Render(b.String())
}

// Summaries renders the timeline listing table.
func (r *Renderer) Summaries(summaries []application.Summary) string {
	var b strings.Builder
	b.WriteString(r.title.Render(fmt.Sprintf("%-36s  %-28s  %-19s  %5s  %s", "ID", "NAME", "CREATED", "STEPS", "LINEAGE")))
	for _, s := range summaries {
		lineage := "root"
		if s.IsBranch() {
			lineage = fmt.Sprintf("branch of %.8s @%d", s.ParentID, *s.BranchPoint)
		}
		steps := fmt.Sprintf("%d", s.StepCount)
		if s.FailedCount > 0 {
			steps = r.fail.Render(fmt.Sprintf("%d!", s.StepCount))
		}
		fmt.Fprintf(&b, "\n%-36s  %-28.28s  %-19s  %5s  %s",
			s.ID, s.Name, s.CreatedAt.Format("2006-01-02 15:04:05"), steps, r.dim.Render(lineage))
	}
	return b.String()
}

// Snapshot renders the state panel produced by a rewind.
func (r *Renderer) Snapshot(snap player.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.warn.Render(fmt.Sprintf("Rewound to step %d", snap.Step.Index)))
	fmt.Fprintf(&b, "Working directory: %s\n", snap.WorkingDir)
	fmt.Fprintf(&b, "Failures before:   %s\n", r.failureList(snap.FailuresBefore))
	fmt.Fprintf(&b, "Failures after:    %s", r.failureList(snap.FailuresAfter))
	style := r.panel
	if snap.Step.Failed() {
		style = r.failBox
	}
	return style.Render(b.String())
}

func (r *Renderer) failureList(indices []int) string {
	if len(indices) == 0 {
		return r.ok.Render("none")
	}
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = fmt.Sprintf("%d", idx)
	}
	return r.fail.Render(strings.Join(parts, ", "))
}

// Hit renders one replay step together with any breakpoints that fired.
func (r *Renderer) Hit(h player.Hit) string {
	s := r.Step(h.Step, true)
	if !h.Triggered() {
		return s
	}
	descs := make([]string, len(h.Breakpoints))
	for i, bp := range h.Breakpoints {
		descs[i] = bp.String()
	}
	return s + "\n" + r.warn.Render("    ** breakpoint hit: "+strings.Join(descs, "; "))
}

// DiffResult renders a diff summary plus per-step classifications.
func (r *Renderer) DiffResult(result differ.DiffResult) string {
	var b strings.Builder
	if !result.Diverged() {
		b.WriteString(r.ok.Render("Timelines are identical in the compared range."))
		return b.String()
	}

	fmt.Fprintf(&b, "%s\n", r.warn.Render(fmt.Sprintf("Timelines diverge at step %d.", result.DivergeIndex)))
	for _, d := range result.Changed() {
		fmt.Fprintf(&b, "\n%s %s\n", r.title.Render(fmt.Sprintf("[%d]", d.Index)), d.Change)
		if d.Change.Has(differ.ChangeCommand) {
			fmt.Fprintf(&b, "  a: %s\n  b: %s\n", d.A.Command, d.B.Command)
		}
		if d.Change.Has(differ.ChangeExitCode) {
			fmt.Fprintf(&b, "  exit: %s -> %s\n", r.exitLabel(d.A.ExitCode), r.exitLabel(d.B.ExitCode))
		}
		if d.Change.Has(differ.ChangeOutput) && r.showOutput {
			patch := differ.OutputPatch(d.A, d.B)
			b.WriteString(indent(wordwrap.String(patch, outputWidth), "  "))
			b.WriteString("\n")
		}
	}
	if result.LenA != result.LenB {
		fmt.Fprintf(&b, "\n%s", r.dim.Render(fmt.Sprintf("lengths differ: a has %d step(s), b has %d", result.LenA, result.LenB)))
	}
	return b.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
