// Package export serializes a finished timeline into portable formats:
// an executable shell script, Markdown, JSON, or YAML. Every exporter is
// a pure transformation over a fully-built timeline.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devrewind/rewind/internal/timeline/domain"
)

// Format names an export format.
type Format string

const (
	FormatShell    Format = "sh"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat validates a format name from the CLI.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatShell, FormatMarkdown, FormatJSON, FormatYAML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown export format %q (want sh, markdown, json, or yaml)", s)
	}
}

// document is the serialization shape shared by JSON and YAML export.
type document struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	ParentID    string    `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	BranchPoint *int      `json:"branch_point,omitempty" yaml:"branch_point,omitempty"`
	Steps       []step    `json:"steps" yaml:"steps"`
}

type step struct {
	Index      int       `json:"index" yaml:"index"`
	Command    string    `json:"command" yaml:"command"`
	Stdout     string    `json:"stdout,omitempty" yaml:"stdout,omitempty"`
	Stderr     string    `json:"stderr,omitempty" yaml:"stderr,omitempty"`
	ExitCode   int       `json:"exit_code" yaml:"exit_code"`
	WorkingDir string    `json:"working_dir" yaml:"working_dir"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
}

func toDocument(t *domain.Timeline) document {
	doc := document{
		ID:          t.ID(),
		Name:        t.Name(),
		CreatedAt:   t.CreatedAt(),
		ParentID:    t.ParentID(),
		BranchPoint: t.BranchPoint(),
		Steps:       make([]step, 0, t.Len()),
	}
	for _, s := range t.Steps() {
		doc.Steps = append(doc.Steps, step{
			Index:      s.Index,
			Command:    s.Command,
			Stdout:     s.Stdout,
			Stderr:     s.Stderr,
			ExitCode:   s.ExitCode,
			WorkingDir: s.WorkingDir,
			Timestamp:  s.Timestamp,
		})
	}
	return doc
}

// Render serializes the timeline in the requested format.
func Render(t *domain.Timeline, format Format) (string, error) {
	switch format {
	case FormatShell:
		return renderShell(t), nil
	case FormatMarkdown:
		return renderMarkdown(t), nil
	case FormatJSON:
		raw, err := json.MarshalIndent(toDocument(t), "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding timeline as json: %w", err)
		}
		return string(raw) + "\n", nil
	case FormatYAML:
		raw, err := yaml.Marshal(toDocument(t))
		if err != nil {
			return "", fmt.Errorf("encoding timeline as yaml: %w", err)
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
}

// renderShell emits a re-runnable script: each step becomes a cd into
// its recorded working directory followed by the command.
func renderShell(t *domain.Timeline) string {
	var b strings.Builder
	b.WriteString("#!/usr/bin/env bash\n")
	fmt.Fprintf(&b, "# Timeline: %s\n", t.Name())
	fmt.Fprintf(&b, "# Recorded: %s\n", t.CreatedAt().Format(time.RFC3339))
	fmt.Fprintf(&b, "# Steps: %d\n", t.Len())
	b.WriteString("set -e\n\n")
	for _, s := range t.Steps() {
		fmt.Fprintf(&b, "# Step %d - exit %d\n", s.Index, s.ExitCode)
		fmt.Fprintf(&b, "cd %s\n", shellQuote(s.WorkingDir))
		b.WriteString(s.Command + "\n\n")
	}
	return b.String()
}

func renderMarkdown(t *domain.Timeline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Timeline: %s\n\n", t.Name())
	fmt.Fprintf(&b, "- **ID**: `%s`\n", t.ID())
	fmt.Fprintf(&b, "- **Recorded**: %s\n", t.CreatedAt().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- **Steps**: %d\n", t.Len())
	if t.IsBranch() {
		fmt.Fprintf(&b, "- **Branch of**: `%s` at step %d\n", t.ParentID(), *t.BranchPoint())
	}
	b.WriteString("\n## Steps\n\n")
	for _, s := range t.Steps() {
		status := "OK"
		if s.Failed() {
			status = fmt.Sprintf("FAILED (exit %d)", s.ExitCode)
		}
		fmt.Fprintf(&b, "### Step %d - %s\n\n", s.Index, status)
		fmt.Fprintf(&b, "**Directory**: `%s`\n\n", s.WorkingDir)
		b.WriteString("```bash\n")
		fmt.Fprintf(&b, "$ %s\n", s.Command)
		if out := strings.TrimRight(s.Output(), "\n"); out != "" {
			b.WriteString(out + "\n")
		}
		b.WriteString("```\n\n")
	}
	return b.String()
}

// shellQuote single-quotes a path for safe use in the exported script.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
