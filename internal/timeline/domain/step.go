// Package domain contains the core timeline entities: steps, timelines,
// and breakpoints. Types here are plain values with no I/O; persistence
// and rendering live in other packages.
package domain

import (
	"maps"
	"time"
)

// Step is an immutable record of one executed shell command and its
// observed result. Once a Step has been appended to a Timeline it is
// never modified.
type Step struct {
	Index       int               `json:"index"`
	Command     string            `json:"command"`
	Stdout      string            `json:"stdout"`
	Stderr      string            `json:"stderr"`
	ExitCode    int               `json:"exit_code"`
	WorkingDir  string            `json:"working_dir"`
	Timestamp   time.Time         `json:"timestamp"`
	EnvSnapshot map[string]string `json:"env_snapshot,omitempty"`
}

// Succeeded reports whether the command exited with code 0.
func (s Step) Succeeded() bool {
	return s.ExitCode == 0
}

// Failed reports whether the command exited with a non-zero code.
func (s Step) Failed() bool {
	return s.ExitCode != 0
}

// Output returns stdout and stderr concatenated in capture order.
func (s Step) Output() string {
	if s.Stderr == "" {
		return s.Stdout
	}
	if s.Stdout == "" {
		return s.Stderr
	}
	return s.Stdout + s.Stderr
}

// Equal reports field-for-field equality of the recorded command result.
// The environment snapshot is diagnostic metadata and is not compared.
func (s Step) Equal(other Step) bool {
	return s.Index == other.Index &&
		s.Command == other.Command &&
		s.Stdout == other.Stdout &&
		s.Stderr == other.Stderr &&
		s.ExitCode == other.ExitCode &&
		s.WorkingDir == other.WorkingDir &&
		s.Timestamp.Equal(other.Timestamp)
}

// clone returns a copy of the step with its own environment map, so the
// copy shares no mutable state with the original.
func (s Step) clone() Step {
	c := s
	if s.EnvSnapshot != nil {
		c.EnvSnapshot = maps.Clone(s.EnvSnapshot)
	}
	return c
}
