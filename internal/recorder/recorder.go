// Package recorder executes shell commands one at a time and appends the
// captured results to a timeline as steps. It is the only part of rewind
// that runs child processes; everything downstream treats the recorded
// steps as immutable history.
package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/devrewind/rewind/internal/log"
	"github.com/devrewind/rewind/internal/timeline/application"
	"github.com/devrewind/rewind/internal/timeline/domain"
)

// exitCodeTimeout mirrors the shell convention for a killed command.
const exitCodeTimeout = 124

// envKeysToSnapshot is the safe subset of the environment captured with
// each step, for later inspection of the state a command ran under.
var envKeysToSnapshot = []string{"PATH", "HOME", "PWD", "SHELL", "USER", "LANG"}

// Recorder appends executed commands to a timeline, saving after every
// step so a crash loses at most the command in flight.
type Recorder struct {
	timeline *domain.Timeline
	service  *application.Service
	shell    string
	timeout  time.Duration
	cwd      string
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithShell overrides the shell binary used to run commands.
func WithShell(shell string) Option {
	return func(r *Recorder) {
		if shell != "" {
			r.shell = shell
		}
	}
}

// WithTimeout bounds each command's runtime.
func WithTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithWorkingDir sets the starting working directory, used when
// resuming a branched timeline at its branch point.
func WithWorkingDir(dir string) Option {
	return func(r *Recorder) {
		if dir != "" {
			r.cwd = dir
		}
	}
}

// New creates a Recorder for the given timeline. The working directory
// starts at the process cwd unless overridden.
func New(t *domain.Timeline, service *application.Service, opts ...Option) *Recorder {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}
	r := &Recorder{
		timeline: t,
		service:  service,
		shell:    "/bin/sh",
		timeout:  5 * time.Minute,
		cwd:      cwd,
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		r.shell = shell
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WorkingDir returns the directory the next command will run in.
func (r *Recorder) WorkingDir() string {
	return r.cwd
}

// Timeline returns the timeline being recorded.
func (r *Recorder) Timeline() *domain.Timeline {
	return r.timeline
}

// Record executes one command, appends the resulting step to the
// timeline, and persists it. "cd" is handled in-process so the tracked
// working directory follows the operator; everything else runs through
// the configured shell.
func (r *Recorder) Record(ctx context.Context, command string) (domain.Step, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return domain.Step{}, fmt.Errorf("empty command")
	}

	var step domain.Step
	if command == "cd" || strings.HasPrefix(command, "cd ") {
		step = r.changeDir(command)
	} else {
		step = r.run(ctx, command)
	}

	if err := r.timeline.Append(step); err != nil {
		return domain.Step{}, err
	}
	if err := r.service.Save(r.timeline); err != nil {
		return domain.Step{}, err
	}
	log.Debug(log.CatCLI, "Step recorded",
		"timeline", r.timeline.ID(), "index", step.Index, "exit_code", step.ExitCode)
	return step, nil
}

func (r *Recorder) run(ctx context.Context, command string) domain.Step {
	step := r.newStep(command)

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.shell, "-c", command) //nolint:gosec // G204: running operator-typed commands is the product
	cmd.Dir = r.cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	step.Stdout = stdout.String()
	step.Stderr = stderr.String()

	switch {
	case err == nil:
		step.ExitCode = 0
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		step.ExitCode = exitCodeTimeout
		step.Stderr += fmt.Sprintf("rewind: command timed out after %s\n", r.timeout)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			step.ExitCode = exitErr.ExitCode()
		} else {
			// Start failure: shell missing, permission denied, etc.
			step.ExitCode = 1
			step.Stderr += fmt.Sprintf("rewind: %v\n", err)
		}
	}

	return step
}

// changeDir resolves a cd target against the tracked working directory
// without spawning a child process.
func (r *Recorder) changeDir(command string) domain.Step {
	step := r.newStep(command)

	parts := strings.SplitN(command, " ", 2)
	target := ""
	if len(parts) > 1 {
		target = strings.TrimSpace(parts[1])
	}
	if target == "" || target == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			step.ExitCode = 1
			step.Stderr = fmt.Sprintf("cd: %v\n", err)
			return step
		}
		target = home
	} else if strings.HasPrefix(target, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			target = filepath.Join(home, target[2:])
		}
	}

	if !filepath.IsAbs(target) {
		target = filepath.Join(r.cwd, target)
	}
	target = filepath.Clean(target)

	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		step.ExitCode = 1
		step.Stderr = fmt.Sprintf("cd: no such directory: %s\n", target)
		return step
	}

	r.cwd = target
	step.ExitCode = 0
	return step
}

func (r *Recorder) newStep(command string) domain.Step {
	env := make(map[string]string, len(envKeysToSnapshot))
	for _, key := range envKeysToSnapshot {
		if val, ok := os.LookupEnv(key); ok {
			env[key] = val
		}
	}
	env["PWD"] = r.cwd

	return domain.Step{
		Index:       r.timeline.Len(),
		Command:     command,
		WorkingDir:  r.cwd,
		Timestamp:   time.Now().UTC(),
		EnvSnapshot: env,
	}
}
