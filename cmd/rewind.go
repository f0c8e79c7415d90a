package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/devrewind/rewind/internal/recorder"
	"github.com/devrewind/rewind/internal/timeline/player"
)

var rewindExec bool

var rewindCmd = &cobra.Command{
	Use:   "rewind <timeline> <step>",
	Short: "Jump to a step and show the recorded state at that point",
	Long: `Jump to a specific step and show the state at that point: the step
itself, the working directory in effect, and every failure before and
after it. Nothing is re-executed.

With --exec, a new branch is forked at that step and recording resumes
in it, starting from the step's working directory.`,
	Args: cobra.ExactArgs(2),
	RunE: runRewind,
}

func init() {
	rewindCmd.Flags().BoolVar(&rewindExec, "exec", false, "fork a branch at this step and resume recording in it")
	rootCmd.AddCommand(rewindCmd)
}

func runRewind(cmd *cobra.Command, args []string) error {
	t, err := resolve(args[0])
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("step must be an integer, got %q", args[1])
	}

	snap, err := player.Rewind(t, n)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderer.TimelineInfo(t))
	for _, step := range t.Steps()[:n] {
		fmt.Fprintln(out, renderer.Step(step, false))
	}
	fmt.Fprintln(out, renderer.Step(snap.Step, true))
	fmt.Fprintln(out, renderer.Snapshot(snap))

	if !rewindExec {
		return nil
	}

	branch, err := service.Branch(t, n, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Branched into %q; recording resumes after step %d.\n\n", branch.Name(), n)

	rec := recorder.New(branch, service,
		recorder.WithShell(cfg.Shell),
		recorder.WithTimeout(cfg.CommandTimeout),
		recorder.WithWorkingDir(snap.WorkingDir),
	)
	return recordLoop(cmd, rec)
}
