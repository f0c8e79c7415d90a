package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/devrewind/rewind/internal/recorder"
	"github.com/devrewind/rewind/internal/timeline/player"
)

var (
	branchName string
	branchExec bool
)

var branchCmd = &cobra.Command{
	Use:   "branch <timeline> <step>",
	Short: "Fork a timeline from a step into a new branch",
	Long: `Create a new timeline containing a copy of the parent's steps from 0
through the given step inclusive. The copy shares nothing with the
parent: recording into either timeline never affects the other.`,
	Args: cobra.ExactArgs(2),
	RunE: runBranch,
}

func init() {
	branchCmd.Flags().StringVar(&branchName, "name", "", "name for the branch (default: {parent}-branch-{step})")
	branchCmd.Flags().BoolVar(&branchExec, "exec", false, "start recording in the new branch")
	rootCmd.AddCommand(branchCmd)
}

func runBranch(cmd *cobra.Command, args []string) error {
	parent, err := resolve(args[0])
	if err != nil {
		return err
	}
	fromStep, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("step must be an integer, got %q", args[1])
	}

	branch, err := service.Branch(parent, fromStep, branchName)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Branch created: %s\n", branch.ID())
	fmt.Fprintf(out, "Name:   %s\n", branch.Name())
	fmt.Fprintf(out, "Forked: %q at step %d (%d steps copied)\n", parent.Name(), fromStep, branch.Len())

	if !branchExec {
		return nil
	}

	snap, err := player.Rewind(parent, fromStep)
	if err != nil {
		return err
	}
	rec := recorder.New(branch, service,
		recorder.WithShell(cfg.Shell),
		recorder.WithTimeout(cfg.CommandTimeout),
		recorder.WithWorkingDir(snap.WorkingDir),
	)
	return recordLoop(cmd, rec)
}
