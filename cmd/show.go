package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <timeline> [step]",
	Short: "Show a timeline, or a single step with full output",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	t, err := resolve(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		fmt.Fprintln(out, renderer.TimelineInfo(t))
		for _, step := range t.Steps() {
			fmt.Fprintln(out, renderer.Step(step, false))
		}
		if branches, err := service.ListBranches(t.ID()); err == nil && len(branches) > 0 {
			fmt.Fprintf(out, "\nBranches:\n")
			for _, b := range branches {
				fmt.Fprintf(out, "  %s  %q (from step %d)\n", b.ID, b.Name, *b.BranchPoint)
			}
		}
		return nil
	}

	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("step must be an integer, got %q", args[1])
	}
	step, err := t.StepAt(n)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, renderer.Step(step, true))
	return nil
}
