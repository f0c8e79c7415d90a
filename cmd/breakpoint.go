package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devrewind/rewind/internal/timeline/domain"
)

var (
	bpStep    int
	bpPattern string
	bpOnError bool
)

var breakpointCmd = &cobra.Command{
	Use:     "breakpoint",
	Aliases: []string{"bp"},
	Short:   "Manage breakpoints on a timeline",
}

var bpAddCmd = &cobra.Command{
	Use:   "add <timeline>",
	Short: "Add a breakpoint",
	Long: `Add a breakpoint to a timeline. Exactly one trigger must be given:
a step index, a command pattern (regular expression), or --on-error.
Adding an equivalent breakpoint twice has no further effect.`,
	Args: cobra.ExactArgs(1),
	RunE: runBreakpointAdd,
}

var bpListCmd = &cobra.Command{
	Use:   "list <timeline>",
	Short: "List breakpoints",
	Args:  cobra.ExactArgs(1),
	RunE:  runBreakpointList,
}

var bpRemoveCmd = &cobra.Command{
	Use:   "remove <timeline>",
	Short: "Remove a breakpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runBreakpointRemove,
}

func init() {
	for _, c := range []*cobra.Command{bpAddCmd, bpRemoveCmd} {
		c.Flags().IntVar(&bpStep, "step", -1, "trigger at this step index")
		c.Flags().StringVar(&bpPattern, "pattern", "", "trigger when the command matches this regex")
		c.Flags().BoolVar(&bpOnError, "on-error", false, "trigger on any non-zero exit code")
	}
	breakpointCmd.AddCommand(bpAddCmd, bpListCmd, bpRemoveCmd)
	rootCmd.AddCommand(breakpointCmd)
}

// breakpointFromFlags builds the breakpoint described by the add/remove
// flags, requiring exactly one trigger.
func breakpointFromFlags() (domain.Breakpoint, error) {
	set := 0
	if bpStep >= 0 {
		set++
	}
	if bpPattern != "" {
		set++
	}
	if bpOnError {
		set++
	}
	if set != 1 {
		return domain.Breakpoint{}, fmt.Errorf("specify exactly one of --step, --pattern, or --on-error")
	}

	switch {
	case bpStep >= 0:
		return domain.StepBreakpoint(bpStep), nil
	case bpPattern != "":
		return domain.PatternBreakpoint(bpPattern)
	default:
		return domain.ErrorBreakpoint(), nil
	}
}

func runBreakpointAdd(cmd *cobra.Command, args []string) error {
	t, err := resolve(args[0])
	if err != nil {
		return err
	}
	bp, err := breakpointFromFlags()
	if err != nil {
		return err
	}
	if err := service.AddBreakpoint(t, bp); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Breakpoint added: %s\n", bp)
	return nil
}

func runBreakpointList(cmd *cobra.Command, args []string) error {
	t, err := resolve(args[0])
	if err != nil {
		return err
	}
	bps := t.Breakpoints()
	if len(bps) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No breakpoints set for this timeline.")
		return nil
	}
	for _, bp := range bps {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", bp)
	}
	return nil
}

func runBreakpointRemove(cmd *cobra.Command, args []string) error {
	t, err := resolve(args[0])
	if err != nil {
		return err
	}
	bp, err := breakpointFromFlags()
	if err != nil {
		return err
	}
	removed, err := service.RemoveBreakpoint(t, bp)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintf(cmd.OutOrStdout(), "No matching breakpoint: %s\n", bp)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Breakpoint removed: %s\n", bp)
	return nil
}
