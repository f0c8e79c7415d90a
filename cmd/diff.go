package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devrewind/rewind/internal/timeline/differ"
)

var diffFrom int

var diffCmd = &cobra.Command{
	Use:   "diff <timeline-a> <timeline-b>",
	Short: "Compare two timelines and find where they diverge",
	Long: `Compare two timelines position by position and report the first step
at which they diverge, plus a per-step classification of what changed
(command, output, exit code, or a combination).`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().IntVar(&diffFrom, "from", 0, "compare from this step")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	a, err := resolve(args[0])
	if err != nil {
		return err
	}
	b, err := resolve(args[1])
	if err != nil {
		return err
	}

	result := differ.Diff(a, b, diffFrom)
	fmt.Fprintf(cmd.OutOrStdout(), "a: %s (%d steps)\nb: %s (%d steps)\n\n",
		a.Name(), a.Len(), b.Name(), b.Len())
	fmt.Fprintln(cmd.OutOrStdout(), renderer.DiffResult(result))
	return nil
}
