package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/devrewind/rewind/internal/timeline/player"
)

var (
	replaySpeed    float64
	replayFrom     int
	replayTo       int
	replayStepMode bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <timeline>",
	Short: "Replay a recorded timeline step by step",
	Long: `Walk a timeline from a start index, showing each step with its
captured output. Breakpoints configured on the timeline are evaluated at
every step; a hit pauses playback until Enter is pressed. Replay is a
display of recorded history; no command is re-executed.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "playback speed multiplier")
	replayCmd.Flags().IntVar(&replayFrom, "from", 0, "start from this step")
	replayCmd.Flags().IntVar(&replayTo, "to", -1, "stop at this step (default: last)")
	replayCmd.Flags().BoolVar(&replayStepMode, "step", false, "wait for Enter between steps")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	t, err := resolve(args[0])
	if err != nil {
		return err
	}
	if t.Len() == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Timeline has no steps to replay.")
		return nil
	}

	replay, err := player.NewReplay(t, replayFrom)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderer.TimelineInfo(t))

	var prev time.Time
	for replay.Next() {
		hit := replay.Current()
		if replayTo >= 0 && hit.Step.Index > replayTo {
			break
		}

		if !replayStepMode && !prev.IsZero() {
			wait(hit.Step.Timestamp.Sub(prev), replaySpeed)
		}
		prev = hit.Step.Timestamp

		fmt.Fprintln(out, renderer.Hit(hit))

		if replayStepMode || hit.Triggered() {
			fmt.Fprint(out, "  -- press Enter to continue --")
			if _, err := fmt.Fscanln(cmd.InOrStdin()); err != nil {
				fmt.Fprintln(out)
				return nil
			}
		}
	}

	fmt.Fprintln(out, "Replay complete.")
	return nil
}

// wait sleeps for the recorded inter-step delay scaled by speed, capped
// so replaying a timeline with long gaps never stalls.
func wait(delay time.Duration, speed float64) {
	if speed <= 0 {
		speed = 1
	}
	if delay < 0 {
		return
	}
	if delay > 10*time.Second {
		delay = 10 * time.Second
	}
	time.Sleep(time.Duration(float64(delay) / speed))
}
