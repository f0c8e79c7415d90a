package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/devrewind/rewind/internal/log"
	"github.com/devrewind/rewind/internal/recorder"
	"github.com/devrewind/rewind/internal/timeline/domain"
)

var recordShell string

var recordCmd = &cobra.Command{
	Use:   "record [name]",
	Short: "Start recording a new timeline",
	Long: `Start recording a new timeline. Commands typed at the prompt are
executed through the shell and captured as steps. Type "exit" or press
Ctrl-D to stop recording.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordShell, "shell", "", "shell to run commands with (default: $SHELL)")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		name = "timeline-" + time.Now().UTC().Format("20060102-150405")
	}

	t := domain.NewTimeline(name)
	if err := service.Save(t); err != nil {
		return err
	}

	rec := recorder.New(t, service,
		recorder.WithShell(firstNonEmpty(recordShell, cfg.Shell)),
		recorder.WithTimeout(cfg.CommandTimeout),
	)
	return recordLoop(cmd, rec)
}

// recordLoop drives the interactive prompt shared by record, branch
// --exec, and rewind --exec.
func recordLoop(cmd *cobra.Command, rec *recorder.Recorder) error {
	t := rec.Timeline()
	fmt.Fprintf(cmd.OutOrStdout(), "Recording timeline %q (%s)\nType commands normally; \"exit\" or Ctrl-D stops recording.\n\n", t.Name(), t.ID())

	reader := bufio.NewReader(cmd.InOrStdin())
	for {
		fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s $ ", t.Len(), rec.WorkingDir())

		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(cmd.OutOrStdout())
				break
			}
			return err
		}

		command := strings.TrimSpace(line)
		if command == "" {
			continue
		}
		if command == "exit" || command == "quit" {
			break
		}

		step, err := rec.Record(cmd.Context(), command)
		if err != nil {
			log.ErrorErr(log.CatCLI, "Failed to record step", err, "command", command)
			return err
		}
		if out := step.Output(); out != "" {
			fmt.Fprint(cmd.OutOrStdout(), strings.TrimRight(out, "\n")+"\n")
		}
		if step.Failed() {
			fmt.Fprintf(cmd.OutOrStdout(), "exit code: %d\n", step.ExitCode)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Timeline saved: %s (%d steps)\n", t.ID(), t.Len())
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
