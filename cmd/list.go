package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	listLimit  int
	listFormat string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded timelines",
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "number of timelines to show (default: config history_limit)")
	listCmd.Flags().StringVar(&listFormat, "format", "table", "output format: table or json")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	limit := listLimit
	if limit <= 0 {
		limit = cfg.HistoryLimit
	}

	summaries, err := service.List(limit)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), `No timelines recorded yet. Run "rewind record" to start.`)
		return nil
	}

	switch listFormat {
	case "json":
		type row struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			CreatedAt   string `json:"created_at"`
			StepCount   int    `json:"step_count"`
			FailedCount int    `json:"failed_count"`
			ParentID    string `json:"parent_id,omitempty"`
			BranchPoint *int   `json:"branch_point,omitempty"`
		}
		rows := make([]row, 0, len(summaries))
		for _, s := range summaries {
			rows = append(rows, row{
				ID:          s.ID,
				Name:        s.Name,
				CreatedAt:   s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				StepCount:   s.StepCount,
				FailedCount: s.FailedCount,
				ParentID:    s.ParentID,
				BranchPoint: s.BranchPoint,
			})
		}
		raw, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	case "table":
		fmt.Fprintln(cmd.OutOrStdout(), renderer.Summaries(summaries))
	default:
		return fmt.Errorf("unknown list format %q (want table or json)", listFormat)
	}
	return nil
}
