package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devrewind/rewind/internal/export"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export <timeline>",
	Short: "Export a timeline as a shell script, Markdown, JSON, or YAML",
	Long: `Export a timeline to stdout so it can be redirected to a file:

    rewind export my-deploy --format sh > deploy.sh`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "sh", "export format: sh, markdown, json, or yaml")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	t, err := resolve(args[0])
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	rendered, err := export.Render(t, format)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}
