// Package cmd implements the rewind CLI.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/devrewind/rewind/internal/config"
	"github.com/devrewind/rewind/internal/display"
	"github.com/devrewind/rewind/internal/infrastructure/sqlite"
	"github.com/devrewind/rewind/internal/log"
	"github.com/devrewind/rewind/internal/timeline/application"
	"github.com/devrewind/rewind/internal/timeline/domain"
)

var (
	cfg      config.Config
	db       *sqlite.DB
	service  *application.Service
	renderer *display.Renderer
)

var rootCmd = &cobra.Command{
	Use:   "rewind",
	Short: "Record shell command timelines with git-like time travel",
	Long: `rewind records sequences of shell commands as ordered, addressable
steps. Rewind to any step, inspect the state at that point, fork a new
branch from it, or diff two timelines to find where they diverge.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}

	if cfg.Log.Enabled {
		level := slog.LevelInfo
		switch cfg.Log.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
		if err := log.Init(cfg.LogPath(), level); err != nil {
			return err
		}
	}

	db, err = sqlite.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	service = application.NewService(db.TimelineRepository())
	renderer = display.New(cfg.UI.Color, cfg.UI.ShowOutput)
	return nil
}

func teardown() {
	if db != nil {
		_ = db.Close()
	}
	log.Close()
}

// resolve loads a timeline by id or name, with a friendly error.
func resolve(ref string) (*domain.Timeline, error) {
	t, err := service.Resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", ref, err)
	}
	return t, nil
}

// Execute runs the CLI, printing errors to stderr.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		teardown()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
