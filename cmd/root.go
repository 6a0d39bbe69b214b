// Package cmd implements the command-line interface for gamesync.
// It provides the root command and subcommands for running the game-data
// pipeline: fetching raw tables, building and reconciling snapshots, and
// applying deltas to the database.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/gamesync/cmd/backup"
	"github.com/jonesrussell/gamesync/cmd/fetch"
	"github.com/jonesrussell/gamesync/cmd/pipeline"
	"github.com/jonesrussell/gamesync/cmd/process"
	"github.com/jonesrussell/gamesync/cmd/schedule"
	"github.com/jonesrussell/gamesync/cmd/status"
	"github.com/jonesrussell/gamesync/cmd/upload"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// rootCmd represents the root command for the gamesync CLI.
	rootCmd = &cobra.Command{
		Use:   "gamesync",
		Short: "Incremental game-data pipeline",
		Long: `gamesync collects storefront, review, player, and deal data for the
games on the concurrent-player leaderboard, builds normalized tables from
the raw captures, and uploads only what changed since the last run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context; long-running commands checkpoint and return on cancellation.
func Execute() error {
	// Load .env early so environment overrides are visible to config.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

// init initializes the root command and its subcommands.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./gamesync.yml)",
	)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gamesync version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(fetch.Command())
	rootCmd.AddCommand(process.Command())
	rootCmd.AddCommand(upload.Command())
	rootCmd.AddCommand(backup.Command())
	rootCmd.AddCommand(pipeline.Command())
	rootCmd.AddCommand(schedule.Command())
	rootCmd.AddCommand(status.Command())
}
