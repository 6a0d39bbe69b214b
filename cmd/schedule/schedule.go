// Package schedule implements the schedule command, a long-lived
// daemon that runs the pipeline on a cron schedule and optionally
// serves the ops API.
package schedule

import (
	"context"
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/gamesync/cmd/common"
	pipelinecmd "github.com/jonesrussell/gamesync/cmd/pipeline"
	"github.com/jonesrussell/gamesync/internal/api"
	"github.com/jonesrussell/gamesync/internal/config"
)

// shutdownTimeout bounds the ops server drain on exit.
const shutdownTimeout = 10 * time.Second

// daemon ties the cron runner to the pipeline. running guards against
// overlapping runs: a pipeline slowed by rate limiting can outlast its
// own schedule interval, and the next tick must skip, not stack.
type daemon struct {
	deps    cmdcommon.CommandDeps
	running atomic.Bool
}

// runOnce executes one scheduled pipeline run under the run timeout.
func (d *daemon) runOnce(ctx context.Context) {
	if !d.running.CompareAndSwap(false, true) {
		d.deps.Logger.Warn("Previous pipeline run still in progress, skipping this tick")
		return
	}
	defer d.running.Store(false)

	runCtx, cancel := context.WithTimeout(ctx, d.deps.Config.Schedule.RunTimeout)
	defer cancel()
	if err := pipelinecmd.Run(runCtx, d.deps); err != nil {
		d.deps.Logger.Error("Scheduled pipeline run failed", "error", err)
	}
}

// Run starts the cron daemon and blocks until a shutdown signal. With
// serve set it also exposes the ops API for the daemon's lifetime.
func Run(ctx context.Context, deps cmdcommon.CommandDeps, serve bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Standard 5-field cron parser (minute hour day month weekday).
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	d := &daemon{deps: deps}
	id, err := c.AddFunc(deps.Config.Schedule.CronSpec, func() { d.runOnce(ctx) })
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", deps.Config.Schedule.CronSpec, err)
	}

	var srv *api.Server
	serverErr := make(chan error, 1)
	if serve {
		handler := api.NewHandler(api.HandlerParams{
			Paths:           deps.Paths,
			Sources:         config.SourceNames(),
			QuarantineAfter: deps.Config.Fetch.MaxAttempts,
			Logger:          deps.Logger,
		})
		srv = api.NewServer(deps.Config.Server, api.NewRouter(handler, deps.Logger), deps.Logger)
		go func() { serverErr <- srv.Start() }()
	}

	c.Start()
	deps.Logger.Info("Scheduler started",
		"cron", deps.Config.Schedule.CronSpec,
		"next_run", c.Entry(id).Next,
		"ops_server", serve,
	)

	var exitErr error
	select {
	case <-ctx.Done():
		deps.Logger.Info("Shutdown signal received")
	case err := <-serverErr:
		// The daemon is useless without its ops surface once asked
		// for one.
		exitErr = err
	}

	// Wait for an in-flight run to wind down; its context is already
	// canceled on signal, so it stops at the next checkpoint.
	<-c.Stop().Done()

	if srv != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			deps.Logger.Error("Ops server shutdown failed", "error", err)
		}
	}

	deps.Logger.Info("Scheduler stopped")
	return exitErr
}

// Command returns the schedule command for use in the root command.
func Command() *cobra.Command {
	var serve bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on a cron schedule",
		Long: `This command runs as a daemon, executing the full pipeline on the
configured cron schedule. A tick that arrives while the previous run is
still working is skipped. With --serve the daemon also exposes the ops
API (health, source status, recent runs) while it is up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps(cmd)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			return Run(cmd.Context(), deps, serve)
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "also serve the ops API while the daemon runs")
	return cmd
}
