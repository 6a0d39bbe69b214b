// Package status implements the status command, which prints the
// per-source fetch state and the most recent pipeline run as plain
// text tables.
package status

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/gamesync/cmd/common"
	"github.com/jonesrussell/gamesync/internal/cache"
	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/run"
	"github.com/jonesrussell/gamesync/internal/snapshot"
)

// noBorderStyle renders plain columns with tab padding, no borders or
// separators.
var noBorderStyle = table.Style{
	Box: table.BoxStyle{
		BottomLeft:       "",
		BottomRight:      "",
		BottomSeparator:  "",
		Left:             "",
		LeftSeparator:    "",
		MiddleHorizontal: "",
		MiddleSeparator:  "",
		MiddleVertical:   "",
		PaddingLeft:      "\t",
		PaddingRight:     "\t",
		Right:            "",
		RightSeparator:   "",
		TopLeft:          "",
		TopRight:         "",
		TopSeparator:     "",
		UnfinishedRow:    "",
	},
	Options: table.Options{
		DrawBorder:      false,
		SeparateColumns: false,
		SeparateHeader:  false,
		SeparateRows:    false,
	},
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(noBorderStyle)
	return t
}

// renderSources prints one row per fetch source from its status cache
// and failed-ID ledger.
func renderSources(deps cmdcommon.CommandDeps) {
	t := newTable()
	t.AppendHeader(table.Row{"Source", "Total", "Success", "Failed", "Quarantined", "Ledger"})

	for _, source := range config.SourceNames() {
		stats := cache.New(deps.Paths.StatusCache(source), deps.Logger).Stats(deps.Config.Fetch.MaxAttempts)
		t.AppendRow(table.Row{
			source,
			strconv.Itoa(stats.Total),
			strconv.Itoa(stats.Success),
			strconv.Itoa(stats.Failed),
			strconv.Itoa(stats.Quarantined),
			strconv.Itoa(ledgerRows(deps.Paths.FailedLedger(source))),
		})
	}
	t.Render()
}

// renderLatestRun prints the most recent run summary and its steps.
func renderLatestRun(deps cmdcommon.CommandDeps) {
	summary, err := run.LoadLatest(deps.Paths.RunHistory())
	if err != nil {
		fmt.Println("\nNo pipeline runs recorded.")
		return
	}

	fmt.Printf("\nLast run %s (%s), started %s, took %s\n",
		summary.ID,
		summary.Status,
		summary.StartedAt.Format(time.RFC3339),
		summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second),
	)

	t := newTable()
	t.AppendHeader(table.Row{"Step", "Status", "Result", "Duration"})
	for _, step := range summary.Steps {
		t.AppendRow(table.Row{
			step.Name,
			step.Status,
			stepResult(step),
			step.FinishedAt.Sub(step.StartedAt).Round(time.Second).String(),
		})
	}
	t.Render()
}

// stepResult renders a step's counts as stable "k=v" pairs; a failed or
// skipped step shows its error or reason instead.
func stepResult(step run.StepResult) string {
	if step.Error != "" {
		return step.Error
	}

	keys := make([]string, 0, len(step.Counts))
	for k := range step.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, step.Counts[k])
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

// ledgerRows counts entries in a failed-ID ledger. A missing or
// unreadable ledger counts as empty.
func ledgerRows(path string) int {
	s, err := snapshot.ReadFile(path)
	if err != nil {
		return 0
	}
	return s.Len()
}

// Command returns the status command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show per-source fetch state and the latest run",
		Long: `This command prints a table of every fetch source's status cache
(success, failed, and quarantined entry counts, plus the failed-ID
ledger size) and the step-by-step outcome of the most recent pipeline
run. It reads only local files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps(cmd)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			renderSources(deps)
			renderLatestRun(deps)
			return nil
		},
	}
}
