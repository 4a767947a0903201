package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tickdrive/gearbox/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// RunList holds the run listing for a journal.
type RunList struct {
	Runs []journal.RunSummary `json:"runs"`
}

// TraceResult holds the complete trace for one run.
type TraceResult struct {
	Run       journal.RunSummary  `json:"run"`
	Timeline  []journal.Event     `json:"timeline"`
	Rotations []journal.GearCount `json:"rotations"`
	Kinds     []journal.KindCount `json:"kinds"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect journaled runs",
		Long: `Inspect the runs journaled in a SQLite database.

Without --run, lists every committed run, oldest first. With --run,
prints the run's event timeline plus per-gear rotation counts and
per-kind event counts.

Examples:
  gearbox trace --db ./gears.db
  gearbox trace --db ./gears.db --run 0190a1b2-...
  gearbox trace --db ./gears.db --run 0190a1b2-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Open would create a fresh journal at a bad path; tracing is
	// read-only, so require the file up front.
	if _, err := os.Stat(opts.Database); err != nil {
		return commandError(formatter, ErrCodeNotFound, "journal not found", err)
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		return commandError(formatter, ErrCodeJournal, "failed to open journal", err)
	}
	defer j.Close()

	if opts.RunID == "" {
		runs, err := j.Runs(ctx)
		if err != nil {
			return commandError(formatter, ErrCodeJournal, "failed to list runs", err)
		}
		if opts.Format == "json" {
			return outputTraceJSON(cmd, RunList{Runs: runs})
		}
		return outputRunListText(cmd.OutOrStdout(), runs)
	}

	run, err := j.ReadRun(ctx, opts.RunID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			message := fmt.Sprintf("run %s not found", opts.RunID)
			_ = formatter.Error(ErrCodeNotFound, message, nil)
			return NewExitError(ExitCommandError, message)
		}
		return commandError(formatter, ErrCodeJournal, "failed to read run", err)
	}

	events, err := j.Events(ctx, opts.RunID)
	if err != nil {
		return commandError(formatter, ErrCodeJournal, "failed to read events", err)
	}
	rotations, err := j.RotationCounts(ctx, opts.RunID)
	if err != nil {
		return commandError(formatter, ErrCodeJournal, "failed to read rotation counts", err)
	}
	kinds, err := j.KindCounts(ctx, opts.RunID)
	if err != nil {
		return commandError(formatter, ErrCodeJournal, "failed to read kind counts", err)
	}

	result := TraceResult{
		Run:       run,
		Timeline:  events,
		Rotations: rotations,
		Kinds:     kinds,
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd.OutOrStdout(), result)
}

// outputTraceJSON outputs a trace payload as JSON.
func outputTraceJSON(cmd *cobra.Command, data any) error {
	response := CLIResponse{
		Status: "ok",
		Data:   data,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputRunListText outputs the run listing as text.
func outputRunListText(w io.Writer, runs []journal.RunSummary) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs journaled.")
		return nil
	}

	fmt.Fprintf(w, "%d run(s)\n\n", len(runs))
	for _, r := range runs {
		fmt.Fprintf(w, "  %s  %-12s %8d pulse(s)  %s\n", r.ID, r.Train, r.Pulses, r.StartedAt)
	}
	return nil
}

// outputTraceText outputs a single run's trace as text.
func outputTraceText(w io.Writer, result TraceResult) error {
	fmt.Fprintf(w, "Run: %s\n", result.Run.ID)
	fmt.Fprintf(w, "Train: %s (spec %s)\n", result.Run.Train, truncateID(result.Run.SpecHash))
	fmt.Fprintf(w, "Pulses: %d\n", result.Run.Pulses)
	fmt.Fprintf(w, "Started: %s  Finished: %s\n", result.Run.StartedAt, result.Run.FinishedAt)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		for _, ev := range result.Timeline {
			fmt.Fprintf(w, "  [%d] %s %s phase=%d state=%s\n", ev.Seq, ev.Gear, ev.Kind, ev.Phase, ev.State)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Rotations ===")
	if len(result.Rotations) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		for _, c := range result.Rotations {
			fmt.Fprintf(w, "  %-12s %d\n", c.Gear, c.Count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Events ===")
	if len(result.Kinds) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		for _, c := range result.Kinds {
			fmt.Fprintf(w, "  %-12s %d\n", c.Kind, c.Count)
		}
	}

	return nil
}

// truncateID truncates a long id or hash for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
