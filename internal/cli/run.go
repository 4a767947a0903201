package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tickdrive/gearbox/internal/journal"
	"github.com/tickdrive/gearbox/internal/traindef"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Pulses   int

	// RunIDs overrides the journal's run ID generator (for testing).
	// If nil, the journal defaults to UUIDv7.
	RunIDs journal.RunIDGenerator
}

// GearStatus is the post-drive report for one gear.
type GearStatus struct {
	Name      string `json:"name"`
	Rotations int    `json:"rotations"`
	Phase     int    `json:"phase"`
	State     string `json:"state"`
}

// RunResult holds the outcome of one drive session.
type RunResult struct {
	Train    string       `json:"train"`
	SpecHash string       `json:"spec_hash"`
	Pulses   int          `json:"pulses"`
	RunID    string       `json:"run_id,omitempty"`
	Gears    []GearStatus `json:"gears"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <train.cue>",
		Short: "Build a train and drive it",
		Long: `Build live gears from a CUE train definition, drive the given
number of pulses through the drive gear, then report every gear's
rotation count, final phase and engagement state.

With --db every hook notification is journaled as one run and the run
id is printed, so the session can be inspected later with
'gearbox trace'. Interrupting a journaled drive aborts the run; the
journal only keeps completed runs.

Examples:
  gearbox run ./trains/wall.cue --pulses 24999
  gearbox run ./trains/wall.cue --pulses 24999 --db ./gears.db
  gearbox run ./trains/wall.cue --pulses 100 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Pulses, "pulses", 0, "number of drive pulses (required)")
	_ = cmd.MarkFlagRequired("pulses")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal events to this SQLite database")

	return cmd
}

func runTrain(opts *RunOptions, path string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Pulses < 0 {
		message := fmt.Sprintf("pulses must be non-negative, got %d", opts.Pulses)
		_ = formatter.Error(ErrCodeGeneric, message, nil)
		return NewExitError(ExitCommandError, message)
	}

	spec, err := traindef.LoadFile(path)
	if err != nil {
		return commandError(formatter, loadErrorCode(err), "failed to load train definition", err)
	}

	train, err := traindef.Build(spec)
	if err != nil {
		return commandError(formatter, ErrCodeBuild, "failed to build train", err)
	}

	hash, err := traindef.Hash(spec)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, "failed to hash definition", err)
	}
	slog.Info("train built", "train", train.Name(), "gears", len(train.Names()), "spec_hash", truncateID(hash))

	// Setup signal handling so a long drive can be interrupted cleanly.
	// Use the command's context if available (for testing).
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping drive", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	result := RunResult{
		Train:    train.Name(),
		SpecHash: hash,
		Pulses:   opts.Pulses,
	}

	var rotations map[string]int
	if opts.Database != "" {
		rotations, result.RunID, err = driveJournaled(ctx, opts, train, hash)
	} else {
		rotations, err = driveCounted(ctx, train, opts.Pulses)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("drive interrupted: %v", err), nil)
			return WrapExitError(ExitFailure, "drive interrupted", err)
		}
		return commandError(formatter, ErrCodeJournal, "run failed", err)
	}

	// Phases and states come from the live gears, counts from whichever
	// path counted.
	for _, name := range train.Names() {
		relay := train.Gear(name)
		result.Gears = append(result.Gears, GearStatus{
			Name:      name,
			Rotations: rotations[name],
			Phase:     relay.Phase(),
			State:     relay.State().String(),
		})
	}

	if opts.Format == "json" {
		return outputRunJSON(cmd, result)
	}
	return outputRunText(cmd.OutOrStdout(), result)
}

// driveJournaled records every hook notification as one committed run
// and reads the rotation counts back from the journal. A relay carries
// one binding per hook, so this path cannot also bind counting
// closures; the journal is the counter.
func driveJournaled(ctx context.Context, opts *RunOptions, train *traindef.Train, specHash string) (map[string]int, string, error) {
	var jopts []journal.Option
	if opts.RunIDs != nil {
		jopts = append(jopts, journal.WithRunIDs(opts.RunIDs))
	}

	j, err := journal.Open(opts.Database, jopts...)
	if err != nil {
		return nil, "", fmt.Errorf("open journal: %w", err)
	}
	defer func() {
		if closeErr := j.Close(); closeErr != nil {
			slog.Error("error closing journal", "error", closeErr)
		}
	}()

	run, err := j.Begin(ctx, train.Name(), specHash)
	if err != nil {
		return nil, "", fmt.Errorf("begin run: %w", err)
	}
	journal.Attach(ctx, run, train)
	slog.Info("run started", "run", run.ID(), "journal", opts.Database)

	driven, driveErr := drivePulses(ctx, train, opts.Pulses)
	if driveErr == nil {
		driveErr = run.Err()
	}
	if driveErr != nil {
		if abortErr := run.Abort(); abortErr != nil {
			slog.Error("error aborting run", "error", abortErr)
		}
		slog.Info("run aborted", "run", run.ID(), "pulses", driven)
		return nil, "", driveErr
	}

	if err := run.Finish(ctx, driven); err != nil {
		return nil, "", fmt.Errorf("commit run: %w", err)
	}
	slog.Info("run committed", "run", run.ID(), "pulses", driven)

	counts, err := j.RotationCounts(ctx, run.ID())
	if err != nil {
		return nil, "", fmt.Errorf("read rotation counts: %w", err)
	}
	rotations := make(map[string]int, len(counts))
	for _, c := range counts {
		rotations[c.Gear] = c.Count
	}
	return rotations, run.ID(), nil
}

// driveCounted binds an in-memory rotation counter to every relay and
// drives the train.
func driveCounted(ctx context.Context, train *traindef.Train, pulses int) (map[string]int, error) {
	rotations := make(map[string]int, len(train.Names()))
	for _, name := range train.Names() {
		train.Gear(name).HandleRotation(func() { rotations[name]++ })
	}
	if _, err := drivePulses(ctx, train, pulses); err != nil {
		return nil, err
	}
	return rotations, nil
}

// drivePulses ticks the drive gear once per pulse. Cancellation is
// checked every 1024 pulses; long drives stop promptly without paying a
// context check per tick.
func drivePulses(ctx context.Context, train *traindef.Train, pulses int) (int, error) {
	root := train.Root()
	for i := 0; i < pulses; i++ {
		if i&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return i, err
			}
		}
		root.Tick()
	}
	return pulses, nil
}

// outputRunJSON outputs the run result as JSON.
func outputRunJSON(cmd *cobra.Command, result RunResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
		RunID:  result.RunID,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputRunText outputs the run result as text.
func outputRunText(w io.Writer, result RunResult) error {
	fmt.Fprintf(w, "Train %q drove %d pulse(s)\n", result.Train, result.Pulses)
	if result.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", result.RunID)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %-12s %10s %8s  %s\n", "GEAR", "ROTATIONS", "PHASE", "STATE")
	for _, g := range result.Gears {
		fmt.Fprintf(w, "  %-12s %10d %8d  %s\n", g.Name, g.Rotations, g.Phase, g.State)
	}
	return nil
}
