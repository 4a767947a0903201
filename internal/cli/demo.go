package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tickdrive/gearbox"
)

// DemoOptions holds flags for the demo command.
type DemoOptions struct {
	*RootOptions
	Pulses int
}

// DemoResult holds the counter readings after the demo drive.
type DemoResult struct {
	Pulses  int    `json:"pulses"`
	ISR     uint64 `json:"isr"`
	Ticks   uint64 `json:"ticks"`
	Ms      uint64 `json:"ms"`
	Seconds uint64 `json:"seconds"`
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Drive the classic wall-clock chain",
		Long: `Assemble the classic interrupt-to-wall-clock chain directly on the
library and drive it:

  isr -> ticks (ratio 1) -> ms (ratio 1000, step 80) -> sec (ratio 1000)

The ms gear advances 80 phase units per tick, so it rotates every 12.5
ticks. Counting gears track isr, ticks and ms; a relay forwards sec
rotations to a seconds tally.

Examples:
  gearbox demo
  gearbox demo --pulses 1000000 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Pulses, "pulses", 24999, "number of drive pulses")

	return cmd
}

func runDemo(opts *DemoOptions, cmd *cobra.Command) error {
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

	isr := gearbox.NewCounter()
	ticks := gearbox.NewCounter()
	ms := gearbox.NewCounter()
	sec := gearbox.NewRelay()

	if err := ticks.Connect(isr.Gear, 1); err != nil {
		return commandError(formatter, ErrCodeGeneric, "failed to assemble chain", err)
	}
	if err := ms.Connect(ticks.Gear, 1000, gearbox.WithStep(80)); err != nil {
		return commandError(formatter, ErrCodeGeneric, "failed to assemble chain", err)
	}
	if err := sec.Connect(ms.Gear, 1000); err != nil {
		return commandError(formatter, ErrCodeGeneric, "failed to assemble chain", err)
	}

	var seconds uint64
	sec.HandleRotation(func() { seconds++ })

	for i := 0; i < opts.Pulses; i++ {
		isr.Tick()
	}

	result := DemoResult{
		Pulses:  opts.Pulses,
		ISR:     isr.Count(),
		Ticks:   ticks.Count(),
		Ms:      ms.Count(),
		Seconds: seconds,
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputDemoText(cmd.OutOrStdout(), result)
}

// outputDemoText outputs the demo result as text.
func outputDemoText(w io.Writer, result DemoResult) error {
	fmt.Fprintf(w, "Drove %d pulse(s) through isr -> ticks -> ms -> sec\n\n", result.Pulses)
	fmt.Fprintf(w, "  isr:     %d\n", result.ISR)
	fmt.Fprintf(w, "  ticks:   %d\n", result.Ticks)
	fmt.Fprintf(w, "  ms:      %d\n", result.Ms)
	fmt.Fprintf(w, "  seconds: %d\n", result.Seconds)
	return nil
}
