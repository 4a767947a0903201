package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/tickdrive/gearbox"
	"github.com/tickdrive/gearbox/internal/traindef"
)

// Runner executes scenarios against freshly built trains.
type Runner struct {
	logger *slog.Logger
}

// NewRunner returns a Runner logging through logger. A nil logger
// discards all output, which is what tests want.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{logger: logger}
}

// Run executes a scenario and returns the result.
//
// Each scenario builds a fresh train from its CUE definition, binds
// every relay into the trace, and drives the flow through the real
// tick and engagement machinery. Assertion failures land in
// result.Errors; only infrastructure failures (unloadable train,
// unknown gear in a flow step) return an error.
func (r *Runner) Run(scenario *Scenario) (*Result, error) {
	spec, err := traindef.LoadFile(scenario.Train)
	if err != nil {
		return nil, fmt.Errorf("failed to load train: %w", err)
	}
	train, err := traindef.Build(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to build train: %w", err)
	}

	result := NewResult()
	for _, name := range train.Names() {
		bindRelay(result, name, train.Gear(name))
	}

	if err := r.executeFlow(scenario, train, result); err != nil {
		return nil, err
	}

	// Evaluate assertions against the trace and the final gear state
	for _, msg := range EvaluateAssertions(result, train, scenario.Assert) {
		result.AddError(msg)
	}

	return result, nil
}

// executeFlow runs the drive script in order.
func (r *Runner) executeFlow(scenario *Scenario, train *traindef.Train, result *Result) error {
	for i, step := range scenario.Flow {
		if step.Engage != nil {
			relay := train.Gear(step.Engage.Gear)
			if relay == nil {
				return fmt.Errorf("flow[%d]: unknown gear %q", i, step.Engage.Gear)
			}
			relay.Engage(step.Engage.Value)

			r.logger.Info("engagement toggled",
				"step", i,
				"gear", step.Engage.Gear,
				"engage", step.Engage.Value,
				"state", relay.State().String(),
			)
			continue
		}

		train.Drive(step.Pulses)

		r.logger.Info("pulses driven",
			"step", i,
			"pulses", step.Pulses,
			"events", len(result.Trace),
		)
	}

	return nil
}

// bindRelay routes all four hooks of one relay into the trace.
func bindRelay(result *Result, name string, relay *gearbox.Relay) {
	record := func(kind string) {
		result.addEvent(name, kind, relay.Phase(), relay.State().String())
	}
	relay.HandleEngaged(func(*gearbox.Engagement) { record(KindEngaged) })
	relay.HandleTick(func() { record(KindTick) })
	relay.HandleRotation(func() { record(KindRotation) })
	relay.HandleDisengaged(func() { record(KindDisengaged) })
}
