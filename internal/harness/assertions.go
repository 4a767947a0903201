package harness

import (
	"fmt"
	"strings"

	"github.com/tickdrive/gearbox/internal/traindef"
)

// AssertionError is returned when an assertion fails.
// It carries the full trace so the failure can be read without
// re-running the scenario.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	// Full trace for context
	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s phase=%d state=%s\n",
			event.Seq, event.Gear, event.Kind, event.Phase, event.State)
	}

	return buf.String()
}

// assertRotations checks the gear rotated exactly the expected number
// of times.
func assertRotations(trace []TraceEvent, assertion Assertion) error {
	count := countEvents(trace, assertion.Gear, KindRotation)

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertRotations,
			Expected: fmt.Sprintf("%d rotations of %q", assertion.Count, assertion.Gear),
			Actual:   fmt.Sprintf("%d rotations", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertEvents checks the gear fired the given hook kind exactly the
// expected number of times.
func assertEvents(trace []TraceEvent, assertion Assertion) error {
	count := countEvents(trace, assertion.Gear, assertion.Kind)

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertEvents,
			Expected: fmt.Sprintf("%d %s events for %q", assertion.Count, assertion.Kind, assertion.Gear),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}

	return nil
}

func countEvents(trace []TraceEvent, gear, kind string) int {
	count := 0
	for _, event := range trace {
		if event.Gear == gear && event.Kind == kind {
			count++
		}
	}
	return count
}

// assertPhase checks the gear's final phase. The live gear is
// consulted, not the trace: trace events hold unreduced mid-rotation
// values.
func assertPhase(train *traindef.Train, trace []TraceEvent, assertion Assertion) error {
	relay := train.Gear(assertion.Gear)
	if relay == nil {
		return unknownGear(AssertPhase, assertion.Gear, trace)
	}

	want, _ := intValue(assertion.Value)
	if relay.Phase() != want {
		return &AssertionError{
			Type:     AssertPhase,
			Expected: fmt.Sprintf("%q at phase %d", assertion.Gear, want),
			Actual:   fmt.Sprintf("phase %d", relay.Phase()),
			Trace:    trace,
		}
	}

	return nil
}

// assertState checks the gear's final engagement state.
func assertState(train *traindef.Train, trace []TraceEvent, assertion Assertion) error {
	relay := train.Gear(assertion.Gear)
	if relay == nil {
		return unknownGear(AssertState, assertion.Gear, trace)
	}

	want, _ := assertion.Value.(string)
	if got := relay.State().String(); got != want {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("%q in state %s", assertion.Gear, want),
			Actual:   fmt.Sprintf("state %s", got),
			Trace:    trace,
		}
	}

	return nil
}

// assertOrder checks the named gears' first rotations happened in the
// listed order. Rotations don't need to be consecutive (intervening
// events are allowed).
func assertOrder(trace []TraceEvent, assertion Assertion) error {
	// Step 1: Find the first rotation of each expected gear
	positions := make(map[string]int)

	for _, event := range trace {
		if event.Kind != KindRotation {
			continue
		}
		for _, gear := range assertion.Gears {
			if event.Gear == gear && positions[gear] == 0 {
				positions[gear] = event.Seq
			}
		}
	}

	// Step 2: Verify all gears rotated
	for _, gear := range assertion.Gears {
		if positions[gear] == 0 {
			return &AssertionError{
				Type:     AssertOrder,
				Expected: fmt.Sprintf("rotations from all of %v", assertion.Gears),
				Actual:   fmt.Sprintf("%q never rotated", gear),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Gears); i++ {
		prev := assertion.Gears[i-1]
		curr := assertion.Gears[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertOrder,
				Expected: fmt.Sprintf("first rotations in order: %v", assertion.Gears),
				Actual: fmt.Sprintf("%s (seq %d) should rotate before %s (seq %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

func unknownGear(assertType, gear string, trace []TraceEvent) error {
	return &AssertionError{
		Type:     assertType,
		Expected: fmt.Sprintf("gear %q declared by the train", gear),
		Actual:   "no such gear",
		Trace:    trace,
	}
}

// EvaluateAssertions evaluates all assertions against the captured
// trace and the train's final state.
// Returns a message per failed assertion; empty means they all held.
func EvaluateAssertions(result *Result, train *traindef.Train, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRotations:
			err = assertRotations(result.Trace, assertion)
		case AssertPhase:
			err = assertPhase(train, result.Trace, assertion)
		case AssertState:
			err = assertState(train, result.Trace, assertion)
		case AssertEvents:
			err = assertEvents(result.Trace, assertion)
		case AssertOrder:
			err = assertOrder(result.Trace, assertion)
		default:
			err = fmt.Errorf("assert[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// intValue extracts an integer from a YAML-decoded assertion value.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}
