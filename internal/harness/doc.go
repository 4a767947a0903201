// Package harness provides conformance testing for gear trains.
//
// The harness builds a real train from a CUE definition, drives it
// through a scripted flow, and validates the captured hook trace and
// the final gear state. Nothing is simulated: the trace comes from the
// same tick and engagement machinery the library runs in production.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	train: ../trains/tiny.cue
//	flow:
//	  - pulses: 3
//	  - engage: {gear: "half", value: false}
//	  - pulses: 2
//	assert:
//	  - {type: rotations, gear: "half", count: 1}
//	  - {type: phase, gear: "half", value: 1}
//	  - {type: state, gear: "half", value: "disengaged"}
//	  - {type: events, gear: "half", kind: "tick", count: 3}
//	  - {type: order, gears: ["pulse", "half"]}
//
// A relative train path resolves against the scenario file's directory,
// so scenario and train fixtures move together.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - rotations: the gear rotated exactly count times
//   - phase: the gear finished at the given phase
//   - state: the gear finished in the given engagement state
//   - events: the gear fired the given hook kind exactly count times
//   - order: the named gears completed their first rotations in order
//
// # Determinism
//
// A scenario run is fully deterministic: the train is rebuilt from its
// definition for every run, trace sequence numbers are assigned in
// dispatch order, and hooks observe the unreduced phase. Identical
// scenarios therefore produce identical traces, which is what golden
// comparison relies on.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/tiny-cascade.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.NewRunner(nil).Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
