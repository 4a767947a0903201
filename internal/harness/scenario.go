package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tickdrive/gearbox"
)

// Scenario defines a conformance test scenario.
// Scenarios build a train from its CUE definition, drive it through a
// scripted flow, and assert on the captured trace and final gear state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	// Golden files are stored under this name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Train is the path to the CUE train definition to build.
	// A relative path resolves against the scenario file's directory.
	Train string `yaml:"train"`

	// Flow is the drive script: pulse batches and engagement toggles,
	// executed in order.
	Flow []FlowStep `yaml:"flow"`

	// Assert validates the captured trace and the final gear state.
	// Supported types: rotations, phase, state, events, order
	Assert []Assertion `yaml:"assert"`
}

// FlowStep is one step of the drive script.
// Exactly one of Pulses or Engage is set per step.
type FlowStep struct {
	// Pulses drives the train forward this many pulses.
	Pulses int `yaml:"pulses,omitempty"`

	// Engage toggles a gear's engagement between pulse batches.
	Engage *EngageStep `yaml:"engage,omitempty"`
}

// EngageStep requests an engagement change for a named gear.
type EngageStep struct {
	// Gear is the declared gear name.
	Gear string `yaml:"gear"`

	// Value is passed to Engage: true to engage, false to disengage.
	Value bool `yaml:"value"`
}

// Assertion validates one aspect of a finished run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "rotations": the gear rotated exactly Count times
	// - "phase": the gear finished at phase Value (integer)
	// - "state": the gear finished in state Value (string)
	// - "events": the gear fired Kind exactly Count times
	// - "order": the named gears' first rotations happened in order
	Type string `yaml:"type"`

	// Gear names the gear under test (rotations, phase, state, events).
	Gear string `yaml:"gear,omitempty"`

	// Kind is the hook kind to count (used by events).
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number of occurrences (rotations, events).
	Count int `yaml:"count,omitempty"`

	// Value is the expected final phase (phase) or state name (state).
	Value any `yaml:"value,omitempty"`

	// Gears lists gear names in expected first-rotation order (order).
	Gears []string `yaml:"gears,omitempty"`
}

// Assertion type constants.
const (
	AssertRotations = "rotations"
	AssertPhase     = "phase"
	AssertState     = "state"
	AssertEvents    = "events"
	AssertOrder     = "order"
)

var validKinds = map[string]bool{
	KindEngaged:    true,
	KindTick:       true,
	KindRotation:   true,
	KindDisengaged: true,
}

var validStates = map[string]bool{
	gearbox.Disengaged.String():  true,
	gearbox.Engaging.String():    true,
	gearbox.Engaged.String():     true,
	gearbox.Disengaging.String(): true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "asserts:" vs "assert:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the train path against the scenario file BEFORE validation
	if scenario.Train != "" && !filepath.IsAbs(scenario.Train) {
		scenario.Train = filepath.Join(filepath.Dir(path), scenario.Train)
	}

	// Validate required fields
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Train == "" {
		return fmt.Errorf("train is required")
	}

	if _, err := os.Stat(s.Train); os.IsNotExist(err) {
		return fmt.Errorf("train file not found: %s", s.Train)
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assert) == 0 {
		return fmt.Errorf("assert list is required and must be non-empty")
	}

	// Validate flow steps
	for i, step := range s.Flow {
		switch {
		case step.Engage != nil && step.Pulses != 0:
			return fmt.Errorf("flow[%d]: pulses and engage are mutually exclusive", i)
		case step.Engage != nil:
			if step.Engage.Gear == "" {
				return fmt.Errorf("flow[%d].engage: gear is required", i)
			}
		case step.Pulses <= 0:
			return fmt.Errorf("flow[%d]: pulses must be positive", i)
		}
	}

	// Validate assertions
	for i, assertion := range s.Assert {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assert[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRotations:
		if a.Gear == "" {
			return fmt.Errorf("assert[%d]: gear is required for rotations", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assert[%d]: count must be non-negative for rotations", index)
		}
	case AssertPhase:
		if a.Gear == "" {
			return fmt.Errorf("assert[%d]: gear is required for phase", index)
		}
		if _, ok := intValue(a.Value); !ok {
			return fmt.Errorf("assert[%d]: value must be an integer for phase", index)
		}
	case AssertState:
		if a.Gear == "" {
			return fmt.Errorf("assert[%d]: gear is required for state", index)
		}
		name, ok := a.Value.(string)
		if !ok {
			return fmt.Errorf("assert[%d]: value must be a state name for state", index)
		}
		if !validStates[name] {
			return fmt.Errorf("assert[%d]: unknown state %q", index, name)
		}
	case AssertEvents:
		if a.Gear == "" {
			return fmt.Errorf("assert[%d]: gear is required for events", index)
		}
		if a.Kind == "" {
			return fmt.Errorf("assert[%d]: kind is required for events", index)
		}
		if !validKinds[a.Kind] {
			return fmt.Errorf("assert[%d]: unknown event kind %q", index, a.Kind)
		}
		if a.Count < 0 {
			return fmt.Errorf("assert[%d]: count must be non-negative for events", index)
		}
	case AssertOrder:
		if len(a.Gears) < 2 {
			return fmt.Errorf("assert[%d]: order needs at least two gears", index)
		}
	default:
		return fmt.Errorf("assert[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
