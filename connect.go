package gearbox

import "fmt"

// Connect attaches g to pinion so that every rotation of pinion
// advances g by one drive pulse. A gear attaches at most once; the
// topology is fixed from then on.
//
// ratio is the number of phase units per full rotation of g. WithPhase,
// WithStep and WithPriority supply the optional parameters (defaults
// 0, 1, 0). A non-positive step is coerced to 1.
//
// Connect validates both configuration and topology before touching
// anything: it returns ErrNilPinion, ErrAlreadyConnected, ErrCycle, or
// a *ConfigError for ratio < 1, step > ratio, phase outside [0, ratio)
// or a negative priority, and on error leaves g and pinion unchanged.
func (g *Gear) Connect(pinion *Gear, ratio int, opts ...Option) error {
	if pinion == nil {
		return fmt.Errorf("connect: %w", ErrNilPinion)
	}
	if g.parent != nil {
		return fmt.Errorf("connect: %w", ErrAlreadyConnected)
	}

	cfg := gearConfig{step: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.step <= 0 {
		cfg.step = 1
	}

	if ratio < 1 {
		return &ConfigError{Field: "ratio", Value: ratio, Reason: "must be at least 1"}
	}
	if cfg.step > ratio {
		return &ConfigError{Field: "step", Value: cfg.step, Reason: fmt.Sprintf("must not exceed ratio %d", ratio)}
	}
	if cfg.phase < 0 || cfg.phase >= ratio {
		return &ConfigError{Field: "phase", Value: cfg.phase, Reason: fmt.Sprintf("must be in [0, %d)", ratio)}
	}
	if cfg.priority < 0 {
		return &ConfigError{Field: "priority", Value: cfg.priority, Reason: "must not be negative"}
	}

	// Walking from the pinion to its root catches both self-connection
	// and connecting g beneath its own subtree.
	for a := pinion; a != nil; a = a.parent {
		if a == g {
			return fmt.Errorf("connect: %w", ErrCycle)
		}
	}

	g.ratio = ratio
	g.phase = cfg.phase
	g.step = cfg.step
	g.priority = cfg.priority
	g.parent = pinion
	pinion.insert(g)
	return nil
}

// insert places child after the last existing child whose priority does
// not exceed the new one, keeping children ascending by priority with
// ties in connection order. Insertion is a single shift, never a
// resort.
func (g *Gear) insert(child *Gear) {
	at := len(g.children)
	for i, c := range g.children {
		if c.priority > child.priority {
			at = i
			break
		}
	}
	g.children = append(g.children, nil)
	copy(g.children[at+1:], g.children[at:])
	g.children[at] = child
}
