package gearbox

import "fmt"

// State identifies where a gear sits in its engagement cycle.
//
// The cycle is Disengaged -> Engaging -> Engaged -> Disengaging ->
// Disengaged. State changes only through Engage, Delay and Tick.
type State uint8

const (
	// Disengaged means the gear's own hooks are silent. It still drives
	// its children (see Tick).
	Disengaged State = iota

	// Engaging means Engage(true) was called and the gear is waiting
	// for the next rotation boundary to activate.
	Engaging

	// Engaged means the gear is active: OnTick and OnRotation fire.
	Engaged

	// Disengaging means Engage(false) was called and the gear goes
	// silent on the very next tick.
	Disengaging
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Disengaged:
		return "disengaged"
	case Engaging:
		return "engaging"
	case Engaged:
		return "engaged"
	case Disengaging:
		return "disengaging"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Gear is one node in a division tree: a stage that turns ratio/step
// drive pulses into one rotation.
//
// Construct roots with New (or NewCounter/NewRelay) and attach further
// stages with Connect. The zero Gear is not usable.
type Gear struct {
	hooks Hooks

	state    State
	ratio    int
	step     int
	phase    int
	priority int

	// parent is set once by Connect and only consulted to reject
	// reconnection and cycles.
	parent *Gear

	// children is kept ascending by priority, ties in connection order.
	children []*Gear
}

// Option supplies an optional gear parameter to New or Connect.
type Option func(*gearConfig)

type gearConfig struct {
	phase    int
	step     int
	priority int
}

// WithPhase starts the gear with phase units already elapsed.
// Defaults to 0.
func WithPhase(phase int) Option {
	return func(c *gearConfig) { c.phase = phase }
}

// WithStep sets the phase units advanced per drive pulse, enabling
// fractional ratios. Defaults to 1; non-positive values are coerced
// to 1.
func WithStep(step int) Option {
	return func(c *gearConfig) { c.step = step }
}

// WithPriority orders the gear among its siblings; lower values tick
// first. Defaults to 0. Meaningful only with Connect.
func WithPriority(priority int) Option {
	return func(c *gearConfig) { c.priority = priority }
}

// New returns a root gear driven directly by the caller: state Engaged,
// ratio fixed at 1 so every drive pulse completes a rotation. WithPhase
// and WithStep apply; a negative phase is clamped to 0.
//
// A nil hooks installs no-op hooks.
func New(hooks Hooks, opts ...Option) *Gear {
	cfg := gearConfig{step: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.step <= 0 {
		cfg.step = 1
	}
	if cfg.phase < 0 {
		cfg.phase = 0
	}
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &Gear{
		hooks: hooks,
		state: Engaged,
		ratio: 1,
		step:  cfg.step,
		phase: cfg.phase,
	}
}

// Phase returns the accumulated progress toward the next rotation.
// During hook dispatch on a rotation tick it holds the unreduced value
// (up to ratio+step-1); once the hooks return it drops below ratio.
func (g *Gear) Phase() int { return g.phase }

// Ratio returns the phase units per full rotation.
func (g *Gear) Ratio() int { return g.ratio }

// Step returns the phase units advanced per drive pulse.
func (g *Gear) Step() int { return g.step }

// Priority returns the sibling ordering key assigned at connection
// time.
func (g *Gear) Priority() int { return g.priority }

// State returns the current engagement state.
func (g *Gear) State() State { return g.state }

// IsEngaged reports whether the gear is fully engaged.
func (g *Gear) IsEngaged() bool { return g.state == Engaged }

// IsDisengaged reports whether the gear is fully disengaged.
func (g *Gear) IsDisengaged() bool { return g.state == Disengaged }
