package harness

// Event kinds recorded in the trace, one per relay hook.
const (
	KindEngaged    = "engaged"
	KindTick       = "tick"
	KindRotation   = "rotation"
	KindDisengaged = "disengaged"
)

// TraceEvent is one hook firing captured during a scenario run. Phase
// holds the unreduced value the hook observed, so rotation events carry
// values at or above the gear's ratio.
type TraceEvent struct {
	Seq   int    `json:"seq"`
	Gear  string `json:"gear"`
	Kind  string `json:"kind"`
	Phase int    `json:"phase"`
	State string `json:"state"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every hook firing in dispatch order.
	// Used for trace assertions and golden comparison.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addEvent appends a hook firing to the trace. Sequence numbers are
// dense and 1-based across the whole run.
func (r *Result) addEvent(gear, kind string, phase int, state string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:   len(r.Trace) + 1,
		Gear:  gear,
		Kind:  kind,
		Phase: phase,
		State: state,
	})
}
