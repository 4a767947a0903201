package gearbox

// Hooks is the reaction surface a gear variant implements. Tick invokes
// the four methods at defined points; dispatch is synchronous and
// depth-first, on the goroutine driving the tree.
//
// Implementations may call Engage on their own gear during any hook,
// and Delay on the handle passed to OnEngaged; both re-entrant
// mutations are supported. They must not Tick the tree re-entrantly.
type Hooks interface {
	// OnEngaged fires when a pending engagement completes at a rotation
	// boundary. The handle is valid until OnEngaged returns.
	OnEngaged(e *Engagement)

	// OnTick fires on every tick while the gear is engaged.
	OnTick()

	// OnRotation fires after OnTick on the tick that completes a
	// rotation, while the gear is engaged.
	OnRotation()

	// OnDisengaged fires once when a pending disengagement completes,
	// on the first tick after Engage(false).
	OnDisengaged()
}

// NopHooks implements Hooks with no-ops. Embed it to override only the
// hooks a variant cares about.
type NopHooks struct{}

func (NopHooks) OnEngaged(*Engagement) {}
func (NopHooks) OnTick()               {}
func (NopHooks) OnRotation()           {}
func (NopHooks) OnDisengaged()         {}
