package gearbox

// Relay is a gear that forwards hook events to externally owned
// handlers, one binding per hook. Unbound hooks are no-ops. Bindings
// are plain closures; method values work well and keep the observer
// itself out of the gear tree. Whatever a binding captures must outlive
// the relay.
type Relay struct {
	*Gear

	engaged    func(*Engagement)
	tick       func()
	rotation   func()
	disengaged func()
}

// NewRelay returns a root relay gear with no bindings.
func NewRelay(opts ...Option) *Relay {
	r := &Relay{}
	r.Gear = New(r, opts...)
	return r
}

// HandleEngaged binds the engagement hook. The handler receives the
// engagement handle, so deferred activation (Delay) stays available to
// observers.
func (r *Relay) HandleEngaged(fn func(*Engagement)) { r.engaged = fn }

// HandleTick binds the per-tick hook.
func (r *Relay) HandleTick(fn func()) { r.tick = fn }

// HandleRotation binds the rotation hook.
func (r *Relay) HandleRotation(fn func()) { r.rotation = fn }

// HandleDisengaged binds the disengagement hook.
func (r *Relay) HandleDisengaged(fn func()) { r.disengaged = fn }

// OnEngaged implements Hooks.
func (r *Relay) OnEngaged(e *Engagement) {
	if r.engaged != nil {
		r.engaged(e)
	}
}

// OnTick implements Hooks.
func (r *Relay) OnTick() {
	if r.tick != nil {
		r.tick()
	}
}

// OnRotation implements Hooks.
func (r *Relay) OnRotation() {
	if r.rotation != nil {
		r.rotation()
	}
}

// OnDisengaged implements Hooks.
func (r *Relay) OnDisengaged() {
	if r.disengaged != nil {
		r.disengaged()
	}
}
