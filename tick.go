package gearbox

// Tick advances the gear by one drive pulse. Call it once per pulse on
// the root of an independently driven tree, always from the same
// goroutine; rotations propagate to children automatically.
//
// Phase always advances by step. When the advanced phase reaches ratio
// a rotation completes this tick: a pending engagement activates
// (OnEngaged), an engaged gear fires OnTick then OnRotation, a pending
// disengagement finishes (OnDisengaged), the overshoot carries into the
// next cycle, and every child ticks in priority order. Children tick
// regardless of this gear's own state: disengagement silences a gear's
// hooks, never its role as a clock source.
//
// On a tick without a rotation an engaged gear fires OnTick alone, and
// a pending disengagement still finishes immediately.
func (g *Gear) Tick() {
	g.phase += g.step
	if g.phase >= g.ratio {
		if g.state == Engaging {
			g.fireEngaged()
		}
		if g.state == Engaged {
			g.hooks.OnTick()
			g.hooks.OnRotation()
		}
		if g.state == Disengaging {
			g.state = Disengaged
			g.hooks.OnDisengaged()
		}
		// Hooks read the unreduced phase; normalize only after they ran.
		g.phase -= g.ratio
		for _, child := range g.children {
			child.Tick()
		}
		return
	}

	switch g.state {
	case Engaged:
		g.hooks.OnTick()
	case Disengaging:
		g.state = Disengaged
		g.hooks.OnDisengaged()
	}
}
