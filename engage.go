package gearbox

// Engage requests an engagement change. The change synchronizes with
// the tick cycle rather than taking effect instantly:
//
//	Engage(true):  Disengaged -> Engaging; Disengaging -> Engaged
//	Engage(false): Engaged -> Disengaging; Engaging -> Disengaging
//
// Every other combination is a no-op, so Engage is idempotent. An
// engagement completes at the next rotation boundary (OnEngaged); a
// disengagement completes on the very next tick (OnDisengaged).
//
// Reverting Disengaging with Engage(true) owes no notification: the
// gear never actually left Engaged. Abandoning Engaging with
// Engage(false) still owes OnDisengaged once the pending boundary is
// reached, even though OnEngaged never fired.
func (g *Gear) Engage(engaged bool) {
	if engaged {
		switch g.state {
		case Disengaged:
			g.state = Engaging
		case Disengaging:
			g.state = Engaged
		}
		return
	}
	switch g.state {
	case Engaged, Engaging:
		g.state = Disengaging
	}
}

// Engagement is the restricted handle passed to OnEngaged. It is valid
// only for the duration of that invocation.
type Engagement struct {
	gear   *Gear
	active bool
}

// Gear returns the gear whose engagement just completed.
func (e *Engagement) Gear() *Gear { return e.gear }

// Delay reverts the gear to Engaging, deferring its activation by one
// more full rotation. The rotation in progress then fires no OnTick or
// OnRotation for this gear, though its children still tick.
//
// Delay is valid only while the OnEngaged invocation that received the
// handle is running; afterwards it returns ErrStaleEngagement and
// leaves the gear untouched.
func (e *Engagement) Delay() error {
	if !e.active {
		return ErrStaleEngagement
	}
	if e.gear.state == Engaged {
		e.gear.state = Engaging
	}
	return nil
}

// fireEngaged completes a pending engagement and dispatches OnEngaged
// with a handle that expires when the hook returns.
func (g *Gear) fireEngaged() {
	g.state = Engaged
	e := &Engagement{gear: g, active: true}
	g.hooks.OnEngaged(e)
	e.active = false
}
