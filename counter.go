package gearbox

// Counter is a gear that counts its own completed rotations.
type Counter struct {
	*Gear
	NopHooks

	total uint64
}

// NewCounter returns a root counting gear. Connect it to a pinion to
// count divided rotations instead of raw drive pulses.
func NewCounter(opts ...Option) *Counter {
	c := &Counter{}
	c.Gear = New(c, opts...)
	return c
}

// OnRotation accumulates the rotation count.
func (c *Counter) OnRotation() { c.total++ }

// Count returns the number of rotations completed while engaged.
func (c *Counter) Count() uint64 { return c.total }
