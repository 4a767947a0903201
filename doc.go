// Package gearbox implements a hierarchical clock divider: a tree of
// gears driven by repeated calls to Tick on a root gear.
//
// Each gear divides its drive signal by a configurable ratio, optionally
// in fractional steps, and notifies a Hooks implementation on every tick
// and every completed rotation. Gears engage and disengage in sync with
// rotation boundaries so downstream consumers never observe a partial
// rotation.
//
// ARCHITECTURE:
//
// Synchronous Depth-First Dispatch:
// A single Tick call runs the whole subtree to completion in the calling
// goroutine. A gear finishes its own hook sequence and phase update
// before any child ticks, so children always observe the parent's
// settled state. There is no internal locking; drive each tree from one
// goroutine.
//
// Tick Flow:
// 1. Phase advances by step.
// 2. Reaching ratio completes a rotation: a pending engagement
//    activates, an engaged gear fires OnTick then OnRotation, a pending
//    disengagement completes.
// 3. The overshoot carries into the next cycle (fractional ratios).
// 4. Children tick in priority order, regardless of this gear's state.
//
// Engagement is asymmetric on purpose: engaging completes only at a
// rotation boundary, disengaging completes on the very next tick. A
// disengaged gear stays a clock source for its children; only its own
// notifications go silent.
//
// A steady-state tick allocates nothing and never logs; the tree is
// meant to be driven at interrupt-like frequencies. Observability
// belongs in Hooks implementations such as Counter and Relay.
package gearbox
