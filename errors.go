package gearbox

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Connect and Delay. Match them with
// errors.Is.
var (
	// ErrAlreadyConnected means the gear was connected to a pinion
	// before; a gear attaches exactly once.
	ErrAlreadyConnected = errors.New("gear already connected")

	// ErrNilPinion means Connect was called without a pinion.
	ErrNilPinion = errors.New("pinion is nil")

	// ErrCycle means the connection would make a gear drive itself.
	ErrCycle = errors.New("connection would form a cycle")

	// ErrStaleEngagement means Delay was called after the OnEngaged
	// invocation that issued the handle returned.
	ErrStaleEngagement = errors.New("engagement handle is stale")
)

// ConfigError reports a gear configuration rejected by Connect.
type ConfigError struct {
	// Field names the rejected parameter: "ratio", "step", "phase" or
	// "priority".
	Field string

	// Value is the rejected value.
	Value int

	// Reason describes the constraint that failed.
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %d: %s", e.Field, e.Value, e.Reason)
}

// IsConfigError reports whether err is a *ConfigError. Uses errors.As
// to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
