// Package traindef compiles declarative train definitions into live gear
// trees.
//
// A train is a named gear tree written in CUE. The pipeline is
// Compile (CUE -> TrainSpec), Validate (configuration rules, all errors
// reported), Hash (content-addressed identity over canonical JSON), and
// Build (one gearbox.Relay per declared gear, connected in declaration
// order).
package traindef
