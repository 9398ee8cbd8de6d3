// Package property implements the typed, observable value slots that make up
// a device property tree.
//
// # Values
//
// A Value is a tagged variant: bool, int64, float64, string, or a struct of
// named Values. A Node's kind is fixed by its initial value and every write
// is checked against it.
//
// # Coercion
//
// Each Node carries a Coercer. Writes run through it before they are stored:
//
//	Clip(0, 76)        // gain in dB, clamped
//	Range(1e6, 250e6)  // tick rate, rejected when outside
//	OneOf(String("internal"), String("external"))
//
// A rejected write returns a *ValidationError and leaves the previous value
// in place. Nodes remember both the coerced value and the desired value that
// the writer asked for.
//
// # Subscribers
//
// Callbacks run synchronously in registration order after each successful
// write. They receive a Tx for writes to other nodes; nesting is capped at
// MaxPropagationDepth.
package property
