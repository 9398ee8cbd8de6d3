// Package component implements the device component registry: a mapping
// from component IDs (such as "mb0", "rx_dsp0" or "0/Radio#0") to the
// property subtree each component exposes.
//
// A component moves from unregistered to registered and back; there are no
// intermediate states. Registration is serialized by the registry lock, so
// no registration observes another one half done.
package component
