// Package transport carries control protocol messages between a device and
// its clients.
//
// Each message travels as one frame: a 4-byte big-endian length followed by
// the CBOR-encoded message. Frames are capped at MaxMessageSize; an empty
// frame is a protocol error.
//
//	┌────────────────────────────────┐
//	│      CBOR Messages             │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// Every connection gets a UUID that ties its frames and lifecycle events
// together in the event log.
package transport
