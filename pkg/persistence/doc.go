// Package persistence saves writable tree values to a JSON snapshot file and
// restores them after a restart.
//
// A snapshot lists every client-writable node below a root with its kind and
// current value. The node list is hashed with BLAKE2b-256; Load rejects a file
// whose digest does not match, so a truncated or hand-edited snapshot is never
// half-applied.
package persistence
