// Package tree implements the device property tree: a rooted namespace of
// typed, observable nodes addressed by slash-separated paths.
//
// A Tree is constructed explicitly by the application and passed to every
// collaborator; there is no process-wide instance.
//
// # Locking
//
// All mutations (node creation, writes, subtree removal, aliasing) take one
// tree-wide write lock. Reads share a read lock. Subscriber callbacks run
// synchronously inside the write lock of the write that triggered them, so a
// callback must not call Tree or View methods, nor Handle.Get or Desired.
// It reads and writes other nodes through the property.Tx it is given
// instead, or through Handle.GetLocked; those writes run one level deeper
// in the chain and are bounded by Config.MaxDepth.
//
// # Atomicity
//
// A write, together with every write its callbacks trigger, either completes
// or is undone entirely, even when an intermediate callback drops the error
// of a nested write. Update and CreateNodes extend this to several writes or
// node creations. Undone writes are not re-notified; callbacks undo their
// own side effects through property.Tx.OnRollback.
//
// # Aliases
//
// Alias makes a path prefix resolve to another subtree. A path resolves to
// an existing node first; otherwise the longest aliased prefix is rewritten
// and resolution repeats. When the target subtree is removed the alias turns
// stale and resolving through it returns ErrStaleReference.
package tree
