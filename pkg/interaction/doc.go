// Package interaction implements the control protocol on top of a property
// tree and its component registry.
//
// # Server
//
// Server dispatches decoded requests (Get, Set, List, Create, Remove,
// Subscribe, Unsubscribe, Components, Lookup, Unregister, Snapshot) to the
// tree and registry and maps failures to wire statuses with
// StatusFromError. Bind routes a transport.Server's messages to it:
//
//	srv := interaction.NewServer(t, reg, interaction.DefaultServerConfig())
//	ts := transport.NewServer(srv.Bind(ctx, transport.ServerConfig{}))
//	go srv.Run(ctx)
//
// Remote writes are client writes: read-only nodes reject them.
//
// # Subscriptions
//
// Subscribe watches every node that exists below the (alias-resolved) path
// when the request arrives. Nodes created later are not covered. Changes are
// coalesced per subscription and flushed by Run. A subscription belongs to
// the connection that created it and ends when that connection closes.
//
// # Client
//
// Dial connects with exponential backoff and returns a Client whose typed
// methods mirror the operations. Error responses come back as *StatusError,
// which unwraps to the matching tree or registry sentinel:
//
//	_, err := c.Set(ctx, "/rx_dsp0/rate/value", property.Float(0))
//	if errors.Is(err, property.ErrValidation) { ... }
package interaction
