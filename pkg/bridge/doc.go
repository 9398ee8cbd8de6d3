// Package bridge publishes tree changes to an AMQP exchange.
//
// A Bridge is a log.Logger: install it as (part of) the tree's EventLogger
// and every committed-path event is queued without blocking the writer.
// Run drains the queue onto the exchange "radiotree.events" with routing key
// "tree.<path segments joined by dots>", so consumers can bind patterns like
// "tree.mboards.0.#". Bodies are JSON:
//
//	{"path":"/mboards/0/tick_rate/value","kind":"set","value":32000000,
//	 "timestamp":"2026-01-02T15:04:05Z","device":"31A4F2B"}
//
// Kinds are "set", "created", "removed" and "rollback". A rollback event
// names the write that started the failed transaction; consumers should
// re-read values published since the previous event for that origin.
//
// Events that arrive while the broker is unreachable, or when the queue is
// full, are dropped and counted.
package bridge
