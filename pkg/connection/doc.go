// Package connection manages the lifecycle of a long-lived outbound
// connection with automatic reconnection.
//
// A Manager wraps a ConnectFunc. After a connection is reported lost it
// retries with exponential backoff:
//
//  1. Initial delay: 1 second
//  2. Doubling: 2s, 4s, 8s, 16s, 32s
//  3. Maximum delay: 60 seconds, repeated until success
//  4. Reset to 1s after a successful reconnection
//
// Each delay is randomized by up to 25% so that many clients losing the
// same device do not reconnect in lockstep.
//
// The AMQP bridge and the watch command of the client CLI use it.
package connection
