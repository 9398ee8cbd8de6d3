// Package subscription implements coalescing remote subscriptions on tree
// subtrees.
//
// A subscription watches every node at or below a canonical path prefix.
// Changes are recorded with NotifyChange and delivered in batches by
// ProcessNotifications, so recording never blocks a tree writer.
//
// # Subscription Parameters
//
//   - minInterval: coalescing window; changes inside it collapse to the
//     final value per path
//   - maxInterval: maximum time without a notification (heartbeat)
//
// # Bounce-Back Suppression
//
// A path whose pending value equals the value last notified for it is
// dropped from the batch. If nothing is left, no notification is sent.
//
// # Priming and Heartbeat
//
// Subscribe takes the values the subscriber starts from. They are the
// baseline for bounce-back suppression and, in HeartbeatFull mode, the
// content of heartbeats until changes arrive.
//
// Subscriptions are owned by a connection and removed with
// UnsubscribeOwner when it closes.
package subscription
