// Package wire defines the CBOR wire format of the property tree control
// protocol.
//
// All maps use integer keys. Messages are carried in length-prefixed frames
// (see package transport).
//
// # Message Types
//
//   - Request: client to device, {1: messageId, 2: operation, 3: path, 4: payload}
//   - Response: device to client, {1: messageId, 2: status, 3: payload}
//   - Notification: device to client, {1: 0, 2: subscriptionId, 3: changes}
//
// Message ID 0 is reserved for notifications, which lets a client tell them
// apart from responses without decoding the whole message.
//
// Payloads are carried as raw CBOR and decoded into the typed payload structs
// of this package by the side that knows the operation.
package wire
