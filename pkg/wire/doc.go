// Package wire defines the CBOR envelope exchanged between a device and its
// clients.
//
// Messages are CBOR (RFC 8949) maps with integer keys. Key 0 always holds
// the MessageType so a receiver can route a frame with PeekMessageType
// before decoding it fully.
//
// # Message Types
//
//   - Request: client to device (ReadProperty, WriteProperty, SubscribeCOV,
//     Who-Has, DeviceCommunicationControl and friends)
//   - Response: device to client, either a result or an ErrorPayload
//   - Notification: device to client, a COV notification
//   - IHave: device to client, the answer to a matching Who-Has
//
// # Property Values
//
// Property values travel as BACnet application-tagged bytes (see package
// bacapp), not as CBOR values, so a client sees exactly what a BACnet peer
// would.
//
// # Array Indexes
//
// An absent array index means the whole property. A present index selects
// one element, with index 0 selecting the element count.
package wire
