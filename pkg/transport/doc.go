// Package transport carries wire messages over TCP.
//
// Every message travels in one frame: a 4-byte big-endian payload length
// followed by the payload. Frames are bounded by a maximum payload size so
// a misbehaving peer cannot force large allocations.
//
//	┌────────────────────────────────┐
//	│      CBOR messages (wire)      │
//	├────────────────────────────────┤
//	│   Length-prefix framing (4B)   │
//	├────────────────────────────────┤
//	│              TCP               │
//	└────────────────────────────────┘
//
// Server gives every accepted connection a random id (a UUID). The id is
// what higher layers use to address a client, e.g. as a COV subscriber.
package transport
