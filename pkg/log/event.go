package log

import (
	"errors"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/wire"
)

// Event is one captured protocol event.
type Event struct {
	Timestamp    time.Time `cbor:"1,keyasint"`
	ConnectionID string    `cbor:"2,keyasint"`
	Direction    Direction `cbor:"3,keyasint"`
	Layer        Layer     `cbor:"4,keyasint"`
	Category     Category  `cbor:"5,keyasint"`
	RemoteAddr   string    `cbor:"6,keyasint,omitempty"`

	// DeviceInstance is the instance of the local device object.
	DeviceInstance uint32 `cbor:"7,keyasint,omitempty"`

	// Exactly one payload is set.
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates message flow relative to the local device.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer is the layer that captured the event.
type Layer uint8

const (
	// LayerTransport sees raw frames.
	LayerTransport Layer = 0
	// LayerWire sees decoded envelopes.
	LayerWire Layer = 1
	// LayerService sees service outcomes.
	LayerService Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryState   Category = 1
	CategoryError   Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures a raw frame.
type FrameEvent struct {
	// Size includes the length prefix.
	Size int `cbor:"1,keyasint"`

	// Data may be cut short for large frames; Truncated says so.
	Data      []byte `cbor:"2,keyasint,omitempty"`
	Truncated bool   `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded request, response or notification.
type MessageEvent struct {
	Type     wire.MessageType `cbor:"1,keyasint"`
	InvokeID uint32           `cbor:"2,keyasint"`

	Service    *wire.Service      `cbor:"3,keyasint,omitempty"`
	Object     *bacnet.ObjectID   `cbor:"4,keyasint,omitempty"`
	Property   *bacnet.PropertyID `cbor:"5,keyasint,omitempty"`
	ArrayIndex *uint32            `cbor:"6,keyasint,omitempty"`
	Priority   *uint8             `cbor:"7,keyasint,omitempty"`

	// Value is the application-tagged value carried by the message.
	Value []byte `cbor:"8,keyasint,omitempty"`

	// Error is set on failed responses.
	Error *wire.ErrorPayload `cbor:"9,keyasint,omitempty"`

	// ProcessingTime is set on responses.
	ProcessingTime *time.Duration `cbor:"10,keyasint,omitempty"`
}

// StateChangeEvent captures connection, subscription and device
// lifecycle changes.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// StateEntity is what changed state.
type StateEntity uint8

const (
	StateEntityConnection    StateEntity = 0
	StateEntitySubscription  StateEntity = 1
	StateEntityCommunication StateEntity = 2
	StateEntityObject        StateEntity = 3
)

// String returns the entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	case StateEntityCommunication:
		return "COMMUNICATION"
	case StateEntityObject:
		return "OBJECT"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures a failure at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Class and Code are set for BACnet errors.
	Class *bacnet.ErrorClass `cbor:"3,keyasint,omitempty"`
	Code  *bacnet.ErrorCode  `cbor:"4,keyasint,omitempty"`

	// Context names the operation that failed.
	Context string `cbor:"5,keyasint,omitempty"`
}

// NewErrorEvent builds an error payload, filling class and code when err
// carries them.
func NewErrorEvent(layer Layer, err error, op string) *ErrorEventData {
	data := &ErrorEventData{Layer: layer, Message: err.Error(), Context: op}
	var be *bacnet.Error
	if errors.As(err, &be) {
		class, code := be.Class, be.Code
		data.Class = &class
		data.Code = &code
	}
	return data
}
