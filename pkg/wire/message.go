package wire

import (
	"errors"
	"fmt"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// Validation errors.
var (
	ErrInvalidService  = errors.New("invalid service")
	ErrInvalidInvokeID = errors.New("confirmed request requires a non-zero invoke id")
	ErrMissingValue    = errors.New("write requires a value")
	ErrMissingTarget   = errors.New("who-has requires an object name or identifier")
	ErrInvalidState    = errors.New("invalid communication state")
)

// Request is a service request from a client.
type Request struct {
	Type       MessageType       `cbor:"0,keyasint"`
	InvokeID   uint32            `cbor:"1,keyasint"`
	Service    Service           `cbor:"2,keyasint"`
	Object     bacnet.ObjectID   `cbor:"3,keyasint"`
	Property   bacnet.PropertyID `cbor:"4,keyasint,omitempty"`
	ArrayIndex *uint32           `cbor:"5,keyasint,omitempty"`

	// Priority is the write priority. Zero selects the lowest priority.
	Priority uint8 `cbor:"6,keyasint,omitempty"`

	// Value is one application-tagged value.
	Value []byte `cbor:"7,keyasint,omitempty"`

	// SubscribeCOV parameters. Lifetime is in seconds, zero meaning
	// indefinite.
	ProcessID uint32 `cbor:"8,keyasint,omitempty"`
	Lifetime  uint32 `cbor:"9,keyasint,omitempty"`
	Confirmed bool   `cbor:"10,keyasint,omitempty"`
	Cancel    bool   `cbor:"11,keyasint,omitempty"`

	// ObjectName names the target of Who-Has or CreateObject.
	ObjectName string `cbor:"12,keyasint,omitempty"`

	// Who-Has device instance range. Both or neither are present.
	LowLimit  *uint32 `cbor:"13,keyasint,omitempty"`
	HighLimit *uint32 `cbor:"14,keyasint,omitempty"`

	// DeviceCommunicationControl parameters. Duration is in minutes, zero
	// meaning indefinite.
	State    bacnet.CommunicationState `cbor:"15,keyasint,omitempty"`
	Duration uint16                    `cbor:"16,keyasint,omitempty"`

	// References lists the properties of ReadPropertyMultiple.
	References []PropertyReference `cbor:"17,keyasint,omitempty"`
}

// PropertyReference names one property of one object.
type PropertyReference struct {
	Object     bacnet.ObjectID   `cbor:"1,keyasint"`
	Property   bacnet.PropertyID `cbor:"2,keyasint"`
	ArrayIndex *uint32           `cbor:"3,keyasint,omitempty"`
}

// Index returns the array index, or bacnet.ArrayAll when absent.
func (r PropertyReference) Index() uint32 {
	return arrayIndex(r.ArrayIndex)
}

// Index returns the request's array index, or bacnet.ArrayAll when absent.
func (r *Request) Index() uint32 {
	return arrayIndex(r.ArrayIndex)
}

func arrayIndex(p *uint32) uint32 {
	if p == nil {
		return bacnet.ArrayAll
	}
	return *p
}

// Validate checks the request is well-formed for its service.
func (r *Request) Validate() error {
	if !r.Service.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidService, r.Service)
	}
	if r.Service.Confirmed() && r.InvokeID == 0 {
		return ErrInvalidInvokeID
	}
	switch r.Service {
	case ServiceWriteProperty:
		if len(r.Value) == 0 {
			return ErrMissingValue
		}
	case ServiceWhoHas:
		if r.ObjectName == "" && !r.Object.Valid() {
			return ErrMissingTarget
		}
	case ServiceDeviceCommunicationControl:
		if !r.State.Valid() {
			return ErrInvalidState
		}
	}
	return nil
}

// ErrorPayload carries a BACnet error class and code.
type ErrorPayload struct {
	Class bacnet.ErrorClass `cbor:"1,keyasint"`
	Code  bacnet.ErrorCode  `cbor:"2,keyasint"`
}

// NewErrorPayload converts err to its wire form.
func NewErrorPayload(err error) *ErrorPayload {
	e := bacnet.AsError(err)
	if e == nil {
		return nil
	}
	return &ErrorPayload{Class: e.Class, Code: e.Code}
}

// Err returns the payload as a *bacnet.Error.
func (p *ErrorPayload) Err() error {
	if p == nil {
		return nil
	}
	return bacnet.NewError(p.Class, p.Code)
}

// Response answers a confirmed request.
type Response struct {
	Type     MessageType   `cbor:"0,keyasint"`
	InvokeID uint32        `cbor:"1,keyasint"`
	Service  Service       `cbor:"2,keyasint"`
	Error    *ErrorPayload `cbor:"3,keyasint,omitempty"`

	// Value is the application-tagged ReadProperty result.
	Value []byte `cbor:"4,keyasint,omitempty"`

	// Object is the identifier assigned by CreateObject.
	Object *bacnet.ObjectID `cbor:"5,keyasint,omitempty"`

	// Results holds ReadPropertyMultiple results in request order.
	Results []ReadResult `cbor:"6,keyasint,omitempty"`
}

// IsSuccess reports whether the response carries no error.
func (r *Response) IsSuccess() bool {
	return r.Error == nil
}

// ReadResult is one ReadPropertyMultiple result: either a value or an error.
type ReadResult struct {
	Object     bacnet.ObjectID   `cbor:"1,keyasint"`
	Property   bacnet.PropertyID `cbor:"2,keyasint"`
	ArrayIndex *uint32           `cbor:"3,keyasint,omitempty"`
	Value      []byte            `cbor:"4,keyasint,omitempty"`
	Error      *ErrorPayload     `cbor:"5,keyasint,omitempty"`
}

// PropertyValue is one entry of a notification value list.
type PropertyValue struct {
	Property   bacnet.PropertyID `cbor:"1,keyasint"`
	ArrayIndex *uint32           `cbor:"2,keyasint,omitempty"`
	Value      []byte            `cbor:"3,keyasint"`
	Priority   uint8             `cbor:"4,keyasint,omitempty"`
}

// Notification is a COV notification. Notifications carry no invoke id.
type Notification struct {
	Type          MessageType     `cbor:"0,keyasint"`
	ProcessID     uint32          `cbor:"2,keyasint"`
	Device        bacnet.ObjectID `cbor:"3,keyasint"`
	Object        bacnet.ObjectID `cbor:"4,keyasint"`
	TimeRemaining uint32          `cbor:"5,keyasint"`
	Confirmed     bool            `cbor:"6,keyasint,omitempty"`
	Values        []PropertyValue `cbor:"7,keyasint"`
}

// IHave answers a matching Who-Has.
type IHave struct {
	Type       MessageType     `cbor:"0,keyasint"`
	Device     bacnet.ObjectID `cbor:"1,keyasint"`
	Object     bacnet.ObjectID `cbor:"2,keyasint"`
	ObjectName string          `cbor:"3,keyasint"`
}

// EncodeValues converts property values to their wire form.
func EncodeValues(values []bacapp.PropertyValue) ([]PropertyValue, error) {
	out := make([]PropertyValue, 0, len(values))
	for _, pv := range values {
		data, err := bacapp.Append(nil, pv.Value)
		if err != nil {
			return nil, fmt.Errorf("property %d: %w", pv.Property, err)
		}
		wv := PropertyValue{Property: pv.Property, Value: data, Priority: pv.Priority}
		if pv.ArrayIndex != bacnet.ArrayAll {
			idx := pv.ArrayIndex
			wv.ArrayIndex = &idx
		}
		out = append(out, wv)
	}
	return out, nil
}

// DecodeValues converts wire property values back to application values.
func DecodeValues(values []PropertyValue) ([]bacapp.PropertyValue, error) {
	out := make([]bacapp.PropertyValue, 0, len(values))
	for _, wv := range values {
		v, _, err := bacapp.Decode(wv.Value)
		if err != nil {
			return nil, fmt.Errorf("property %d: %w", wv.Property, err)
		}
		out = append(out, bacapp.PropertyValue{
			Property:   wv.Property,
			ArrayIndex: arrayIndex(wv.ArrayIndex),
			Value:      v,
			Priority:   wv.Priority,
		})
	}
	return out, nil
}
