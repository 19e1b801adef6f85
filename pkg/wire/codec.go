package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// encMode produces deterministic CBOR with integer keys.
var encMode cbor.EncMode

// decMode tolerates duplicate keys and unknown fields.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewEncoder creates a CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// MessageType is carried under key 0 of every message.
type MessageType uint8

const (
	MessageTypeUnknown MessageType = iota
	MessageTypeRequest
	MessageTypeResponse
	MessageTypeNotification
	MessageTypeIHave
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case MessageTypeRequest:
		return "request"
	case MessageTypeResponse:
		return "response"
	case MessageTypeNotification:
		return "notification"
	case MessageTypeIHave:
		return "i-have"
	default:
		return "unknown"
	}
}

// EncodeRequest validates and encodes a request.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	req.Type = MessageTypeRequest
	return Marshal(req)
}

// DecodeRequest decodes and validates a request.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if req.Type != MessageTypeRequest {
		return nil, fmt.Errorf("not a request message: type=%s", req.Type)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return &req, nil
}

// EncodeResponse encodes a response.
func EncodeResponse(resp *Response) ([]byte, error) {
	resp.Type = MessageTypeResponse
	return Marshal(resp)
}

// DecodeResponse decodes a response.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Type != MessageTypeResponse {
		return nil, fmt.Errorf("not a response message: type=%s", resp.Type)
	}
	return &resp, nil
}

// EncodeNotification encodes a COV notification.
func EncodeNotification(notif *Notification) ([]byte, error) {
	notif.Type = MessageTypeNotification
	return Marshal(notif)
}

// DecodeNotification decodes a COV notification.
func DecodeNotification(data []byte) (*Notification, error) {
	var notif Notification
	if err := Unmarshal(data, &notif); err != nil {
		return nil, fmt.Errorf("failed to decode notification: %w", err)
	}
	if notif.Type != MessageTypeNotification {
		return nil, fmt.Errorf("not a notification message: type=%s", notif.Type)
	}
	return &notif, nil
}

// EncodeIHave encodes an I-Have announcement.
func EncodeIHave(msg *IHave) ([]byte, error) {
	msg.Type = MessageTypeIHave
	return Marshal(msg)
}

// DecodeIHave decodes an I-Have announcement.
func DecodeIHave(data []byte) (*IHave, error) {
	var msg IHave
	if err := Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode i-have: %w", err)
	}
	if msg.Type != MessageTypeIHave {
		return nil, fmt.Errorf("not an i-have message: type=%s", msg.Type)
	}
	return &msg, nil
}

// PeekMessageType reads key 0 without decoding the rest of the message.
func PeekMessageType(data []byte) (MessageType, error) {
	var peek struct {
		Type MessageType `cbor:"0,keyasint"`
	}
	if err := Unmarshal(data, &peek); err != nil {
		return MessageTypeUnknown, fmt.Errorf("failed to peek message: %w", err)
	}
	if peek.Type > MessageTypeIHave {
		return MessageTypeUnknown, nil
	}
	return peek.Type, nil
}

// Clone creates a deep copy by re-encoding.
func Clone[T any](v T) (T, error) {
	var result T
	data, err := Marshal(v)
	if err != nil {
		return result, err
	}
	err = Unmarshal(data, &result)
	return result, err
}

// Equal compares two values by their CBOR encoding.
func Equal(a, b any) bool {
	dataA, errA := Marshal(a)
	dataB, errB := Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(dataA, dataB)
}
