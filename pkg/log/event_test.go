package log

import (
	"errors"
	"testing"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/wire"
)

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{DirectionIn.String(), "IN"},
		{DirectionOut.String(), "OUT"},
		{Direction(9).String(), "UNKNOWN"},
		{LayerWire.String(), "WIRE"},
		{CategoryState.String(), "STATE"},
		{StateEntitySubscription.String(), "SUBSCRIPTION"},
		{StateEntity(42).String(), "UNKNOWN"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestEventRoundTrip(t *testing.T) {
	req := &wire.Request{
		InvokeID: 7,
		Service:  wire.ServiceWriteProperty,
		Object:   bacnet.ObjectID{Type: bacnet.ObjectAnalogValue, Instance: 3},
		Property: bacnet.PropPresentValue,
		Priority: 8,
		Value:    []byte{0x44, 0x41, 0xa0, 0x00, 0x00},
	}
	ts := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC)
	event := Event{
		Timestamp:      ts,
		ConnectionID:   "conn-1",
		Direction:      DirectionIn,
		Layer:          LayerWire,
		Category:       CategoryMessage,
		DeviceInstance: 260001,
		Message:        RequestEvent(req),
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp: got %v, want %v (nanoseconds must survive)", got.Timestamp, ts)
	}
	if got.Message == nil {
		t.Fatal("Message payload lost")
	}
	if *got.Message.Service != wire.ServiceWriteProperty {
		t.Errorf("Service: got %v", *got.Message.Service)
	}
	if *got.Message.Property != bacnet.PropPresentValue {
		t.Errorf("Property: got %v", *got.Message.Property)
	}
	if *got.Message.Priority != 8 {
		t.Errorf("Priority: got %d", *got.Message.Priority)
	}
	if got.DeviceInstance != 260001 {
		t.Errorf("DeviceInstance: got %d", got.DeviceInstance)
	}
}

func TestRequestEventOmitsUnrelatedFields(t *testing.T) {
	ev := RequestEvent(&wire.Request{InvokeID: 1, Service: wire.ServiceSubscribeCOV, ProcessID: 4})
	if ev.Property != nil {
		t.Errorf("subscribe should not carry a property")
	}
	if ev.Priority != nil {
		t.Errorf("subscribe should not carry a priority")
	}
}

func TestResponseEvent(t *testing.T) {
	resp := &wire.Response{InvokeID: 2, Service: wire.ServiceReadProperty, Error: wire.NewErrorPayload(bacnet.ErrUnknownObject)}
	ev := ResponseEvent(resp, 3*time.Millisecond)
	if ev.Type != wire.MessageTypeResponse {
		t.Errorf("Type: got %v", ev.Type)
	}
	if *ev.ProcessingTime != 3*time.Millisecond {
		t.Errorf("ProcessingTime: got %v", *ev.ProcessingTime)
	}
	if ev.Error.Code != bacnet.CodeUnknownObject {
		t.Errorf("Error code: got %v", ev.Error.Code)
	}
}

func TestNewErrorEvent(t *testing.T) {
	ev := NewErrorEvent(LayerService, bacnet.ErrWriteAccessDenied, "write")
	if ev.Class == nil || *ev.Class != bacnet.ClassProperty {
		t.Errorf("Class not captured: %+v", ev)
	}
	if ev.Context != "write" {
		t.Errorf("Context: got %q", ev.Context)
	}

	plain := NewErrorEvent(LayerTransport, errors.New("reset"), "read")
	if plain.Class != nil || plain.Code != nil {
		t.Errorf("plain errors carry no class or code")
	}
	if plain.Message != "reset" {
		t.Errorf("Message: got %q", plain.Message)
	}
}
