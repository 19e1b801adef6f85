package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

func u32(v uint32) *uint32 { return &v }

var av1 = bacnet.ObjectID{Type: bacnet.ObjectAnalogValue, Instance: 1}

func TestRequestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{
			name: "read property",
			req: Request{
				InvokeID: 1,
				Service:  ServiceReadProperty,
				Object:   av1,
				Property: bacnet.PropPresentValue,
			},
		},
		{
			name: "read array element",
			req: Request{
				InvokeID:   2,
				Service:    ServiceReadProperty,
				Object:     av1,
				Property:   bacnet.PropPriorityArray,
				ArrayIndex: u32(0),
			},
		},
		{
			name: "write property",
			req: Request{
				InvokeID: 3,
				Service:  ServiceWriteProperty,
				Object:   av1,
				Property: bacnet.PropPresentValue,
				Priority: 8,
				Value:    []byte{0x44, 0x42, 0x28, 0x00, 0x00},
			},
		},
		{
			name: "subscribe cov",
			req: Request{
				InvokeID:  4,
				Service:   ServiceSubscribeCOV,
				Object:    av1,
				ProcessID: 17,
				Lifetime:  300,
				Confirmed: true,
			},
		},
		{
			name: "who-has by name",
			req: Request{
				Service:    ServiceWhoHas,
				ObjectName: "ZONE-TEMP",
				LowLimit:   u32(1),
				HighLimit:  u32(100),
			},
		},
		{
			name: "read property multiple",
			req: Request{
				InvokeID: 5,
				Service:  ServiceReadPropertyMultiple,
				References: []PropertyReference{
					{Object: av1, Property: bacnet.PropPresentValue},
					{Object: av1, Property: bacnet.PropPriorityArray, ArrayIndex: u32(8)},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeRequest(&tt.req)
			if err != nil {
				t.Fatalf("EncodeRequest failed: %v", err)
			}

			got, err := DecodeRequest(data)
			if err != nil {
				t.Fatalf("DecodeRequest failed: %v", err)
			}

			if got.InvokeID != tt.req.InvokeID {
				t.Errorf("InvokeID: got %d, want %d", got.InvokeID, tt.req.InvokeID)
			}
			if got.Service != tt.req.Service {
				t.Errorf("Service: got %s, want %s", got.Service, tt.req.Service)
			}
			if got.Object != tt.req.Object {
				t.Errorf("Object: got %v, want %v", got.Object, tt.req.Object)
			}
			if got.Index() != tt.req.Index() {
				t.Errorf("Index: got %d, want %d", got.Index(), tt.req.Index())
			}
			if !Equal(got, &tt.req) {
				t.Errorf("decoded request differs from original")
			}
		})
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"unknown service", Request{InvokeID: 1, Service: 99}, ErrInvalidService},
		{"confirmed without invoke id", Request{Service: ServiceReadProperty}, ErrInvalidInvokeID},
		{"write without value", Request{InvokeID: 1, Service: ServiceWriteProperty}, ErrMissingValue},
		{"who-has without target", Request{Service: ServiceWhoHas, Object: bacnet.ObjectID{Type: bacnet.ObjectAnalogValue, Instance: bacnet.MaxInstance + 1}}, ErrMissingTarget},
		{"dcc bad state", Request{InvokeID: 1, Service: ServiceDeviceCommunicationControl, State: 7}, ErrInvalidState},
		{"unconfirmed without invoke id", Request{Service: ServiceWhoHas, ObjectName: "X"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	t.Run("value", func(t *testing.T) {
		resp := Response{InvokeID: 9, Service: ServiceReadProperty, Value: []byte{0x91, 0x62}}
		data, err := EncodeResponse(&resp)
		if err != nil {
			t.Fatalf("EncodeResponse failed: %v", err)
		}
		got, err := DecodeResponse(data)
		if err != nil {
			t.Fatalf("DecodeResponse failed: %v", err)
		}
		if !got.IsSuccess() {
			t.Errorf("expected success")
		}
		if !bytes.Equal(got.Value, resp.Value) {
			t.Errorf("Value: got %x, want %x", got.Value, resp.Value)
		}
	})

	t.Run("error", func(t *testing.T) {
		resp := Response{InvokeID: 10, Service: ServiceWriteProperty, Error: NewErrorPayload(bacnet.ErrWriteAccessDenied)}
		data, err := EncodeResponse(&resp)
		if err != nil {
			t.Fatalf("EncodeResponse failed: %v", err)
		}
		got, err := DecodeResponse(data)
		if err != nil {
			t.Fatalf("DecodeResponse failed: %v", err)
		}
		if got.IsSuccess() {
			t.Fatalf("expected error response")
		}
		if !errors.Is(got.Error.Err(), bacnet.ErrWriteAccessDenied) {
			t.Errorf("Err() = %v, want write-access-denied", got.Error.Err())
		}
	})
}

func TestNewErrorPayload(t *testing.T) {
	if p := NewErrorPayload(nil); p != nil {
		t.Errorf("NewErrorPayload(nil) = %+v, want nil", p)
	}
	p := NewErrorPayload(errors.New("boom"))
	if p == nil || p.Class != bacnet.ClassDevice {
		t.Errorf("plain error should map to the device class, got %+v", p)
	}
	var nilPayload *ErrorPayload
	if nilPayload.Err() != nil {
		t.Errorf("nil payload should yield nil error")
	}
}

func TestNotificationRoundTrip(t *testing.T) {
	values, err := EncodeValues([]bacapp.PropertyValue{
		{Property: bacnet.PropPresentValue, ArrayIndex: bacnet.ArrayAll, Value: bacapp.Real(42)},
		{Property: bacnet.PropStatusFlags, ArrayIndex: bacnet.ArrayAll, Value: bacapp.StatusFlags(bacnet.StatusFlags{OutOfService: true})},
	})
	if err != nil {
		t.Fatalf("EncodeValues failed: %v", err)
	}

	notif := Notification{
		ProcessID:     3,
		Device:        bacnet.ObjectID{Type: bacnet.ObjectDevice, Instance: 260001},
		Object:        av1,
		TimeRemaining: 120,
		Values:        values,
	}
	data, err := EncodeNotification(&notif)
	if err != nil {
		t.Fatalf("EncodeNotification failed: %v", err)
	}

	got, err := DecodeNotification(data)
	if err != nil {
		t.Fatalf("DecodeNotification failed: %v", err)
	}
	decoded, err := DecodeValues(got.Values)
	if err != nil {
		t.Fatalf("DecodeValues failed: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("got %d values, want 2", len(decoded))
	}
	if decoded[0].Value.Real != 42 {
		t.Errorf("present value: got %v, want 42", decoded[0].Value.Real)
	}
	if decoded[0].ArrayIndex != bacnet.ArrayAll {
		t.Errorf("array index should default to ALL")
	}
	if !decoded[1].Value.BitString.Bit(bacnet.StatusFlagOutOfService) {
		t.Errorf("out-of-service flag lost")
	}
}

func TestDecodeRejectsWrongType(t *testing.T) {
	notif := Notification{Object: av1}
	data, err := EncodeNotification(&notif)
	if err != nil {
		t.Fatalf("EncodeNotification failed: %v", err)
	}
	if _, err := DecodeRequest(data); err == nil {
		t.Errorf("DecodeRequest accepted a notification")
	}
	if _, err := DecodeResponse(data); err == nil {
		t.Errorf("DecodeResponse accepted a notification")
	}
	if _, err := DecodeIHave(data); err == nil {
		t.Errorf("DecodeIHave accepted a notification")
	}
}

func TestPeekMessageType(t *testing.T) {
	req := Request{InvokeID: 1, Service: ServiceReadProperty, Object: av1}
	reqData, _ := EncodeRequest(&req)
	resp := Response{InvokeID: 1}
	respData, _ := EncodeResponse(&resp)
	notif := Notification{Object: av1}
	notifData, _ := EncodeNotification(&notif)
	ihave := IHave{Object: av1, ObjectName: "AV-1"}
	ihaveData, _ := EncodeIHave(&ihave)
	bogus, _ := Marshal(map[int]int{0: 42})

	tests := []struct {
		name string
		data []byte
		want MessageType
	}{
		{"request", reqData, MessageTypeRequest},
		{"response", respData, MessageTypeResponse},
		{"notification", notifData, MessageTypeNotification},
		{"i-have", ihaveData, MessageTypeIHave},
		{"out of range", bogus, MessageTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PeekMessageType(tt.data)
			if err != nil {
				t.Fatalf("PeekMessageType failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := PeekMessageType([]byte{0xff}); err == nil {
		t.Errorf("expected error for malformed data")
	}
}

func TestServiceString(t *testing.T) {
	if ServiceWhoHas.Confirmed() {
		t.Errorf("who-has must be unconfirmed")
	}
	if !ServiceSubscribeCOV.Confirmed() {
		t.Errorf("subscribe-cov must be confirmed")
	}
	if got := Service(99).String(); got != "service(99)" {
		t.Errorf("String() = %q", got)
	}
	if got := ServiceReadProperty.String(); got != "read-property" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseService(t *testing.T) {
	for s := range serviceNames {
		got, err := ParseService(s.String())
		if err != nil {
			t.Errorf("ParseService(%q): %v", s, err)
			continue
		}
		if got != s {
			t.Errorf("ParseService(%q) = %d, want %d", s, got, s)
		}
	}
	if got, err := ParseService("Write-Property"); err != nil || got != ServiceWriteProperty {
		t.Errorf("case-insensitive parse = %v, %v", got, err)
	}
	if _, err := ParseService("read-range"); !errors.Is(err, ErrUnknownService) {
		t.Errorf("unknown service: got %v", err)
	}
}
