package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/wire"
)

func logOne(t *testing.T, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	adapter.Log(event)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestSlogAdapterFrame(t *testing.T) {
	entry := logOne(t, frameEvent("conn-123", DirectionIn, time.Now()))

	if entry["msg"] != "protocol" {
		t.Errorf("msg: got %v", entry["msg"])
	}
	if entry["conn_id"] != "conn-123" {
		t.Errorf("conn_id: got %v", entry["conn_id"])
	}
	if entry["direction"] != "IN" {
		t.Errorf("direction: got %v", entry["direction"])
	}
	if entry["frame_size"] != float64(8) {
		t.Errorf("frame_size: got %v", entry["frame_size"])
	}
}

func TestSlogAdapterMessage(t *testing.T) {
	idx := uint32(3)
	entry := logOne(t, Event{
		ConnectionID: "c",
		Layer:        LayerWire,
		Message: RequestEvent(&wire.Request{
			InvokeID:   11,
			Service:    wire.ServiceReadProperty,
			Object:     bacnet.ObjectID{Type: bacnet.ObjectAnalogValue, Instance: 1},
			Property:   bacnet.PropPriorityArray,
			ArrayIndex: &idx,
		}),
	})

	if entry["service"] != "read-property" {
		t.Errorf("service: got %v", entry["service"])
	}
	if entry["object"] != "analog-value:1" {
		t.Errorf("object: got %v", entry["object"])
	}
	if entry["property"] != "priority-array" {
		t.Errorf("property: got %v", entry["property"])
	}
	if entry["index"] != float64(3) {
		t.Errorf("index: got %v", entry["index"])
	}
}

func TestSlogAdapterError(t *testing.T) {
	entry := logOne(t, Event{
		Category: CategoryError,
		Error:    NewErrorEvent(LayerService, bacnet.ErrUnknownObject, "read"),
	})
	if entry["error_class"] != "object" {
		t.Errorf("error_class: got %v", entry["error_class"])
	}
	if entry["error_code"] != "unknown-object" {
		t.Errorf("error_code: got %v", entry["error_code"])
	}
}

func TestSlogAdapterSkipsBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	adapter.Log(frameEvent("c", DirectionIn, time.Now()))
	if buf.Len() != 0 {
		t.Errorf("debug events should be filtered at info level")
	}
}
