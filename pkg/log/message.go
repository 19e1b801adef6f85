package log

import (
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/wire"
)

// RequestEvent summarizes a decoded request.
func RequestEvent(req *wire.Request) *MessageEvent {
	service := req.Service
	object := req.Object
	ev := &MessageEvent{
		Type:       wire.MessageTypeRequest,
		InvokeID:   req.InvokeID,
		Service:    &service,
		Object:     &object,
		ArrayIndex: req.ArrayIndex,
		Value:      req.Value,
	}
	switch req.Service {
	case wire.ServiceReadProperty, wire.ServiceWriteProperty:
		property := req.Property
		ev.Property = &property
	}
	if req.Service == wire.ServiceWriteProperty {
		priority := req.Priority
		ev.Priority = &priority
	}
	return ev
}

// ResponseEvent summarizes a response sent after elapsed processing time.
func ResponseEvent(resp *wire.Response, elapsed time.Duration) *MessageEvent {
	service := resp.Service
	return &MessageEvent{
		Type:           wire.MessageTypeResponse,
		InvokeID:       resp.InvokeID,
		Service:        &service,
		Object:         resp.Object,
		Value:          resp.Value,
		Error:          resp.Error,
		ProcessingTime: &elapsed,
	}
}

// NotificationEvent summarizes a COV notification.
func NotificationEvent(n *wire.Notification) *MessageEvent {
	object := n.Object
	return &MessageEvent{
		Type:   wire.MessageTypeNotification,
		Object: &object,
	}
}
