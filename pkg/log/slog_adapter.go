package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.Message != nil:
		m := event.Message
		attrs = append(attrs,
			slog.String("msg_type", m.Type.String()),
			slog.Uint64("invoke_id", uint64(m.InvokeID)),
		)
		if m.Service != nil {
			attrs = append(attrs, slog.String("service", m.Service.String()))
		}
		if m.Object != nil {
			attrs = append(attrs, slog.String("object", m.Object.String()))
		}
		if m.Property != nil {
			attrs = append(attrs, slog.String("property", m.Property.String()))
		}
		if m.ArrayIndex != nil {
			attrs = append(attrs, slog.Uint64("index", uint64(*m.ArrayIndex)))
		}
		if m.Priority != nil {
			attrs = append(attrs, slog.Uint64("priority", uint64(*m.Priority)))
		}
		if m.Error != nil {
			attrs = append(attrs, slog.String("error", m.Error.Err().Error()))
		}
		if m.ProcessingTime != nil {
			attrs = append(attrs, slog.Duration("processing_time", *m.ProcessingTime))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Class != nil && event.Error.Code != nil {
			attrs = append(attrs,
				slog.String("error_class", event.Error.Class.String()),
				slog.String("error_code", event.Error.Code.String()),
			)
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
