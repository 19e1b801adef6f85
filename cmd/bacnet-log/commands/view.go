// Package commands implements the bacnet-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/log"
)

// timeLayout is used for event timestamps in view and export output.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// RunView writes every event matching filter to w in human-readable form.
func RunView(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// formatEvent writes a header line followed by the payload details.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format(timeLayout)
	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n",
		ts, shortenConnID(event.ConnectionID), event.Direction, event.Layer, eventType(event))

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// eventType labels an event by its payload.
func eventType(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "frame"
	case event.Message != nil:
		return event.Message.Type.String()
	case event.StateChange != nil:
		return "state"
	case event.Error != nil:
		return "error"
	default:
		return "unknown"
	}
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatMessageDetails(w io.Writer, msg *log.MessageEvent) {
	fmt.Fprintf(w, "  InvokeID: %d\n", msg.InvokeID)
	if msg.Service != nil {
		fmt.Fprintf(w, "  Service: %s\n", msg.Service)
	}
	if msg.Object != nil {
		target := msg.Object.String()
		if msg.Property != nil {
			target += "/" + msg.Property.String()
			if msg.ArrayIndex != nil && *msg.ArrayIndex != bacnet.ArrayAll {
				target += fmt.Sprintf("[%d]", *msg.ArrayIndex)
			}
		}
		fmt.Fprintf(w, "  Target: %s\n", target)
	}
	if msg.Priority != nil {
		fmt.Fprintf(w, "  Priority: %d\n", *msg.Priority)
	}
	if len(msg.Value) > 0 {
		fmt.Fprintf(w, "  Value: %s\n", formatValue(msg.Value))
	}
	if msg.Error != nil {
		fmt.Fprintf(w, "  Error: %s: %s\n", msg.Error.Class, msg.Error.Code)
	}
	if msg.ProcessingTime != nil {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*msg.ProcessingTime))
	}
}

// formatValue decodes application-tagged data, falling back to hex.
func formatValue(data []byte) string {
	vs, err := bacapp.DecodeList(data)
	if err != nil || len(vs) == 0 {
		return hex.EncodeToString(data)
	}
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity)
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer)
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Class != nil && err.Code != nil {
		fmt.Fprintf(w, "  Code: %s: %s\n", *err.Class, *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}
