package service

import (
	"errors"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/cov"
)

// ErrNoSender is returned when a message is sent before a sender is set.
var ErrNoSender = errors.New("no sender configured")

// DefaultPriority is used when a write carries no priority.
const DefaultPriority = bacnet.MaxPriority

// LocalPrefix marks subscribers that live in-process, such as the console.
// Notifications to them are delivered as events only.
const LocalPrefix = "local:"

// Config configures a DeviceService.
type Config struct {
	// COV configures the subscription manager.
	COV cov.Config

	// HistoryRetention drops history older than this on every prune. Zero
	// keeps everything.
	HistoryRetention time.Duration
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	return Config{COV: cov.DefaultConfig()}
}

// Sender delivers encoded messages to connected clients. *transport.Server
// implements it.
type Sender interface {
	Send(connID string, data []byte) error
	Broadcast(data []byte) int
}

// EventType identifies a service event.
type EventType uint8

const (
	EventConnected EventType = iota
	EventDisconnected
	EventObjectCreated
	EventObjectDeleted
	EventPropertyWritten
	EventValueChanged
	EventNotification
	EventCommunicationChanged
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "CONNECTED"
	case EventDisconnected:
		return "DISCONNECTED"
	case EventObjectCreated:
		return "OBJECT_CREATED"
	case EventObjectDeleted:
		return "OBJECT_DELETED"
	case EventPropertyWritten:
		return "PROPERTY_WRITTEN"
	case EventValueChanged:
		return "VALUE_CHANGED"
	case EventNotification:
		return "NOTIFICATION"
	case EventCommunicationChanged:
		return "COMMUNICATION_CHANGED"
	default:
		return "UNKNOWN"
	}
}

// Event is delivered to handlers registered with OnEvent.
type Event struct {
	Type EventType

	// ConnID is the connection involved, if any.
	ConnID string

	Object   bacnet.ObjectID
	Property bacnet.PropertyID
	Values   []bacapp.PropertyValue

	// Subscriber and ProcessID are set on notification events.
	Subscriber string
	ProcessID  uint32

	// State is set on communication events.
	State bacnet.CommunicationState

	Timestamp time.Time
}

// EventHandler receives service events. Handlers run on their own
// goroutine.
type EventHandler func(Event)
