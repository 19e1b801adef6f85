package cov

import (
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// Default manager limits.
const (
	DefaultMaxSubscriptions = 64
	DefaultPollInterval     = time.Second
)

// Config holds manager configuration.
type Config struct {
	// MaxSubscriptions bounds the number of active subscriptions.
	MaxSubscriptions int

	// PollInterval is the period used by Run.
	PollInterval time.Duration
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() Config {
	return Config{
		MaxSubscriptions: DefaultMaxSubscriptions,
		PollInterval:     DefaultPollInterval,
	}
}

// Request is a SubscribeCOV request.
type Request struct {
	// Subscriber identifies the remote party, typically a connection id.
	Subscriber string

	// ProcessID is chosen by the subscriber to tell its subscriptions apart.
	ProcessID uint32

	// Object is the monitored object.
	Object bacnet.ObjectID

	// Confirmed asks for confirmed notifications.
	Confirmed bool

	// Lifetime is how long the subscription lasts. Zero means forever.
	Lifetime time.Duration
}

type key struct {
	subscriber string
	processID  uint32
	object     bacnet.ObjectID
}

func (r Request) key() key {
	return key{subscriber: r.Subscriber, processID: r.ProcessID, object: r.Object}
}

// Subscription is an active subscription.
type Subscription struct {
	Request

	// Created is when the subscription was first made.
	Created time.Time

	// Expires is when the subscription lapses. Zero never lapses.
	Expires time.Time
}

// expired reports whether the subscription has lapsed at now.
func (s *Subscription) expired(now time.Time) bool {
	return !s.Expires.IsZero() && !now.Before(s.Expires)
}

// TimeRemaining returns the whole seconds left, or 0 for an indefinite
// subscription.
func (s *Subscription) TimeRemaining(now time.Time) uint32 {
	if s.Expires.IsZero() {
		return 0
	}
	left := s.Expires.Sub(now)
	if left <= 0 {
		return 0
	}
	return uint32(left / time.Second)
}

// Notification is one COV notification to deliver.
type Notification struct {
	Subscriber    string
	ProcessID     uint32
	Device        bacnet.ObjectID
	Object        bacnet.ObjectID
	Confirmed     bool
	TimeRemaining uint32
	Values        []bacapp.PropertyValue
	Initial       bool
	Timestamp     time.Time
}
