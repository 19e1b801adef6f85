package cov

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// Source is the set of objects the manager watches. *device.Device
// implements it.
type Source interface {
	SupportsCOV(id bacnet.ObjectID) bool
	ChangedObjects() []bacnet.ObjectID
	TakeChangeOfValue(id bacnet.ObjectID) ([]bacapp.PropertyValue, bool)
	EncodeValueList(id bacnet.ObjectID) ([]bacapp.PropertyValue, error)
}

// Change is reported once per acknowledged object change, whether or not
// anyone is subscribed to the object.
type Change struct {
	Object    bacnet.ObjectID
	Values    []bacapp.PropertyValue
	Timestamp time.Time
}

// Manager tracks COV subscriptions for one device.
type Manager struct {
	mu sync.Mutex

	config Config
	device bacnet.ObjectID
	source Source

	subscriptions map[key]*Subscription

	onNotification func(Notification)
	onChange       func(Change)
	now            func() time.Time
}

// NewManager creates a manager reporting on behalf of device.
func NewManager(source Source, device bacnet.ObjectID, config Config) *Manager {
	if config.MaxSubscriptions <= 0 {
		config.MaxSubscriptions = DefaultMaxSubscriptions
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	return &Manager{
		config:        config,
		device:        device,
		source:        source,
		subscriptions: make(map[key]*Subscription),
		now:           time.Now,
	}
}

// OnNotification sets the callback that delivers notifications.
func (m *Manager) OnNotification(fn func(Notification)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onNotification = fn
}

// OnChange sets the callback invoked for every acknowledged change.
func (m *Manager) OnChange(fn func(Change)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Subscribe adds or replaces a subscription and delivers the initial
// notification.
func (m *Manager) Subscribe(req Request) error {
	if !m.source.SupportsCOV(req.Object) {
		return bacnet.ErrUnknownObject
	}
	if req.Lifetime < 0 {
		return bacnet.ErrValueOutOfRange
	}

	now := m.now()

	m.mu.Lock()
	k := req.key()
	sub, exists := m.subscriptions[k]
	if !exists {
		if len(m.subscriptions) >= m.config.MaxSubscriptions {
			m.mu.Unlock()
			return bacnet.ErrNoSpaceToAddListElement
		}
		sub = &Subscription{Created: now}
		m.subscriptions[k] = sub
	}
	sub.Request = req
	sub.Expires = time.Time{}
	if req.Lifetime > 0 {
		sub.Expires = now.Add(req.Lifetime)
	}
	snapshot := *sub
	onNotify := m.onNotification
	m.mu.Unlock()

	if onNotify == nil {
		return nil
	}
	values, err := m.source.EncodeValueList(req.Object)
	if err != nil {
		return err
	}
	onNotify(m.notification(&snapshot, values, now, true))
	return nil
}

// Cancel removes a subscription and reports whether it existed.
func (m *Manager) Cancel(subscriber string, processID uint32, object bacnet.ObjectID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{subscriber: subscriber, processID: processID, object: object}
	if _, exists := m.subscriptions[k]; !exists {
		return false
	}
	delete(m.subscriptions, k)
	return true
}

// CancelSubscriber removes every subscription of a subscriber, e.g. when
// its connection closes. It returns the number removed.
func (m *Manager) CancelSubscriber(subscriber string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k := range m.subscriptions {
		if k.subscriber == subscriber {
			delete(m.subscriptions, k)
			n++
		}
	}
	return n
}

// CancelObject removes every subscription to an object, e.g. after the
// object was deleted.
func (m *Manager) CancelObject(object bacnet.ObjectID) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k := range m.subscriptions {
		if k.object == object {
			delete(m.subscriptions, k)
			n++
		}
	}
	return n
}

// Count returns the number of active subscriptions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscriptions)
}

// Subscriptions returns a copy of the active subscriptions ordered by
// object, subscriber and process id.
func (m *Manager) Subscriptions() []Subscription {
	m.mu.Lock()
	subs := make([]Subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, *sub)
	}
	m.mu.Unlock()

	sort.Slice(subs, func(i, j int) bool {
		a, b := subs[i], subs[j]
		if a.Object != b.Object {
			if a.Object.Type != b.Object.Type {
				return a.Object.Type < b.Object.Type
			}
			return a.Object.Instance < b.Object.Instance
		}
		if a.Subscriber != b.Subscriber {
			return a.Subscriber < b.Subscriber
		}
		return a.ProcessID < b.ProcessID
	})
	return subs
}

// Poll expires lapsed subscriptions, then notifies subscribers of every
// changed object and acknowledges each change. It returns the number of
// notifications delivered.
func (m *Manager) Poll(now time.Time) int {
	m.mu.Lock()
	for k, sub := range m.subscriptions {
		if sub.expired(now) {
			delete(m.subscriptions, k)
		}
	}
	byObject := make(map[bacnet.ObjectID][]Subscription)
	for _, sub := range m.subscriptions {
		byObject[sub.Object] = append(byObject[sub.Object], *sub)
	}
	onNotify := m.onNotification
	onChange := m.onChange
	m.mu.Unlock()

	sent := 0
	for _, id := range m.source.ChangedObjects() {
		// The values reported are exactly the ones acknowledged.
		values, ok := m.source.TakeChangeOfValue(id)
		if !ok {
			continue
		}
		if onNotify != nil {
			for i := range byObject[id] {
				onNotify(m.notification(&byObject[id][i], values, now, false))
				sent++
			}
		}
		if onChange != nil {
			onChange(Change{Object: id, Values: values, Timestamp: now})
		}
	}
	return sent
}

// Run polls at the configured interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll(m.now())
		}
	}
}

func (m *Manager) notification(sub *Subscription, values []bacapp.PropertyValue, now time.Time, initial bool) Notification {
	return Notification{
		Subscriber:    sub.Subscriber,
		ProcessID:     sub.ProcessID,
		Device:        m.device,
		Object:        sub.Object,
		Confirmed:     sub.Confirmed,
		TimeRemaining: sub.TimeRemaining(now),
		Values:        values,
		Initial:       initial,
		Timestamp:     now,
	}
}
