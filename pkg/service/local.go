package service

import (
	"context"
	"strings"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/cov"
	"github.com/bacnet-stack/bacnet-go/pkg/persistence"
)

// localConn is the connection id reported in events caused by the local
// API.
const localConn = "local"

// Objects returns every object identifier in the device.
func (s *DeviceService) Objects() []bacnet.ObjectID {
	return s.device.ObjectList()
}

// ReadValues reads a property and decodes it. Arrays and lists yield one
// value per element.
func (s *DeviceService) ReadValues(id bacnet.ObjectID, prop bacnet.PropertyID, index uint32) ([]bacapp.Value, error) {
	data, err := s.readProperty(id, prop, index)
	if err != nil {
		return nil, err
	}
	return bacapp.DecodeList(data)
}

// ReadObject reads every declared property of an object. Properties that
// fail to read are left out.
func (s *DeviceService) ReadObject(id bacnet.ObjectID) (map[bacnet.PropertyID][]bacapp.Value, error) {
	lists, ok := s.device.PropertyLists(id.Type)
	if !ok || !s.device.ValidObject(id) {
		return nil, bacnet.ErrUnknownObject
	}
	props := make(map[bacnet.PropertyID][]bacapp.Value)
	for _, p := range lists.All() {
		values, err := s.ReadValues(id, p, bacnet.ArrayAll)
		if err != nil {
			continue
		}
		props[p] = values
	}
	return props, nil
}

// WriteValue writes one value at priority. Priority 0 selects
// DefaultPriority.
func (s *DeviceService) WriteValue(id bacnet.ObjectID, prop bacnet.PropertyID, index uint32, v bacapp.Value, priority uint8) error {
	data, err := bacapp.Append(nil, v)
	if err != nil {
		return err
	}
	return s.writeProperty(localConn, id, prop, index, data, priority)
}

// Relinquish clears one priority slot of an object's present value.
func (s *DeviceService) Relinquish(id bacnet.ObjectID, priority uint8) error {
	return s.WriteValue(id, bacnet.PropPresentValue, bacnet.ArrayAll, bacapp.Null(), priority)
}

// CreateObject creates an object. The instance bacnet.MaxInstance picks the
// lowest free instance; an empty name keeps the default name.
func (s *DeviceService) CreateObject(t bacnet.ObjectType, instance uint32, name string) (bacnet.ObjectID, error) {
	return s.createObject(localConn, t, instance, name)
}

// DeleteObject deletes an object.
func (s *DeviceService) DeleteObject(id bacnet.ObjectID) error {
	return s.deleteObject(localConn, id)
}

// SubscribeLocal subscribes an in-process watcher to an object. Its
// notifications arrive as EventNotification events.
func (s *DeviceService) SubscribeLocal(name string, processID uint32, id bacnet.ObjectID, lifetime time.Duration) error {
	return s.cov.Subscribe(cov.Request{
		Subscriber: LocalPrefix + name,
		ProcessID:  processID,
		Object:     id,
		Lifetime:   lifetime,
	})
}

// CancelLocal removes a subscription made with SubscribeLocal.
func (s *DeviceService) CancelLocal(name string, processID uint32, id bacnet.ObjectID) bool {
	return s.cov.Cancel(LocalPrefix+name, processID, id)
}

// Subscriptions returns the active subscriptions.
func (s *DeviceService) Subscriptions() []cov.Subscription {
	return s.cov.Subscriptions()
}

// IsLocal reports whether a subscriber was registered with SubscribeLocal.
func IsLocal(subscriber string) bool {
	return strings.HasPrefix(subscriber, LocalPrefix)
}

// History returns recorded values of an object, newest first. It returns
// nothing without a history store.
func (s *DeviceService) History(ctx context.Context, id bacnet.ObjectID, since time.Time, limit int) ([]persistence.Entry, error) {
	store := s.historyStore()
	if store == nil {
		return nil, nil
	}
	if !s.device.ValidObject(id) {
		return nil, bacnet.ErrUnknownObject
	}
	return store.Query(ctx, id, since, limit)
}
