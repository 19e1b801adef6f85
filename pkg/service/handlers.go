package service

import (
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/cov"
	"github.com/bacnet-stack/bacnet-go/pkg/log"
	"github.com/bacnet-stack/bacnet-go/pkg/object"
	"github.com/bacnet-stack/bacnet-go/pkg/wire"
)

// HandleRequest serves a decoded request. It returns the response for a
// confirmed service, or nil when nothing is to be sent back.
func (s *DeviceService) HandleRequest(connID string, req *wire.Request) *wire.Response {
	state := s.CommunicationState()
	if state == bacnet.CommunicationDisable && req.Service != wire.ServiceDeviceCommunicationControl {
		s.debugLog("request dropped, communication disabled", "conn", connID, "service", req.Service)
		return nil
	}

	switch req.Service {
	case wire.ServiceReadProperty:
		return s.handleReadProperty(req)
	case wire.ServiceReadPropertyMultiple:
		return s.handleReadPropertyMultiple(req)
	case wire.ServiceWriteProperty:
		return s.handleWriteProperty(connID, req)
	case wire.ServiceSubscribeCOV:
		return s.handleSubscribeCOV(connID, req)
	case wire.ServiceCreateObject:
		return s.handleCreateObject(connID, req)
	case wire.ServiceDeleteObject:
		return s.handleDeleteObject(connID, req)
	case wire.ServiceDeviceCommunicationControl:
		return s.handleCommunicationControl(req)
	case wire.ServiceWhoHas:
		s.handleWhoHas(req)
		return nil
	default:
		if !req.Service.Confirmed() {
			return nil
		}
		return errorResponse(req, bacnet.ErrServiceRequestDenied)
	}
}

func errorResponse(req *wire.Request, err error) *wire.Response {
	return &wire.Response{
		InvokeID: req.InvokeID,
		Service:  req.Service,
		Error:    wire.NewErrorPayload(err),
	}
}

func (s *DeviceService) handleReadProperty(req *wire.Request) *wire.Response {
	data, err := s.readProperty(req.Object, req.Property, req.Index())
	if err != nil {
		return errorResponse(req, err)
	}
	return &wire.Response{InvokeID: req.InvokeID, Service: req.Service, Value: data}
}

// readProperty encodes one property into a fresh APDU-sized buffer.
func (s *DeviceService) readProperty(id bacnet.ObjectID, prop bacnet.PropertyID, index uint32) ([]byte, error) {
	buf := make([]byte, bacapp.MaxAPDU)
	n, err := s.device.ReadProperty(&object.ReadPropertyData{
		ObjectType:      id.Type,
		ObjectInstance:  id.Instance,
		ObjectProperty:  prop,
		ArrayIndex:      index,
		ApplicationData: buf,
	})
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (s *DeviceService) handleReadPropertyMultiple(req *wire.Request) *wire.Response {
	if len(req.References) == 0 {
		return errorResponse(req, bacnet.ErrValueOutOfRange)
	}

	var results []wire.ReadResult
	size := 0
	for _, ref := range req.References {
		for _, r := range s.readReference(ref) {
			size += len(r.Value)
			results = append(results, r)
		}
	}
	if size > bacapp.MaxAPDU {
		return errorResponse(req, bacnet.ErrAbortSegmentationNotSupported)
	}
	return &wire.Response{InvokeID: req.InvokeID, Service: req.Service, Results: results}
}

// readReference reads one ReadPropertyMultiple reference. The special
// properties all, required and optional expand to the object's declared
// properties; a failed expansion yields a single error result.
func (s *DeviceService) readReference(ref wire.PropertyReference) []wire.ReadResult {
	var props []bacnet.PropertyID
	switch ref.Property {
	case bacnet.PropAll, bacnet.PropRequired, bacnet.PropOptional:
		lists, ok := s.device.PropertyLists(ref.Object.Type)
		if !ok || !s.device.ValidObject(ref.Object) {
			return []wire.ReadResult{{
				Object:   ref.Object,
				Property: ref.Property,
				Error:    wire.NewErrorPayload(bacnet.ErrUnknownObject),
			}}
		}
		switch ref.Property {
		case bacnet.PropAll:
			props = lists.All()
		case bacnet.PropRequired:
			props = lists.Required
		default:
			props = lists.Optional
		}
	default:
		data, err := s.readProperty(ref.Object, ref.Property, ref.Index())
		return []wire.ReadResult{{
			Object:     ref.Object,
			Property:   ref.Property,
			ArrayIndex: ref.ArrayIndex,
			Value:      data,
			Error:      wire.NewErrorPayload(err),
		}}
	}

	results := make([]wire.ReadResult, 0, len(props))
	for _, p := range props {
		data, err := s.readProperty(ref.Object, p, bacnet.ArrayAll)
		results = append(results, wire.ReadResult{
			Object:   ref.Object,
			Property: p,
			Value:    data,
			Error:    wire.NewErrorPayload(err),
		})
	}
	return results
}

func (s *DeviceService) handleWriteProperty(connID string, req *wire.Request) *wire.Response {
	err := s.writeProperty(connID, req.Object, req.Property, req.Index(), req.Value, req.Priority)
	return errorResponse(req, err)
}

// writeProperty applies one write. Priority 0 selects DefaultPriority.
func (s *DeviceService) writeProperty(connID string, id bacnet.ObjectID, prop bacnet.PropertyID, index uint32, value []byte, priority uint8) error {
	if priority == 0 {
		priority = DefaultPriority
	}
	err := s.device.WriteProperty(&object.WritePropertyData{
		ObjectType:      id.Type,
		ObjectInstance:  id.Instance,
		ObjectProperty:  prop,
		ArrayIndex:      index,
		Priority:        priority,
		ApplicationData: value,
	})
	if err != nil {
		s.debugLog("write rejected", "object", id, "property", prop, "error", err)
		return err
	}

	s.emitEvent(Event{
		Type:      EventPropertyWritten,
		ConnID:    connID,
		Object:    id,
		Property:  prop,
		Timestamp: s.now(),
	})
	s.persist()
	return nil
}

func (s *DeviceService) handleSubscribeCOV(connID string, req *wire.Request) *wire.Response {
	if req.Cancel {
		if s.cov.Cancel(connID, req.ProcessID, req.Object) {
			s.logState(log.StateEntitySubscription, "active", "cancelled", req.Object.String())
		}
		return errorResponse(req, nil)
	}

	err := s.cov.Subscribe(cov.Request{
		Subscriber: connID,
		ProcessID:  req.ProcessID,
		Object:     req.Object,
		Confirmed:  req.Confirmed,
		Lifetime:   time.Duration(req.Lifetime) * time.Second,
	})
	if err == nil {
		s.logState(log.StateEntitySubscription, "", "active", req.Object.String())
	}
	return errorResponse(req, err)
}

func (s *DeviceService) handleCreateObject(connID string, req *wire.Request) *wire.Response {
	id, err := s.createObject(connID, req.Object.Type, req.Object.Instance, req.ObjectName)
	if err != nil {
		return errorResponse(req, err)
	}
	return &wire.Response{InvokeID: req.InvokeID, Service: req.Service, Object: &id}
}

// createObject creates a new object, optionally named. The instance
// bacnet.MaxInstance picks the lowest free instance. A failed rename
// removes the new object again.
func (s *DeviceService) createObject(connID string, t bacnet.ObjectType, instance uint32, name string) (bacnet.ObjectID, error) {
	if t == bacnet.ObjectDevice {
		return bacnet.ObjectID{}, bacnet.ErrDynamicCreationNotSupported
	}
	if instance != bacnet.MaxInstance && s.device.ValidObject(bacnet.ObjectID{Type: t, Instance: instance}) {
		return bacnet.ObjectID{}, bacnet.NewError(bacnet.ClassObject, bacnet.CodeDuplicateObjectID)
	}
	if name != "" {
		if _, taken := s.device.FindByName(name); taken {
			return bacnet.ObjectID{}, bacnet.ErrDuplicateName
		}
	}

	id, err := s.device.CreateObject(t, instance)
	if err != nil {
		return bacnet.ObjectID{}, err
	}
	if name != "" {
		if err := s.device.SetObjectName(id, name); err != nil {
			_ = s.device.DeleteObject(id)
			return bacnet.ObjectID{}, err
		}
	}

	s.logState(log.StateEntityObject, "", "created", id.String())
	s.emitEvent(Event{Type: EventObjectCreated, ConnID: connID, Object: id, Timestamp: s.now()})
	s.persist()
	return id, nil
}

func (s *DeviceService) handleDeleteObject(connID string, req *wire.Request) *wire.Response {
	return errorResponse(req, s.deleteObject(connID, req.Object))
}

// deleteObject removes an object together with its subscriptions and
// recorded history.
func (s *DeviceService) deleteObject(connID string, id bacnet.ObjectID) error {
	if err := s.device.DeleteObject(id); err != nil {
		return err
	}
	n := s.cov.CancelObject(id)
	s.deleteHistory(id)

	s.debugLog("object deleted", "object", id, "subscriptions", n)
	s.logState(log.StateEntityObject, "created", "deleted", id.String())
	s.emitEvent(Event{Type: EventObjectDeleted, ConnID: connID, Object: id, Timestamp: s.now()})
	s.persist()
	return nil
}

func (s *DeviceService) handleWhoHas(req *wire.Request) {
	if s.CommunicationState() != bacnet.CommunicationEnable {
		return
	}
	ihave := s.WhoHas(req)
	if ihave == nil {
		return
	}
	data, err := wire.EncodeIHave(ihave)
	if err != nil {
		s.logError("", log.LayerWire, err, "encode i-have")
		return
	}
	n := s.broadcast(data)
	s.debugLog("i-have sent", "object", ihave.Object, "clients", n)
}

// WhoHas answers a Who-Has request. It returns nil when the device is
// outside the requested instance range or does not hold the object.
func (s *DeviceService) WhoHas(req *wire.Request) *wire.IHave {
	self := s.device.ID()
	if req.LowLimit != nil && req.HighLimit != nil {
		if self.Instance < *req.LowLimit || self.Instance > *req.HighLimit {
			return nil
		}
	}

	var (
		id   bacnet.ObjectID
		name string
		ok   bool
	)
	if req.ObjectName != "" {
		name = req.ObjectName
		id, ok = s.device.FindByName(name)
	} else {
		id = req.Object
		if id.Type == bacnet.ObjectDevice && id.Instance == bacnet.MaxInstance {
			id = self
		}
		name, ok = s.device.ObjectName(id)
	}
	if !ok {
		return nil
	}
	return &wire.IHave{Device: self, Object: id, ObjectName: name}
}

func (s *DeviceService) handleCommunicationControl(req *wire.Request) *wire.Response {
	duration := time.Duration(req.Duration) * time.Minute
	return errorResponse(req, s.SetCommunicationState(req.State, duration))
}

// SetCommunicationState changes the communication control state. A
// non-zero duration reverts the device to enabled once it has elapsed.
func (s *DeviceService) SetCommunicationState(state bacnet.CommunicationState, duration time.Duration) error {
	if !state.Valid() {
		return bacnet.ErrValueOutOfRange
	}

	s.mu.Lock()
	old := s.commState
	s.commState = state
	s.commUntil = time.Time{}
	if duration > 0 && state != bacnet.CommunicationEnable {
		s.commUntil = s.now().Add(duration)
	}
	s.mu.Unlock()

	if old != state {
		s.communicationChanged(old, state, "device-communication-control")
	}
	return nil
}

// CommunicationState returns the current communication control state,
// reverting a timed state that has run out.
func (s *DeviceService) CommunicationState() bacnet.CommunicationState {
	s.mu.Lock()
	if s.commUntil.IsZero() || s.now().Before(s.commUntil) {
		state := s.commState
		s.mu.Unlock()
		return state
	}
	old := s.commState
	s.commState = bacnet.CommunicationEnable
	s.commUntil = time.Time{}
	s.mu.Unlock()

	s.communicationChanged(old, bacnet.CommunicationEnable, "duration elapsed")
	return bacnet.CommunicationEnable
}

func (s *DeviceService) communicationChanged(from, to bacnet.CommunicationState, reason string) {
	s.debugLog("communication state changed", "from", from, "to", to, "reason", reason)
	s.logState(log.StateEntityCommunication, from.String(), to.String(), reason)
	s.emitEvent(Event{Type: EventCommunicationChanged, State: to, Timestamp: s.now()})
}
