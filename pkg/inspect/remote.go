package inspect

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/wire"
)

// DefaultTimeout bounds the wait for a response.
const DefaultTimeout = 5 * time.Second

// Remote errors.
var (
	ErrUnexpectedResponse = errors.New("unexpected response")
	ErrTimeout            = errors.New("timed out waiting for response")
)

// Conn is a framed message connection to a device.
// This is implemented by transport.ClientConn.
type Conn interface {
	Send(data []byte) error
	Receive(timeout time.Duration) ([]byte, error)
}

// Remote reads and writes the properties of a remote device over a Conn.
// Calls are serialized; unsolicited messages arriving while a call waits
// are passed to the registered handlers.
type Remote struct {
	conn    Conn
	timeout time.Duration

	mu       sync.Mutex
	invokeID uint32

	handlerMu      sync.RWMutex
	onNotification func(*wire.Notification)
	onIHave        func(*wire.IHave)
}

// NewRemote creates a Remote. A zero timeout selects DefaultTimeout.
func NewRemote(conn Conn, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Remote{conn: conn, timeout: timeout}
}

// OnNotification sets the handler for COV notifications.
func (r *Remote) OnNotification(fn func(*wire.Notification)) {
	r.handlerMu.Lock()
	r.onNotification = fn
	r.handlerMu.Unlock()
}

// OnIHave sets the handler for I-Have messages.
func (r *Remote) OnIHave(fn func(*wire.IHave)) {
	r.handlerMu.Lock()
	r.onIHave = fn
	r.handlerMu.Unlock()
}

// ReadValues reads one property.
func (r *Remote) ReadValues(id bacnet.ObjectID, prop bacnet.PropertyID, index uint32) ([]bacapp.Value, error) {
	req := &wire.Request{
		Service:    wire.ServiceReadProperty,
		Object:     id,
		Property:   prop,
		ArrayIndex: indexPtr(index),
	}
	resp, err := r.call(req)
	if err != nil {
		return nil, err
	}
	return bacapp.DecodeList(resp.Value)
}

// ReadObject reads every property of an object with one
// ReadPropertyMultiple. Properties that fail to read are left out.
func (r *Remote) ReadObject(id bacnet.ObjectID) (map[bacnet.PropertyID][]bacapp.Value, error) {
	req := &wire.Request{
		Service:    wire.ServiceReadPropertyMultiple,
		References: []wire.PropertyReference{{Object: id, Property: bacnet.PropAll}},
	}
	resp, err := r.call(req)
	if err != nil {
		return nil, err
	}

	props := make(map[bacnet.PropertyID][]bacapp.Value)
	for _, res := range resp.Results {
		if res.Error != nil {
			if res.Property == bacnet.PropAll {
				return nil, res.Error.Err()
			}
			continue
		}
		vs, err := bacapp.DecodeList(res.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", res.Property, err)
		}
		props[res.Property] = vs
	}
	return props, nil
}

// WriteValue writes one value at priority.
func (r *Remote) WriteValue(id bacnet.ObjectID, prop bacnet.PropertyID, index uint32, v bacapp.Value, priority uint8) error {
	data, err := bacapp.Append(nil, v)
	if err != nil {
		return err
	}
	_, err = r.call(&wire.Request{
		Service:    wire.ServiceWriteProperty,
		Object:     id,
		Property:   prop,
		ArrayIndex: indexPtr(index),
		Value:      data,
		Priority:   priority,
	})
	return err
}

// Subscribe subscribes to change-of-value notifications for an object.
// Lifetime is rounded down to whole seconds; zero means indefinite.
func (r *Remote) Subscribe(processID uint32, id bacnet.ObjectID, confirmed bool, lifetime time.Duration) error {
	_, err := r.call(&wire.Request{
		Service:   wire.ServiceSubscribeCOV,
		Object:    id,
		ProcessID: processID,
		Confirmed: confirmed,
		Lifetime:  uint32(lifetime / time.Second),
	})
	return err
}

// Cancel cancels a subscription.
func (r *Remote) Cancel(processID uint32, id bacnet.ObjectID) error {
	_, err := r.call(&wire.Request{
		Service:   wire.ServiceSubscribeCOV,
		Object:    id,
		ProcessID: processID,
		Cancel:    true,
	})
	return err
}

// CreateObject creates an object and returns its identifier. The instance
// bacnet.MaxInstance lets the device pick one.
func (r *Remote) CreateObject(t bacnet.ObjectType, instance uint32, name string) (bacnet.ObjectID, error) {
	resp, err := r.call(&wire.Request{
		Service:    wire.ServiceCreateObject,
		Object:     bacnet.ObjectID{Type: t, Instance: instance},
		ObjectName: name,
	})
	if err != nil {
		return bacnet.ObjectID{}, err
	}
	if resp.Object == nil {
		return bacnet.ObjectID{}, fmt.Errorf("%w: missing object identifier", ErrUnexpectedResponse)
	}
	return *resp.Object, nil
}

// DeleteObject deletes an object.
func (r *Remote) DeleteObject(id bacnet.ObjectID) error {
	_, err := r.call(&wire.Request{Service: wire.ServiceDeleteObject, Object: id})
	return err
}

// CommunicationControl changes the device's communication state. A zero
// duration is indefinite.
func (r *Remote) CommunicationControl(state bacnet.CommunicationState, minutes uint16) error {
	_, err := r.call(&wire.Request{
		Service:  wire.ServiceDeviceCommunicationControl,
		State:    state,
		Duration: minutes,
	})
	return err
}

// WhoHas broadcasts a Who-Has for an object name. Matching I-Have messages
// are delivered to the OnIHave handler as they arrive.
func (r *Remote) WhoHas(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := wire.EncodeRequest(&wire.Request{Service: wire.ServiceWhoHas, ObjectName: name})
	if err != nil {
		return err
	}
	return r.conn.Send(data)
}

// Listen waits up to timeout for unsolicited messages and dispatches them
// to the registered handlers. It returns the number of messages handled.
func (r *Remote) Listen(timeout time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return n, nil
		}
		msg, err := r.conn.Receive(remaining)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return n, nil
			}
			return n, err
		}
		typ, err := wire.PeekMessageType(msg)
		if err != nil {
			continue
		}
		switch typ {
		case wire.MessageTypeNotification:
			r.dispatchNotification(msg)
			n++
		case wire.MessageTypeIHave:
			r.dispatchIHave(msg)
			n++
		}
	}
}

// call sends a confirmed request and waits for its response. Error
// responses are returned as *bacnet.Error.
func (r *Remote) call(req *wire.Request) (*wire.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.invokeID++
	if r.invokeID == 0 {
		r.invokeID = 1
	}
	req.InvokeID = r.invokeID

	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	if err := r.conn.Send(data); err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Service, err)
	}

	deadline := time.Now().Add(r.timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%s: %w", req.Service, ErrTimeout)
		}
		msg, err := r.conn.Receive(remaining)
		if err != nil {
			return nil, fmt.Errorf("receive %s: %w", req.Service, err)
		}

		typ, err := wire.PeekMessageType(msg)
		if err != nil {
			continue
		}
		switch typ {
		case wire.MessageTypeResponse:
			resp, err := wire.DecodeResponse(msg)
			if err != nil {
				return nil, err
			}
			if resp.InvokeID != req.InvokeID {
				continue
			}
			if resp.Service != req.Service {
				return nil, fmt.Errorf("%w: got %s for %s", ErrUnexpectedResponse, resp.Service, req.Service)
			}
			if !resp.IsSuccess() {
				return nil, resp.Error.Err()
			}
			return resp, nil
		case wire.MessageTypeNotification:
			r.dispatchNotification(msg)
		case wire.MessageTypeIHave:
			r.dispatchIHave(msg)
		}
	}
}

func (r *Remote) dispatchNotification(msg []byte) {
	r.handlerMu.RLock()
	fn := r.onNotification
	r.handlerMu.RUnlock()
	if fn == nil {
		return
	}
	if n, err := wire.DecodeNotification(msg); err == nil {
		fn(n)
	}
}

func (r *Remote) dispatchIHave(msg []byte) {
	r.handlerMu.RLock()
	fn := r.onIHave
	r.handlerMu.RUnlock()
	if fn == nil {
		return
	}
	if ih, err := wire.DecodeIHave(msg); err == nil {
		fn(ih)
	}
}

func indexPtr(index uint32) *uint32 {
	if index == bacnet.ArrayAll {
		return nil
	}
	return &index
}
