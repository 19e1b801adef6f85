package inspect

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/service"
	"github.com/bacnet-stack/bacnet-go/pkg/wire"
)

const remoteConnID = "remote-1"

// loopConn delivers requests straight to a DeviceService and queues
// everything the service sends back.
type loopConn struct {
	svc   *service.DeviceService
	inbox chan []byte

	mu      sync.Mutex
	dropped bool
}

func (c *loopConn) Send(data []byte) error {
	c.mu.Lock()
	dropped := c.dropped
	c.mu.Unlock()
	if dropped {
		return nil
	}
	c.svc.HandleMessage(remoteConnID, data)
	return nil
}

func (c *loopConn) Receive(timeout time.Duration) ([]byte, error) {
	select {
	case msg := <-c.inbox:
		return msg, nil
	case <-time.After(timeout):
		return nil, os.ErrDeadlineExceeded
	}
}

// loopSender is the service side of a loopConn.
type loopSender struct {
	conn *loopConn
}

func (s loopSender) Send(connID string, data []byte) error {
	if connID != remoteConnID {
		return errors.New("unknown connection")
	}
	s.conn.inbox <- data
	return nil
}

func (s loopSender) Broadcast(data []byte) int {
	s.conn.inbox <- data
	return 1
}

func newLoopRemote(t *testing.T) (*Remote, *service.DeviceService, *loopConn) {
	t.Helper()
	svc := createTestService(t)
	conn := &loopConn{svc: svc, inbox: make(chan []byte, 64)}
	svc.SetSender(loopSender{conn: conn})
	return NewRemote(conn, 200*time.Millisecond), svc, conn
}

func TestRemoteReadValues(t *testing.T) {
	r, _, _ := newLoopRemote(t)

	vs, err := r.ReadValues(av1, bacnet.PropObjectName, bacnet.ArrayAll)
	if err != nil {
		t.Fatalf("ReadValues: %v", err)
	}
	if len(vs) != 1 || vs[0].CharacterString != "ANALOG-VALUE-1" {
		t.Errorf("name = %v", vs)
	}

	vs, err = r.ReadValues(av1, bacnet.PropPriorityArray, 0)
	if err != nil {
		t.Fatalf("ReadValues(index 0): %v", err)
	}
	if len(vs) != 1 || vs[0].Unsigned != bacnet.MaxPriority {
		t.Errorf("priority array size = %v", vs)
	}

	_, err = r.ReadValues(bacnet.ObjectID{Type: bacnet.ObjectAnalogValue, Instance: 9}, bacnet.PropPresentValue, bacnet.ArrayAll)
	if !errors.Is(err, bacnet.ErrUnknownObject) {
		t.Errorf("unknown object: got %v", err)
	}
}

func TestRemoteReadObject(t *testing.T) {
	r, _, _ := newLoopRemote(t)

	props, err := r.ReadObject(av1)
	if err != nil {
		t.Fatalf("ReadObject: %v", err)
	}
	for _, p := range []bacnet.PropertyID{bacnet.PropObjectName, bacnet.PropPresentValue, bacnet.PropPriorityArray} {
		if _, ok := props[p]; !ok {
			t.Errorf("%s missing", p)
		}
	}

	_, err = r.ReadObject(bacnet.ObjectID{Type: bacnet.ObjectAnalogValue, Instance: 9})
	if !errors.Is(err, bacnet.ErrUnknownObject) {
		t.Errorf("unknown object: got %v", err)
	}
}

func TestRemoteWithInspector(t *testing.T) {
	r, svc, _ := newLoopRemote(t)
	insp := NewInspector(r)

	if err := insp.Write(mustPath(t, "av:1/pv"), "42", 5); err != nil {
		t.Fatalf("Write: %v", err)
	}
	vs, err := svc.ReadValues(av1, bacnet.PropPresentValue, bacnet.ArrayAll)
	if err != nil {
		t.Fatal(err)
	}
	if vs[0].Real != 42 {
		t.Errorf("present-value = %v, want 42", vs[0].Real)
	}

	info, err := insp.ReadAll(av1)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if info.Name != "ANALOG-VALUE-1" {
		t.Errorf("Name = %q", info.Name)
	}

	ids, err := insp.ListObjects()
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("ListObjects() = %v", ids)
	}

	if err := insp.Write(mustPath(t, "av:1/pv"), "1", 6); err == nil {
		t.Error("write at reserved priority should fail")
	}
}

func TestRemoteSubscribe(t *testing.T) {
	r, svc, _ := newLoopRemote(t)

	var (
		mu     sync.Mutex
		notifs []*wire.Notification
	)
	r.OnNotification(func(n *wire.Notification) {
		mu.Lock()
		notifs = append(notifs, n)
		mu.Unlock()
	})

	if err := r.Subscribe(7, av1, false, time.Minute); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	mu.Lock()
	if len(notifs) != 1 {
		t.Fatalf("initial notifications = %d, want 1", len(notifs))
	}
	if notifs[0].ProcessID != 7 || notifs[0].Object != av1 {
		t.Errorf("initial notification = %+v", notifs[0])
	}
	mu.Unlock()

	if err := svc.WriteValue(av1, bacnet.PropPresentValue, bacnet.ArrayAll, bacapp.Real(30), 8); err != nil {
		t.Fatal(err)
	}
	svc.Poll()

	n, err := r.Listen(100 * time.Millisecond)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if n != 1 {
		t.Fatalf("Listen handled %d messages, want 1", n)
	}

	mu.Lock()
	last := notifs[len(notifs)-1]
	mu.Unlock()
	values, err := wire.DecodeValues(last.Values)
	if err != nil {
		t.Fatal(err)
	}
	if values[0].Property != bacnet.PropPresentValue || values[0].Value.Real != 30 {
		t.Errorf("changed value = %+v", values[0])
	}

	if err := r.Cancel(7, av1); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if subs := svc.Subscriptions(); len(subs) != 0 {
		t.Errorf("subscriptions after cancel = %d", len(subs))
	}
}

func TestRemoteCreateDelete(t *testing.T) {
	r, svc, _ := newLoopRemote(t)

	id, err := r.CreateObject(bacnet.ObjectAnalogValue, bacnet.MaxInstance, "Return Temp")
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	if id != (bacnet.ObjectID{Type: bacnet.ObjectAnalogValue, Instance: 2}) {
		t.Errorf("created %s", id)
	}
	if name, ok := svc.Device().ObjectName(id); !ok || name != "Return Temp" {
		t.Errorf("name = %q, %v", name, ok)
	}

	if _, err := r.CreateObject(bacnet.ObjectAnalogValue, 3, "Return Temp"); !errors.Is(err, bacnet.ErrDuplicateName) {
		t.Errorf("duplicate name: got %v", err)
	}

	if err := r.DeleteObject(id); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if svc.Device().ValidObject(id) {
		t.Error("object still present after delete")
	}
}

func TestRemoteWhoHas(t *testing.T) {
	r, _, _ := newLoopRemote(t)

	got := make(chan *wire.IHave, 1)
	r.OnIHave(func(ih *wire.IHave) { got <- ih })

	if err := r.WhoHas("ANALOG-VALUE-1"); err != nil {
		t.Fatalf("WhoHas: %v", err)
	}
	if _, err := r.Listen(100 * time.Millisecond); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	select {
	case ih := <-got:
		if ih.Object != av1 || ih.ObjectName != "ANALOG-VALUE-1" {
			t.Errorf("I-Have = %+v", ih)
		}
	default:
		t.Fatal("no I-Have received")
	}
}

func TestRemoteCommunicationControl(t *testing.T) {
	r, svc, _ := newLoopRemote(t)

	if err := r.CommunicationControl(bacnet.CommunicationDisable, 0); err != nil {
		t.Fatalf("CommunicationControl: %v", err)
	}
	if svc.CommunicationState() != bacnet.CommunicationDisable {
		t.Errorf("state = %s", svc.CommunicationState())
	}

	// A disabled device drops everything else, so the read times out.
	if _, err := r.ReadValues(av1, bacnet.PropPresentValue, bacnet.ArrayAll); err == nil {
		t.Error("read should fail while communication is disabled")
	}

	if err := r.CommunicationControl(bacnet.CommunicationEnable, 0); err != nil {
		t.Fatalf("CommunicationControl(enable): %v", err)
	}
	if _, err := r.ReadValues(av1, bacnet.PropPresentValue, bacnet.ArrayAll); err != nil {
		t.Errorf("read after enable: %v", err)
	}
}

func TestRemoteTimeout(t *testing.T) {
	r, _, conn := newLoopRemote(t)
	conn.mu.Lock()
	conn.dropped = true
	conn.mu.Unlock()

	_, err := r.ReadValues(av1, bacnet.PropPresentValue, bacnet.ArrayAll)
	if err == nil {
		t.Fatal("expected timeout")
	}
	if !errors.Is(err, os.ErrDeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		t.Errorf("got %v", err)
	}
}

func TestRemoteSkipsStaleResponses(t *testing.T) {
	r, _, conn := newLoopRemote(t)

	stale, err := wire.EncodeResponse(&wire.Response{InvokeID: 99, Service: wire.ServiceReadProperty})
	if err != nil {
		t.Fatal(err)
	}
	conn.inbox <- stale

	if _, err := r.ReadValues(av1, bacnet.PropPresentValue, bacnet.ArrayAll); err != nil {
		t.Errorf("ReadValues: %v", err)
	}
}
