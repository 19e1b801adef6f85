package interactive

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/device"
	"github.com/bacnet-stack/bacnet-go/pkg/object"
	"github.com/bacnet-stack/bacnet-go/pkg/service"
)

var av1 = bacnet.ObjectID{Type: bacnet.ObjectAnalogValue, Instance: 1}

// syncBuffer is a bytes.Buffer safe for the console's event goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

func newTestConsole(t *testing.T) (*Console, *service.DeviceService, *syncBuffer) {
	t.Helper()
	d := device.New(device.Config{Instance: 1234, Name: "Console Device"})
	if err := d.AddHandler(object.NewAnalogValue()); err != nil {
		t.Fatal(err)
	}
	if err := d.AddHandler(object.NewIntegerValue()); err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateObject(bacnet.ObjectAnalogValue, 1); err != nil {
		t.Fatal(err)
	}
	svc := service.NewDeviceService(d, service.DefaultConfig())
	out := &syncBuffer{}
	return newConsole(svc, out), svc, out
}

// run executes a command and returns what it printed.
func run(t *testing.T, c *Console, out *syncBuffer, line string) string {
	t.Helper()
	out.Reset()
	if c.Execute(line) {
		t.Fatalf("%q exited the console", line)
	}
	return out.String()
}

func waitFor(t *testing.T, out *syncBuffer, substr string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), substr) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("output never contained %q:\n%s", substr, out.String())
}

func TestConsoleList(t *testing.T) {
	c, _, out := newTestConsole(t)

	got := run(t, c, out, "list")
	for _, want := range []string{"device:1234", "analog-value:1", `"ANALOG-VALUE-1"`, "2 objects"} {
		if !strings.Contains(got, want) {
			t.Errorf("list output missing %q:\n%s", want, got)
		}
	}
}

func TestConsoleRead(t *testing.T) {
	c, _, out := newTestConsole(t)

	got := run(t, c, out, "read av:1/name")
	if !strings.Contains(got, `analog-value:1/object-name = "ANALOG-VALUE-1"`) {
		t.Errorf("read name:\n%s", got)
	}

	got = run(t, c, out, "read av:1")
	if !strings.HasPrefix(got, `analog-value:1 "ANALOG-VALUE-1"`) {
		t.Errorf("read object header:\n%s", got)
	}
	if !strings.Contains(got, "present-value:") {
		t.Errorf("read object missing present-value:\n%s", got)
	}

	got = run(t, c, out, "read av:1/pa")
	if !strings.Contains(got, "(all relinquished)") {
		t.Errorf("read priority array:\n%s", got)
	}

	got = run(t, c, out, "read av:9/pv")
	if !strings.Contains(got, "unknown-object") {
		t.Errorf("read unknown object:\n%s", got)
	}

	got = run(t, c, out, "read")
	if !strings.Contains(got, "Usage: read <path>") {
		t.Errorf("read without args:\n%s", got)
	}
}

func TestConsoleWriteRelinquish(t *testing.T) {
	c, svc, out := newTestConsole(t)

	got := run(t, c, out, "write av:1/pv 21.5 8")
	if !strings.HasPrefix(got, "OK:") {
		t.Fatalf("write:\n%s", got)
	}
	vs, err := svc.ReadValues(av1, bacnet.PropPresentValue, bacnet.ArrayAll)
	if err != nil {
		t.Fatal(err)
	}
	if vs[0].Real != 21.5 {
		t.Errorf("present-value = %v, want 21.5", vs[0].Real)
	}

	got = run(t, c, out, "read av:1/pa")
	if !strings.Contains(got, " 8: 21.50") {
		t.Errorf("priority array after write:\n%s", got)
	}

	got = run(t, c, out, "write av:1/pv 1 6")
	if !strings.Contains(got, "error:") {
		t.Errorf("write at reserved priority:\n%s", got)
	}

	got = run(t, c, out, "write av:1/pv 1 17")
	if !strings.Contains(got, "error:") {
		t.Errorf("write at priority 17:\n%s", got)
	}

	got = run(t, c, out, "relinquish av:1 8")
	if !strings.HasPrefix(got, "OK:") {
		t.Fatalf("relinquish:\n%s", got)
	}
	vs, err = svc.ReadValues(av1, bacnet.PropPriorityArray, 8)
	if err != nil {
		t.Fatal(err)
	}
	if vs[0].Tag != bacapp.TagNull {
		t.Errorf("slot 8 = %v, want null", vs[0])
	}

	got = run(t, c, out, "relinquish av:1/pv 8")
	if !strings.Contains(got, "expected an object") {
		t.Errorf("relinquish with a property path:\n%s", got)
	}
}

func TestConsoleCreateDelete(t *testing.T) {
	c, svc, out := newTestConsole(t)

	got := run(t, c, out, "create iv - Fan Speed")
	if !strings.Contains(got, `Created integer-value:1 "Fan Speed"`) {
		t.Fatalf("create:\n%s", got)
	}

	got = run(t, c, out, "create av 1")
	if !strings.Contains(got, "error:") {
		t.Errorf("duplicate instance:\n%s", got)
	}

	got = run(t, c, out, "create bogus")
	if !strings.Contains(got, "unknown object type") {
		t.Errorf("unknown type:\n%s", got)
	}

	iv1 := bacnet.ObjectID{Type: bacnet.ObjectIntegerValue, Instance: 1}
	got = run(t, c, out, "delete iv:1")
	if !strings.Contains(got, "Deleted integer-value:1") {
		t.Fatalf("delete:\n%s", got)
	}
	if svc.Device().ValidObject(iv1) {
		t.Error("object still present after delete")
	}

	got = run(t, c, out, "delete device")
	if !strings.Contains(got, "error:") {
		t.Errorf("delete device:\n%s", got)
	}
}

func TestConsoleCOV(t *testing.T) {
	c, svc, out := newTestConsole(t)

	got := run(t, c, out, "cov av:1 60")
	if !strings.Contains(got, "Watching analog-value:1 (pid 1)") {
		t.Fatalf("cov:\n%s", got)
	}
	waitFor(t, out, "[COV] analog-value:1 present-value=0.00")

	got = run(t, c, out, "cov list")
	if !strings.Contains(got, service.LocalPrefix+subscriberName) || !strings.Contains(got, "1 subscriptions") {
		t.Errorf("cov list:\n%s", got)
	}

	out.Reset()
	if err := svc.WriteValue(av1, bacnet.PropPresentValue, bacnet.ArrayAll, bacapp.Real(30), 8); err != nil {
		t.Fatal(err)
	}
	svc.Poll()
	waitFor(t, out, "present-value=30.00")

	got = run(t, c, out, "cov cancel av:1")
	if !strings.Contains(got, "Cancelled 1 subscriptions") {
		t.Errorf("cov cancel:\n%s", got)
	}
	if subs := svc.Subscriptions(); len(subs) != 0 {
		t.Errorf("subscriptions after cancel = %d", len(subs))
	}
}

func TestConsoleComm(t *testing.T) {
	c, svc, out := newTestConsole(t)

	got := run(t, c, out, "comm disable-initiation")
	if !strings.Contains(got, "Communication ") {
		t.Fatalf("comm:\n%s", got)
	}
	if svc.CommunicationState() != bacnet.CommunicationDisableInitiation {
		t.Errorf("state = %s", svc.CommunicationState())
	}

	run(t, c, out, "comm enable")
	if svc.CommunicationState() != bacnet.CommunicationEnable {
		t.Errorf("state = %s", svc.CommunicationState())
	}

	got = run(t, c, out, "comm sleep")
	if !strings.Contains(got, "Usage: comm") {
		t.Errorf("bad state:\n%s", got)
	}
}

func TestConsoleHistoryDisabled(t *testing.T) {
	c, _, out := newTestConsole(t)

	got := run(t, c, out, "history av:1")
	if !strings.Contains(got, "History is not enabled") {
		t.Errorf("history:\n%s", got)
	}
}

func TestConsoleExit(t *testing.T) {
	c, _, out := newTestConsole(t)

	for _, line := range []string{"exit", "quit", "q"} {
		if !c.Execute(line) {
			t.Errorf("%q did not exit", line)
		}
	}

	got := run(t, c, out, "frobnicate")
	if !strings.Contains(got, "Unknown command: frobnicate") {
		t.Errorf("unknown command:\n%s", got)
	}
	if c.Execute("   ") {
		t.Error("blank line exited")
	}
}
