package object

import (
	"errors"
	"testing"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

func newPIV(t *testing.T) (*Commandable[uint32], uint32) {
	t.Helper()
	c := NewPositiveIntegerValue()
	inst, err := c.Create(bacnet.MaxInstance)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return c, inst
}

func TestPresentValueArbitration(t *testing.T) {
	c, inst := newPIV(t)

	if pv, _ := c.PresentValue(inst); pv != 0 {
		t.Errorf("expected relinquish default 0, got %d", pv)
	}

	if err := c.SetRelinquishDefault(inst, 7); err != nil {
		t.Fatal(err)
	}
	if pv, _ := c.PresentValue(inst); pv != 7 {
		t.Errorf("expected relinquish default 7, got %d", pv)
	}

	steps := []struct {
		priority uint8
		value    uint32
		want     uint32
	}{
		{16, 100, 100},
		{10, 50, 50},
		{12, 75, 50}, // lower priority does not take control
		{1, 1, 1},
	}
	for _, s := range steps {
		if err := c.Write(inst, s.value, s.priority); err != nil {
			t.Fatalf("Write(%d @ %d) error = %v", s.value, s.priority, err)
		}
		if pv, _ := c.PresentValue(inst); pv != s.want {
			t.Errorf("after Write(%d @ %d): expected %d, got %d", s.value, s.priority, s.want, pv)
		}
	}
	if got := c.ActivePriority(inst); got != 1 {
		t.Errorf("ActivePriority() = %d, want 1", got)
	}

	for _, relinquish := range []struct {
		priority uint8
		want     uint32
	}{
		{1, 50},
		{10, 75},
		{12, 100},
		{16, 7},
	} {
		if err := c.Relinquish(inst, relinquish.priority); err != nil {
			t.Fatal(err)
		}
		if pv, _ := c.PresentValue(inst); pv != relinquish.want {
			t.Errorf("after Relinquish(%d): expected %d, got %d", relinquish.priority, relinquish.want, pv)
		}
	}
	if got := c.ActivePriority(inst); got != 0 {
		t.Errorf("ActivePriority() = %d, want 0", got)
	}
}

func TestWriteThenRelinquishRestores(t *testing.T) {
	c, inst := newPIV(t)
	_ = c.Write(inst, 30, 9)

	for priority := uint8(1); priority <= bacnet.MaxPriority; priority++ {
		if priority == bacnet.MinimumOnOffPriority {
			continue
		}
		before, _ := c.PresentValue(inst)
		if err := c.Write(inst, 999, priority); err != nil {
			t.Fatalf("Write @ %d error = %v", priority, err)
		}
		if err := c.Relinquish(inst, priority); err != nil {
			t.Fatalf("Relinquish @ %d error = %v", priority, err)
		}
		after, _ := c.PresentValue(inst)
		// Relinquishing 9 itself clears the base command too.
		if priority != 9 && after != before {
			t.Errorf("priority %d: expected %d restored, got %d", priority, before, after)
		}
		if priority == 9 {
			_ = c.Write(inst, 30, 9)
		}
	}
}

func TestPriorityBounds(t *testing.T) {
	c, inst := newPIV(t)

	for _, priority := range []uint8{0, 17, 255} {
		if err := c.Write(inst, 1, priority); !errors.Is(err, bacnet.ErrValueOutOfRange) {
			t.Errorf("Write @ %d: expected ErrValueOutOfRange, got %v", priority, err)
		}
		if err := c.Relinquish(inst, priority); !errors.Is(err, bacnet.ErrValueOutOfRange) {
			t.Errorf("Relinquish @ %d: expected ErrValueOutOfRange, got %v", priority, err)
		}
	}
}

func TestPrioritySixReserved(t *testing.T) {
	c, inst := newPIV(t)
	_ = c.Write(inst, 12, 8)

	if err := c.Write(inst, 1, 6); !errors.Is(err, bacnet.ErrWriteAccessDenied) {
		t.Errorf("expected ErrWriteAccessDenied, got %v", err)
	}
	if err := c.Relinquish(inst, 6); !errors.Is(err, bacnet.ErrWriteAccessDenied) {
		t.Errorf("expected ErrWriteAccessDenied, got %v", err)
	}
	if pv, _ := c.PresentValue(inst); pv != 12 {
		t.Errorf("present value should be unchanged, got %d", pv)
	}
	if _, ok := c.PriorityArraySlot(inst, 5); ok {
		t.Error("slot for priority 6 should still be relinquished")
	}

	if err := c.SetPresentValue(inst, 1, 6); err != nil {
		t.Fatalf("SetPresentValue @ 6 error = %v", err)
	}
	if pv, _ := c.PresentValue(inst); pv != 1 {
		t.Errorf("local command at 6 should win over 8, got %d", pv)
	}
}

func TestUnknownObject(t *testing.T) {
	c := NewPositiveIntegerValue()

	if err := c.Write(999, 1, 8); !errors.Is(err, bacnet.ErrUnknownObject) {
		t.Errorf("Write: expected ErrUnknownObject, got %v", err)
	}
	if err := c.Relinquish(999, 8); !errors.Is(err, bacnet.ErrUnknownObject) {
		t.Errorf("Relinquish: expected ErrUnknownObject, got %v", err)
	}
	if _, ok := c.PresentValue(999); ok {
		t.Error("PresentValue should report missing object")
	}
	if c.ValidInstance(999) {
		t.Error("ValidInstance should be false")
	}
}

func TestLifecycleDefaults(t *testing.T) {
	c, inst := newPIV(t)

	if inc, _ := c.COVIncrement(inst); inc != 1 {
		t.Errorf("expected cov increment 1, got %v", inc)
	}
	if c.ChangeOfValue(inst) {
		t.Error("new object should not be changed")
	}
	if c.OutOfService(inst) {
		t.Error("new object should be in service")
	}
	if u, _ := c.Units(inst); u != bacnet.UnitsPercent {
		t.Errorf("expected percent, got %s", u)
	}
	if name, _ := c.ObjectName(inst); name != "POSITIVE-INTEGER-VALUE-1" {
		t.Errorf("unexpected default name %q", name)
	}
	for i := 0; i < bacnet.MaxPriority; i++ {
		if _, ok := c.PriorityArraySlot(inst, i); ok {
			t.Errorf("slot %d should be relinquished", i)
		}
	}

	if !c.Delete(inst) || c.ValidInstance(inst) {
		t.Error("Delete() should remove the object")
	}
	_, _ = c.Create(4)
	_, _ = c.Create(5)
	c.Cleanup()
	if c.Count() != 0 {
		t.Errorf("expected empty after Cleanup, got %d", c.Count())
	}
}
