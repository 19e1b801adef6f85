package object

import (
	"errors"
	"math"
	"testing"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

func TestCOVScenario(t *testing.T) {
	c, inst := newPIV(t)
	if err := c.SetCOVIncrement(inst, 5); err != nil {
		t.Fatal(err)
	}
	_ = c.SetRelinquishDefault(inst, 0)

	_ = c.Write(inst, 3, 8)
	if pv, _ := c.PresentValue(inst); pv != 3 {
		t.Errorf("expected 3, got %d", pv)
	}
	if c.ChangeOfValue(inst) {
		t.Error("delta 3 is below the increment")
	}

	_ = c.Write(inst, 10, 8)
	if pv, _ := c.PresentValue(inst); pv != 10 {
		t.Errorf("expected 10, got %d", pv)
	}
	if !c.ChangeOfValue(inst) {
		t.Error("delta above the increment should latch")
	}

	c.ClearChangeOfValue(inst)
	_ = c.Write(inst, 10, 3)
	if pv, _ := c.PresentValue(inst); pv != 10 {
		t.Errorf("expected 10, got %d", pv)
	}
	if c.ChangeOfValue(inst) {
		t.Error("zero delta should not latch")
	}
}

func TestCOVIdempotent(t *testing.T) {
	c, inst := newPIV(t)

	_ = c.Write(inst, 20, 16)
	if !c.ChangeOfValue(inst) {
		t.Fatal("first write should latch")
	}
	c.ClearChangeOfValue(inst)

	_ = c.Write(inst, 20, 16)
	_ = c.Write(inst, 20, 16)
	if c.ChangeOfValue(inst) {
		t.Error("repeating the same value should not latch again")
	}

	// Reads never clear the flag.
	_ = c.Write(inst, 30, 16)
	for i := 0; i < 3; i++ {
		if !c.ChangeOfValue(inst) {
			t.Fatal("flag should stay set until acknowledged")
		}
	}
}

func TestCOVZeroIncrement(t *testing.T) {
	c, inst := newPIV(t)
	_ = c.SetCOVIncrement(inst, 0)
	c.ClearChangeOfValue(inst)

	_ = c.Write(inst, 0, 16)
	if c.ChangeOfValue(inst) {
		t.Error("zero delta should not latch even with a zero increment")
	}
	_ = c.Write(inst, 1, 16)
	if !c.ChangeOfValue(inst) {
		t.Error("any non-zero delta should latch with a zero increment")
	}
}

func TestSetCOVIncrementRedetects(t *testing.T) {
	c, inst := newPIV(t)
	_ = c.SetCOVIncrement(inst, 100)
	_ = c.Write(inst, 40, 16)
	if c.ChangeOfValue(inst) {
		t.Fatal("delta 40 is below 100")
	}

	_ = c.SetCOVIncrement(inst, 10)
	if !c.ChangeOfValue(inst) {
		t.Error("lowering the increment should flag the existing difference")
	}

	if err := c.SetCOVIncrement(inst, -1); !errors.Is(err, bacnet.ErrValueOutOfRange) {
		t.Errorf("expected ErrValueOutOfRange, got %v", err)
	}
	if err := c.SetCOVIncrement(inst, math.NaN()); !errors.Is(err, bacnet.ErrValueOutOfRange) {
		t.Errorf("expected ErrValueOutOfRange, got %v", err)
	}
}

func TestCOVAtTypeBounds(t *testing.T) {
	iv := NewIntegerValue()
	inst, _ := iv.Create(1)
	_ = iv.SetCOVIncrement(inst, 1)

	_ = iv.Write(inst, math.MinInt32, 16)
	if !iv.ChangeOfValue(inst) {
		t.Fatal("large negative delta should latch")
	}
	iv.ClearChangeOfValue(inst)

	_ = iv.Write(inst, math.MaxInt32, 16)
	if !iv.ChangeOfValue(inst) {
		t.Error("full-range delta should latch without overflow")
	}

	piv, inst := newPIV(t)
	_ = piv.Write(inst, math.MaxUint32, 16)
	piv.ClearChangeOfValue(inst)
	_ = piv.Write(inst, 0, 16)
	if !piv.ChangeOfValue(inst) {
		t.Error("unsigned decrease should latch")
	}
}

func TestOutOfServiceTransition(t *testing.T) {
	c, inst := newPIV(t)

	_ = c.SetOutOfService(inst, false)
	if c.ChangeOfValue(inst) {
		t.Error("setting the same state should not latch")
	}

	_ = c.SetOutOfService(inst, true)
	if !c.ChangeOfValue(inst) || !c.OutOfService(inst) {
		t.Error("transition should latch")
	}
	c.ClearChangeOfValue(inst)

	_ = c.SetOutOfService(inst, true)
	if c.ChangeOfValue(inst) {
		t.Error("no transition, no latch")
	}
}

func TestEncodeValueList(t *testing.T) {
	c, inst := newPIV(t)
	_ = c.Write(inst, 42, 8)
	_ = c.SetOutOfService(inst, true)

	list, err := c.EncodeValueList(inst)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
	if list[0].Property != bacnet.PropPresentValue || list[0].Value.Unsigned != 42 {
		t.Errorf("unexpected present value entry %+v", list[0])
	}
	if list[1].Property != bacnet.PropStatusFlags || !list[1].Value.BitString.Bit(bacnet.StatusFlagOutOfService) {
		t.Errorf("unexpected status flags entry %+v", list[1])
	}

	if _, err := c.EncodeValueList(77); !errors.Is(err, bacnet.ErrUnknownObject) {
		t.Errorf("expected ErrUnknownObject, got %v", err)
	}
}

func TestTakeChangeOfValue(t *testing.T) {
	c, inst := newPIV(t)

	if _, ok := c.TakeChangeOfValue(inst); ok {
		t.Error("nothing should be pending on a new object")
	}

	_ = c.Write(inst, 7, 8)
	list, ok := c.TakeChangeOfValue(inst)
	if !ok {
		t.Fatal("expected a pending change")
	}
	if list[0].Value.Unsigned != 7 {
		t.Errorf("reported %d, want 7", list[0].Value.Unsigned)
	}
	if c.ChangeOfValue(inst) {
		t.Error("take should acknowledge the change")
	}
	if _, ok := c.TakeChangeOfValue(inst); ok {
		t.Error("a change is taken once")
	}

	_ = c.Write(inst, 20, 8)
	if list, ok := c.TakeChangeOfValue(inst); !ok || list[0].Value.Unsigned != 20 {
		t.Errorf("later change = %v, %v", list, ok)
	}

	if _, ok := c.TakeChangeOfValue(77); ok {
		t.Error("unknown object has no change")
	}
}
