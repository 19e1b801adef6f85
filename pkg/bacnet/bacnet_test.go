package bacnet

import (
	"errors"
	"fmt"
	"testing"
)

func TestObjectIDEncode(t *testing.T) {
	tests := []struct {
		id   ObjectID
		want uint32
	}{
		{ObjectID{ObjectAnalogValue, 1}, 0x00800001},
		{ObjectID{ObjectDevice, 260001}, 0x0203F7A1},
		{ObjectID{ObjectPositiveIntegerValue, 0}, 0x0C000000},
	}

	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			got, err := tt.id.Encode()
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Encode() = %#08x, want %#08x", got, tt.want)
			}
			if back := DecodeObjectID(got); back != tt.id {
				t.Errorf("DecodeObjectID() = %v, want %v", back, tt.id)
			}
		})
	}
}

func TestObjectIDInvalid(t *testing.T) {
	_, err := ObjectID{Type: ObjectAnalogValue, Instance: MaxInstance + 1}.Encode()
	if !errors.Is(err, ErrInvalidObjectID) {
		t.Errorf("expected ErrInvalidObjectID, got %v", err)
	}
}

func TestParseNames(t *testing.T) {
	ot, err := ParseObjectType("Positive-Integer-Value")
	if err != nil || ot != ObjectPositiveIntegerValue {
		t.Errorf("ParseObjectType = %v, %v", ot, err)
	}
	ot, err = ParseObjectType("45")
	if err != nil || ot != ObjectIntegerValue {
		t.Errorf("ParseObjectType(45) = %v, %v", ot, err)
	}
	if _, err := ParseObjectType("toaster"); !errors.Is(err, ErrUnknownObjectType) {
		t.Errorf("expected ErrUnknownObjectType, got %v", err)
	}

	p, err := ParsePropertyID("present-value")
	if err != nil || p != PropPresentValue {
		t.Errorf("ParsePropertyID = %v, %v", p, err)
	}
	if PropPriorityArray.String() != "priority-array" {
		t.Errorf("String() = %s", PropPriorityArray)
	}
	if PropertyID(9999).String() != "9999" {
		t.Errorf("String() = %s", PropertyID(9999))
	}

	u, err := ParseUnits("degrees-celsius")
	if err != nil || u != UnitsDegreesCelsius {
		t.Errorf("ParseUnits = %v, %v", u, err)
	}
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("write failed: %w", NewError(ClassProperty, CodeWriteAccessDenied))

	if !errors.Is(err, ErrWriteAccessDenied) {
		t.Error("expected errors.Is to match on class and code")
	}
	if errors.Is(err, ErrValueOutOfRange) {
		t.Error("expected no match for a different code")
	}

	be := AsError(err)
	if be.Class != ClassProperty || be.Code != CodeWriteAccessDenied {
		t.Errorf("AsError() = %v", be)
	}

	other := AsError(errors.New("boom"))
	if other.Class != ClassDevice || other.Code != CodeOther {
		t.Errorf("AsError(plain) = %v", other)
	}
	if AsError(nil) != nil {
		t.Error("AsError(nil) should be nil")
	}
}
