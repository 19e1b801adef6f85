package inspect

import (
	"testing"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

func TestResolveObjectType(t *testing.T) {
	tests := []struct {
		name   string
		want   bacnet.ObjectType
		wantOK bool
	}{
		{"analog-value", bacnet.ObjectAnalogValue, true},
		{"Analog-Value", bacnet.ObjectAnalogValue, true},
		{"av", bacnet.ObjectAnalogValue, true},
		{"IV", bacnet.ObjectIntegerValue, true},
		{"piv", bacnet.ObjectPositiveIntegerValue, true},
		{"dev", bacnet.ObjectDevice, true},
		{"8", bacnet.ObjectDevice, true},
		{"toaster", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveObjectType(tt.name)
			if ok != tt.wantOK {
				t.Fatalf("ResolveObjectType(%q) ok = %v, want %v", tt.name, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ResolveObjectType(%q) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestResolveProperty(t *testing.T) {
	tests := []struct {
		name   string
		want   bacnet.PropertyID
		wantOK bool
	}{
		{"present-value", bacnet.PropPresentValue, true},
		{"pv", bacnet.PropPresentValue, true},
		{"PA", bacnet.PropPriorityArray, true},
		{"rd", bacnet.PropRelinquishDefault, true},
		{"oos", bacnet.PropOutOfService, true},
		{"name", bacnet.PropObjectName, true},
		{"cov", bacnet.PropCOVIncrement, true},
		{"85", bacnet.PropPresentValue, true},
		{"512", bacnet.PropertyID(512), true},
		{"colour", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveProperty(tt.name)
			if ok != tt.wantOK {
				t.Fatalf("ResolveProperty(%q) ok = %v, want %v", tt.name, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ResolveProperty(%q) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}
