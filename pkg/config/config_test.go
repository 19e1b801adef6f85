package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/device"
	"github.com/bacnet-stack/bacnet-go/pkg/object"
)

const sampleYAML = `
device:
  instance: 1234
  name: Plant Room
  location: Basement
server:
  address: 127.0.0.1:47808
  http_address: ""
cov:
  poll_interval: 250ms
  max_subscriptions: 8
storage:
  state_file: /var/lib/bacnet/state.json
  history_retention: 24h
log:
  level: debug
objects:
  - type: analog-value
    instance: 1
    name: Supply Temp
    units: degrees-celsius
    cov_increment: 0.5
    relinquish_default: 21
  - type: positive-integer-value
    instance: 3
    out_of_service: true
  - type: integer-value
    instance: 1
    cov_increment: 0
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Device.Instance != 1234 {
		t.Errorf("Instance: got %d, want 1234", cfg.Device.Instance)
	}
	if cfg.Device.Name != "Plant Room" {
		t.Errorf("Name: got %q", cfg.Device.Name)
	}
	// Unset fields keep their defaults.
	if cfg.Device.VendorName != DefaultVendorName {
		t.Errorf("VendorName: got %q, want default", cfg.Device.VendorName)
	}
	if cfg.Server.HTTPAddress != "" {
		t.Errorf("HTTPAddress: got %q, want empty", cfg.Server.HTTPAddress)
	}
	if cfg.COV.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval: got %s", cfg.COV.PollInterval)
	}
	if cfg.Storage.HistoryRetention != 24*time.Hour {
		t.Errorf("HistoryRetention: got %s", cfg.Storage.HistoryRetention)
	}
	if len(cfg.Objects) != 3 {
		t.Fatalf("Objects: got %d, want 3", len(cfg.Objects))
	}
	if inc := cfg.Objects[0].COVIncrement; inc == nil || *inc != 0.5 {
		t.Errorf("COVIncrement: got %v", inc)
	}
	if cfg.Objects[1].COVIncrement != nil {
		t.Error("COVIncrement should be unset")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("device: [")); err == nil {
		t.Error("expected error")
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BACNET_DEVICE_NAME", "Overridden")
	t.Setenv("BACNET_COV_POLL_INTERVAL", "2s")
	t.Setenv("BACNET_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Device.Name != "Overridden" {
		t.Errorf("Name: got %q", cfg.Device.Name)
	}
	if cfg.Device.Location != "Basement" {
		t.Errorf("Location: got %q", cfg.Device.Location)
	}
	if cfg.COV.PollInterval != 2*time.Second {
		t.Errorf("PollInterval: got %s", cfg.COV.PollInterval)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Level: got %q", cfg.Log.Level)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Device.Instance != DefaultInstance {
		t.Errorf("Instance: got %d", cfg.Device.Instance)
	}
	if cfg.Server.Address != ":47808" {
		t.Errorf("Address: got %q", cfg.Server.Address)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error")
	}
}

func TestValidate(t *testing.T) {
	inc := -1.0
	tests := []struct {
		name   string
		modify func(c *Config)
		want   error
	}{
		{"device instance", func(c *Config) { c.Device.Instance = bacnet.MaxInstance }, ErrInvalidInstance},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }, ErrInvalidLogLevel},
		{"poll interval", func(c *Config) { c.COV.PollInterval = 0 }, ErrInvalidInterval},
		{"max subscriptions", func(c *Config) { c.COV.MaxSubscriptions = 0 }, ErrInvalidLimit},
		{"retention", func(c *Config) { c.Storage.HistoryRetention = -time.Hour }, ErrInvalidInterval},
		{"object type", func(c *Config) {
			c.Objects = []ObjectConfig{{Type: "device", Instance: 1}}
		}, ErrUnsupportedType},
		{"unknown type", func(c *Config) {
			c.Objects = []ObjectConfig{{Type: "toaster", Instance: 1}}
		}, bacnet.ErrUnknownObjectType},
		{"object instance", func(c *Config) {
			c.Objects = []ObjectConfig{{Type: "analog-value", Instance: bacnet.MaxInstance}}
		}, ErrInvalidInstance},
		{"duplicate object", func(c *Config) {
			c.Objects = []ObjectConfig{{Type: "analog-value", Instance: 1}, {Type: "2", Instance: 1}}
		}, ErrDuplicateObject},
		{"duplicate name", func(c *Config) {
			c.Objects = []ObjectConfig{
				{Type: "analog-value", Instance: 1, Name: "A"},
				{Type: "analog-value", Instance: 2, Name: "A"},
			}
		}, ErrDuplicateName},
		{"name clashes with device", func(c *Config) {
			c.Device.Name = "Boiler"
			c.Objects = []ObjectConfig{{Type: "analog-value", Instance: 1, Name: "Boiler"}}
		}, ErrDuplicateName},
		{"negative increment", func(c *Config) {
			c.Objects = []ObjectConfig{{Type: "analog-value", Instance: 1, COVIncrement: &inc}}
		}, ErrInvalidIncrement},
		{"units", func(c *Config) {
			c.Objects = []ObjectConfig{{Type: "analog-value", Instance: 1, Units: "furlongs"}}
		}, bacnet.ErrUnknownUnits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewDevice(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	d, err := cfg.NewDevice()
	if err != nil {
		t.Fatalf("NewDevice failed: %v", err)
	}

	if got := d.ID(); got != (bacnet.ObjectID{Type: bacnet.ObjectDevice, Instance: 1234}) {
		t.Errorf("ID: got %s", got)
	}
	if got := d.ObjectCount(); got != 4 {
		t.Errorf("ObjectCount: got %d, want 4", got)
	}

	id, ok := d.FindByName("Supply Temp")
	if !ok || id != (bacnet.ObjectID{Type: bacnet.ObjectAnalogValue, Instance: 1}) {
		t.Fatalf("FindByName: got %s, %v", id, ok)
	}

	piv := bacnet.ObjectID{Type: bacnet.ObjectPositiveIntegerValue, Instance: 3}
	name, ok := d.ObjectName(piv)
	if !ok || name != "POSITIVE-INTEGER-VALUE-3" {
		t.Errorf("default name: got %q, %v", name, ok)
	}

	snaps := snapshots(t, d, bacnet.ObjectAnalogValue)
	if len(snaps) != 1 {
		t.Fatalf("analog snapshots: got %d", len(snaps))
	}
	s := snaps[0]
	if s.Units != bacnet.UnitsDegreesCelsius || s.COVIncrement != 0.5 || s.RelinquishDefault != 21 {
		t.Errorf("analog value: got %+v", s)
	}

	pivSnaps := snapshots(t, d, bacnet.ObjectPositiveIntegerValue)
	if !pivSnaps[0].OutOfService || pivSnaps[0].COVIncrement != defaultIncrement {
		t.Errorf("positive integer value: got %+v", pivSnaps[0])
	}

	ivSnaps := snapshots(t, d, bacnet.ObjectIntegerValue)
	if ivSnaps[0].COVIncrement != 0 {
		t.Errorf("integer value increment: got %v, want 0", ivSnaps[0].COVIncrement)
	}
}

func TestServiceConfig(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	sc := cfg.ServiceConfig()
	if sc.COV.PollInterval != 250*time.Millisecond || sc.COV.MaxSubscriptions != 8 {
		t.Errorf("COV: got %+v", sc.COV)
	}
	if sc.HistoryRetention != 24*time.Hour {
		t.Errorf("HistoryRetention: got %s", sc.HistoryRetention)
	}
}

func snapshots(t *testing.T, d *device.Device, typ bacnet.ObjectType) []object.Snapshot {
	t.Helper()
	h, ok := d.Handler(typ)
	if !ok {
		t.Fatalf("no handler for %s", typ)
	}
	return h.Snapshot()
}
