// Package config loads the configuration of a device from a YAML file
// with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/cov"
	"github.com/bacnet-stack/bacnet-go/pkg/transport"
)

// EnvPrefix prefixes every environment override, e.g. BACNET_DEVICE_NAME.
const EnvPrefix = "BACNET_"

// Defaults.
const (
	DefaultInstance    = 260001
	DefaultVendorName  = "bacnet-go"
	DefaultVendorID    = 999
	DefaultModelName   = "bacnet-device"
	DefaultHTTPAddress = ":8080"
	DefaultLogLevel    = "info"
)

// Validation errors.
var (
	ErrInvalidInstance  = errors.New("invalid instance")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidInterval  = errors.New("invalid interval")
	ErrInvalidLimit     = errors.New("invalid limit")
	ErrUnsupportedType  = errors.New("unsupported object type")
	ErrDuplicateObject  = errors.New("duplicate object")
	ErrDuplicateName    = errors.New("duplicate object name")
	ErrInvalidIncrement = errors.New("invalid cov increment")
)

// Config is the complete device configuration.
type Config struct {
	Device  DeviceConfig   `yaml:"device" envPrefix:"DEVICE_"`
	Server  ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	COV     COVConfig      `yaml:"cov" envPrefix:"COV_"`
	Storage StorageConfig  `yaml:"storage" envPrefix:"STORAGE_"`
	Log     LogConfig      `yaml:"log" envPrefix:"LOG_"`
	Objects []ObjectConfig `yaml:"objects"`
}

// DeviceConfig describes the device object.
type DeviceConfig struct {
	Instance        uint32 `yaml:"instance" env:"INSTANCE"`
	Name            string `yaml:"name" env:"NAME"`
	Description     string `yaml:"description" env:"DESCRIPTION"`
	Location        string `yaml:"location" env:"LOCATION"`
	VendorName      string `yaml:"vendor_name" env:"VENDOR_NAME"`
	VendorID        uint32 `yaml:"vendor_id" env:"VENDOR_ID"`
	ModelName       string `yaml:"model_name" env:"MODEL_NAME"`
	FirmwareVersion string `yaml:"firmware_version" env:"FIRMWARE_VERSION"`
}

// ServerConfig holds the listen addresses.
type ServerConfig struct {
	// Address is the wire protocol listen address.
	Address string `yaml:"address" env:"ADDRESS"`

	// HTTPAddress is the HTTP API listen address. Empty disables the API.
	HTTPAddress string `yaml:"http_address" env:"HTTP_ADDRESS"`

	MaxMessageSize uint32 `yaml:"max_message_size" env:"MAX_MESSAGE_SIZE"`
}

// COVConfig configures the subscription manager.
type COVConfig struct {
	PollInterval     time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	MaxSubscriptions int           `yaml:"max_subscriptions" env:"MAX_SUBSCRIPTIONS"`
}

// StorageConfig locates the state file and history database. Empty paths
// disable the store.
type StorageConfig struct {
	StateFile        string        `yaml:"state_file" env:"STATE_FILE"`
	HistoryDB        string        `yaml:"history_db" env:"HISTORY_DB"`
	HistoryRetention time.Duration `yaml:"history_retention" env:"HISTORY_RETENTION"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`

	// ProtocolFile captures protocol events in CBOR. Empty disables it.
	ProtocolFile string `yaml:"protocol_file" env:"PROTOCOL_FILE"`
}

// ObjectConfig describes one object created at startup.
type ObjectConfig struct {
	Type              string   `yaml:"type"`
	Instance          uint32   `yaml:"instance"`
	Name              string   `yaml:"name,omitempty"`
	Description       string   `yaml:"description,omitempty"`
	Units             string   `yaml:"units,omitempty"`
	COVIncrement      *float64 `yaml:"cov_increment,omitempty"`
	RelinquishDefault float64  `yaml:"relinquish_default,omitempty"`
	OutOfService      bool     `yaml:"out_of_service,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Instance:   DefaultInstance,
			VendorName: DefaultVendorName,
			VendorID:   DefaultVendorID,
			ModelName:  DefaultModelName,
		},
		Server: ServerConfig{
			Address:        fmt.Sprintf(":%d", transport.DefaultPort),
			HTTPAddress:    DefaultHTTPAddress,
			MaxMessageSize: transport.DefaultMaxMessageSize,
		},
		COV: COVConfig{
			PollInterval:     cov.DefaultPollInterval,
			MaxSubscriptions: cov.DefaultMaxSubscriptions,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result. An empty path starts from the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from BACNET_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Device.Instance >= bacnet.MaxInstance {
		return fmt.Errorf("device: %w: %d", ErrInvalidInstance, c.Device.Instance)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.COV.PollInterval <= 0 {
		return fmt.Errorf("cov.poll_interval: %w: %s", ErrInvalidInterval, c.COV.PollInterval)
	}
	if c.COV.MaxSubscriptions <= 0 {
		return fmt.Errorf("cov.max_subscriptions: %w: %d", ErrInvalidLimit, c.COV.MaxSubscriptions)
	}
	if c.Storage.HistoryRetention < 0 {
		return fmt.Errorf("storage.history_retention: %w: %s", ErrInvalidInterval, c.Storage.HistoryRetention)
	}

	seen := make(map[bacnet.ObjectID]bool)
	names := make(map[string]bool)
	if c.Device.Name != "" {
		names[c.Device.Name] = true
	}
	for i, o := range c.Objects {
		id, err := o.ID()
		if err != nil {
			return fmt.Errorf("objects[%d]: %w", i, err)
		}
		if seen[id] {
			return fmt.Errorf("objects[%d]: %w: %s", i, ErrDuplicateObject, id)
		}
		seen[id] = true

		if o.Name != "" {
			if names[o.Name] {
				return fmt.Errorf("objects[%d]: %w: %q", i, ErrDuplicateName, o.Name)
			}
			names[o.Name] = true
		}
		if o.COVIncrement != nil && *o.COVIncrement < 0 {
			return fmt.Errorf("objects[%d]: %w: %v", i, ErrInvalidIncrement, *o.COVIncrement)
		}
		if o.Units != "" {
			if _, err := bacnet.ParseUnits(o.Units); err != nil {
				return fmt.Errorf("objects[%d]: %w", i, err)
			}
		}
	}
	return nil
}

// ID resolves the object identifier. Only commandable value types are
// accepted.
func (o ObjectConfig) ID() (bacnet.ObjectID, error) {
	t, err := bacnet.ParseObjectType(o.Type)
	if err != nil {
		return bacnet.ObjectID{}, err
	}
	switch t {
	case bacnet.ObjectAnalogValue, bacnet.ObjectIntegerValue, bacnet.ObjectPositiveIntegerValue:
	default:
		return bacnet.ObjectID{}, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	if o.Instance >= bacnet.MaxInstance {
		return bacnet.ObjectID{}, fmt.Errorf("%w: %d", ErrInvalidInstance, o.Instance)
	}
	return bacnet.ObjectID{Type: t, Instance: o.Instance}, nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
	}
}
