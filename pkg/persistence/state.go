package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/device"
	"github.com/bacnet-stack/bacnet-go/pkg/object"
)

// StateVersion is the current state file format version.
const StateVersion = 1

// ErrStateVersion is returned by Apply for files written by a newer format.
var ErrStateVersion = errors.New("unsupported state version")

// DeviceState is everything a device needs to come back after a restart:
// the writable device object properties and the full state of every
// commandable object.
type DeviceState struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`

	Instance         uint32 `json:"instance"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	Location         string `json:"location,omitempty"`
	DatabaseRevision uint32 `json:"database_revision"`

	// Objects holds snapshots keyed by object type name.
	Objects map[string][]object.Snapshot `json:"objects,omitempty"`
}

// Capture snapshots a device.
func Capture(d *device.Device) *DeviceState {
	cfg := d.Config()
	state := &DeviceState{
		Instance:         cfg.Instance,
		Name:             cfg.Name,
		Description:      cfg.Description,
		Location:         cfg.Location,
		DatabaseRevision: d.DatabaseRevision(),
		Objects:          make(map[string][]object.Snapshot),
	}
	for _, h := range d.Handlers() {
		if snaps := h.Snapshot(); len(snaps) > 0 {
			state.Objects[h.ObjectType().String()] = snaps
		}
	}
	return state
}

// Apply restores a captured state into d. Every registered object type is
// cleared first, so the saved objects replace the configured ones. Types
// in the state that d does not handle are reported as an error after the
// rest has been applied.
func Apply(d *device.Device, state *DeviceState) error {
	if state.Version > StateVersion {
		return fmt.Errorf("%w: %d", ErrStateVersion, state.Version)
	}

	var errs []error
	restored := make(map[bacnet.ObjectType]bool)
	for name, snaps := range state.Objects {
		t, err := bacnet.ParseObjectType(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		h, ok := d.Handler(t)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", bacnet.ErrUnsupportedObjectType, name))
			continue
		}
		h.Cleanup()
		if err := h.Restore(snaps); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", name, err))
		}
		restored[t] = true
	}
	for _, h := range d.Handlers() {
		if !restored[h.ObjectType()] {
			h.Cleanup()
		}
	}

	if state.Name != "" {
		if err := d.SetObjectName(d.ID(), state.Name); err != nil {
			errs = append(errs, fmt.Errorf("restore device name: %w", err))
		}
	}
	d.SetDescription(state.Description)
	d.SetLocation(state.Location)
	d.SetDatabaseRevision(state.DatabaseRevision)
	return errors.Join(errs...)
}

// DeviceStateStore keeps a DeviceState in a JSON file.
type DeviceStateStore struct {
	mu   sync.Mutex
	path string
}

// NewDeviceStateStore creates a store for path.
func NewDeviceStateStore(path string) *DeviceStateStore {
	return &DeviceStateStore{path: path}
}

// Path returns the state file path.
func (s *DeviceStateStore) Path() string {
	return s.path
}

// Save writes the state. The file is replaced atomically.
func (s *DeviceStateStore) Save(state *DeviceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now()
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Load reads the state. It returns nil, nil when no state was saved yet.
func (s *DeviceStateStore) Load() (*DeviceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &DeviceState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Clear removes the state file.
func (s *DeviceStateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
