// Package device implements the device-wide object directory. A Device
// owns the device object and routes property access to the object type
// handlers registered with it.
package device

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/object"
)

// Errors returned by handler registration.
var (
	ErrDuplicateHandler = errors.New("object type already registered")
	ErrDeviceHandler    = errors.New("device object type is reserved")
)

// Config describes the device object.
type Config struct {
	Instance        uint32
	Name            string
	Description     string
	Location        string
	VendorName      string
	VendorID        uint32
	ModelName       string
	FirmwareVersion string
	SoftwareVersion string
}

// Device is the object directory of one BACnet device.
type Device struct {
	mu       sync.RWMutex
	cfg      Config
	status   bacnet.SystemStatus
	revision uint32
	handlers map[bacnet.ObjectType]object.Handler
	types    []bacnet.ObjectType

	// names serializes every name check with the rename or creation it
	// guards, keeping object names unique across object types.
	names sync.Mutex
}

// New creates a device with no object types registered.
func New(cfg Config) *Device {
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("DEVICE-%d", cfg.Instance)
	}
	return &Device{
		cfg:      cfg,
		status:   bacnet.SystemStatusOperational,
		handlers: make(map[bacnet.ObjectType]object.Handler),
	}
}

// ID returns the device object identifier.
func (d *Device) ID() bacnet.ObjectID {
	return bacnet.ObjectID{Type: bacnet.ObjectDevice, Instance: d.cfg.Instance}
}

// Name returns the device object name.
func (d *Device) Name() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg.Name
}

// SystemStatus returns the reported system status.
func (d *Device) SystemStatus() bacnet.SystemStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// SetSystemStatus sets the reported system status.
func (d *Device) SetSystemStatus(s bacnet.SystemStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = s
}

// DatabaseRevision counts object creations, deletions and renames.
func (d *Device) DatabaseRevision() uint32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.revision
}

// SetDatabaseRevision restores a saved revision.
func (d *Device) SetDatabaseRevision(rev uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revision = rev
}

// Config returns a copy of the device configuration, including the
// current name, description and location.
func (d *Device) Config() Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// SetDescription sets the device object description.
func (d *Device) SetDescription(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.Description = s
}

// SetLocation sets the device object location.
func (d *Device) SetLocation(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.Location = s
}

func (d *Device) bumpRevision() {
	d.mu.Lock()
	d.revision++
	d.mu.Unlock()
}

// AddHandler registers an object type. The device installs its name
// uniqueness check on the handler.
func (d *Device) AddHandler(h object.Handler) error {
	t := h.ObjectType()
	if t == bacnet.ObjectDevice {
		return ErrDeviceHandler
	}

	d.mu.Lock()
	if _, exists := d.handlers[t]; exists {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, t)
	}
	d.handlers[t] = h
	d.types = append(d.types, t)
	sort.Slice(d.types, func(i, j int) bool { return d.types[i] < d.types[j] })
	d.mu.Unlock()

	h.SetNameCheck(d.checkName)
	return nil
}

// Handler returns the handler for an object type.
func (d *Device) Handler(t bacnet.ObjectType) (object.Handler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[t]
	return h, ok
}

// Handlers returns the registered handlers ordered by object type.
func (d *Device) Handlers() []object.Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	hs := make([]object.Handler, 0, len(d.types))
	for _, t := range d.types {
		hs = append(hs, d.handlers[t])
	}
	return hs
}

// isDevice reports whether id names this device. The wildcard instance
// addresses the local device.
func (d *Device) isDevice(id bacnet.ObjectID) bool {
	return id.Type == bacnet.ObjectDevice &&
		(id.Instance == d.cfg.Instance || id.Instance == bacnet.MaxInstance)
}

// ValidObject reports whether an object exists.
func (d *Device) ValidObject(id bacnet.ObjectID) bool {
	if d.isDevice(id) {
		return true
	}
	h, ok := d.Handler(id.Type)
	return ok && h.ValidInstance(id.Instance)
}

// CreateObject creates an object of a registered type. The wildcard
// instance picks the lowest free instance. A new object whose default name
// collides with an existing object is removed again and the call fails
// with bacnet.ErrDuplicateName.
func (d *Device) CreateObject(t bacnet.ObjectType, instance uint32) (bacnet.ObjectID, error) {
	h, ok := d.Handler(t)
	if !ok {
		return bacnet.ObjectID{}, bacnet.ErrUnsupportedObjectType
	}

	d.names.Lock()
	defer d.names.Unlock()

	existed := instance != bacnet.MaxInstance && h.ValidInstance(instance)
	created, err := h.Create(instance)
	if err != nil {
		return bacnet.ObjectID{}, err
	}
	id := bacnet.ObjectID{Type: t, Instance: created}
	if existed {
		return id, nil
	}

	name, _ := h.ObjectName(created)
	if err := d.checkName(id, name); err != nil {
		h.Delete(created)
		return bacnet.ObjectID{}, err
	}
	d.bumpRevision()
	return id, nil
}

// DeleteObject removes an object. The device object cannot be deleted.
func (d *Device) DeleteObject(id bacnet.ObjectID) error {
	if id.Type == bacnet.ObjectDevice {
		return bacnet.ErrObjectDeletionNotPermitted
	}
	h, ok := d.Handler(id.Type)
	if !ok || !h.Delete(id.Instance) {
		return bacnet.ErrUnknownObject
	}
	d.bumpRevision()
	return nil
}

// Cleanup removes every object of every registered type.
func (d *Device) Cleanup() {
	for _, h := range d.Handlers() {
		h.Cleanup()
	}
	d.bumpRevision()
}

// ObjectCount returns the number of objects including the device object.
func (d *Device) ObjectCount() int {
	n := 1
	for _, h := range d.Handlers() {
		n += h.Count()
	}
	return n
}

// ObjectList returns the device object followed by every object, ordered
// by type and then instance.
func (d *Device) ObjectList() []bacnet.ObjectID {
	ids := []bacnet.ObjectID{d.ID()}
	for _, h := range d.Handlers() {
		for _, inst := range h.Instances() {
			ids = append(ids, bacnet.ObjectID{Type: h.ObjectType(), Instance: inst})
		}
	}
	return ids
}

// ObjectName returns the name of any object in the device.
func (d *Device) ObjectName(id bacnet.ObjectID) (string, bool) {
	if d.isDevice(id) {
		return d.Name(), true
	}
	h, ok := d.Handler(id.Type)
	if !ok {
		return "", false
	}
	return h.ObjectName(id.Instance)
}

// FindByName returns the object that carries name.
func (d *Device) FindByName(name string) (bacnet.ObjectID, bool) {
	for _, id := range d.ObjectList() {
		if n, ok := d.ObjectName(id); ok && n == name {
			return id, true
		}
	}
	return bacnet.ObjectID{}, false
}

// SetObjectName renames an object, enforcing unique names.
func (d *Device) SetObjectName(id bacnet.ObjectID, name string) error {
	d.names.Lock()
	defer d.names.Unlock()

	if d.isDevice(id) {
		if err := d.checkName(d.ID(), name); err != nil {
			return err
		}
		d.mu.Lock()
		d.cfg.Name = name
		d.revision++
		d.mu.Unlock()
		return nil
	}
	h, ok := d.Handler(id.Type)
	if !ok {
		return bacnet.ErrUnknownObject
	}
	if err := h.SetObjectName(id.Instance, name); err != nil {
		return err
	}
	d.bumpRevision()
	return nil
}

// checkName is the name check installed on every handler.
func (d *Device) checkName(id bacnet.ObjectID, name string) error {
	if name == "" {
		return bacnet.ErrValueOutOfRange
	}
	if other, ok := d.FindByName(name); ok && other != id {
		return bacnet.ErrDuplicateName
	}
	return nil
}
