package config

import (
	"fmt"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/cov"
	"github.com/bacnet-stack/bacnet-go/pkg/device"
	"github.com/bacnet-stack/bacnet-go/pkg/object"
	"github.com/bacnet-stack/bacnet-go/pkg/service"
)

// defaultIncrement matches the increment of a newly created object.
const defaultIncrement = 1

// DeviceConfig converts the device section to a device.Config.
func (d DeviceConfig) DeviceConfig() device.Config {
	return device.Config{
		Instance:        d.Instance,
		Name:            d.Name,
		Description:     d.Description,
		Location:        d.Location,
		VendorName:      d.VendorName,
		VendorID:        d.VendorID,
		ModelName:       d.ModelName,
		FirmwareVersion: d.FirmwareVersion,
		SoftwareVersion: d.FirmwareVersion,
	}
}

// ServiceConfig converts the COV and storage sections to a service.Config.
func (c *Config) ServiceConfig() service.Config {
	return service.Config{
		COV: cov.Config{
			MaxSubscriptions: c.COV.MaxSubscriptions,
			PollInterval:     c.COV.PollInterval,
		},
		HistoryRetention: c.Storage.HistoryRetention,
	}
}

// NewDevice creates the device with every commandable object type
// registered and the configured objects created.
func (c *Config) NewDevice() (*device.Device, error) {
	d := device.New(c.Device.DeviceConfig())
	for _, h := range []object.Handler{
		object.NewAnalogValue(),
		object.NewIntegerValue(),
		object.NewPositiveIntegerValue(),
	} {
		if err := d.AddHandler(h); err != nil {
			return nil, err
		}
	}
	if err := c.BuildObjects(d); err != nil {
		return nil, err
	}
	return d, nil
}

// BuildObjects creates the configured objects in d. Objects are grouped
// by type and restored in one pass per type.
func (c *Config) BuildObjects(d *device.Device) error {
	byType := make(map[bacnet.ObjectType][]object.Snapshot)
	var order []bacnet.ObjectType
	for i, o := range c.Objects {
		id, err := o.ID()
		if err != nil {
			return fmt.Errorf("objects[%d]: %w", i, err)
		}
		snap, err := o.snapshot()
		if err != nil {
			return fmt.Errorf("objects[%d]: %w", i, err)
		}
		if _, ok := byType[id.Type]; !ok {
			order = append(order, id.Type)
		}
		byType[id.Type] = append(byType[id.Type], snap)
	}

	for _, t := range order {
		h, ok := d.Handler(t)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedType, t)
		}
		if err := h.Restore(byType[t]); err != nil {
			return fmt.Errorf("restore %s: %w", t, err)
		}
	}
	return nil
}

func (o ObjectConfig) snapshot() (object.Snapshot, error) {
	units := bacnet.UnitsPercent
	if o.Units != "" {
		u, err := bacnet.ParseUnits(o.Units)
		if err != nil {
			return object.Snapshot{}, err
		}
		units = u
	}
	increment := float64(defaultIncrement)
	if o.COVIncrement != nil {
		increment = *o.COVIncrement
	}
	return object.Snapshot{
		Instance:          o.Instance,
		Name:              o.Name,
		Description:       o.Description,
		Units:             units,
		OutOfService:      o.OutOfService,
		COVIncrement:      increment,
		RelinquishDefault: o.RelinquishDefault,
	}, nil
}
