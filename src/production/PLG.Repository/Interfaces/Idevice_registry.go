package interfaces

import (
	plgmodels "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Models"
)

// DeviceRegistry is the flat device record store. Mutation is full-list
// overwrite only; a device is deleted by omitting it from a saved list.
type DeviceRegistry interface {
	// Load returns all registered devices.
	Load() ([]plgmodels.Device, error)

	// Save overwrites the registry with the given list.
	Save(devices []plgmodels.Device) error

	// GetByID returns the first device with the given id, or nil.
	GetByID(id string) (*plgmodels.Device, error)

	// GroupByFloor groups devices by their "building-floor" key.
	GroupByFloor() (map[string][]plgmodels.Device, error)
}
