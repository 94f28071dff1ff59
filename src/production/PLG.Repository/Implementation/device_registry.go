package implementation

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	plgmodels "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Models"
)

// FileDeviceRegistry keeps device records in a flat JSON file. The file is
// the source of truth and is deliberately human-editable, so writes always
// replace the whole list.
type FileDeviceRegistry struct {
	path string
	mu   sync.Mutex
}

func NewFileDeviceRegistry(path string) *FileDeviceRegistry {
	return &FileDeviceRegistry{path: path}
}

func (r *FileDeviceRegistry) Load() ([]plgmodels.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

func (r *FileDeviceRegistry) loadLocked() ([]plgmodels.Device, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []plgmodels.Device{}, nil
		}
		return nil, fmt.Errorf("failed to read device registry: %w", err)
	}

	var devices []plgmodels.Device
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("failed to parse device registry: %w", err)
	}
	return devices, nil
}

func (r *FileDeviceRegistry) Save(devices []plgmodels.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(devices, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal device registry: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write device registry: %w", err)
	}
	return nil
}

func (r *FileDeviceRegistry) GetByID(id string) (*plgmodels.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	devices, err := r.loadLocked()
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].ID == id {
			return &devices[i], nil
		}
	}
	return nil, nil
}

func (r *FileDeviceRegistry) GroupByFloor() (map[string][]plgmodels.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	devices, err := r.loadLocked()
	if err != nil {
		return nil, err
	}

	floors := make(map[string][]plgmodels.Device)
	for _, d := range devices {
		key := d.FloorKey()
		floors[key] = append(floors[key], d)
	}
	return floors, nil
}
