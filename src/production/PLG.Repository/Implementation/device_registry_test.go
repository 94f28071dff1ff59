package implementation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	plgmodels "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Models"
)

func testRegistry(t *testing.T) *FileDeviceRegistry {
	t.Helper()
	return NewFileDeviceRegistry(filepath.Join(t.TempDir(), "devices.json"))
}

func TestFileDeviceRegistryMissingFile(t *testing.T) {
	r := testRegistry(t)

	devices, err := r.Load()
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if len(devices) != 0 {
		t.Fatalf("got %d devices from missing file, want 0", len(devices))
	}
}

func TestFileDeviceRegistrySaveLoad(t *testing.T) {
	r := testRegistry(t)
	devices := []plgmodels.Device{
		{ID: "plug-1", Name: "AC", Building: "FUB", Floor: "3", Room: "301", Capacity: 2000},
		{ID: "plug-2", Name: "Heater", Building: "FUB", Floor: "3", Room: "302", Capacity: 1500},
	}

	if err := r.Save(devices); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := r.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[0] != devices[0] || got[1] != devices[1] {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

// The registry file stays human-editable: indented JSON, whole-list writes.
func TestFileDeviceRegistryFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.json")
	r := NewFileDeviceRegistry(path)

	if err := r.Save([]plgmodels.Device{{ID: "plug-1", Name: "AC"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.Contains(string(data), "\n    ") {
		t.Errorf("registry file is not indented:\n%s", data)
	}
}

func TestFileDeviceRegistryOverwriteDropsOmitted(t *testing.T) {
	r := testRegistry(t)
	if err := r.Save([]plgmodels.Device{{ID: "plug-1"}, {ID: "plug-2"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Saving a list without plug-2 removes it; there is no merge.
	if err := r.Save([]plgmodels.Device{{ID: "plug-1"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := r.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].ID != "plug-1" {
		t.Fatalf("got %+v, want only plug-1", got)
	}
}

func TestFileDeviceRegistryGetByID(t *testing.T) {
	r := testRegistry(t)
	if err := r.Save([]plgmodels.Device{
		{ID: "plug-1", Room: "301"},
		{ID: "plug-1", Room: "999"}, // duplicate ids resolve to the first match
		{ID: "plug-2", Room: "302"},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	d, err := r.GetByID("plug-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if d == nil || d.Room != "301" {
		t.Fatalf("GetByID(plug-1) = %+v, want first match (room 301)", d)
	}

	d, err = r.GetByID("nope")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if d != nil {
		t.Fatalf("GetByID(nope) = %+v, want nil", d)
	}
}

func TestFileDeviceRegistryGroupByFloor(t *testing.T) {
	r := testRegistry(t)
	if err := r.Save([]plgmodels.Device{
		{ID: "a", Building: "FUB", Floor: "1"},
		{ID: "b", Building: "FUB", Floor: "1"},
		{ID: "c", Building: "FUB", Floor: "2"},
		{ID: "d"}, // missing fields fall back to FUB-Unknown
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	floors, err := r.GroupByFloor()
	if err != nil {
		t.Fatalf("GroupByFloor: %v", err)
	}
	if len(floors["FUB-1"]) != 2 {
		t.Errorf("FUB-1 has %d devices, want 2", len(floors["FUB-1"]))
	}
	if len(floors["FUB-2"]) != 1 {
		t.Errorf("FUB-2 has %d devices, want 1", len(floors["FUB-2"]))
	}
	if len(floors["FUB-Unknown"]) != 1 {
		t.Errorf("FUB-Unknown has %d devices, want 1", len(floors["FUB-Unknown"]))
	}
}
