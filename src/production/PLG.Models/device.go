package plgmodels

// Device is one registered smart plug. The ID is the cloud-side device
// identifier; uniqueness is advisory, the registry does not enforce it.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Building string `json:"building"`
	Floor    string `json:"floor"`
	Room     string `json:"room"`
	Capacity int    `json:"capacity"`
}

// FloorKey groups devices as "building-floor" for per-floor aggregation.
func (d Device) FloorKey() string {
	building := d.Building
	if building == "" {
		building = "FUB"
	}
	floor := d.Floor
	if floor == "" {
		floor = "Unknown"
	}
	return building + "-" + floor
}
