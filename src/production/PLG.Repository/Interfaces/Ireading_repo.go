package interfaces

import (
	"context"
	"time"

	plgmodels "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Models"
)

// ReadingRepository is the time-series storage capability for telemetry
// readings. Readings are append-only and ordered by timestamp per device.
type ReadingRepository interface {
	// Insert appends one reading for a device.
	Insert(ctx context.Context, deviceID string, reading plgmodels.Reading) error

	// Range returns readings with start <= timestamp <= end, sorted
	// ascending by timestamp.
	Range(ctx context.Context, deviceID string, start, end time.Time) ([]plgmodels.Reading, error)

	// Latest returns the most recent n readings, sorted ascending by
	// timestamp.
	Latest(ctx context.Context, deviceID string, n int64) ([]plgmodels.Reading, error)
}
