package interfaces

import (
	"context"
	"time"

	plgmodels "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Models"
)

// ScheduleRepository persists actuation schedules.
type ScheduleRepository interface {
	// Create stores a new schedule and returns its id.
	Create(ctx context.Context, schedule plgmodels.Schedule) (string, error)

	// List returns schedules sorted by created_at descending. An empty
	// deviceID returns all schedules.
	List(ctx context.Context, deviceID string) ([]plgmodels.Schedule, error)

	// ListActive returns all schedules with is_active set.
	ListActive(ctx context.Context) ([]plgmodels.Schedule, error)

	// SetActive toggles a schedule's activation state.
	SetActive(ctx context.Context, id string, active bool) error

	// SetLastRun advances the last-run marker. Only the executor calls
	// this, and only forward. The write is unconditional; a multi-instance
	// deployment would need a conditional update keyed on the previous
	// marker value to rule out double actuation.
	SetLastRun(ctx context.Context, id string, t time.Time) error

	// Delete removes a schedule.
	Delete(ctx context.Context, id string) error
}

// ScheduleLogRepository appends execution audit entries. The log is never
// read back into scheduling decisions.
type ScheduleLogRepository interface {
	Append(ctx context.Context, entry plgmodels.ScheduleLog) error
}
