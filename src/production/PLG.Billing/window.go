package billing

import (
	"time"

	plgmodels "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Models"
)

// Aggregation windows are computed on the building's civil clock (fixed
// UTC+6) and then converted to naive UTC, because the reading store keeps
// zone-less UTC timestamps.

// DayWindow returns [local midnight, local 23:59:59.999999] of now's local
// date, in naive UTC. The day window is inclusive-closed.
func DayWindow(now time.Time) (time.Time, time.Time) {
	local := now.In(plgmodels.LocalZone)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, plgmodels.LocalZone)
	end := start.Add(24*time.Hour - time.Microsecond)
	return toNaiveUTC(start), toNaiveUTC(end)
}

// MonthWindow returns [day 1 local midnight, next month's day 1 local
// midnight) of now's local month, in naive UTC. Unlike the day window this
// one is half-open.
func MonthWindow(now time.Time) (time.Time, time.Time) {
	local := now.In(plgmodels.LocalZone)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, plgmodels.LocalZone)
	end := start.AddDate(0, 1, 0)
	return toNaiveUTC(start), toNaiveUTC(end)
}

// LocalDayWindow is DayWindow for an arbitrary local calendar date, used by
// the history-by-day view.
func LocalDayWindow(year int, month time.Month, day int) (time.Time, time.Time) {
	start := time.Date(year, month, day, 0, 0, 0, 0, plgmodels.LocalZone)
	end := start.Add(24*time.Hour - time.Microsecond)
	return toNaiveUTC(start), toNaiveUTC(end)
}

func toNaiveUTC(t time.Time) time.Time {
	return t.UTC()
}
