package scheduler

import (
	"context"
	"time"

	logger "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Logger"
	plgmodels "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Models"
	interfaces "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Repository/Interfaces"
)

// switchCode is the datapoint code for the plug relay.
const switchCode = "switch_1"

// DeviceCommander is the device-control capability the executor actuates
// through.
type DeviceCommander interface {
	Authenticate(ctx context.Context) (string, error)
	SendCommand(ctx context.Context, deviceID, token, code string, value interface{}) (map[string]interface{}, error)
}

// Executor is the soft scheduler: it is re-entered by whatever triggers a
// refresh, scans all active schedules, fires the due ones and advances
// their last-run markers. Calling it arbitrarily often is safe — the
// once-per-occurrence guards keep a schedule from double-firing.
type Executor struct {
	schedules interfaces.ScheduleRepository
	logs      interfaces.ScheduleLogRepository
	commander DeviceCommander
	log       *logger.Logger

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time

	// retryOnFailure leaves the marker untouched when the actuation
	// command fails, so the occurrence is retried on the next scan. Off by
	// default: the original contract advances the marker regardless.
	retryOnFailure bool
}

// NewExecutor creates a schedule executor. A nil now func defaults to
// time.Now.
func NewExecutor(
	schedules interfaces.ScheduleRepository,
	logs interfaces.ScheduleLogRepository,
	commander DeviceCommander,
	log *logger.Logger,
	retryOnFailure bool,
	now func() time.Time,
) *Executor {
	if now == nil {
		now = time.Now
	}
	return &Executor{
		schedules:      schedules,
		logs:           logs,
		commander:      commander,
		log:            log,
		now:            now,
		retryOnFailure: retryOnFailure,
	}
}

// RunDueSchedules scans all active schedules and fires those whose
// occurrence has arrived. Failures are isolated per schedule; one bad
// record never blocks the rest of the scan.
func (e *Executor) RunDueSchedules(ctx context.Context) {
	nowLocal := e.now().In(plgmodels.LocalZone)

	schedules, err := e.schedules.ListActive(ctx)
	if err != nil {
		e.log.ErrorWithError(err, "due-check: failed to list active schedules")
		return
	}

	for _, s := range schedules {
		if e.dueNow(s, nowLocal) {
			e.fire(ctx, s)
		}
	}
}

// dueNow decides whether a schedule's current occurrence is due and not yet
// run.
func (e *Executor) dueNow(s plgmodels.Schedule, nowLocal time.Time) bool {
	// A malformed stored time defaults to midnight instead of failing the
	// scan; one bad record must not block the others.
	hh, mm, err := plgmodels.ParseTimeOfDay(s.TimeStr)
	if err != nil {
		hh, mm = 0, 0
	}

	switch s.Kind {
	case plgmodels.KindOnce:
		day, err := time.ParseInLocation("2006-01-02", s.Date, plgmodels.LocalZone)
		if err != nil {
			return false
		}
		occurrence := time.Date(day.Year(), day.Month(), day.Day(), hh, mm, 0, 0, plgmodels.LocalZone)
		if nowLocal.Before(occurrence) {
			return false
		}
		// Still fires if the app was offline at the exact moment, as long
		// as it has not already fired for this occurrence.
		return s.LastRunAt == nil || s.LastRunAt.Before(occurrence)

	case plgmodels.KindWeekly:
		if !containsWeekday(s.Weekdays, int(nowLocal.Weekday())) {
			return false
		}
		occurrence := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), hh, mm, 0, 0, plgmodels.LocalZone)
		if nowLocal.Before(occurrence) {
			return false
		}
		// Once-per-calendar-day guard, by date comparison alone. Changing
		// the time of day after a same-day firing will not fire again today.
		return s.LastRunAt == nil || !sameLocalDate(*s.LastRunAt, nowLocal)
	}

	return false
}

// fire issues the actuation command, appends the audit entry and advances
// the last-run marker. The marker write is attempted on every firing; if it
// fails the schedule will fire again on the next scan.
func (e *Executor) fire(ctx context.Context, s plgmodels.Schedule) {
	var result map[string]interface{}
	var cmdErr error

	token, err := e.commander.Authenticate(ctx)
	if err != nil {
		cmdErr = err
	} else {
		result, cmdErr = e.commander.SendCommand(ctx, s.DeviceID, token, switchCode, s.Action == plgmodels.ActionOn)
	}

	if cmdErr != nil {
		// Failure is recorded as the result, never propagated; the scan
		// must complete for the remaining schedules.
		result = map[string]interface{}{"error": cmdErr.Error()}
		e.log.WithField("schedule_id", s.ID.Hex()).
			WithField("device_id", s.DeviceID).
			ErrorWithError(cmdErr, "schedule actuation failed")
	}

	entry := plgmodels.ScheduleLog{
		ScheduleID: s.ID,
		DeviceID:   s.DeviceID,
		Action:     s.Action,
		ExecutedAt: e.now().UTC(),
		Result:     result,
	}
	if err := e.logs.Append(ctx, entry); err != nil {
		e.log.ErrorWithError(err, "failed to append schedule log")
	}

	if cmdErr != nil && e.retryOnFailure {
		return
	}

	if err := e.schedules.SetLastRun(ctx, s.ID.Hex(), e.now()); err != nil {
		e.log.WithField("schedule_id", s.ID.Hex()).
			ErrorWithError(err, "failed to advance last-run marker")
	}
}

func containsWeekday(weekdays []int, wd int) bool {
	for _, d := range weekdays {
		if d == wd {
			return true
		}
	}
	return false
}

func sameLocalDate(a, b time.Time) bool {
	al := a.In(plgmodels.LocalZone)
	bl := b.In(plgmodels.LocalZone)
	return al.Year() == bl.Year() && al.YearDay() == bl.YearDay()
}
