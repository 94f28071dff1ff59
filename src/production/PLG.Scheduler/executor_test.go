package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	logger "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Logger"
	plgmodels "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Models"
)

// memScheduleRepo is an in-memory schedule store. SetLastRun mutates the
// stored record so that a subsequent scan observes the advanced marker, the
// same way the real store behaves.
type memScheduleRepo struct {
	mu        sync.Mutex
	schedules map[string]*plgmodels.Schedule
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{schedules: map[string]*plgmodels.Schedule{}}
}

func (m *memScheduleRepo) Create(ctx context.Context, s plgmodels.Schedule) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	cp := s
	m.schedules[s.ID.Hex()] = &cp
	return s.ID.Hex(), nil
}

func (m *memScheduleRepo) List(ctx context.Context, deviceID string) ([]plgmodels.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []plgmodels.Schedule
	for _, s := range m.schedules {
		if deviceID == "" || s.DeviceID == deviceID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memScheduleRepo) ListActive(ctx context.Context) ([]plgmodels.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []plgmodels.Schedule
	for _, s := range m.schedules {
		if s.IsActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memScheduleRepo) SetActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return errors.New("not found")
	}
	s.IsActive = active
	return nil
}

func (m *memScheduleRepo) SetLastRun(ctx context.Context, id string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return errors.New("not found")
	}
	s.LastRunAt = &t
	return nil
}

func (m *memScheduleRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.schedules, id)
	return nil
}

func (m *memScheduleRepo) get(id string) plgmodels.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.schedules[id]
}

type memLogRepo struct {
	mu      sync.Mutex
	entries []plgmodels.ScheduleLog
}

func (m *memLogRepo) Append(ctx context.Context, entry plgmodels.ScheduleLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memLogRepo) all() []plgmodels.ScheduleLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]plgmodels.ScheduleLog(nil), m.entries...)
}

// fakeCommander counts actuation attempts and can be told to fail.
type fakeCommander struct {
	mu    sync.Mutex
	sends int
	fail  bool

	lastDevice string
	lastValue  interface{}
}

func (f *fakeCommander) Authenticate(ctx context.Context) (string, error) {
	return "test-token", nil
}

func (f *fakeCommander) SendCommand(ctx context.Context, deviceID, token, code string, value interface{}) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	f.lastDevice = deviceID
	f.lastValue = value
	if f.fail {
		return nil, errors.New("cloud unreachable")
	}
	return map[string]interface{}{"success": true}, nil
}

func (f *fakeCommander) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends
}

func testDevice() plgmodels.Device {
	return plgmodels.Device{ID: "plug-1", Name: "AC Unit", Building: "FUB", Floor: "3", Room: "301"}
}

// testHarness wires an executor against in-memory stores with a mutable clock.
type testHarness struct {
	repo *memScheduleRepo
	logs *memLogRepo
	cmd  *fakeCommander
	exec *Executor

	mu  sync.Mutex
	now time.Time
}

func newHarness(t *testing.T, start time.Time, retryOnFailure bool) *testHarness {
	t.Helper()
	h := &testHarness{
		repo: newMemScheduleRepo(),
		logs: &memLogRepo{},
		cmd:  &fakeCommander{},
		now:  start,
	}
	h.exec = NewExecutor(h.repo, h.logs, h.cmd, logger.GetGlobalLogger(), retryOnFailure, func() time.Time {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.now
	})
	return h
}

func (h *testHarness) setNow(t time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = t
}

func (h *testHarness) create(t *testing.T, action, kind, timeStr, date string, weekdays []int) string {
	t.Helper()
	s, err := plgmodels.NewSchedule(testDevice(), action, kind, timeStr, date, weekdays, h.now)
	if err != nil {
		t.Fatalf("NewSchedule: %v", err)
	}
	id, err := h.repo.Create(context.Background(), s)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return id
}

// 2026-01-15 is a Thursday (weekday 4).
var thursdayNoon = time.Date(2026, 1, 15, 12, 0, 0, 0, plgmodels.LocalZone)

func TestOnceFiresExactlyOnce(t *testing.T) {
	h := newHarness(t, thursdayNoon, false)
	id := h.create(t, plgmodels.ActionOn, plgmodels.KindOnce, "12:00", "2026-01-15", nil)

	for i := 0; i < 5; i++ {
		h.exec.RunDueSchedules(context.Background())
	}

	if got := h.cmd.sendCount(); got != 1 {
		t.Fatalf("sent %d commands, want exactly 1", got)
	}
	if h.repo.get(id).LastRunAt == nil {
		t.Fatal("last-run marker was not advanced")
	}
	if h.cmd.lastValue != true {
		t.Errorf("switch value = %v, want true for %q", h.cmd.lastValue, plgmodels.ActionOn)
	}
	if entries := h.logs.all(); len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
}

func TestOncePastDateStillFires(t *testing.T) {
	// The occurrence was yesterday; the app may have been offline then. It
	// still fires on the next scan.
	h := newHarness(t, thursdayNoon, false)
	h.create(t, plgmodels.ActionOff, plgmodels.KindOnce, "08:30", "2026-01-14", nil)

	h.exec.RunDueSchedules(context.Background())

	if got := h.cmd.sendCount(); got != 1 {
		t.Fatalf("sent %d commands, want 1", got)
	}
	if h.cmd.lastValue != false {
		t.Errorf("switch value = %v, want false for %q", h.cmd.lastValue, plgmodels.ActionOff)
	}
}

func TestOnceNotDueBeforeOccurrence(t *testing.T) {
	h := newHarness(t, thursdayNoon, false)
	h.create(t, plgmodels.ActionOn, plgmodels.KindOnce, "18:00", "2026-01-15", nil)

	h.exec.RunDueSchedules(context.Background())
	if got := h.cmd.sendCount(); got != 0 {
		t.Fatalf("sent %d commands before the occurrence, want 0", got)
	}

	// At the exact occurrence minute the schedule is due (inclusive bound).
	h.setNow(time.Date(2026, 1, 15, 18, 0, 0, 0, plgmodels.LocalZone))
	h.exec.RunDueSchedules(context.Background())
	if got := h.cmd.sendCount(); got != 1 {
		t.Fatalf("sent %d commands at the occurrence, want 1", got)
	}
}

func TestWeeklySameDayGuard(t *testing.T) {
	h := newHarness(t, thursdayNoon, false)
	h.create(t, plgmodels.ActionOn, plgmodels.KindWeekly, "09:00", "", []int{4})

	for i := 0; i < 10; i++ {
		h.setNow(thursdayNoon.Add(time.Duration(i) * 30 * time.Minute))
		h.exec.RunDueSchedules(context.Background())
	}
	if got := h.cmd.sendCount(); got != 1 {
		t.Fatalf("sent %d commands on the same day, want 1", got)
	}

	// Next Thursday it fires again.
	h.setNow(thursdayNoon.AddDate(0, 0, 7))
	h.exec.RunDueSchedules(context.Background())
	if got := h.cmd.sendCount(); got != 2 {
		t.Fatalf("sent %d commands after a week, want 2", got)
	}
}

func TestWeeklyWrongWeekdayNotDue(t *testing.T) {
	h := newHarness(t, thursdayNoon, false)
	h.create(t, plgmodels.ActionOn, plgmodels.KindWeekly, "09:00", "", []int{1, 3})

	h.exec.RunDueSchedules(context.Background())
	if got := h.cmd.sendCount(); got != 0 {
		t.Fatalf("sent %d commands on a non-selected weekday, want 0", got)
	}
}

func TestInactiveNeverFires(t *testing.T) {
	h := newHarness(t, thursdayNoon, false)
	id := h.create(t, plgmodels.ActionOn, plgmodels.KindOnce, "12:00", "2026-01-15", nil)
	if err := h.repo.SetActive(context.Background(), id, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	h.exec.RunDueSchedules(context.Background())
	if got := h.cmd.sendCount(); got != 0 {
		t.Fatalf("sent %d commands for an inactive schedule, want 0", got)
	}
}

func TestFailedCommandDefaultAdvancesMarker(t *testing.T) {
	h := newHarness(t, thursdayNoon, false)
	id := h.create(t, plgmodels.ActionOn, plgmodels.KindOnce, "12:00", "2026-01-15", nil)
	h.cmd.fail = true

	h.exec.RunDueSchedules(context.Background())
	h.exec.RunDueSchedules(context.Background())

	// One attempt only: the marker advanced despite the failure.
	if got := h.cmd.sendCount(); got != 1 {
		t.Fatalf("attempted %d commands, want 1", got)
	}
	if h.repo.get(id).LastRunAt == nil {
		t.Fatal("marker must advance on failure in the default mode")
	}

	entries := h.logs.all()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	if _, ok := entries[0].Result["error"]; !ok {
		t.Errorf("log result = %v, want an error field", entries[0].Result)
	}
}

func TestFailedCommandRetryOnFailure(t *testing.T) {
	h := newHarness(t, thursdayNoon, true)
	id := h.create(t, plgmodels.ActionOn, plgmodels.KindOnce, "12:00", "2026-01-15", nil)
	h.cmd.fail = true

	h.exec.RunDueSchedules(context.Background())
	h.exec.RunDueSchedules(context.Background())
	if got := h.cmd.sendCount(); got != 2 {
		t.Fatalf("attempted %d commands, want a retry on every scan", got)
	}
	if h.repo.get(id).LastRunAt != nil {
		t.Fatal("marker must stay unset while the command keeps failing")
	}

	// Once the cloud recovers, the occurrence fires and the marker advances.
	h.cmd.fail = false
	h.exec.RunDueSchedules(context.Background())
	if got := h.cmd.sendCount(); got != 3 {
		t.Fatalf("attempted %d commands, want 3", got)
	}
	if h.repo.get(id).LastRunAt == nil {
		t.Fatal("marker must advance after the command succeeds")
	}
	h.exec.RunDueSchedules(context.Background())
	if got := h.cmd.sendCount(); got != 3 {
		t.Fatalf("fired again after success, attempts = %d", got)
	}
}

func TestMalformedStoredTimeDefaultsToMidnight(t *testing.T) {
	h := newHarness(t, thursdayNoon, false)
	s, err := plgmodels.NewSchedule(testDevice(), plgmodels.ActionOn, plgmodels.KindOnce, "07:00", "2026-01-15", nil, h.now)
	if err != nil {
		t.Fatalf("NewSchedule: %v", err)
	}
	// Corrupt the stored time, bypassing boundary validation.
	s.TimeStr = "not-a-time"
	if _, err := h.repo.Create(context.Background(), s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	h.exec.RunDueSchedules(context.Background())
	if got := h.cmd.sendCount(); got != 1 {
		t.Fatalf("sent %d commands, want 1 (midnight occurrence already past)", got)
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	h := newHarness(t, thursdayNoon, false)
	h.create(t, plgmodels.ActionOff, plgmodels.KindWeekly, "22:30", "", []int{0, 6})

	list, err := h.repo.List(context.Background(), "plug-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d schedules, want 1", len(list))
	}
	s := list[0]
	if s.Action != plgmodels.ActionOff || s.Kind != plgmodels.KindWeekly || s.TimeStr != "22:30" {
		t.Errorf("round-tripped schedule mismatch: %+v", s)
	}
	if !s.IsActive {
		t.Error("new schedule must start active")
	}
	if s.LastRunAt != nil {
		t.Error("new schedule must have no last-run marker")
	}
	if s.DeviceName != "AC Unit" || s.Room != "301" {
		t.Errorf("device snapshot not carried: %+v", s)
	}
}
