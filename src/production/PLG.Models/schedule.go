package plgmodels

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Schedule actions and kinds. Weekday numbering follows time.Weekday
// (Sunday = 0).
const (
	ActionOn  = "on"
	ActionOff = "off"

	KindOnce   = "once"
	KindWeekly = "weekly"
)

// Schedule describes a desired ON/OFF actuation, either one-time or
// weekly-recurring. LastRunAt is written only by the executor and only moves
// forward; a once schedule stays in the store, inert, after it fires.
type Schedule struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	DeviceID   string             `bson:"device_id" json:"device_id"`
	DeviceName string             `bson:"device_name" json:"device_name"`
	Building   string             `bson:"building" json:"building"`
	Floor      string             `bson:"floor" json:"floor"`
	Room       string             `bson:"room" json:"room"`
	Action     string             `bson:"action" json:"action"`
	Kind       string             `bson:"kind" json:"kind"`
	TimeStr    string             `bson:"time_str" json:"time_str"`
	Date       string             `bson:"date,omitempty" json:"date,omitempty"`
	Weekdays   []int              `bson:"weekdays,omitempty" json:"weekdays,omitempty"`
	IsActive   bool               `bson:"is_active" json:"is_active"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	LastRunAt  *time.Time         `bson:"last_run_at" json:"last_run_at"`
}

// ScheduleLog is one append-only execution record. It is never read back
// into scheduling decisions.
type ScheduleLog struct {
	ID         primitive.ObjectID     `bson:"_id,omitempty" json:"id,omitempty"`
	ScheduleID primitive.ObjectID     `bson:"schedule_id" json:"schedule_id"`
	DeviceID   string                 `bson:"device_id" json:"device_id"`
	Action     string                 `bson:"action" json:"action"`
	ExecutedAt time.Time              `bson:"executed_at" json:"executed_at"`
	Result     map[string]interface{} `bson:"result" json:"result"`
}

// NewSchedule validates and builds a schedule record. Malformed input is
// rejected here, at the boundary, so the store never holds a record the
// due-check scan cannot interpret.
func NewSchedule(device Device, action, kind, timeStr, date string, weekdays []int, now time.Time) (Schedule, error) {
	if action != ActionOn && action != ActionOff {
		return Schedule{}, fmt.Errorf("action must be %q or %q", ActionOn, ActionOff)
	}
	if kind != KindOnce && kind != KindWeekly {
		return Schedule{}, fmt.Errorf("kind must be %q or %q", KindOnce, KindWeekly)
	}
	if _, _, err := ParseTimeOfDay(timeStr); err != nil {
		return Schedule{}, fmt.Errorf("invalid time of day %q: %w", timeStr, err)
	}

	s := Schedule{
		DeviceID:   device.ID,
		DeviceName: device.Name,
		Building:   device.Building,
		Floor:      device.Floor,
		Room:       device.Room,
		Action:     action,
		Kind:       kind,
		TimeStr:    timeStr,
		IsActive:   true,
		CreatedAt:  now,
	}

	switch kind {
	case KindOnce:
		if date == "" {
			return Schedule{}, fmt.Errorf("date is required for a one-time schedule")
		}
		if _, err := time.ParseInLocation("2006-01-02", date, LocalZone); err != nil {
			return Schedule{}, fmt.Errorf("invalid date %q: %w", date, err)
		}
		if len(weekdays) > 0 {
			return Schedule{}, fmt.Errorf("weekdays are not allowed for a one-time schedule")
		}
		s.Date = date
	case KindWeekly:
		if date != "" {
			return Schedule{}, fmt.Errorf("date is not allowed for a weekly schedule")
		}
		if len(weekdays) == 0 {
			return Schedule{}, fmt.Errorf("weekdays are required for a weekly schedule")
		}
		for _, wd := range weekdays {
			if wd < 0 || wd > 6 {
				return Schedule{}, fmt.Errorf("weekday %d out of range 0..6", wd)
			}
		}
		s.Weekdays = weekdays
	}

	return s, nil
}

// ParseTimeOfDay parses "HH:MM" into hour and minute.
func ParseTimeOfDay(s string) (int, int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want HH:MM")
	}
	hh, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	mm, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, 0, fmt.Errorf("out of range")
	}
	return hh, mm, nil
}
