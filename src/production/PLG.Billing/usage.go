package billing

import (
	"context"
	"sort"
	"time"

	plgmodels "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Models"
	interfaces "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Repository/Interfaces"
)

// Aggregator derives windowed consumption, billing totals and resampled
// time series from the reading store. Read failures degrade to empty data —
// the dashboard shows "no data" rather than an error page.
type Aggregator struct {
	readings interfaces.ReadingRepository
	now      func() time.Time
}

// NewAggregator creates an aggregator. A nil now func defaults to time.Now.
func NewAggregator(readings interfaces.ReadingRepository, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{readings: readings, now: now}
}

// UnitsConsumed derives the energy consumed over a queried window as
// max−min of the cumulative counter. Order of arrival does not matter.
// Known limitation: a counter reset mid-window (device reboot) under-counts
// the window, since max−min ignores ordering.
func UnitsConsumed(readings []plgmodels.Reading) float64 {
	if len(readings) == 0 {
		return 0
	}
	min := readings[0].EnergyKWh
	max := readings[0].EnergyKWh
	for _, r := range readings[1:] {
		if r.EnergyKWh < min {
			min = r.EnergyKWh
		}
		if r.EnergyKWh > max {
			max = r.EnergyKWh
		}
	}
	return max - min
}

// DailyMonthly holds one device's windowed consumption and cost.
type DailyMonthly struct {
	TodayKWh  float64 `json:"today_kWh"`
	TodayCost float64 `json:"today_cost"`
	MonthKWh  float64 `json:"month_kWh"`
	MonthCost float64 `json:"month_cost"`
}

// DailyMonthlyFor computes today's and this month's consumption and bill
// for one device.
func (a *Aggregator) DailyMonthlyFor(ctx context.Context, deviceID string) DailyMonthly {
	now := a.now()

	dayStart, dayEnd := DayWindow(now)
	dayUnits := Round3(a.unitsInWindow(ctx, deviceID, dayStart, dayEnd))

	monthStart, monthEnd := MonthWindow(now)
	monthUnits := Round3(a.unitsInWindow(ctx, deviceID, monthStart, monthEnd))

	return DailyMonthly{
		TodayKWh:  dayUnits,
		TodayCost: Bill(dayUnits),
		MonthKWh:  monthUnits,
		MonthCost: Bill(monthUnits),
	}
}

// Totals is the building-level dashboard summary.
type Totals struct {
	PowerNowW      float64 `json:"power_now_W"`
	PresentVoltage float64 `json:"present_voltage_V"`
	TodayKWh       float64 `json:"today_kWh"`
	TodayCost      float64 `json:"today_cost"`
	MonthKWh       float64 `json:"month_kWh"`
	MonthCost      float64 `json:"month_cost"`
}

// AggregateTotals sums instantaneous power across devices, takes the peak of
// the latest per-device voltages, and bills today's and this month's
// combined consumption once at building level.
func (a *Aggregator) AggregateTotals(ctx context.Context, devices []plgmodels.Device) Totals {
	now := a.now()

	var powerNow float64
	var voltages []float64
	for _, d := range devices {
		latest, err := a.readings.Latest(ctx, d.ID, 1)
		if err != nil || len(latest) == 0 {
			continue
		}
		last := latest[len(latest)-1]
		powerNow += last.Power
		voltages = append(voltages, last.Voltage)
	}

	// Peak phase voltage, not the average: the worst phase is what the
	// operator needs to see.
	presentVoltage := 0.0
	for _, v := range voltages {
		if v > presentVoltage {
			presentVoltage = v
		}
	}

	dayStart, dayEnd := DayWindow(now)
	monthStart, monthEnd := MonthWindow(now)

	var todayKWh, monthKWh float64
	for _, d := range devices {
		todayKWh += a.unitsInWindow(ctx, d.ID, dayStart, dayEnd)
		monthKWh += a.unitsInWindow(ctx, d.ID, monthStart, monthEnd)
	}
	todayKWh = Round3(todayKWh)
	monthKWh = Round3(monthKWh)

	return Totals{
		PowerNowW:      Round2(powerNow),
		PresentVoltage: Round2(presentVoltage),
		TodayKWh:       todayKWh,
		TodayCost:      Bill(todayKWh),
		MonthKWh:       monthKWh,
		MonthCost:      Bill(monthKWh),
	}
}

// TimePoint is one resampled bucket of the combined multi-device series.
type TimePoint struct {
	Timestamp   time.Time `json:"timestamp"`
	PowerSumW   float64   `json:"power_sum_W"`
	VoltageAvgV float64   `json:"voltage_avg_V"`
}

type bucketMean struct {
	power   float64
	voltage float64
}

// TimeSeries resamples each device's readings in [start, end] into
// fixed-width buckets by arithmetic mean, then joins across devices: power
// is summed over the devices that reported in a bucket, voltage is averaged
// over them. Buckets where no device reported are dropped, not emitted as
// zero rows.
func (a *Aggregator) TimeSeries(ctx context.Context, devices []plgmodels.Device, start, end time.Time, interval time.Duration) []TimePoint {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	joined := make(map[time.Time][]bucketMean)
	for _, d := range devices {
		readings, err := a.readings.Range(ctx, d.ID, start, end)
		if err != nil || len(readings) == 0 {
			continue
		}
		for ts, mean := range resample(readings, interval) {
			joined[ts] = append(joined[ts], mean)
		}
	}

	points := make([]TimePoint, 0, len(joined))
	for ts, means := range joined {
		var powerSum, voltageSum float64
		for _, m := range means {
			powerSum += m.power
			voltageSum += m.voltage
		}
		points = append(points, TimePoint{
			Timestamp:   ts,
			PowerSumW:   powerSum,
			VoltageAvgV: voltageSum / float64(len(means)),
		})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points
}

// resample collapses one device's readings into interval-wide buckets,
// keyed by the truncated bucket start, each holding the arithmetic mean of
// power and voltage within the bucket.
func resample(readings []plgmodels.Reading, interval time.Duration) map[time.Time]bucketMean {
	type sums struct {
		power   float64
		voltage float64
		count   int
	}
	buckets := make(map[time.Time]sums)
	for _, r := range readings {
		ts := r.Timestamp.Truncate(interval)
		s := buckets[ts]
		s.power += r.Power
		s.voltage += r.Voltage
		s.count++
		buckets[ts] = s
	}

	means := make(map[time.Time]bucketMean, len(buckets))
	for ts, s := range buckets {
		means[ts] = bucketMean{
			power:   s.power / float64(s.count),
			voltage: s.voltage / float64(s.count),
		}
	}
	return means
}

func (a *Aggregator) unitsInWindow(ctx context.Context, deviceID string, start, end time.Time) float64 {
	readings, err := a.readings.Range(ctx, deviceID, start, end)
	if err != nil {
		return 0
	}
	return UnitsConsumed(readings)
}
