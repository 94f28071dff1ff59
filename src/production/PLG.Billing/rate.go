package billing

import "math"

// Domestic tariff: consumption up to the low-usage threshold is billed at a
// single flat rate; anything above it is billed by walking the full slab
// table from zero. The two regimes are distinct — 50 units cost 50*flatRate,
// 50.01 units re-price the entire consumption through the slabs.
const (
	lowUsageThreshold = 50.0
	lowUsageRate      = 4.633
)

var slabs = []struct {
	upper float64 // cumulative kWh boundary
	rate  float64 // currency per kWh inside the slab
}{
	{75, 5.26},
	{200, 7.20},
	{300, 7.59},
	{400, 8.02},
	{600, 12.67},
	{math.Inf(1), 14.61},
}

// Bill maps consumed energy in kWh to cost. Pure, deterministic and
// monotonically non-decreasing; negative input is clamped to zero.
func Bill(unitsKWh float64) float64 {
	u := math.Max(0, unitsKWh)

	if u <= lowUsageThreshold {
		return Round2(u * lowUsageRate)
	}

	remaining := u
	lastUpper := 0.0
	total := 0.0
	for _, slab := range slabs {
		if remaining <= 0 {
			break
		}
		span := math.Min(remaining, slab.upper-lastUpper)
		if span > 0 {
			total += span * slab.rate
			remaining -= span
			lastUpper = slab.upper
		}
	}

	return Round2(total)
}

// Round2 rounds to 2 decimal places (currency).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round3 rounds to 3 decimal places (kWh).
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
