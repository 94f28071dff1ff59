package tuya

// Metrics is the decoded electrical telemetry of one status response.
type Metrics struct {
	Voltage   float64 // V
	Current   float64 // A
	Power     float64 // W
	EnergyKWh float64 // kWh, cumulative counter
}

// Raw datapoint scaling: cur_voltage and cur_power are reported in tenths,
// cur_current in mA, add_ele in Wh. Missing codes decode as zero.
func ParseMetrics(status *StatusResponse) Metrics {
	values := map[string]float64{}
	for _, dp := range status.Result {
		values[dp.Code] = toFloat(dp.Value)
	}

	return Metrics{
		Voltage:   values["cur_voltage"] / 10.0,
		Power:     values["cur_power"] / 10.0,
		Current:   values["cur_current"] / 1000.0,
		EnergyKWh: values["add_ele"] / 1000.0,
	}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return 0
	}
}
