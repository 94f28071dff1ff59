package collector

import (
	"context"
	"fmt"
	"time"

	logger "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Logger"
	plgmodels "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Models"
	interfaces "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Repository/Interfaces"
	tuya "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Tuya"
)

// TelemetrySource is the cloud telemetry capability the collector polls.
type TelemetrySource interface {
	Authenticate(ctx context.Context) (string, error)
	ReadStatus(ctx context.Context, deviceID, token string) (*tuya.StatusResponse, error)
}

// Collector polls every registered plug at a fixed interval and appends the
// decoded readings to the store. The registry is reloaded each cycle so
// newly registered plugs are picked up without a restart.
type Collector struct {
	registry interfaces.DeviceRegistry
	readings interfaces.ReadingRepository
	source   TelemetrySource
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time
}

// New creates a collector. A nil now func defaults to time.Now.
func New(
	registry interfaces.DeviceRegistry,
	readings interfaces.ReadingRepository,
	source TelemetrySource,
	log *logger.Logger,
	interval time.Duration,
	now func() time.Time,
) *Collector {
	if now == nil {
		now = time.Now
	}
	return &Collector{
		registry: registry,
		readings: readings,
		source:   source,
		log:      log,
		interval: interval,
		now:      now,
	}
}

// Run polls until the context is cancelled.
func (c *Collector) Run(ctx context.Context) {
	c.log.WithField("interval", c.interval.String()).Info("collector starting")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collectCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			c.log.Info("collector stopped")
			return
		case <-ticker.C:
			c.collectCycle(ctx)
		}
	}
}

func (c *Collector) collectCycle(ctx context.Context) {
	devices, err := c.registry.Load()
	if err != nil {
		c.log.ErrorWithError(err, "collector: failed to load device registry")
		return
	}
	if len(devices) == 0 {
		c.log.Warn("collector: no devices registered")
		return
	}

	for _, d := range devices {
		if d.ID == "" {
			c.log.WithField("device", d.Name).Warn("collector: skipping device with missing id")
			continue
		}
		if _, err := c.CollectOnce(ctx, d); err != nil {
			c.log.WithField("device_id", d.ID).ErrorWithError(err, "collector: poll failed")
		}
	}
}

// CollectOnce fetches, decodes and stores a single reading for one device.
// The API layer also calls this to refresh a device on demand.
func (c *Collector) CollectOnce(ctx context.Context, device plgmodels.Device) (plgmodels.Reading, error) {
	token, err := c.source.Authenticate(ctx)
	if err != nil {
		return plgmodels.Reading{}, fmt.Errorf("authentication failed: %w", err)
	}

	status, err := c.source.ReadStatus(ctx, device.ID, token)
	if err != nil {
		return plgmodels.Reading{}, fmt.Errorf("status read failed: %w", err)
	}

	metrics := tuya.ParseMetrics(status)
	reading := plgmodels.Reading{
		Timestamp:  c.now().UTC(),
		DeviceID:   device.ID,
		DeviceName: device.Name,
		Voltage:    metrics.Voltage,
		Current:    metrics.Current,
		Power:      metrics.Power,
		EnergyKWh:  metrics.EnergyKWh,
	}

	if err := c.readings.Insert(ctx, device.ID, reading); err != nil {
		return plgmodels.Reading{}, fmt.Errorf("insert failed: %w", err)
	}
	return reading, nil
}
