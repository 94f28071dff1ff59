package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	billing "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Billing"
	logger "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Logger"
	plgmodels "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Models"
	interfaces "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Repository/Interfaces"
)

// BillingController exposes consumption totals, bills and combined time
// series to the dashboard
type BillingController struct {
	aggregator *billing.Aggregator
	registry   interfaces.DeviceRegistry
	logger     *logger.Logger
}

// NewBillingController creates a new billing controller
func NewBillingController(aggregator *billing.Aggregator, registry interfaces.DeviceRegistry, logger *logger.Logger) *BillingController {
	return &BillingController{
		aggregator: aggregator,
		registry:   registry,
		logger:     logger,
	}
}

// RegisterRoutes registers the billing routes with Gin
func (c *BillingController) RegisterRoutes(dashboard *gin.RouterGroup) {
	dashboard.GET("/devices/:device_id/billing", c.DeviceBilling)
	dashboard.GET("/billing/totals", c.Totals)
	dashboard.GET("/billing/timeseries", c.TimeSeries)
}

func (c *BillingController) DeviceBilling(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.aggregator.DailyMonthlyFor(ctx, ctx.Param("device_id")))
}

func (c *BillingController) Totals(ctx *gin.Context) {
	devices, err := c.registry.Load()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, c.aggregator.AggregateTotals(ctx, devices))
}

// TimeSeries returns the combined multi-device series, either over the last
// N hours (default 24) or over one local calendar day when date=YYYY-MM-DD
// is given.
func (c *BillingController) TimeSeries(ctx *gin.Context) {
	devices, err := c.registry.Load()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	interval, err := time.ParseDuration(ctx.DefaultQuery("interval", "5m"))
	if err != nil || interval <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid interval"})
		return
	}

	var start, end time.Time
	if dateStr := ctx.Query("date"); dateStr != "" {
		day, err := time.ParseInLocation("2006-01-02", dateStr, plgmodels.LocalZone)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
			return
		}
		start, end = billing.LocalDayWindow(day.Year(), day.Month(), day.Day())
	} else {
		hours, err := strconv.Atoi(ctx.DefaultQuery("hours", "24"))
		if err != nil || hours <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid hours"})
			return
		}
		end = time.Now().UTC()
		start = end.Add(-time.Duration(hours) * time.Hour)
	}

	ctx.JSON(http.StatusOK, c.aggregator.TimeSeries(ctx, devices, start, end, interval))
}
