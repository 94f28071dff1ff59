package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	logger "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Logger"
	interfaces "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Repository/Interfaces"
)

// ReadingController serves raw telemetry readings
type ReadingController struct {
	readings interfaces.ReadingRepository
	logger   *logger.Logger
}

// NewReadingController creates a new reading controller
func NewReadingController(readings interfaces.ReadingRepository, logger *logger.Logger) *ReadingController {
	return &ReadingController{readings: readings, logger: logger}
}

// RegisterRoutes registers the reading routes with Gin
func (c *ReadingController) RegisterRoutes(dashboard *gin.RouterGroup) {
	dashboard.GET("/devices/:device_id/readings/latest", c.LatestReadings)
}

func (c *ReadingController) LatestReadings(ctx *gin.Context) {
	n, err := strconv.ParseInt(ctx.DefaultQuery("n", "50"), 10, 64)
	if err != nil || n <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid n"})
		return
	}

	readings, err := c.readings.Latest(ctx, ctx.Param("device_id"), n)
	if err != nil {
		// Connectivity failure degrades to "no data" for the dashboard.
		c.logger.ErrorWithError(err, "failed to load latest readings")
		ctx.JSON(http.StatusOK, []struct{}{})
		return
	}
	ctx.JSON(http.StatusOK, readings)
}
