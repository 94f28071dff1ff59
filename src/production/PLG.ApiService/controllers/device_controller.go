package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	collector "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Collector"
	logger "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Logger"
	plgmodels "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Models"
	interfaces "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Repository/Interfaces"
	scheduler "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Scheduler"
)

// DeviceController handles device registry and manual control requests
type DeviceController struct {
	registry  interfaces.DeviceRegistry
	commander scheduler.DeviceCommander
	collector *collector.Collector
	logger    *logger.Logger
}

// NewDeviceController creates a new device controller
func NewDeviceController(registry interfaces.DeviceRegistry, commander scheduler.DeviceCommander, coll *collector.Collector, logger *logger.Logger) *DeviceController {
	return &DeviceController{
		registry:  registry,
		commander: commander,
		collector: coll,
		logger:    logger,
	}
}

// RegisterRoutes registers the device routes with Gin
func (c *DeviceController) RegisterRoutes(router *gin.Engine, dashboard *gin.RouterGroup) {
	dashboard.GET("/devices", c.ListDevices)
	dashboard.GET("/devices/grouped", c.ListDevicesGrouped)
	dashboard.GET("/devices/:device_id", c.GetDevice)
	router.POST("/devices", c.RegisterDevice)
	router.PUT("/devices", c.OverwriteDevices)
	router.POST("/devices/:device_id/switch", c.SwitchDevice)
	router.POST("/devices/:device_id/refresh", c.RefreshDevice)
}

func (c *DeviceController) ListDevices(ctx *gin.Context) {
	devices, err := c.registry.Load()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, devices)
}

func (c *DeviceController) ListDevicesGrouped(ctx *gin.Context) {
	floors, err := c.registry.GroupByFloor()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, floors)
}

func (c *DeviceController) GetDevice(ctx *gin.Context) {
	device, err := c.registry.GetByID(ctx.Param("device_id"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if device == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	ctx.JSON(http.StatusOK, device)
}

type RegisterDeviceRequest struct {
	ID       string `json:"id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Building string `json:"building"`
	Floor    string `json:"floor"`
	Room     string `json:"room"`
	Capacity int    `json:"capacity"`
}

func (c *DeviceController) RegisterDevice(ctx *gin.Context) {
	var req RegisterDeviceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	devices, err := c.registry.Load()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	device := plgmodels.Device{
		ID:       req.ID,
		Name:     req.Name,
		Building: req.Building,
		Floor:    req.Floor,
		Room:     req.Room,
		Capacity: req.Capacity,
	}
	devices = append(devices, device)

	if err := c.registry.Save(devices); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, device)
}

// OverwriteDevices replaces the whole registry. Removing a device from the
// submitted list deletes it; there is no partial update.
func (c *DeviceController) OverwriteDevices(ctx *gin.Context) {
	var devices []plgmodels.Device
	if err := ctx.ShouldBindJSON(&devices); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := c.registry.Save(devices); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, devices)
}

type SwitchDeviceRequest struct {
	On *bool `json:"on" binding:"required"`
}

// SwitchDevice drives the plug relay directly, the manual ON/OFF buttons of
// the dashboard.
func (c *DeviceController) SwitchDevice(ctx *gin.Context) {
	deviceID := ctx.Param("device_id")

	var req SwitchDeviceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := c.commander.Authenticate(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	result, err := c.commander.SendCommand(ctx, deviceID, token, "switch_1", *req.On)
	if err != nil {
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// RefreshDevice polls one device immediately and stores the reading, so the
// device page shows live data without waiting for the collector interval.
func (c *DeviceController) RefreshDevice(ctx *gin.Context) {
	device, err := c.registry.GetByID(ctx.Param("device_id"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if device == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}

	reading, err := c.collector.CollectOnce(ctx, *device)
	if err != nil {
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, reading)
}
