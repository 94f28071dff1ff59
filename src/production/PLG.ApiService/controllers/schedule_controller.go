package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	logger "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Logger"
	plgmodels "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Models"
	interfaces "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Repository/Interfaces"
	scheduler "gitlab.com/fubenergy/plug.monitor/src/production/PLG.Scheduler"
)

// ScheduleController handles schedule management requests
type ScheduleController struct {
	schedules interfaces.ScheduleRepository
	registry  interfaces.DeviceRegistry
	executor  *scheduler.Executor
	logger    *logger.Logger
}

// NewScheduleController creates a new schedule controller
func NewScheduleController(schedules interfaces.ScheduleRepository, registry interfaces.DeviceRegistry, executor *scheduler.Executor, logger *logger.Logger) *ScheduleController {
	return &ScheduleController{
		schedules: schedules,
		registry:  registry,
		executor:  executor,
		logger:    logger,
	}
}

// RegisterRoutes registers the schedule routes with Gin
func (c *ScheduleController) RegisterRoutes(router *gin.Engine) {
	router.GET("/schedules", c.ListSchedules)
	router.POST("/schedules", c.CreateSchedule)
	router.PATCH("/schedules/:schedule_id/active", c.SetActive)
	router.DELETE("/schedules/:schedule_id", c.DeleteSchedule)
	router.POST("/schedules/run", c.RunDueSchedules)
}

func (c *ScheduleController) ListSchedules(ctx *gin.Context) {
	schedules, err := c.schedules.List(ctx, ctx.Query("device_id"))
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, schedules)
}

type CreateScheduleRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
	Action   string `json:"action" binding:"required"`
	Kind     string `json:"kind" binding:"required"`
	Time     string `json:"time" binding:"required"`
	Date     string `json:"date,omitempty"`
	Weekdays []int  `json:"weekdays,omitempty"`
}

func (c *ScheduleController) CreateSchedule(ctx *gin.Context) {
	var req CreateScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device, err := c.registry.GetByID(req.DeviceID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if device == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}

	schedule, err := plgmodels.NewSchedule(*device, req.Action, req.Kind, req.Time, req.Date, req.Weekdays, time.Now().In(plgmodels.LocalZone))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Fail closed: if the store is unreachable nothing is persisted and the
	// caller gets a failure, never a half-created schedule.
	id, err := c.schedules.Create(ctx, schedule)
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"id": id})
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func (c *ScheduleController) SetActive(ctx *gin.Context) {
	var req SetActiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := c.schedules.SetActive(ctx, ctx.Param("schedule_id"), *req.IsActive); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"is_active": *req.IsActive})
}

func (c *ScheduleController) DeleteSchedule(ctx *gin.Context) {
	if err := c.schedules.Delete(ctx, ctx.Param("schedule_id")); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"deleted": true})
}

// RunDueSchedules triggers a due-check scan explicitly, for callers that
// poll this endpoint on an interval instead of refreshing dashboard pages.
func (c *ScheduleController) RunDueSchedules(ctx *gin.Context) {
	c.executor.RunDueSchedules(ctx)
	ctx.JSON(http.StatusOK, gin.H{"ran": true})
}
