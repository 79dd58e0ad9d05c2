package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/lavapop/campaign-service/environments"
	"github.com/lavapop/campaign-service/internal/scheduler"
	"github.com/lavapop/campaign-service/pkg/response"
	"github.com/lavapop/campaign-service/pkg/validator"
)

type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
	ctx       context.Context
	config    *environments.Config
}

type StartSchedulerRequest struct {
	Interval *int `json:"interval,omitempty" validate:"omitempty,min=1"`
}

func NewSchedulerHandler(
	sched *scheduler.Scheduler,
	ctx context.Context,
	cfg *environments.Config,
) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: sched,
		ctx:       ctx,
		config:    cfg,
	}
}

// StartScheduler godoc
// @Summary Start the dispatch scheduler
// @Description Starts the periodic dispatch tick and ledger sweeps with an optional interval override
// @Tags scheduler
// @Accept json
// @Produce json
// @Param x-lp-auth-key header string true "API key for dispatch"
// @Param request body StartSchedulerRequest false "Scheduler parameters (optional)"
// @Success 200 {object} response.SuccessResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/scheduler/start [post]
func (h *SchedulerHandler) StartScheduler(c echo.Context) error {
	if h.scheduler.IsRunning() {
		return response.OkWithMessage(c, "Scheduler is already running", h.scheduler.GetStatus())
	}

	var req StartSchedulerRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	intervalMinutes := int(h.config.Dispatch.TickInterval.Minutes())
	if intervalMinutes <= 0 {
		intervalMinutes = 5
	}
	if req.Interval != nil {
		intervalMinutes = *req.Interval
	}

	alertWebhook := h.config.Alert.WebhookURL
	alertThreshold := h.config.Alert.IterationCount

	if err := h.scheduler.StartWithParams(
		h.ctx,
		intervalMinutes,
		alertWebhook,
		alertThreshold,
	); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Scheduler started successfully", h.scheduler.GetStatus())
}

// StopScheduler godoc
// @Summary Stop the dispatch scheduler
// @Tags scheduler
// @Accept json
// @Produce json
// @Param x-lp-auth-key header string true "API key for dispatch"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/scheduler/stop [post]
func (h *SchedulerHandler) StopScheduler(c echo.Context) error {
	if !h.scheduler.IsRunning() {
		return response.OkWithMessage(c, "Scheduler is already stopped", h.scheduler.GetStatus())
	}

	if err := h.scheduler.Stop(); err != nil {
		return response.InternalServerError(c, err)
	}

	return response.OkWithMessage(c, "Scheduler stopped successfully", h.scheduler.GetStatus())
}

// GetSchedulerStatus godoc
// @Summary Get scheduler status
// @Tags scheduler
// @Accept json
// @Produce json
// @Param x-lp-auth-key header string true "API key for dispatch"
// @Success 200 {object} response.SuccessResponse
// @Router /api/v1/scheduler/status [get]
func (h *SchedulerHandler) GetSchedulerStatus(c echo.Context) error {
	return response.Ok(c, h.scheduler.GetStatus())
}
