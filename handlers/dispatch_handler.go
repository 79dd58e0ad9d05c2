package handlers

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lavapop/campaign-service/internal/service"
	"github.com/lavapop/campaign-service/pkg/redis"
	"github.com/lavapop/campaign-service/pkg/response"
	"github.com/lavapop/campaign-service/pkg/validator"
)

type DispatchHandler struct {
	dispatch *service.DispatchService
	redis    *redis.Client
}

type RunDispatchRequest struct {
	Limit *int `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

func NewDispatchHandler(dispatch *service.DispatchService, redisClient *redis.Client) *DispatchHandler {
	return &DispatchHandler{
		dispatch: dispatch,
		redis:    redisClient,
	}
}

// RunDispatch godoc
// @Summary Run one dispatch tick
// @Description Claims and executes due campaigns; safe to invoke from an external timer or by hand
// @Tags dispatch
// @Accept json
// @Produce json
// @Param x-lp-auth-key header string true "API key for dispatch"
// @Param request body RunDispatchRequest false "Optional batch limit"
// @Success 200 {object} response.SuccessResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/dispatch/run [post]
func (h *DispatchHandler) RunDispatch(c echo.Context) error {
	var req RunDispatchRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	limit := 0
	if req.Limit != nil {
		limit = *req.Limit
	}

	summary, err := h.dispatch.RunTick(c.Request().Context(), limit, time.Now())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, summary)
}

// ReapStale godoc
// @Summary Fail campaigns stuck in processing
// @Description Transitions processing campaigns older than the configured timeout to failed
// @Tags dispatch
// @Accept json
// @Produce json
// @Param x-lp-auth-key header string true "API key for dispatch"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/dispatch/reap [post]
func (h *DispatchHandler) ReapStale(c echo.Context) error {
	reaped, err := h.dispatch.ReapStale(c.Request().Context(), time.Now())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, map[string]any{
		"reaped": reaped,
	})
}

// GetCachedDispatches godoc
// @Summary Get recent dispatch outcomes from Redis
// @Description Returns the execution outcomes cached after recent dispatches
// @Tags dispatch
// @Accept json
// @Produce json
// @Param x-lp-auth-key header string true "API key for dispatch"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/dispatch/cached [get]
func (h *DispatchHandler) GetCachedDispatches(c echo.Context) error {
	if h.redis == nil {
		return response.InternalServerError(c, fmt.Errorf("redis client not configured"))
	}

	cached, err := h.redis.GetAllDispatchResults(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, cached)
}
