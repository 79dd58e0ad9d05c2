package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lavapop/campaign-service/internal/domain"
	"github.com/lavapop/campaign-service/internal/service"
	"github.com/lavapop/campaign-service/pkg/response"
	"github.com/lavapop/campaign-service/pkg/validator"
)

type CampaignHandler struct {
	service *service.CampaignService
}

func NewCampaignHandler(service *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{service: service}
}

type RecipientRequest struct {
	Phone         string   `json:"phone" validate:"required"`
	Name          string   `json:"name"`
	CustomerID    string   `json:"customerId"`
	WalletBalance *float64 `json:"walletBalance,omitempty"`
}

type ScheduleCampaignRequest struct {
	CampaignID   int64              `json:"campaignId" validate:"required"`
	CampaignType string             `json:"campaignType" validate:"omitempty,oneof=winback welcome wallet promo manual other"`
	MessageBody  string             `json:"messageBody" validate:"required,max=2000"`
	Recipients   []RecipientRequest `json:"recipients" validate:"dive"`
	ScheduledFor time.Time          `json:"scheduledFor" validate:"required"`
	CouponDays   *int               `json:"couponDays,omitempty" validate:"omitempty,min=1"`
}

// ScheduleCampaign godoc
// @Summary Schedule a campaign
// @Description Creates a scheduled campaign to be dispatched once its time arrives
// @Tags campaigns
// @Accept json
// @Produce json
// @Param x-lp-auth-key header string true "API key for campaign authoring"
// @Param campaign body ScheduleCampaignRequest true "Campaign to schedule"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) ScheduleCampaign(c echo.Context) error {
	var req ScheduleCampaignRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	recipients := make(domain.RecipientList, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		recipients = append(recipients, domain.Recipient{
			Phone:         r.Phone,
			Name:          r.Name,
			CustomerID:    r.CustomerID,
			WalletBalance: r.WalletBalance,
		})
	}

	sc := &domain.ScheduledCampaign{
		CampaignID:   req.CampaignID,
		CampaignType: req.CampaignType,
		MessageBody:  req.MessageBody,
		Recipients:   recipients,
		ScheduledFor: req.ScheduledFor,
		CouponDays:   req.CouponDays,
	}

	created, err := h.service.Schedule(c.Request().Context(), sc)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Created(c, "Campaign scheduled successfully", created)
}

// GetCampaigns godoc
// @Summary List scheduled campaigns
// @Description Retrieves a paginated list of scheduled campaigns with optional status filter
// @Tags campaigns
// @Accept json
// @Produce json
// @Param x-lp-auth-key header string true "API key for campaign authoring"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Param status query string false "Filter by status (scheduled, processing, sent, failed, cancelled)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) GetCampaigns(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	statusStr := c.QueryParam("status")

	var status *domain.CampaignStatus
	if statusStr != "" {
		parsedStatus := domain.CampaignStatus(statusStr)
		status = &parsedStatus
	}

	campaigns, totalCount, err := h.service.List(c.Request().Context(), status, page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, campaigns, page, pageSize, totalCount)
}

// GetCampaign godoc
// @Summary Get one scheduled campaign
// @Tags campaigns
// @Accept json
// @Produce json
// @Param x-lp-auth-key header string true "API key for campaign authoring"
// @Param id path int true "Scheduled campaign ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id} [get]
func (h *CampaignHandler) GetCampaign(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	campaign, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	if campaign == nil {
		return response.NotFound(c, fmt.Sprintf("no scheduled campaign with id %d", id))
	}

	return response.Ok(c, campaign)
}

// CancelCampaign godoc
// @Summary Cancel a scheduled campaign
// @Description Cancels a campaign that has not been claimed for dispatch yet
// @Tags campaigns
// @Accept json
// @Produce json
// @Param x-lp-auth-key header string true "API key for campaign authoring"
// @Param id path int true "Scheduled campaign ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/cancel [post]
func (h *CampaignHandler) CancelCampaign(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	if err := h.service.Cancel(c.Request().Context(), id); err != nil {
		// Cancelling a claimed or finished campaign is a caller mistake,
		// not a server failure.
		return response.BadRequest(c, err)
	}

	return response.OkWithMessage(c, "Campaign cancelled", map[string]any{"id": id})
}

// GetSendHistory godoc
// @Summary Get dispatch audit rows for a campaign
// @Tags campaigns
// @Accept json
// @Produce json
// @Param x-lp-auth-key header string true "API key for campaign authoring"
// @Param id path int true "Campaign ID (logical grouping)"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/campaigns/{id}/sends [get]
func (h *CampaignHandler) GetSendHistory(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	audits, err := h.service.GetSendHistory(c.Request().Context(), id)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, audits)
}

func parseIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}

func parsePaginationParams(c echo.Context) (int, int, error) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)

	pageStr := c.QueryParam("page")
	pageSizeStr := c.QueryParam("pageSize")

	// Page
	page := defaultPage
	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
		page = p
	}

	// Page size
	pageSize := defaultPageSize
	if pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 || ps > maxPageSize {
			return 0, 0, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}

		pageSize = ps
	}

	return page, pageSize, nil
}
