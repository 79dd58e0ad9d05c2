package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lavapop/campaign-service/internal/domain"
	"github.com/lavapop/campaign-service/internal/repository"
	"github.com/lavapop/campaign-service/internal/service"
	"github.com/lavapop/campaign-service/pkg/response"
	"github.com/lavapop/campaign-service/pkg/validator"
)

type ContactHandler struct {
	attribution *service.AttributionService
	contacts    *repository.ContactRepository
}

func NewContactHandler(attribution *service.AttributionService, contacts *repository.ContactRepository) *ContactHandler {
	return &ContactHandler{
		attribution: attribution,
		contacts:    contacts,
	}
}

type RecordContactRequest struct {
	CustomerID    string `json:"customerId" validate:"required"`
	CampaignType  string `json:"campaignType" validate:"omitempty,oneof=winback welcome wallet promo manual other"`
	ContactMethod string `json:"contactMethod,omitempty"`
}

type ReturnSignalRequest struct {
	CustomerID string     `json:"customerId" validate:"required"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty"`
	Revenue    float64    `json:"revenue" validate:"min=0"`
}

// RecordContact godoc
// @Summary Record a manual contact
// @Description Registers a manual customer contact with single-active-contact semantics
// @Tags contacts
// @Accept json
// @Produce json
// @Param x-lp-auth-key header string true "API key for campaign authoring"
// @Param contact body RecordContactRequest true "Contact to record"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/contacts [post]
func (h *ContactHandler) RecordContact(c echo.Context) error {
	var req RecordContactRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	rec, err := h.attribution.RecordContact(
		c.Request().Context(),
		req.CustomerID, req.CampaignType, req.ContactMethod,
		time.Now(),
	)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Created(c, "Contact recorded", rec)
}

// ClearContact godoc
// @Summary Clear a pending contact
// @Description Manually clears a pending contact so it stops counting toward the cooldown
// @Tags contacts
// @Accept json
// @Produce json
// @Param x-lp-auth-key header string true "API key for campaign authoring"
// @Param id path int true "Contact record ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/contacts/{id}/clear [post]
func (h *ContactHandler) ClearContact(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return response.BadRequest(c, fmt.Errorf("invalid contact record id"))
	}

	if err := h.attribution.ClearContact(c.Request().Context(), id); err != nil {
		return response.BadRequest(c, err)
	}

	return response.OkWithMessage(c, "Contact cleared", map[string]any{"id": id})
}

// IngestReturnSignal godoc
// @Summary Ingest a customer return signal
// @Description Attributes a new customer transaction to the most recent pending contact, if any
// @Tags contacts
// @Accept json
// @Produce json
// @Param x-lp-auth-key header string true "API key for campaign authoring"
// @Param signal body ReturnSignalRequest true "Return signal"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/contacts/returns [post]
func (h *ContactHandler) IngestReturnSignal(c echo.Context) error {
	var req ReturnSignalRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	returnedAt := time.Now()
	if req.ReturnedAt != nil {
		returnedAt = *req.ReturnedAt
	}

	rec, err := h.attribution.RecordReturn(c.Request().Context(), domain.ReturnSignal{
		CustomerID: req.CustomerID,
		ReturnedAt: returnedAt,
		Revenue:    req.Revenue,
	})
	if err != nil {
		return response.InternalServerError(c, err)
	}

	if rec == nil {
		return response.OkWithMessage(c, "No pending contact matched this return", nil)
	}

	return response.OkWithMessage(c, "Return attributed", rec)
}

// GetStats godoc
// @Summary Get contact ledger statistics
// @Description Returns record counts by status and total attributed return revenue
// @Tags contacts
// @Accept json
// @Produce json
// @Param x-lp-auth-key header string true "API key for campaign authoring"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/contacts/stats [get]
func (h *ContactHandler) GetStats(c echo.Context) error {
	stats, err := h.contacts.GetStats(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, stats)
}
