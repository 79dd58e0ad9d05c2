package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lavapop/campaign-service/internal/service"
	"github.com/lavapop/campaign-service/pkg/response"
	"github.com/lavapop/campaign-service/pkg/validator"
)

type EligibilityHandler struct {
	service *service.EligibilityService
}

func NewEligibilityHandler(service *service.EligibilityService) *EligibilityHandler {
	return &EligibilityHandler{service: service}
}

type BatchEligibilityRequest struct {
	CustomerIDs     []string `json:"customerIds" validate:"required,min=1,dive,required"`
	CampaignType    string   `json:"campaignType,omitempty"`
	MinDaysGlobal   int      `json:"minDaysGlobal,omitempty" validate:"omitempty,min=1"`
	MinDaysSameType int      `json:"minDaysSameType,omitempty" validate:"omitempty,min=1"`
}

// CheckEligibility godoc
// @Summary Check contact eligibility for one customer
// @Description Applies the global and same-type cooldown windows to the customer's most recent contact
// @Tags eligibility
// @Accept json
// @Produce json
// @Param x-lp-auth-key header string true "API key for campaign authoring"
// @Param customerId path string true "Customer ID"
// @Param campaignType query string false "Campaign type for the same-type cooldown"
// @Param minDaysGlobal query int false "Global cooldown override in days"
// @Param minDaysSameType query int false "Same-type cooldown override in days"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/eligibility/{customerId} [get]
func (h *EligibilityHandler) CheckEligibility(c echo.Context) error {
	customerID := c.Param("customerId")
	if customerID == "" {
		return response.BadRequest(c, fmt.Errorf("customer id is required"))
	}

	campaignType := c.QueryParam("campaignType")

	minDaysGlobal, err := parseOptionalDays(c.QueryParam("minDaysGlobal"))
	if err != nil {
		return response.BadRequest(c, fmt.Errorf("minDaysGlobal must be a positive integer"))
	}

	minDaysSameType, err := parseOptionalDays(c.QueryParam("minDaysSameType"))
	if err != nil {
		return response.BadRequest(c, fmt.Errorf("minDaysSameType must be a positive integer"))
	}

	verdict := h.service.Evaluate(
		c.Request().Context(),
		customerID, campaignType,
		minDaysGlobal, minDaysSameType,
		time.Now(),
	)

	return response.Ok(c, verdict)
}

// CheckEligibilityBatch godoc
// @Summary Check contact eligibility for many customers
// @Description Evaluates up to the batch cap of customer IDs with one ledger fetch; truncated results carry a flag
// @Tags eligibility
// @Accept json
// @Produce json
// @Param x-lp-auth-key header string true "API key for campaign authoring"
// @Param request body BatchEligibilityRequest true "Customers to evaluate"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/v1/eligibility/batch [post]
func (h *EligibilityHandler) CheckEligibilityBatch(c echo.Context) error {
	var req BatchEligibilityRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	batch := h.service.EvaluateBatch(
		c.Request().Context(),
		req.CustomerIDs, req.CampaignType,
		req.MinDaysGlobal, req.MinDaysSameType,
		time.Now(),
	)

	return response.Ok(c, batch)
}

func parseOptionalDays(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}

	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return 0, fmt.Errorf("invalid day count %q", raw)
	}

	return days, nil
}
