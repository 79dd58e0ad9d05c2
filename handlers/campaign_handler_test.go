package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/lavapop/campaign-service/pkg/response"
	validatorpkg "github.com/lavapop/campaign-service/pkg/validator"
)

// TestScheduleCampaign_BadJSON verifies that invalid JSON returns 400 Bad Request.
func TestScheduleCampaign_BadJSON(t *testing.T) {
	e := echo.New()
	// Validator is not needed here because Bind will fail before Validate is called.
	handler := NewCampaignHandler(nil)

	reqBody := `{"campaignId": 1, "messageBody":`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns", strings.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.ScheduleCampaign(c)
	if err != nil {
		t.Fatalf("ScheduleCampaign returned error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	var resp response.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}

	if resp.Success {
		t.Fatalf("expected Success=false, got true")
	}
	if resp.Error == "" {
		t.Fatalf("expected Error to be non-empty")
	}
}

// TestScheduleCampaign_UnknownCampaignType verifies that a campaign type
// outside the allowed set returns 422 Unprocessable Entity.
func TestScheduleCampaign_UnknownCampaignType(t *testing.T) {
	e := echo.New()
	e.Validator = validatorpkg.New()

	// service is nil on purpose; validation must fail before service is called.
	handler := NewCampaignHandler(nil)

	reqBody := `{
		"campaignId": 1,
		"campaignType": "spam",
		"messageBody": "Oi {{name}}!",
		"scheduledFor": "2026-09-01T10:00:00Z"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns", strings.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.ScheduleCampaign(c)
	if err != nil {
		t.Fatalf("ScheduleCampaign returned error: %v", err)
	}

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rec.Code)
	}

	var resp validatorpkg.ValidationErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}

	if resp.Success {
		t.Fatalf("expected Success=false, got true")
	}
	if resp.Error != "Validation failed" {
		t.Fatalf("expected Error=%q, got %q", "Validation failed", resp.Error)
	}
	if _, ok := resp.Details["campaignType"]; !ok {
		t.Fatalf("expected Details to contain 'campaignType' key")
	}
}

// TestScheduleCampaign_RecipientMissingPhone verifies that the dive
// validation on recipients surfaces the nested field error.
func TestScheduleCampaign_RecipientMissingPhone(t *testing.T) {
	e := echo.New()
	e.Validator = validatorpkg.New()
	handler := NewCampaignHandler(nil)

	reqBody := `{
		"campaignId": 1,
		"messageBody": "Oi!",
		"recipients": [{"name": "Maria"}],
		"scheduledFor": "2026-09-01T10:00:00Z"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns", strings.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.ScheduleCampaign(c); err != nil {
		t.Fatalf("ScheduleCampaign returned error: %v", err)
	}

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rec.Code)
	}
}

// TestGetCampaign_InvalidID verifies that non-numeric path IDs return 400.
func TestGetCampaign_InvalidID(t *testing.T) {
	e := echo.New()
	handler := NewCampaignHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	if err := handler.GetCampaign(c); err != nil {
		t.Fatalf("GetCampaign returned error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

// TestGetCampaigns_BadPagination verifies page/pageSize query validation.
func TestGetCampaigns_BadPagination(t *testing.T) {
	e := echo.New()
	handler := NewCampaignHandler(nil)

	cases := []struct {
		name  string
		query string
	}{
		{"negative page", "page=-1"},
		{"zero page", "page=0"},
		{"oversized pageSize", "pageSize=500"},
		{"non-numeric pageSize", "pageSize=lots"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns?"+tc.query, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := handler.GetCampaigns(c); err != nil {
				t.Fatalf("GetCampaigns returned error: %v", err)
			}

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}
}
