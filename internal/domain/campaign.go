package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type CampaignStatus string

const (
	CampaignScheduled  CampaignStatus = "scheduled"
	CampaignProcessing CampaignStatus = "processing"
	CampaignSent       CampaignStatus = "sent"
	CampaignFailed     CampaignStatus = "failed"
	CampaignCancelled  CampaignStatus = "cancelled"
)

// Recipient is one entry of a scheduled campaign's recipient list.
// WalletBalance feeds the {{wallet_balance}} placeholder when present.
type Recipient struct {
	Phone         string   `json:"phone"`
	Name          string   `json:"name"`
	CustomerID    string   `json:"customerId"`
	WalletBalance *float64 `json:"walletBalance,omitempty"`
}

// RecipientList is stored as a JSON column on scheduled_campaigns.
type RecipientList []Recipient

func (r RecipientList) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recipients: %w", err)
	}
	return string(data), nil
}

func (r *RecipientList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("unsupported recipients column type %T", src)
	}
}

// RecipientResult records the outcome of one recipient attempt within a
// dispatch execution.
type RecipientResult struct {
	Phone             string `json:"phone"`
	CustomerID        string `json:"customerId,omitempty"`
	Success           bool   `json:"success"`
	Skipped           bool   `json:"skipped,omitempty"`
	ProviderMessageID string `json:"providerMessageId,omitempty"`
	ErrorMessage      string `json:"errorMessage,omitempty"`
	Retryable         bool   `json:"retryable,omitempty"`
}

// ExecutionResult is the structured outcome persisted on a campaign once
// it reaches a terminal state. Error carries the unrecoverable mid-batch
// failure, if any; Details always holds whatever was attempted before it.
type ExecutionResult struct {
	SuccessCount int               `json:"successCount"`
	FailedCount  int               `json:"failedCount"`
	SkippedCount int               `json:"skippedCount,omitempty"`
	Details      []RecipientResult `json:"details"`
	Error        string            `json:"error,omitempty"`
}

func (e ExecutionResult) Value() (driver.Value, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execution result: %w", err)
	}
	return string(data), nil
}

func (e *ExecutionResult) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, e)
	case string:
		return json.Unmarshal([]byte(v), e)
	default:
		return fmt.Errorf("unsupported execution result column type %T", src)
	}
}

// ScheduledCampaign is one future-dispatch batch. Rows are never deleted;
// terminal rows are kept for audit.
type ScheduledCampaign struct {
	ID              int64            `db:"id" json:"id"`
	CampaignID      int64            `db:"campaign_id" json:"campaignId"`
	CampaignType    string           `db:"campaign_type" json:"campaignType"`
	MessageBody     string           `db:"message_body" json:"messageBody"`
	Recipients      RecipientList    `db:"recipients" json:"recipients"`
	ScheduledFor    time.Time        `db:"scheduled_for" json:"scheduledFor"`
	Status          CampaignStatus   `db:"status" json:"status"`
	ExecutedAt      *time.Time       `db:"executed_at" json:"executedAt,omitempty"`
	ExecutionResult *ExecutionResult `db:"execution_result" json:"executionResult,omitempty"`
	CouponDays      *int             `db:"coupon_days" json:"couponDays,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updatedAt"`
}

// CampaignSendAudit is one append-only campaign_sends row, written once
// per dispatch execution.
type CampaignSendAudit struct {
	ID             int64     `db:"id" json:"id"`
	CampaignID     int64     `db:"campaign_id" json:"campaignId"`
	RecipientCount int       `db:"recipient_count" json:"recipientCount"`
	SuccessCount   int       `db:"success_count" json:"successCount"`
	FailedCount    int       `db:"failed_count" json:"failedCount"`
	SentAt         time.Time `db:"sent_at" json:"sentAt"`
}

// CampaignResult is one campaign's outcome within a dispatch tick summary.
type CampaignResult struct {
	ScheduledCampaignID int64           `json:"scheduledCampaignId"`
	CampaignID          int64           `json:"campaignId"`
	Status              CampaignStatus  `json:"status"`
	Result              ExecutionResult `json:"result"`
}

// DispatchSummary is returned by one dispatch tick for observability.
type DispatchSummary struct {
	Processed int              `json:"processed"`
	Results   []CampaignResult `json:"results"`
}

// GatewayRequest is the payload posted to the message gateway.
type GatewayRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Content string `json:"content"`
}

// GatewayResponse is the gateway's accepted-send acknowledgement.
type GatewayResponse struct {
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
}

// DispatchCache is the per-campaign execution outcome cached in Valkey
// after a dispatch, keyed by scheduled campaign ID.
type DispatchCache struct {
	Status       CampaignStatus `json:"status"`
	SuccessCount int            `json:"successCount"`
	FailedCount  int            `json:"failedCount"`
	ExecutedAt   time.Time      `json:"executedAt"`
}
