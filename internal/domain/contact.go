package domain

import "time"

type ContactStatus string

const (
	ContactPending  ContactStatus = "pending"
	ContactReturned ContactStatus = "returned"
	ContactExpired  ContactStatus = "expired"
	ContactCleared  ContactStatus = "cleared"
)

// Campaign types used for per-type cooldown matching. The column is a
// plain VARCHAR, so unknown types pass through; these are the presets the
// authoring tooling offers.
const (
	CampaignTypeWinback string = "winback"
	CampaignTypeWelcome string = "welcome"
	CampaignTypeWallet  string = "wallet"
	CampaignTypePromo   string = "promo"
	CampaignTypeManual  string = "manual"
	CampaignTypeOther   string = "other"
)

// ContactRecord is one row per contact attempt. contacted_at is set at
// creation and never updated; exactly one terminal transition happens per
// record (pending -> returned | expired | cleared).
type ContactRecord struct {
	ID            int64         `db:"id" json:"id"`
	CustomerID    string        `db:"customer_id" json:"customerId"`
	CampaignID    *int64        `db:"campaign_id" json:"campaignId,omitempty"`
	CampaignType  string        `db:"campaign_type" json:"campaignType"`
	ContactMethod string        `db:"contact_method" json:"contactMethod"`
	Status        ContactStatus `db:"status" json:"status"`
	ContactedAt   time.Time     `db:"contacted_at" json:"contactedAt"`
	ExpiresAt     time.Time     `db:"expires_at" json:"expiresAt"`
	ReturnDate    *time.Time    `db:"return_date" json:"returnDate,omitempty"`
	ReturnRevenue *float64      `db:"return_revenue" json:"returnRevenue,omitempty"`
	DaysToReturn  *int          `db:"days_to_return" json:"daysToReturn,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updatedAt"`
}

// Verdict is the result of an eligibility check. Degraded marks a
// fail-open answer produced while the store was unreachable; callers must
// not treat it as a verified "eligible".
type Verdict struct {
	IsEligible        bool       `json:"isEligible"`
	Reason            string     `json:"reason"`
	LastContactDate   *time.Time `json:"lastContactDate,omitempty"`
	DaysSinceContact  *int       `json:"daysSinceContact,omitempty"`
	DaysUntilEligible int        `json:"daysUntilEligible"`
	Degraded          bool       `json:"degraded,omitempty"`
}

// BatchVerdict wraps a batch eligibility result. Truncated is set when the
// caller passed more customer IDs than the batch cap; verdicts are only
// present for the evaluated prefix and the caller must re-invoke with the
// remaining IDs.
type BatchVerdict struct {
	Verdicts  map[string]Verdict `json:"verdicts"`
	Truncated bool               `json:"truncated"`
}

// ReturnSignal is an external "customer transacted again" event consumed
// by the attribution sweep.
type ReturnSignal struct {
	CustomerID string    `json:"customerId"`
	ReturnedAt time.Time `json:"returnedAt"`
	Revenue    float64   `json:"revenue"`
}

// ContactStats aggregates the ledger by status for reporting.
type ContactStats struct {
	Pending           int64   `db:"pending" json:"pending"`
	Returned          int64   `db:"returned" json:"returned"`
	Expired           int64   `db:"expired" json:"expired"`
	Cleared           int64   `db:"cleared" json:"cleared"`
	AttributedRevenue float64 `db:"attributed_revenue" json:"attributedRevenue"`
}
