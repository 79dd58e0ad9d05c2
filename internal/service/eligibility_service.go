package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lavapop/campaign-service/environments"
	"github.com/lavapop/campaign-service/internal/domain"
	"github.com/lavapop/campaign-service/pkg/logger"
)

// contactLedger is the slice of the contact repository the evaluator
// needs; small on purpose so tests can fake it.
type contactLedger interface {
	FindLatestByCustomer(ctx context.Context, customerID string, statuses []domain.ContactStatus) (*domain.ContactRecord, error)
	FindLatestByCustomers(ctx context.Context, customerIDs []string, statuses []domain.ContactStatus) (map[string]domain.ContactRecord, error)
}

// cooldownStatuses are the record states that count toward the cooldown.
// Expired and cleared contacts do not block a re-contact.
var cooldownStatuses = []domain.ContactStatus{domain.ContactPending, domain.ContactReturned}

// EligibilityService decides whether a customer may be contacted again.
// It is stateless; the cooldown defaults come from immutable config.
type EligibilityService struct {
	ledger contactLedger
	config environments.EligibilityConfig
}

func NewEligibilityService(ledger contactLedger, config environments.EligibilityConfig) *EligibilityService {
	return &EligibilityService{
		ledger: ledger,
		config: config,
	}
}

// Evaluate checks one customer against the global and same-type cooldown
// windows. Non-positive overrides fall back to the configured defaults.
//
// If the store is unreachable the verdict fails open: eligible, but with
// Degraded set so callers can tell it apart from a verified answer.
func (s *EligibilityService) Evaluate(
	ctx context.Context,
	customerID, campaignType string,
	minDaysGlobal, minDaysSameType int,
	now time.Time,
) domain.Verdict {
	minDaysGlobal, minDaysSameType = s.applyDefaults(minDaysGlobal, minDaysSameType)

	rec, err := s.ledger.FindLatestByCustomer(ctx, customerID, cooldownStatuses)
	if err != nil {
		logger.Errorf("Eligibility check degraded for customer %s: %v", customerID, err)
		return degradedVerdict()
	}

	return verdictFor(rec, campaignType, minDaysGlobal, minDaysSameType, now)
}

// EvaluateBatch evaluates up to the configured cap of customer IDs with a
// single ledger fetch. When the input exceeds the cap, only the leading
// IDs are evaluated and Truncated is set; callers re-invoke for the rest.
func (s *EligibilityService) EvaluateBatch(
	ctx context.Context,
	customerIDs []string,
	campaignType string,
	minDaysGlobal, minDaysSameType int,
	now time.Time,
) domain.BatchVerdict {
	minDaysGlobal, minDaysSameType = s.applyDefaults(minDaysGlobal, minDaysSameType)

	truncated := false
	if len(customerIDs) > s.config.BatchCap {
		customerIDs = customerIDs[:s.config.BatchCap]
		truncated = true
	}

	verdicts := make(map[string]domain.Verdict, len(customerIDs))

	latest, err := s.ledger.FindLatestByCustomers(ctx, customerIDs, cooldownStatuses)
	if err != nil {
		logger.Errorf("Batch eligibility check degraded for %d customers: %v", len(customerIDs), err)
		for _, id := range customerIDs {
			verdicts[id] = degradedVerdict()
		}
		return domain.BatchVerdict{Verdicts: verdicts, Truncated: truncated}
	}

	for _, id := range customerIDs {
		if rec, ok := latest[id]; ok {
			verdicts[id] = verdictFor(&rec, campaignType, minDaysGlobal, minDaysSameType, now)
		} else {
			verdicts[id] = verdictFor(nil, campaignType, minDaysGlobal, minDaysSameType, now)
		}
	}

	return domain.BatchVerdict{Verdicts: verdicts, Truncated: truncated}
}

func (s *EligibilityService) applyDefaults(minDaysGlobal, minDaysSameType int) (int, int) {
	if minDaysGlobal <= 0 {
		minDaysGlobal = s.config.MinDaysGlobal
	}
	if minDaysSameType <= 0 {
		minDaysSameType = s.config.MinDaysSameType
	}
	return minDaysGlobal, minDaysSameType
}

func degradedVerdict() domain.Verdict {
	return domain.Verdict{
		IsEligible: true,
		Reason:     "could not verify contact history; assuming eligible",
		Degraded:   true,
	}
}

// verdictFor applies the cooldown rules to the customer's most recent
// relevant record. The global window is checked first; when both windows
// would block, the global reason wins.
func verdictFor(
	rec *domain.ContactRecord,
	campaignType string,
	minDaysGlobal, minDaysSameType int,
	now time.Time,
) domain.Verdict {
	if rec == nil {
		return domain.Verdict{
			IsEligible: true,
			Reason:     "no prior contact",
		}
	}

	daysSince := int(now.Sub(rec.ContactedAt).Hours() / 24)

	if daysSince < minDaysGlobal {
		return domain.Verdict{
			IsEligible:        false,
			Reason:            fmt.Sprintf("contacted %d days ago; global cooldown is %d days", daysSince, minDaysGlobal),
			LastContactDate:   &rec.ContactedAt,
			DaysSinceContact:  &daysSince,
			DaysUntilEligible: minDaysGlobal - daysSince,
		}
	}

	if campaignType != "" && campaignType == rec.CampaignType && daysSince < minDaysSameType {
		return domain.Verdict{
			IsEligible: false,
			Reason: fmt.Sprintf("contacted %d days ago for %s; same-type cooldown is %d days",
				daysSince, campaignType, minDaysSameType),
			LastContactDate:   &rec.ContactedAt,
			DaysSinceContact:  &daysSince,
			DaysUntilEligible: minDaysSameType - daysSince,
		}
	}

	return domain.Verdict{
		IsEligible:       true,
		Reason:           "cooldown elapsed",
		LastContactDate:  &rec.ContactedAt,
		DaysSinceContact: &daysSince,
	}
}
