package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lavapop/campaign-service/environments"
	"github.com/lavapop/campaign-service/internal/domain"
	"github.com/lavapop/campaign-service/pkg/logger"
)

type attributionLedger interface {
	FindExpirable(ctx context.Context, now time.Time) ([]domain.ContactRecord, error)
	MarkExpired(ctx context.Context, id int64) (bool, error)
	FindLatestPendingBefore(ctx context.Context, customerID string, t time.Time) (*domain.ContactRecord, error)
	MarkReturned(ctx context.Context, id int64, returnDate time.Time, revenue float64, daysToReturn int) error
	MarkCleared(ctx context.Context, id int64) error
	Upsert(ctx context.Context, rec *domain.ContactRecord) (int64, error)
}

// AttributionService runs the two ledger sweeps: expiring pending
// contacts whose tracking window elapsed, and attributing return signals
// to the contact that most plausibly caused them. It also owns the manual
// contact and manual clear actions.
type AttributionService struct {
	ledger attributionLedger
	config environments.EligibilityConfig
}

func NewAttributionService(ledger attributionLedger, config environments.EligibilityConfig) *AttributionService {
	return &AttributionService{
		ledger: ledger,
		config: config,
	}
}

// ExpireSweep transitions every pending record past its tracking window
// to expired and returns how many transitioned. Re-running immediately is
// a no-op, so the sweep can run on any cadence.
func (s *AttributionService) ExpireSweep(ctx context.Context, now time.Time) (int, error) {
	records, err := s.ledger.FindExpirable(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to find expirable contacts: %w", err)
	}

	expired := 0
	for _, rec := range records {
		ok, err := s.ledger.MarkExpired(ctx, rec.ID)
		if err != nil {
			logger.Errorf("Failed to expire contact record %d: %v", rec.ID, err)
			continue
		}
		// ok=false means another sweep got there first; nothing to do.
		if ok {
			expired++
		}
	}

	if expired > 0 {
		logger.Infof("Expire sweep transitioned %d contact records", expired)
	}

	return expired, nil
}

// RecordReturn attributes a "customer transacted again" signal to that
// customer's most recent pending contact made before the transaction.
// Older pending records are left alone to expire naturally, so revenue is
// never attributed twice. Returns nil when no contact matches.
func (s *AttributionService) RecordReturn(ctx context.Context, signal domain.ReturnSignal) (*domain.ContactRecord, error) {
	if signal.CustomerID == "" {
		return nil, fmt.Errorf("customer id is required")
	}

	rec, err := s.ledger.FindLatestPendingBefore(ctx, signal.CustomerID, signal.ReturnedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending contact for customer %s: %w", signal.CustomerID, err)
	}

	if rec == nil {
		logger.Debugf("Return signal for customer %s matched no pending contact", signal.CustomerID)
		return nil, nil
	}

	daysToReturn := int(signal.ReturnedAt.Sub(rec.ContactedAt).Hours() / 24)

	if err := s.ledger.MarkReturned(ctx, rec.ID, signal.ReturnedAt, signal.Revenue, daysToReturn); err != nil {
		return nil, fmt.Errorf("failed to attribute return to contact %d: %w", rec.ID, err)
	}

	logger.Infof("Attributed return of %.2f to contact %d (customer %s, %d days to return)",
		signal.Revenue, rec.ID, signal.CustomerID, daysToReturn)

	rec.Status = domain.ContactReturned
	rec.ReturnDate = &signal.ReturnedAt
	rec.ReturnRevenue = &signal.Revenue
	rec.DaysToReturn = &daysToReturn

	return rec, nil
}

// ClearContact is the manual pending -> cleared action; a cleared contact
// no longer counts toward the customer's cooldown.
func (s *AttributionService) ClearContact(ctx context.Context, id int64) error {
	return s.ledger.MarkCleared(ctx, id)
}

// RecordContact registers a manual contact with single-active-contact
// semantics: one pending record per customer, rewritten if one exists.
func (s *AttributionService) RecordContact(
	ctx context.Context,
	customerID, campaignType, contactMethod string,
	now time.Time,
) (*domain.ContactRecord, error) {
	if customerID == "" {
		return nil, fmt.Errorf("customer id is required")
	}

	if campaignType == "" {
		campaignType = domain.CampaignTypeManual
	}
	if contactMethod == "" {
		contactMethod = "whatsapp"
	}

	rec := &domain.ContactRecord{
		CustomerID:    customerID,
		CampaignType:  campaignType,
		ContactMethod: contactMethod,
		Status:        domain.ContactPending,
		ContactedAt:   now,
		ExpiresAt:     now.AddDate(0, 0, s.config.TrackingWindowDays),
	}

	id, err := s.ledger.Upsert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to record manual contact: %w", err)
	}

	rec.ID = id
	return rec, nil
}
