package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lavapop/campaign-service/environments"
	"github.com/lavapop/campaign-service/internal/domain"
	"github.com/lavapop/campaign-service/pkg/gateway"
	"github.com/lavapop/campaign-service/pkg/logger"
)

// Small internal interfaces so we can test without touching real DB/Redis/gateway.
type campaignStore interface {
	FindDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledCampaign, error)
	Claim(ctx context.Context, id int64) (bool, error)
	Finish(ctx context.Context, id int64, status domain.CampaignStatus, executedAt time.Time, result domain.ExecutionResult) error
	ReapStale(ctx context.Context, cutoff time.Time) (int64, error)
	InsertAudit(ctx context.Context, audit *domain.CampaignSendAudit) error
}

type contactWriter interface {
	Insert(ctx context.Context, rec *domain.ContactRecord) (int64, error)
}

type gatewayClient interface {
	Send(ctx context.Context, toPhone, content string) (*domain.GatewayResponse, error)
}

type eligibilityChecker interface {
	EvaluateBatch(ctx context.Context, customerIDs []string, campaignType string, minDaysGlobal, minDaysSameType int, now time.Time) domain.BatchVerdict
}

type dispatchCache interface {
	CacheDispatchResult(ctx context.Context, scheduledCampaignID int64, cache domain.DispatchCache) error
}

// DispatchService executes due scheduled campaigns. Each tick is an
// independent, stateless invocation; overlapping ticks are safe because
// every campaign is claimed with a conditional update before any send.
type DispatchService struct {
	campaigns   campaignStore
	contacts    contactWriter
	gateway     gatewayClient
	eligibility eligibilityChecker
	cache       dispatchCache
	dispatchCfg environments.DispatchConfig
	eligCfg     environments.EligibilityConfig
}

func NewDispatchService(
	campaigns campaignStore,
	contacts contactWriter,
	gatewayClient gatewayClient,
	eligibility eligibilityChecker,
	cache dispatchCache,
	dispatchCfg environments.DispatchConfig,
	eligCfg environments.EligibilityConfig,
) *DispatchService {
	return &DispatchService{
		campaigns:   campaigns,
		contacts:    contacts,
		gateway:     gatewayClient,
		eligibility: eligibility,
		cache:       cache,
		dispatchCfg: dispatchCfg,
		eligCfg:     eligCfg,
	}
}

// RunTick claims and executes up to limit due campaigns, oldest first.
// A campaign another tick already claimed is skipped silently.
func (s *DispatchService) RunTick(ctx context.Context, limit int, now time.Time) (*domain.DispatchSummary, error) {
	if limit <= 0 {
		limit = s.dispatchCfg.BatchLimit
	}

	due, err := s.campaigns.FindDue(ctx, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find due campaigns: %w", err)
	}

	summary := &domain.DispatchSummary{Results: []domain.CampaignResult{}}

	if len(due) == 0 {
		logger.Debugf("No due campaigns to dispatch")
		return summary, nil
	}

	logger.Infof("Dispatching %d due campaigns", len(due))

	for i := range due {
		sc := &due[i]

		claimed, err := s.campaigns.Claim(ctx, sc.ID)
		if err != nil {
			logger.Errorf("Failed to claim campaign %d: %v", sc.ID, err)
			continue
		}
		if !claimed {
			logger.Debugf("Campaign %d already claimed by another tick, skipping", sc.ID)
			continue
		}

		result := s.execute(ctx, sc, now)
		summary.Results = append(summary.Results, result)
		summary.Processed++
	}

	return summary, nil
}

// execute runs one claimed campaign to a terminal state. The campaign is
// never left in processing: send failures are collected per recipient,
// and an unrecoverable mid-batch error still drives a Finish(failed) with
// the partial results.
func (s *DispatchService) execute(ctx context.Context, sc *domain.ScheduledCampaign, now time.Time) domain.CampaignResult {
	details, execErr := s.attemptRecipients(ctx, sc, now)

	result := domain.ExecutionResult{Details: details}
	for _, d := range details {
		switch {
		case d.Skipped:
			result.SkippedCount++
		case d.Success:
			result.SuccessCount++
		default:
			result.FailedCount++
		}
	}

	status := domain.CampaignSent
	if execErr != nil {
		result.Error = execErr.Error()
		status = domain.CampaignFailed
	} else if result.SuccessCount == 0 && result.FailedCount > 0 {
		status = domain.CampaignFailed
	}

	if err := s.campaigns.Finish(ctx, sc.ID, status, now, result); err != nil {
		// The reconciliation sweep will fail the row once it goes stale.
		logger.Errorf("Failed to finalize campaign %d: %v", sc.ID, err)
	}

	audit := &domain.CampaignSendAudit{
		CampaignID:     sc.CampaignID,
		RecipientCount: len(sc.Recipients),
		SuccessCount:   result.SuccessCount,
		FailedCount:    result.FailedCount,
		SentAt:         now,
	}
	if err := s.campaigns.InsertAudit(ctx, audit); err != nil {
		logger.Errorf("Failed to write send audit for campaign %d: %v", sc.ID, err)
	}

	if s.cache != nil {
		cacheErr := s.cache.CacheDispatchResult(ctx, sc.ID, domain.DispatchCache{
			Status:       status,
			SuccessCount: result.SuccessCount,
			FailedCount:  result.FailedCount,
			ExecutedAt:   now,
		})
		if cacheErr != nil {
			logger.Warnf("Failed to cache dispatch result for campaign %d: %v", sc.ID, cacheErr)
		}
	}

	logger.Infof("Campaign %d finished as %s (%d sent, %d failed, %d skipped)",
		sc.ID, status, result.SuccessCount, result.FailedCount, result.SkippedCount)

	return domain.CampaignResult{
		ScheduledCampaignID: sc.ID,
		CampaignID:          sc.CampaignID,
		Status:              status,
		Result:              result,
	}
}

// attemptRecipients runs the sequential send loop. One recipient's
// failure never aborts the rest; only a store-level error (or a panic)
// stops the loop, and the outcomes collected so far are preserved.
func (s *DispatchService) attemptRecipients(
	ctx context.Context,
	sc *domain.ScheduledCampaign,
	now time.Time,
) (details []domain.RecipientResult, execErr error) {
	details = []domain.RecipientResult{}

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Panic while dispatching campaign %d: %v", sc.ID, r)
			execErr = fmt.Errorf("panic during dispatch: %v", r)
		}
	}()

	skip := s.preFilter(ctx, sc, now)

	for i, rcpt := range sc.Recipients {
		if reason, blocked := skip[rcpt.CustomerID]; blocked {
			details = append(details, domain.RecipientResult{
				Phone:        rcpt.Phone,
				CustomerID:   rcpt.CustomerID,
				Skipped:      true,
				ErrorMessage: reason,
			})
			continue
		}

		body := renderBody(sc.MessageBody, rcpt)

		resp, err := s.gateway.Send(ctx, rcpt.Phone, body)
		if err != nil {
			logger.Warnf("Send to %s failed for campaign %d: %v", rcpt.Phone, sc.ID, err)
			details = append(details, domain.RecipientResult{
				Phone:        rcpt.Phone,
				CustomerID:   rcpt.CustomerID,
				Success:      false,
				ErrorMessage: err.Error(),
				Retryable:    !gateway.IsPermanent(err),
			})
		} else {
			details = append(details, domain.RecipientResult{
				Phone:             rcpt.Phone,
				CustomerID:        rcpt.CustomerID,
				Success:           true,
				ProviderMessageID: resp.MessageID,
			})

			if err := s.recordContact(ctx, sc, rcpt, now); err != nil {
				// Ledger writes failing means the store is gone; stop here
				// with what we have rather than sending untracked contacts.
				return details, fmt.Errorf("failed to record contact for %s: %w", rcpt.CustomerID, err)
			}
		}

		if i < len(sc.Recipients)-1 && s.dispatchCfg.RecipientDelay > 0 {
			time.Sleep(s.dispatchCfg.RecipientDelay)
		}
	}

	return details, nil
}

// preFilter batch-checks recipient eligibility when enabled, returning
// the customers to skip with the blocking reason. Degraded verdicts are
// eligible by policy, so they never cause a skip.
func (s *DispatchService) preFilter(ctx context.Context, sc *domain.ScheduledCampaign, now time.Time) map[string]string {
	if !s.dispatchCfg.PreFilter || s.eligibility == nil || len(sc.Recipients) == 0 {
		return nil
	}

	ids := make([]string, 0, len(sc.Recipients))
	for _, rcpt := range sc.Recipients {
		if rcpt.CustomerID != "" {
			ids = append(ids, rcpt.CustomerID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	batch := s.eligibility.EvaluateBatch(ctx, ids, sc.CampaignType, 0, 0, now)

	skip := make(map[string]string)
	for id, verdict := range batch.Verdicts {
		if !verdict.IsEligible {
			skip[id] = verdict.Reason
		}
	}

	if len(skip) > 0 {
		logger.Infof("Campaign %d: skipping %d recipients still in cooldown", sc.ID, len(skip))
	}

	return skip
}

// recordContact writes the pending ledger entry for a successful send.
// The tracking window follows the campaign's coupon validity plus the
// configured buffer, or the default window without coupon context.
func (s *DispatchService) recordContact(
	ctx context.Context,
	sc *domain.ScheduledCampaign,
	rcpt domain.Recipient,
	now time.Time,
) error {
	if rcpt.CustomerID == "" {
		// Nothing to track against; the send itself still counts.
		return nil
	}

	windowDays := s.eligCfg.TrackingWindowDays
	if sc.CouponDays != nil {
		windowDays = *sc.CouponDays + s.eligCfg.CouponBufferDays
	}

	campaignID := sc.CampaignID
	rec := &domain.ContactRecord{
		CustomerID:    rcpt.CustomerID,
		CampaignID:    &campaignID,
		CampaignType:  sc.CampaignType,
		ContactMethod: "whatsapp",
		Status:        domain.ContactPending,
		ContactedAt:   now,
		ExpiresAt:     now.AddDate(0, 0, windowDays),
	}

	_, err := s.contacts.Insert(ctx, rec)
	return err
}

// ReapStale fails campaigns stuck in processing past the configured
// timeout. The claim guarantees exclusivity, not liveness; a process
// crash mid-dispatch leaves a row behind that only this sweep can close.
func (s *DispatchService) ReapStale(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-s.dispatchCfg.ProcessingTimeout)

	reaped, err := s.campaigns.ReapStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if reaped > 0 {
		logger.Warnf("Reaped %d campaigns stuck in processing", reaped)
	}

	return reaped, nil
}

var placeholderKeys = []string{"{{name}}", "{{phone}}", "{{wallet_balance}}"}

// renderBody substitutes the personalization placeholders. Bodies arrive
// pre-rendered except for these per-recipient keys.
func renderBody(body string, rcpt domain.Recipient) string {
	wallet := "0.00"
	if rcpt.WalletBalance != nil {
		wallet = fmt.Sprintf("%.2f", *rcpt.WalletBalance)
	}

	replacer := strings.NewReplacer(
		placeholderKeys[0], rcpt.Name,
		placeholderKeys[1], rcpt.Phone,
		placeholderKeys[2], wallet,
	)

	return replacer.Replace(body)
}
