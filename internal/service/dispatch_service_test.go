package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lavapop/campaign-service/environments"
	"github.com/lavapop/campaign-service/internal/domain"
	"github.com/lavapop/campaign-service/pkg/gateway"
)

//
// Test fakes – only for this file.
//

type fakeCampaignStore struct {
	due        []domain.ScheduledCampaign
	claimDeny  map[int64]bool
	claimErr   map[int64]error
	reapCutoff time.Time
	reapCount  int64

	finished map[int64]finishedCall
	audits   []domain.CampaignSendAudit
}

type finishedCall struct {
	status domain.CampaignStatus
	result domain.ExecutionResult
}

func (s *fakeCampaignStore) FindDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledCampaign, error) {
	if limit < len(s.due) {
		return s.due[:limit], nil
	}
	return s.due, nil
}

func (s *fakeCampaignStore) Claim(ctx context.Context, id int64) (bool, error) {
	if err := s.claimErr[id]; err != nil {
		return false, err
	}
	if s.claimDeny[id] {
		return false, nil
	}
	return true, nil
}

func (s *fakeCampaignStore) Finish(
	ctx context.Context,
	id int64,
	status domain.CampaignStatus,
	executedAt time.Time,
	result domain.ExecutionResult,
) error {
	if s.finished == nil {
		s.finished = map[int64]finishedCall{}
	}
	s.finished[id] = finishedCall{status: status, result: result}
	return nil
}

func (s *fakeCampaignStore) ReapStale(ctx context.Context, cutoff time.Time) (int64, error) {
	s.reapCutoff = cutoff
	return s.reapCount, nil
}

func (s *fakeCampaignStore) InsertAudit(ctx context.Context, audit *domain.CampaignSendAudit) error {
	s.audits = append(s.audits, *audit)
	return nil
}

type fakeContactWriter struct {
	inserted []domain.ContactRecord
	failFrom int // fail inserts once this many have succeeded; 0 disables
}

func (w *fakeContactWriter) Insert(ctx context.Context, rec *domain.ContactRecord) (int64, error) {
	if w.failFrom > 0 && len(w.inserted) >= w.failFrom {
		return 0, errors.New("connection refused")
	}
	w.inserted = append(w.inserted, *rec)
	return int64(len(w.inserted)), nil
}

type fakeGateway struct {
	failPhones map[string]error
	sent       []string
	sentBodies []string
}

func (g *fakeGateway) Send(ctx context.Context, toPhone, content string) (*domain.GatewayResponse, error) {
	if err, ok := g.failPhones[toPhone]; ok {
		return nil, err
	}
	g.sent = append(g.sent, toPhone)
	g.sentBodies = append(g.sentBodies, content)
	return &domain.GatewayResponse{MessageID: fmt.Sprintf("msg-%d", len(g.sent))}, nil
}

type fakeEligibility struct {
	blocked map[string]string // customer id -> reason
	calls   int
}

func (e *fakeEligibility) EvaluateBatch(
	ctx context.Context,
	customerIDs []string,
	campaignType string,
	minDaysGlobal, minDaysSameType int,
	now time.Time,
) domain.BatchVerdict {
	e.calls++
	verdicts := make(map[string]domain.Verdict, len(customerIDs))
	for _, id := range customerIDs {
		if reason, ok := e.blocked[id]; ok {
			verdicts[id] = domain.Verdict{IsEligible: false, Reason: reason}
		} else {
			verdicts[id] = domain.Verdict{IsEligible: true}
		}
	}
	return domain.BatchVerdict{Verdicts: verdicts}
}

type fakeDispatchCache struct {
	cached map[int64]domain.DispatchCache
}

func (c *fakeDispatchCache) CacheDispatchResult(ctx context.Context, scheduledCampaignID int64, cache domain.DispatchCache) error {
	if c.cached == nil {
		c.cached = map[int64]domain.DispatchCache{}
	}
	c.cached[scheduledCampaignID] = cache
	return nil
}

func testDispatchConfig() environments.DispatchConfig {
	return environments.DispatchConfig{
		TickInterval:      5 * time.Minute,
		BatchLimit:        10,
		RecipientDelay:    0,
		ProcessingTimeout: 30 * time.Minute,
		PreFilter:         false,
	}
}

func testCampaign(id int64, recipients ...domain.Recipient) domain.ScheduledCampaign {
	return domain.ScheduledCampaign{
		ID:           id,
		CampaignID:   id + 100,
		CampaignType: domain.CampaignTypeWinback,
		MessageBody:  "Oi {{name}}, volte para a Lavapop!",
		Recipients:   recipients,
		Status:       domain.CampaignScheduled,
	}
}

func newTestDispatchService(
	store *fakeCampaignStore,
	contacts *fakeContactWriter,
	gw *fakeGateway,
	elig *fakeEligibility,
	cache *fakeDispatchCache,
	cfg environments.DispatchConfig,
) *DispatchService {
	var eligArg eligibilityChecker
	if elig != nil {
		eligArg = elig
	}
	var cacheArg dispatchCache
	if cache != nil {
		cacheArg = cache
	}
	return NewDispatchService(store, contacts, gw, eligArg, cacheArg, cfg, testEligibilityConfig())
}

func TestRunTick_OneRecipientFailureDoesNotAbortTheRest(t *testing.T) {
	recipients := make([]domain.Recipient, 5)
	for i := range recipients {
		recipients[i] = domain.Recipient{
			Phone:      fmt.Sprintf("+5511999990%02d", i),
			Name:       fmt.Sprintf("Cliente %d", i),
			CustomerID: fmt.Sprintf("cust-%d", i),
		}
	}

	store := &fakeCampaignStore{due: []domain.ScheduledCampaign{testCampaign(1, recipients...)}}
	gw := &fakeGateway{failPhones: map[string]error{
		recipients[2].Phone: &gateway.Error{StatusCode: 500, Message: "provider unavailable"},
	}}
	contacts := &fakeContactWriter{}

	s := newTestDispatchService(store, contacts, gw, nil, nil, testDispatchConfig())

	summary, err := s.RunTick(context.Background(), 0, time.Now())
	if err != nil {
		t.Fatalf("RunTick returned error: %v", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("expected 1 campaign processed, got %d", summary.Processed)
	}

	call, ok := store.finished[1]
	if !ok {
		t.Fatalf("campaign 1 was never finalized")
	}
	if call.status != domain.CampaignSent {
		t.Errorf("expected status sent on partial failure, got %s", call.status)
	}
	if call.result.SuccessCount != 4 || call.result.FailedCount != 1 {
		t.Errorf("expected 4 sent / 1 failed, got %d / %d", call.result.SuccessCount, call.result.FailedCount)
	}

	// The failing recipient keeps its error detail in the result.
	var failed *domain.RecipientResult
	for i := range call.result.Details {
		if !call.result.Details[i].Success && !call.result.Details[i].Skipped {
			failed = &call.result.Details[i]
		}
	}
	if failed == nil {
		t.Fatalf("no failed recipient detail recorded")
	}
	if failed.Phone != recipients[2].Phone {
		t.Errorf("wrong recipient recorded as failed: %s", failed.Phone)
	}
	if !failed.Retryable {
		t.Errorf("a 500 from the provider should be retryable")
	}

	// Contacts are only recorded for the successful sends.
	if len(contacts.inserted) != 4 {
		t.Errorf("expected 4 contact records, got %d", len(contacts.inserted))
	}
}

func TestRunTick_ZeroRecipientsFinishesSentWithAudit(t *testing.T) {
	store := &fakeCampaignStore{due: []domain.ScheduledCampaign{testCampaign(1)}}
	s := newTestDispatchService(store, &fakeContactWriter{}, &fakeGateway{}, nil, nil, testDispatchConfig())

	summary, err := s.RunTick(context.Background(), 0, time.Now())
	if err != nil {
		t.Fatalf("RunTick returned error: %v", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("expected 1 campaign processed, got %d", summary.Processed)
	}

	call := store.finished[1]
	if call.status != domain.CampaignSent {
		t.Errorf("expected empty campaign to finish as sent, got %s", call.status)
	}
	if call.result.SuccessCount != 0 || call.result.FailedCount != 0 {
		t.Errorf("expected zero counts, got %d / %d", call.result.SuccessCount, call.result.FailedCount)
	}
	if len(store.audits) != 1 {
		t.Fatalf("expected an audit row even for zero recipients, got %d", len(store.audits))
	}
	if store.audits[0].RecipientCount != 0 {
		t.Errorf("expected audit recipient count 0, got %d", store.audits[0].RecipientCount)
	}
}

func TestRunTick_AlreadyClaimedCampaignIsSkipped(t *testing.T) {
	store := &fakeCampaignStore{
		due: []domain.ScheduledCampaign{
			testCampaign(1, domain.Recipient{Phone: "+5511999990001", CustomerID: "a"}),
			testCampaign(2, domain.Recipient{Phone: "+5511999990002", CustomerID: "b"}),
		},
		claimDeny: map[int64]bool{1: true},
	}
	gw := &fakeGateway{}
	s := newTestDispatchService(store, &fakeContactWriter{}, gw, nil, nil, testDispatchConfig())

	summary, err := s.RunTick(context.Background(), 0, time.Now())
	if err != nil {
		t.Fatalf("RunTick returned error: %v", err)
	}

	if summary.Processed != 1 {
		t.Fatalf("expected only the unclaimed campaign processed, got %d", summary.Processed)
	}
	if _, ok := store.finished[1]; ok {
		t.Errorf("campaign 1 should not have been executed")
	}
	if _, ok := store.finished[2]; !ok {
		t.Errorf("campaign 2 should have been executed")
	}
	if len(gw.sent) != 1 || gw.sent[0] != "+5511999990002" {
		t.Errorf("expected exactly one send to campaign 2's recipient, got %v", gw.sent)
	}
}

func TestRunTick_AllSendsFailingFinishesFailed(t *testing.T) {
	rcpt := domain.Recipient{Phone: "+5511999990001", CustomerID: "a"}
	store := &fakeCampaignStore{due: []domain.ScheduledCampaign{testCampaign(1, rcpt)}}
	gw := &fakeGateway{failPhones: map[string]error{
		rcpt.Phone: &gateway.Error{StatusCode: 400, Permanent: true, Message: "invalid number"},
	}}
	s := newTestDispatchService(store, &fakeContactWriter{}, gw, nil, nil, testDispatchConfig())

	if _, err := s.RunTick(context.Background(), 0, time.Now()); err != nil {
		t.Fatalf("RunTick returned error: %v", err)
	}

	call := store.finished[1]
	if call.status != domain.CampaignFailed {
		t.Errorf("expected failed status when nothing was delivered, got %s", call.status)
	}
	if len(call.result.Details) != 1 || call.result.Details[0].Retryable {
		t.Errorf("expected one permanent failure detail, got %+v", call.result.Details)
	}
}

func TestRunTick_StoreErrorMidBatchStillReachesTerminalState(t *testing.T) {
	recipients := []domain.Recipient{
		{Phone: "+5511999990001", CustomerID: "a"},
		{Phone: "+5511999990002", CustomerID: "b"},
		{Phone: "+5511999990003", CustomerID: "c"},
	}
	store := &fakeCampaignStore{due: []domain.ScheduledCampaign{testCampaign(1, recipients...)}}
	contacts := &fakeContactWriter{failFrom: 1} // second ledger write fails
	s := newTestDispatchService(store, contacts, &fakeGateway{}, nil, nil, testDispatchConfig())

	if _, err := s.RunTick(context.Background(), 0, time.Now()); err != nil {
		t.Fatalf("RunTick returned error: %v", err)
	}

	call, ok := store.finished[1]
	if !ok {
		t.Fatalf("campaign must reach a terminal state even when the ledger store fails")
	}
	if call.status != domain.CampaignFailed {
		t.Errorf("expected failed status, got %s", call.status)
	}
	if call.result.Error == "" {
		t.Errorf("expected the store error surfaced in the result")
	}
	// Partial outcomes up to the failure point are preserved.
	if len(call.result.Details) != 2 {
		t.Errorf("expected 2 recipient details before the abort, got %d", len(call.result.Details))
	}
}

func TestRunTick_PreFilterSkipsIneligibleRecipients(t *testing.T) {
	recipients := []domain.Recipient{
		{Phone: "+5511999990001", CustomerID: "blocked"},
		{Phone: "+5511999990002", CustomerID: "fresh"},
	}
	store := &fakeCampaignStore{due: []domain.ScheduledCampaign{testCampaign(1, recipients...)}}
	gw := &fakeGateway{}
	elig := &fakeEligibility{blocked: map[string]string{"blocked": "contacted 2 days ago; global cooldown is 7 days"}}

	cfg := testDispatchConfig()
	cfg.PreFilter = true
	s := newTestDispatchService(store, &fakeContactWriter{}, gw, elig, nil, cfg)

	if _, err := s.RunTick(context.Background(), 0, time.Now()); err != nil {
		t.Fatalf("RunTick returned error: %v", err)
	}

	if elig.calls != 1 {
		t.Fatalf("expected a single batch eligibility call, got %d", elig.calls)
	}
	if len(gw.sent) != 1 || gw.sent[0] != "+5511999990002" {
		t.Errorf("expected only the eligible recipient contacted, got %v", gw.sent)
	}

	call := store.finished[1]
	if call.status != domain.CampaignSent {
		t.Errorf("expected sent status, got %s", call.status)
	}
	if call.result.SkippedCount != 1 || call.result.SuccessCount != 1 {
		t.Errorf("expected 1 skipped / 1 sent, got %d / %d", call.result.SkippedCount, call.result.SuccessCount)
	}
}

func TestRunTick_CachesResultWhenCacheConfigured(t *testing.T) {
	rcpt := domain.Recipient{Phone: "+5511999990001", CustomerID: "a"}
	store := &fakeCampaignStore{due: []domain.ScheduledCampaign{testCampaign(1, rcpt)}}
	cache := &fakeDispatchCache{}
	s := newTestDispatchService(store, &fakeContactWriter{}, &fakeGateway{}, nil, cache, testDispatchConfig())

	now := time.Now()
	if _, err := s.RunTick(context.Background(), 0, now); err != nil {
		t.Fatalf("RunTick returned error: %v", err)
	}

	entry, ok := cache.cached[1]
	if !ok {
		t.Fatalf("expected a cached dispatch result")
	}
	if entry.Status != domain.CampaignSent || entry.SuccessCount != 1 {
		t.Errorf("unexpected cached entry: %+v", entry)
	}
}

func TestRecordContact_CouponWindowOverridesDefault(t *testing.T) {
	rcpt := domain.Recipient{Phone: "+5511999990001", CustomerID: "a"}
	sc := testCampaign(1, rcpt)
	couponDays := 10
	sc.CouponDays = &couponDays

	store := &fakeCampaignStore{due: []domain.ScheduledCampaign{sc}}
	contacts := &fakeContactWriter{}
	s := newTestDispatchService(store, contacts, &fakeGateway{}, nil, nil, testDispatchConfig())

	now := time.Now()
	if _, err := s.RunTick(context.Background(), 0, now); err != nil {
		t.Fatalf("RunTick returned error: %v", err)
	}

	if len(contacts.inserted) != 1 {
		t.Fatalf("expected one contact record, got %d", len(contacts.inserted))
	}
	rec := contacts.inserted[0]

	// coupon 10 days + buffer 3 from config
	wantExpiry := now.AddDate(0, 0, 13)
	if !rec.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expected tracking window expiry %v, got %v", wantExpiry, rec.ExpiresAt)
	}
	if rec.CampaignID == nil || *rec.CampaignID != sc.CampaignID {
		t.Errorf("expected contact linked to campaign %d, got %v", sc.CampaignID, rec.CampaignID)
	}
	if rec.Status != domain.ContactPending {
		t.Errorf("expected pending contact, got %s", rec.Status)
	}
}

func TestReapStale_UsesProcessingTimeoutCutoff(t *testing.T) {
	store := &fakeCampaignStore{reapCount: 3}
	s := newTestDispatchService(store, &fakeContactWriter{}, &fakeGateway{}, nil, nil, testDispatchConfig())

	now := time.Now()
	reaped, err := s.ReapStale(context.Background(), now)
	if err != nil {
		t.Fatalf("ReapStale returned error: %v", err)
	}
	if reaped != 3 {
		t.Fatalf("expected 3 reaped, got %d", reaped)
	}

	wantCutoff := now.Add(-30 * time.Minute)
	if !store.reapCutoff.Equal(wantCutoff) {
		t.Errorf("expected cutoff %v, got %v", wantCutoff, store.reapCutoff)
	}
}

func TestRenderBody_SubstitutesPlaceholders(t *testing.T) {
	wallet := 12.5
	rcpt := domain.Recipient{
		Phone:         "+5511999990001",
		Name:          "Maria",
		WalletBalance: &wallet,
	}

	got := renderBody("Oi {{name}}, seu saldo e R$ {{wallet_balance}}.", rcpt)
	if !strings.Contains(got, "Maria") || !strings.Contains(got, "12.50") {
		t.Errorf("placeholders not substituted: %q", got)
	}

	// Missing wallet falls back to zero.
	got = renderBody("Saldo: {{wallet_balance}}", domain.Recipient{})
	if got != "Saldo: 0.00" {
		t.Errorf("expected zero wallet fallback, got %q", got)
	}
}
