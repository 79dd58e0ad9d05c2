package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lavapop/campaign-service/environments"
	"github.com/lavapop/campaign-service/internal/domain"
)

//
// Test fakes – only for this file.
//

type fakeLedger struct {
	latest      map[string]domain.ContactRecord
	err         error
	singleCalls int
	batchCalls  int
}

func (l *fakeLedger) FindLatestByCustomer(
	ctx context.Context,
	customerID string,
	statuses []domain.ContactStatus,
) (*domain.ContactRecord, error) {
	l.singleCalls++
	if l.err != nil {
		return nil, l.err
	}
	if rec, ok := l.latest[customerID]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (l *fakeLedger) FindLatestByCustomers(
	ctx context.Context,
	customerIDs []string,
	statuses []domain.ContactStatus,
) (map[string]domain.ContactRecord, error) {
	l.batchCalls++
	if l.err != nil {
		return nil, l.err
	}
	out := make(map[string]domain.ContactRecord)
	for _, id := range customerIDs {
		if rec, ok := l.latest[id]; ok {
			out[id] = rec
		}
	}
	return out, nil
}

func testEligibilityConfig() environments.EligibilityConfig {
	return environments.EligibilityConfig{
		MinDaysGlobal:      7,
		MinDaysSameType:    30,
		BatchCap:           500,
		TrackingWindowDays: 14,
		CouponBufferDays:   3,
	}
}

func contactedDaysAgo(now time.Time, days int, campaignType string) domain.ContactRecord {
	return domain.ContactRecord{
		ID:           1,
		CustomerID:   "cust-1",
		CampaignType: campaignType,
		Status:       domain.ContactPending,
		ContactedAt:  now.AddDate(0, 0, -days),
	}
}

func TestEvaluate_NoPriorContactIsEligible(t *testing.T) {
	now := time.Now()
	ledger := &fakeLedger{latest: map[string]domain.ContactRecord{}}
	s := NewEligibilityService(ledger, testEligibilityConfig())

	verdict := s.Evaluate(context.Background(), "cust-1", "winback", 0, 0, now)

	if !verdict.IsEligible {
		t.Fatalf("expected eligible, got %+v", verdict)
	}
	if verdict.Reason != "no prior contact" {
		t.Errorf("expected reason %q, got %q", "no prior contact", verdict.Reason)
	}
	if verdict.Degraded {
		t.Errorf("expected Degraded=false for a verified verdict")
	}
}

func TestEvaluate_GlobalCooldownBlocks(t *testing.T) {
	now := time.Now()
	ledger := &fakeLedger{latest: map[string]domain.ContactRecord{
		"cust-1": contactedDaysAgo(now, 5, "promo"),
	}}
	s := NewEligibilityService(ledger, testEligibilityConfig())

	verdict := s.Evaluate(context.Background(), "cust-1", "winback", 7, 30, now)

	if verdict.IsEligible {
		t.Fatalf("expected ineligible at 5 of 7 days, got %+v", verdict)
	}
	if verdict.DaysUntilEligible != 2 {
		t.Errorf("expected DaysUntilEligible=2, got %d", verdict.DaysUntilEligible)
	}
	if verdict.DaysSinceContact == nil || *verdict.DaysSinceContact != 5 {
		t.Errorf("expected DaysSinceContact=5, got %v", verdict.DaysSinceContact)
	}
}

func TestEvaluate_EligibleAfterCooldownElapses(t *testing.T) {
	// Same customer ten days later: 15 days since contact, different type.
	now := time.Now()
	ledger := &fakeLedger{latest: map[string]domain.ContactRecord{
		"cust-1": contactedDaysAgo(now, 15, "promo"),
	}}
	s := NewEligibilityService(ledger, testEligibilityConfig())

	verdict := s.Evaluate(context.Background(), "cust-1", "winback", 7, 30, now)

	if !verdict.IsEligible {
		t.Fatalf("expected eligible at 15 days, got %+v", verdict)
	}
}

func TestEvaluate_SameTypeCooldownBlocksAfterGlobalPasses(t *testing.T) {
	now := time.Now()
	ledger := &fakeLedger{latest: map[string]domain.ContactRecord{
		"cust-1": contactedDaysAgo(now, 10, "winback"),
	}}
	s := NewEligibilityService(ledger, testEligibilityConfig())

	verdict := s.Evaluate(context.Background(), "cust-1", "winback", 7, 30, now)

	if verdict.IsEligible {
		t.Fatalf("expected same-type block at 10 of 30 days, got %+v", verdict)
	}
	if verdict.DaysUntilEligible != 20 {
		t.Errorf("expected DaysUntilEligible=20, got %d", verdict.DaysUntilEligible)
	}
}

func TestEvaluate_GlobalReasonWinsWhenBothBlock(t *testing.T) {
	// 3 days since a winback contact: both windows block, the reason must
	// cite the global cooldown.
	now := time.Now()
	ledger := &fakeLedger{latest: map[string]domain.ContactRecord{
		"cust-1": contactedDaysAgo(now, 3, "winback"),
	}}
	s := NewEligibilityService(ledger, testEligibilityConfig())

	verdict := s.Evaluate(context.Background(), "cust-1", "winback", 7, 30, now)

	if verdict.IsEligible {
		t.Fatalf("expected ineligible, got %+v", verdict)
	}
	if verdict.DaysUntilEligible != 4 {
		t.Errorf("expected global window remainder 4, got %d", verdict.DaysUntilEligible)
	}
	if got, want := verdict.Reason, "global cooldown"; !strings.Contains(got, want) {
		t.Errorf("expected reason to cite the global cooldown, got %q", got)
	}
}

func TestEvaluate_DifferentTypeIgnoresSameTypeWindow(t *testing.T) {
	now := time.Now()
	ledger := &fakeLedger{latest: map[string]domain.ContactRecord{
		"cust-1": contactedDaysAgo(now, 10, "welcome"),
	}}
	s := NewEligibilityService(ledger, testEligibilityConfig())

	verdict := s.Evaluate(context.Background(), "cust-1", "winback", 7, 30, now)

	if !verdict.IsEligible {
		t.Fatalf("expected eligible when types differ, got %+v", verdict)
	}
}

func TestEvaluate_FailsOpenWhenStoreUnreachable(t *testing.T) {
	now := time.Now()
	ledger := &fakeLedger{err: fmt.Errorf("connection refused")}
	s := NewEligibilityService(ledger, testEligibilityConfig())

	verdict := s.Evaluate(context.Background(), "cust-1", "winback", 0, 0, now)

	if !verdict.IsEligible {
		t.Fatalf("expected fail-open eligible, got %+v", verdict)
	}
	if !verdict.Degraded {
		t.Fatalf("expected Degraded=true on store failure")
	}
}

func TestEvaluateBatch_SingleFetchAndDefaults(t *testing.T) {
	now := time.Now()
	ledger := &fakeLedger{latest: map[string]domain.ContactRecord{
		"cust-1": contactedDaysAgo(now, 2, "promo"),
	}}
	s := NewEligibilityService(ledger, testEligibilityConfig())

	batch := s.EvaluateBatch(context.Background(), []string{"cust-1", "cust-2"}, "promo", 0, 0, now)

	if ledger.batchCalls != 1 {
		t.Fatalf("expected exactly one bulk fetch, got %d", ledger.batchCalls)
	}
	if ledger.singleCalls != 0 {
		t.Fatalf("expected no per-customer fetches, got %d", ledger.singleCalls)
	}
	if batch.Truncated {
		t.Errorf("expected Truncated=false for a small batch")
	}

	if v := batch.Verdicts["cust-1"]; v.IsEligible {
		t.Errorf("expected cust-1 blocked, got %+v", v)
	}
	if v := batch.Verdicts["cust-2"]; !v.IsEligible || v.Reason != "no prior contact" {
		t.Errorf("expected cust-2 eligible with no history, got %+v", v)
	}
}

func TestEvaluateBatch_CapsInputAndFlagsTruncation(t *testing.T) {
	now := time.Now()
	cfg := testEligibilityConfig()
	cfg.BatchCap = 3

	ledger := &fakeLedger{latest: map[string]domain.ContactRecord{}}
	s := NewEligibilityService(ledger, cfg)

	ids := []string{"a", "b", "c", "d", "e"}
	batch := s.EvaluateBatch(context.Background(), ids, "", 0, 0, now)

	if !batch.Truncated {
		t.Fatalf("expected Truncated=true when input exceeds the cap")
	}
	if len(batch.Verdicts) != 3 {
		t.Fatalf("expected 3 verdicts, got %d", len(batch.Verdicts))
	}
	if _, ok := batch.Verdicts["d"]; ok {
		t.Errorf("expected customers past the cap to be absent")
	}
}

func TestEvaluateBatch_FailsOpenForAllCustomers(t *testing.T) {
	now := time.Now()
	ledger := &fakeLedger{err: fmt.Errorf("connection refused")}
	s := NewEligibilityService(ledger, testEligibilityConfig())

	batch := s.EvaluateBatch(context.Background(), []string{"a", "b"}, "", 0, 0, now)

	for id, v := range batch.Verdicts {
		if !v.IsEligible || !v.Degraded {
			t.Errorf("expected degraded eligible verdict for %s, got %+v", id, v)
		}
	}
	if len(batch.Verdicts) != 2 {
		t.Fatalf("expected 2 verdicts, got %d", len(batch.Verdicts))
	}
}
