package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lavapop/campaign-service/internal/domain"
	"github.com/lavapop/campaign-service/pkg/logger"
)

// dispatchRunner is a minimal internal interface for the scheduler. It
// matches DispatchService and lets us unit test the scheduler with a
// small fake implementation.
type dispatchRunner interface {
	RunTick(ctx context.Context, limit int, now time.Time) (*domain.DispatchSummary, error)
	ReapStale(ctx context.Context, now time.Time) (int64, error)
}

type expireSweeper interface {
	ExpireSweep(ctx context.Context, now time.Time) (int, error)
}

// Scheduler drives the periodic work: the dispatch tick, the contact
// expire sweep, and the stale-processing reap. Each run is independent;
// the conditional claims in the services make overlapping runs safe.
type Scheduler struct {
	dispatch        dispatchRunner
	attribution     expireSweeper
	interval        time.Duration
	alertWebhook    string
	alertThreshold  int // Number of consecutive all-fail runs before alert
	lastAlertSentAt time.Time

	// Internal state
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.RWMutex

	// Statistics
	lastRunAt          time.Time
	campaignsProcessed int64
	messagesSent       int64
	runsCount          int64

	// Alert tracking
	consecutiveAllFailCount int
}

func NewScheduler(dispatch dispatchRunner, attribution expireSweeper, interval time.Duration) *Scheduler {
	return &Scheduler{
		dispatch:    dispatch,
		attribution: attribution,
		interval:    interval,
		running:     false,
	}
}

func (s *Scheduler) StartWithParams(
	ctx context.Context,
	intervalMinutes int,
	alertWebhook string,
	alertThreshold int,
) error {
	if intervalMinutes <= 0 {
		intervalMinutes = 5
	}

	s.mu.Lock()
	s.interval = time.Duration(intervalMinutes) * time.Minute
	s.alertWebhook = alertWebhook
	s.alertThreshold = alertThreshold
	s.consecutiveAllFailCount = 0
	s.mu.Unlock()

	return s.Start(ctx)
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is already running")
		return nil
	}

	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	s.mu.Unlock()

	logger.Infof("Starting scheduler with interval: %v", s.interval)

	go s.run(ctx)

	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneChan)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Infof("Scheduler running. Next execution in %v", s.interval)

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
			logger.Debugf("Next execution in %v", s.interval)

		case <-s.stopChan:
			logger.Warnf("Scheduler received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Scheduler context cancelled")
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.mu.Lock()
	s.lastRunAt = time.Now()
	s.runsCount++
	runNumber := s.runsCount
	alertWebhook := s.alertWebhook
	alertThreshold := s.alertThreshold
	s.mu.Unlock()

	now := time.Now()

	logger.Infof("[Run #%d] Starting dispatch tick at %s", runNumber, now.Format(time.RFC3339))

	summary, err := s.dispatch.RunTick(ctx, 0, now)
	if err != nil {
		logger.Errorf("[Run #%d] Error running dispatch tick: %v", runNumber, err)
	} else {
		s.recordTick(runNumber, summary, alertWebhook, alertThreshold)
	}

	if expired, err := s.attribution.ExpireSweep(ctx, now); err != nil {
		logger.Errorf("[Run #%d] Error running expire sweep: %v", runNumber, err)
	} else if expired > 0 {
		logger.Infof("[Run #%d] Expired %d tracking records", runNumber, expired)
	}

	if reaped, err := s.dispatch.ReapStale(ctx, now); err != nil {
		logger.Errorf("[Run #%d] Error reaping stale campaigns: %v", runNumber, err)
	} else if reaped > 0 {
		logger.Warnf("[Run #%d] Reaped %d stale campaigns", runNumber, reaped)
	}
}

func (s *Scheduler) recordTick(runNumber int64, summary *domain.DispatchSummary, alertWebhook string, alertThreshold int) {
	successCount := 0
	failedCount := 0
	for _, r := range summary.Results {
		successCount += r.Result.SuccessCount
		failedCount += r.Result.FailedCount
	}

	allFailed := failedCount > 0 && successCount == 0

	s.mu.Lock()
	s.campaignsProcessed += int64(summary.Processed)
	s.messagesSent += int64(successCount)

	// Track consecutive all-fail runs
	if allFailed {
		s.consecutiveAllFailCount++
		logger.Warnf("[Run #%d] All %d sends failed (consecutive count: %d/%d)",
			runNumber, failedCount, s.consecutiveAllFailCount, alertThreshold)

		if s.consecutiveAllFailCount >= alertThreshold && alertThreshold > 0 && alertWebhook != "" {
			go s.sendAlert(alertWebhook, runNumber, s.consecutiveAllFailCount, failedCount)
		}
	} else {
		// Reset only once a run actually sends something again.
		if successCount > 0 {
			if s.consecutiveAllFailCount > 0 {
				logger.Debugf(
					"[Run #%d] Resetting consecutive failure count (was: %d)",
					runNumber,
					s.consecutiveAllFailCount,
				)
			}
			s.consecutiveAllFailCount = 0
		}
	}
	s.mu.Unlock()

	if summary.Processed > 0 {
		logger.Infof("[Run #%d] Processed %d campaigns, %d messages sent, %d failed",
			runNumber, summary.Processed, successCount, failedCount)
	}
}

func (s *Scheduler) Stop() error {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is not running")
		return nil
	}

	s.running = false
	stopChan := s.stopChan
	doneChan := s.doneChan
	s.mu.Unlock()

	// Send stop signal
	close(stopChan)

	// Wait for goroutine to finish
	<-doneChan

	logger.Infof("Scheduler stopped")
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		Running:                 s.running,
		LastRunAt:               s.lastRunAt,
		CampaignsProcessed:      s.campaignsProcessed,
		MessagesSent:            s.messagesSent,
		RunsCount:               s.runsCount,
		Interval:                s.interval,
		ConsecutiveAllFailCount: s.consecutiveAllFailCount,
		LastAlertSentAt:         s.lastAlertSentAt,
	}

	if s.running && !s.lastRunAt.IsZero() {
		status.NextRunAt = s.lastRunAt.Add(s.interval)
	}

	return status
}

func (s *Scheduler) sendAlert(webhookURL string, runNumber int64, consecutiveFailures int, failedInRun int) {
	alertPayload := map[string]any{
		"alert":               "consecutive_all_fail",
		"runNumber":           runNumber,
		"consecutiveFailures": consecutiveFailures,
		"failedInRun":         failedInRun,
		"timestamp":           time.Now().Format(time.RFC3339),
		"message": fmt.Sprintf(
			"All sends failed for %d consecutive dispatch runs",
			consecutiveFailures,
		),
	}

	jsonData, err := json.Marshal(alertPayload)
	if err != nil {
		logger.Errorf("Failed to marshal alert payload: %v", err)
		return
	}

	resp, err := http.Post(webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		logger.Errorf("Failed to send alert to webhook: %v", err)
		return
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warnf("Failed to close alert webhook response body: %v", err)
		}
	}()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		s.mu.Lock()
		s.lastAlertSentAt = time.Now()
		s.mu.Unlock()
		logger.Infof("Alert sent successfully to %s (consecutive failures: %d)", webhookURL, consecutiveFailures)
	} else {
		logger.Warnf("Alert webhook returned status %d", resp.StatusCode)
	}
}

type Status struct {
	Running                 bool          `json:"running"`
	LastRunAt               time.Time     `json:"lastRunAt,omitempty"`
	NextRunAt               time.Time     `json:"nextRunAt,omitempty"`
	CampaignsProcessed      int64         `json:"campaignsProcessed"`
	MessagesSent            int64         `json:"messagesSent"`
	RunsCount               int64         `json:"runsCount"`
	Interval                time.Duration `json:"interval"`
	ConsecutiveAllFailCount int           `json:"consecutiveAllFailCount"`
	LastAlertSentAt         time.Time     `json:"lastAlertSentAt,omitempty"`
}
