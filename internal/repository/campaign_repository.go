package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lavapop/campaign-service/internal/domain"
)

const campaignColumns = `id, campaign_id, campaign_type, message_body, recipients, scheduled_for,
	status, executed_at, execution_result, coupon_days, created_at, updated_at`

// CampaignRepository handles database operations for scheduled campaigns
// and the append-only campaign_sends audit table.
type CampaignRepository struct {
	db *sqlx.DB
}

func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) Create(ctx context.Context, sc *domain.ScheduledCampaign) (*domain.ScheduledCampaign, error) {
	query := `
		INSERT INTO scheduled_campaigns
			(campaign_id, campaign_type, message_body, recipients, scheduled_for, status, coupon_days)
		VALUES (?, ?, ?, ?, ?, 'scheduled', ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		sc.CampaignID, sc.CampaignType, sc.MessageBody, sc.Recipients, sc.ScheduledFor, sc.CouponDays,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduled campaign: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*domain.ScheduledCampaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM scheduled_campaigns
		WHERE id = ?
	`

	var sc domain.ScheduledCampaign
	if err := r.db.GetContext(ctx, &sc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get scheduled campaign: %w", err)
	}

	return &sc, nil
}

func (r *CampaignRepository) GetAll(
	ctx context.Context,
	status *domain.CampaignStatus,
	page, pageSize int,
) ([]domain.ScheduledCampaign, int64, error) {
	offset := (page - 1) * pageSize
	var totalCount int64
	var campaigns []domain.ScheduledCampaign

	if status != nil {
		countQuery := "SELECT COUNT(*) FROM scheduled_campaigns WHERE status = ?"
		if err := r.db.GetContext(ctx, &totalCount, countQuery, *status); err != nil {
			return nil, 0, fmt.Errorf("failed to count scheduled campaigns: %w", err)
		}

		query := `
			SELECT ` + campaignColumns + `
			FROM scheduled_campaigns
			WHERE status = ?
			ORDER BY scheduled_for DESC
			LIMIT ? OFFSET ?
		`
		if err := r.db.SelectContext(ctx, &campaigns, query, *status, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to get scheduled campaigns: %w", err)
		}
	} else {
		countQuery := "SELECT COUNT(*) FROM scheduled_campaigns"
		if err := r.db.GetContext(ctx, &totalCount, countQuery); err != nil {
			return nil, 0, fmt.Errorf("failed to count scheduled campaigns: %w", err)
		}

		query := `
			SELECT ` + campaignColumns + `
			FROM scheduled_campaigns
			ORDER BY scheduled_for DESC
			LIMIT ? OFFSET ?
		`
		if err := r.db.SelectContext(ctx, &campaigns, query, pageSize, offset); err != nil {
			return nil, 0, fmt.Errorf("failed to get scheduled campaigns: %w", err)
		}
	}

	return campaigns, totalCount, nil
}

// FindDue returns up to limit due campaigns, oldest first so a backlog is
// drained fairly.
func (r *CampaignRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledCampaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM scheduled_campaigns
		WHERE status = 'scheduled' AND scheduled_for <= ?
		ORDER BY scheduled_for ASC
		LIMIT ?
	`

	var campaigns []domain.ScheduledCampaign
	if err := r.db.SelectContext(ctx, &campaigns, query, now, limit); err != nil {
		return nil, fmt.Errorf("failed to get due campaigns: %w", err)
	}

	return campaigns, nil
}

// Claim transitions scheduled -> processing as a single conditional
// update. Exactly one concurrent caller can win; everyone else sees zero
// rows affected and must skip the campaign.
func (r *CampaignRepository) Claim(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE scheduled_campaigns
		SET status = 'processing', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'scheduled'
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim campaign %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows == 1, nil
}

// Finish records the terminal state of a claimed campaign. Only the
// sent and failed statuses are valid here, and only from processing.
func (r *CampaignRepository) Finish(
	ctx context.Context,
	id int64,
	status domain.CampaignStatus,
	executedAt time.Time,
	result domain.ExecutionResult,
) error {
	if status != domain.CampaignSent && status != domain.CampaignFailed {
		return fmt.Errorf("invalid terminal status %q for campaign %d", status, id)
	}

	query := `
		UPDATE scheduled_campaigns
		SET status = ?, executed_at = ?, execution_result = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'processing'
	`

	res, err := r.db.ExecContext(ctx, query, status, executedAt, result, id)
	if err != nil {
		return fmt.Errorf("failed to finish campaign %d: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("no processing campaign with id %d", id)
	}

	return nil
}

// Cancel is only valid from the scheduled state.
func (r *CampaignRepository) Cancel(ctx context.Context, id int64) error {
	query := `
		UPDATE scheduled_campaigns
		SET status = 'cancelled', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'scheduled'
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to cancel campaign %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("no cancellable campaign with id %d", id)
	}

	return nil
}

// ReapStale fails processing rows older than the cutoff. The claim step
// guarantees exclusivity but not liveness; a crash mid-dispatch leaves a
// row behind that this sweep turns into an auditable failure.
func (r *CampaignRepository) ReapStale(ctx context.Context, cutoff time.Time) (int64, error) {
	stale := domain.ExecutionResult{
		Details: []domain.RecipientResult{},
		Error:   "processing timed out; reaped by reconciliation sweep",
	}

	query := `
		UPDATE scheduled_campaigns
		SET status = 'failed', executed_at = CURRENT_TIMESTAMP, execution_result = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE status = 'processing' AND updated_at < ?
	`

	result, err := r.db.ExecContext(ctx, query, stale, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reap stale campaigns: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}

func (r *CampaignRepository) InsertAudit(ctx context.Context, audit *domain.CampaignSendAudit) error {
	query := `
		INSERT INTO campaign_sends (campaign_id, recipient_count, success_count, failed_count, sent_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		audit.CampaignID, audit.RecipientCount, audit.SuccessCount, audit.FailedCount, audit.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert campaign send audit: %w", err)
	}

	return nil
}

func (r *CampaignRepository) GetAuditsByCampaign(ctx context.Context, campaignID int64) ([]domain.CampaignSendAudit, error) {
	query := `
		SELECT id, campaign_id, recipient_count, success_count, failed_count, sent_at
		FROM campaign_sends
		WHERE campaign_id = ?
		ORDER BY sent_at DESC
	`

	var audits []domain.CampaignSendAudit
	if err := r.db.SelectContext(ctx, &audits, query, campaignID); err != nil {
		return nil, fmt.Errorf("failed to get campaign send audits: %w", err)
	}

	return audits, nil
}
