package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lavapop/campaign-service/internal/domain"
)

const contactColumns = `id, customer_id, campaign_id, campaign_type, contact_method, status,
	contacted_at, expires_at, return_date, return_revenue, days_to_return, created_at, updated_at`

// ContactRepository handles database operations for the contact ledger.
// It carries no cooldown or attribution rules; those live in the services.
type ContactRepository struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Insert(ctx context.Context, rec *domain.ContactRecord) (int64, error) {
	query := `
		INSERT INTO contact_tracking
			(customer_id, campaign_id, campaign_type, contact_method, status, contacted_at, expires_at)
		VALUES (?, ?, ?, ?, 'pending', ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.CustomerID, rec.CampaignID, rec.CampaignType, rec.ContactMethod,
		rec.ContactedAt, rec.ExpiresAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert contact record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return id, nil
}

// Upsert keeps at most one pending record per customer: an existing
// pending row is rewritten in place, otherwise a new row is inserted.
// Used by manual contacts, which have no campaign context.
func (r *ContactRepository) Upsert(ctx context.Context, rec *domain.ContactRecord) (int64, error) {
	query := `
		UPDATE contact_tracking
		SET campaign_id = ?, campaign_type = ?, contact_method = ?,
		    contacted_at = ?, expires_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE customer_id = ? AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.CampaignID, rec.CampaignType, rec.ContactMethod,
		rec.ContactedAt, rec.ExpiresAt, rec.CustomerID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert contact record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows > 0 {
		existing, err := r.FindLatestByCustomer(ctx, rec.CustomerID, []domain.ContactStatus{domain.ContactPending})
		if err != nil {
			return 0, err
		}
		if existing == nil {
			return 0, fmt.Errorf("pending contact record for customer %s vanished during upsert", rec.CustomerID)
		}
		return existing.ID, nil
	}

	return r.Insert(ctx, rec)
}

func (r *ContactRepository) FindLatestByCustomer(
	ctx context.Context,
	customerID string,
	statuses []domain.ContactStatus,
) (*domain.ContactRecord, error) {
	query, args, err := sqlx.In(`
		SELECT `+contactColumns+`
		FROM contact_tracking
		WHERE customer_id = ? AND status IN (?)
		ORDER BY contacted_at DESC
		LIMIT 1
	`, customerID, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to build latest contact query: %w", err)
	}

	var rec domain.ContactRecord
	if err := r.db.GetContext(ctx, &rec, r.db.Rebind(query), args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest contact record: %w", err)
	}

	return &rec, nil
}

// FindLatestByCustomers fetches the most recent matching record per
// customer with a single query. Customers with no matching history are
// simply absent from the result map.
func (r *ContactRepository) FindLatestByCustomers(
	ctx context.Context,
	customerIDs []string,
	statuses []domain.ContactStatus,
) (map[string]domain.ContactRecord, error) {
	if len(customerIDs) == 0 {
		return map[string]domain.ContactRecord{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT `+contactColumns+`
		FROM contact_tracking
		WHERE customer_id IN (?) AND status IN (?)
		ORDER BY contacted_at DESC
	`, customerIDs, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to build batch contact query: %w", err)
	}

	var records []domain.ContactRecord
	if err := r.db.SelectContext(ctx, &records, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get latest contact records: %w", err)
	}

	// Rows come back newest first; keep only the first per customer.
	latest := make(map[string]domain.ContactRecord, len(customerIDs))
	for _, rec := range records {
		if _, seen := latest[rec.CustomerID]; !seen {
			latest[rec.CustomerID] = rec
		}
	}

	return latest, nil
}

// MarkReturned transitions a pending record to returned, populating the
// attribution fields. The status guard makes the transition race-safe.
func (r *ContactRepository) MarkReturned(
	ctx context.Context,
	id int64,
	returnDate time.Time,
	revenue float64,
	daysToReturn int,
) error {
	query := `
		UPDATE contact_tracking
		SET status = 'returned', return_date = ?, return_revenue = ?, days_to_return = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, returnDate, revenue, daysToReturn, id)
	if err != nil {
		return fmt.Errorf("failed to mark contact record as returned: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("no pending contact record with id %d", id)
	}

	return nil
}

func (r *ContactRepository) MarkExpired(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE contact_tracking
		SET status = 'expired', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark contact record as expired: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

func (r *ContactRepository) MarkCleared(ctx context.Context, id int64) error {
	query := `
		UPDATE contact_tracking
		SET status = 'cleared', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark contact record as cleared: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("no pending contact record with id %d", id)
	}

	return nil
}

func (r *ContactRepository) FindExpirable(ctx context.Context, now time.Time) ([]domain.ContactRecord, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM contact_tracking
		WHERE status = 'pending' AND expires_at < ?
		ORDER BY expires_at ASC
	`

	var records []domain.ContactRecord
	if err := r.db.SelectContext(ctx, &records, query, now); err != nil {
		return nil, fmt.Errorf("failed to get expirable contact records: %w", err)
	}

	return records, nil
}

// FindLatestPendingBefore returns the customer's most recent pending
// record contacted strictly before t, for return attribution.
func (r *ContactRepository) FindLatestPendingBefore(
	ctx context.Context,
	customerID string,
	t time.Time,
) (*domain.ContactRecord, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM contact_tracking
		WHERE customer_id = ? AND status = 'pending' AND contacted_at < ?
		ORDER BY contacted_at DESC
		LIMIT 1
	`

	var rec domain.ContactRecord
	if err := r.db.GetContext(ctx, &rec, query, customerID, t); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pending contact record: %w", err)
	}

	return &rec, nil
}

// GetStats returns ledger counts by status plus attributed return revenue.
func (r *ContactRepository) GetStats(ctx context.Context) (*domain.ContactStats, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0)  AS pending,
			COALESCE(SUM(CASE WHEN status = 'returned' THEN 1 ELSE 0 END), 0) AS returned,
			COALESCE(SUM(CASE WHEN status = 'expired' THEN 1 ELSE 0 END), 0)  AS expired,
			COALESCE(SUM(CASE WHEN status = 'cleared' THEN 1 ELSE 0 END), 0)  AS cleared,
			COALESCE(SUM(CASE WHEN status = 'returned' THEN return_revenue ELSE 0 END), 0) AS attributed_revenue
		FROM contact_tracking
	`

	var stats domain.ContactStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get contact stats: %w", err)
	}

	return &stats, nil
}
