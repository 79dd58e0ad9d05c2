package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lavapop/campaign-service/environments"
	"github.com/lavapop/campaign-service/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

func RunMigrations(db *sqlx.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS contact_tracking (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			customer_id VARCHAR(64) NOT NULL,
			campaign_id BIGINT,
			campaign_type VARCHAR(32) NOT NULL DEFAULT 'other',
			contact_method VARCHAR(32) NOT NULL DEFAULT 'whatsapp',
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			contacted_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			return_date DATETIME,
			return_revenue DECIMAL(12,2),
			days_to_return INT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_contact_tracking_customer (customer_id, status, contacted_at),
			INDEX idx_contact_tracking_expiry (status, expires_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS scheduled_campaigns (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			campaign_id BIGINT NOT NULL,
			campaign_type VARCHAR(32) NOT NULL DEFAULT 'other',
			message_body TEXT NOT NULL,
			recipients JSON NOT NULL,
			scheduled_for DATETIME NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
			executed_at DATETIME,
			execution_result JSON,
			coupon_days INT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_scheduled_campaigns_due (status, scheduled_for)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS campaign_sends (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			campaign_id BIGINT NOT NULL,
			recipient_count INT NOT NULL,
			success_count INT NOT NULL,
			failed_count INT NOT NULL,
			sent_at DATETIME NOT NULL,
			INDEX idx_campaign_sends_campaign (campaign_id, sent_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
	}

	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	logger.Infof("Database migrations completed")

	return nil
}

func SeedTestData(db *sqlx.DB) error {
	var count int

	err := db.Get(&count, "SELECT COUNT(*) FROM scheduled_campaigns")
	if err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d scheduled campaigns, skipping seed", count)
		return nil
	}

	campaigns := []struct {
		campaignID   int64
		campaignType string
		body         string
		recipients   string
		scheduledFor time.Time
	}{
		{
			campaignID:   1,
			campaignType: "winback",
			body:         "Oi {{name}}! Sentimos sua falta. Volte essa semana e ganhe 10% de cashback.",
			recipients: `[{"phone":"+5511987650001","name":"Ana","customerId":"cust-001"},` +
				`{"phone":"+5511987650002","name":"Bruno","customerId":"cust-002"}]`,
			scheduledFor: time.Now().Add(-10 * time.Minute),
		},
		{
			campaignID:   2,
			campaignType: "wallet",
			body:         "Oi {{name}}, voce tem R$ {{wallet_balance}} de saldo esperando por voce!",
			recipients: `[{"phone":"+5511987650003","name":"Carla","customerId":"cust-003","walletBalance":23.50}]`,
			scheduledFor: time.Now().Add(2 * time.Hour),
		},
	}

	for _, c := range campaigns {
		_, err := db.Exec(
			`INSERT INTO scheduled_campaigns
				(campaign_id, campaign_type, message_body, recipients, scheduled_for, status)
			 VALUES (?, ?, ?, ?, ?, 'scheduled')`,
			c.campaignID, c.campaignType, c.body, c.recipients, c.scheduledFor,
		)
		if err != nil {
			return fmt.Errorf("failed to seed test data: %w", err)
		}
	}

	logger.Infof("Seeded %d scheduled campaigns", len(campaigns))
	return nil
}
