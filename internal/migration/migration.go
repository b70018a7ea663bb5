package migration

import (
	"context"
	"fmt"

	apperrors "talentbridge/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createIntroductionsTable(ctx, db); err != nil {
		return apperrors.Wrap(err, "failed to create introductions table")
	}

	if err := r.createCheckInsTable(ctx, db); err != nil {
		return apperrors.Wrap(err, "failed to create check_ins table")
	}

	if err := r.createFlagsTable(ctx, db); err != nil {
		return apperrors.Wrap(err, "failed to create circumvention_flags table")
	}

	if err := r.createClassifierUsageTable(ctx, db); err != nil {
		return apperrors.Wrap(err, "failed to create classifier_usage table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return apperrors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createIntroductionsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS introductions (
			id UUID PRIMARY KEY,
			candidate_name VARCHAR(255) NOT NULL,
			candidate_email VARCHAR(255) NOT NULL,
			employer_name VARCHAR(255) NOT NULL,
			job_title VARCHAR(255) NOT NULL,
			annual_salary DOUBLE PRECISION NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			introduced_at TIMESTAMP WITH TIME ZONE NOT NULL,
			protection_expiry TIMESTAMP WITH TIME ZONE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createCheckInsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS check_ins (
			id UUID PRIMARY KEY,
			introduction_id UUID NOT NULL REFERENCES introductions(id) ON DELETE CASCADE,
			check_in_number INTEGER NOT NULL,
			scheduled_for TIMESTAMP WITH TIME ZONE NOT NULL,
			sent_at TIMESTAMP WITH TIME ZONE,
			responded_at TIMESTAMP WITH TIME ZONE,
			response_type VARCHAR(20),
			response_raw TEXT,
			response_parsed JSONB,
			risk_level VARCHAR(10),
			risk_reason TEXT,
			flagged_for_review BOOLEAN NOT NULL DEFAULT false,
			review_notes TEXT,
			reviewed_at TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE (introduction_id, check_in_number)
		)
	`)
	return err
}

func (r *MigrationRunner) createFlagsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS circumvention_flags (
			id UUID PRIMARY KEY,
			introduction_id UUID NOT NULL REFERENCES introductions(id) ON DELETE CASCADE,
			status VARCHAR(20) NOT NULL DEFAULT 'OPEN',
			detected_at TIMESTAMP WITH TIME ZONE NOT NULL,
			detection_method VARCHAR(30) NOT NULL,
			evidence JSONB NOT NULL DEFAULT '[]'::jsonb,
			estimated_salary DOUBLE PRECISION NOT NULL DEFAULT 0,
			fee_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
			estimated_fee_owed DOUBLE PRECISION NOT NULL DEFAULT 0,
			invoice_number VARCHAR(100),
			invoice_sent_at TIMESTAMP WITH TIME ZONE,
			invoice_amount DOUBLE PRECISION,
			invoice_paid_at TIMESTAMP WITH TIME ZONE,
			resolved_at TIMESTAMP WITH TIME ZONE,
			resolution VARCHAR(50),
			resolution_notes TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	// One active case per introduction, enforced at the storage layer so two
	// racing detection signals can never both open a flag.
	_, err = db.ExecContext(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS uq_active_flag_per_introduction
		ON circumvention_flags (introduction_id)
		WHERE status IN ('OPEN', 'INVESTIGATING')
	`)
	return err
}

func (r *MigrationRunner) createClassifierUsageTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS classifier_usage (
			id UUID PRIMARY KEY,
			check_in_id UUID NOT NULL REFERENCES check_ins(id) ON DELETE CASCADE,
			model VARCHAR(100) NOT NULL,
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_introductions_status ON introductions(status)",
		"CREATE INDEX IF NOT EXISTS idx_introductions_protection_expiry ON introductions(protection_expiry)",

		"CREATE INDEX IF NOT EXISTS idx_check_ins_introduction_id ON check_ins(introduction_id)",
		"CREATE INDEX IF NOT EXISTS idx_check_ins_due ON check_ins(scheduled_for) WHERE sent_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_check_ins_flagged ON check_ins(flagged_for_review) WHERE flagged_for_review",
		"CREATE INDEX IF NOT EXISTS idx_check_ins_risk_level ON check_ins(risk_level)",

		"CREATE INDEX IF NOT EXISTS idx_flags_introduction_id ON circumvention_flags(introduction_id)",
		"CREATE INDEX IF NOT EXISTS idx_flags_status ON circumvention_flags(status)",
		"CREATE INDEX IF NOT EXISTS idx_flags_detected_at ON circumvention_flags(detected_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_classifier_usage_check_in ON classifier_usage(check_in_id)",
	}

	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			// Log but don't fail on index creation errors
			fmt.Printf("Warning: failed to create index: %v\n", err)
		}
	}

	return nil
}
