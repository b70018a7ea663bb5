package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"talentbridge/domain/core"
	apperrors "talentbridge/internal/errors"
	"talentbridge/models"
	"talentbridge/ports"

	"github.com/jmoiron/sqlx"
)

// IntroductionRepositoryImpl implements IntroductionRepository for PostgreSQL
type IntroductionRepositoryImpl struct {
	db *sqlx.DB
}

// NewIntroductionRepository creates a new PostgreSQL introduction repository
func NewIntroductionRepository(db *sqlx.DB) ports.IntroductionRepository {
	return &IntroductionRepositoryImpl{db: db}
}

func (r *IntroductionRepositoryImpl) Create(ctx context.Context, intro *models.Introduction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO introductions (
			id, candidate_name, candidate_email, employer_name, job_title,
			annual_salary, introduced_at, protection_expiry, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`,
		intro.ID, intro.CandidateName, intro.CandidateEmail, intro.EmployerName,
		intro.JobTitle, intro.AnnualSalary, intro.IntroducedAt, intro.ProtectionExpiry,
		intro.Status)
	return apperrors.DatabaseError(err)
}

func (r *IntroductionRepositoryImpl) GetByID(ctx context.Context, id core.IntroductionID) (*models.Introduction, error) {
	var intro models.Introduction
	err := r.db.GetContext(ctx, &intro, `
		SELECT id, candidate_name, candidate_email, employer_name, job_title,
		       annual_salary, introduced_at, protection_expiry, status, created_at
		FROM introductions
		WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("introduction", id.String())
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return &intro, nil
}

func (r *IntroductionRepositoryImpl) ListActive(ctx context.Context, now time.Time) ([]*models.Introduction, error) {
	var intros []*models.Introduction
	err := r.db.SelectContext(ctx, &intros, `
		SELECT id, candidate_name, candidate_email, employer_name, job_title,
		       annual_salary, introduced_at, protection_expiry, status, created_at
		FROM introductions
		WHERE status = $1 AND protection_expiry > $2
		ORDER BY introduced_at`, models.IntroductionActive, now)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return intros, nil
}

func (r *IntroductionRepositoryImpl) CountActive(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM introductions
		WHERE status = $1 AND protection_expiry > $2`, models.IntroductionActive, now)
	if err != nil {
		return 0, apperrors.DatabaseError(err)
	}
	return count, nil
}

func (r *IntroductionRepositoryImpl) UpdateStatus(ctx context.Context, id core.IntroductionID, status models.IntroductionStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE introductions SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("introduction", id.String())
	}
	return nil
}
