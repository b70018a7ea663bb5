package postgres

import (
	"context"

	apperrors "talentbridge/internal/errors"
	"talentbridge/models"
	"talentbridge/ports"

	"github.com/jmoiron/sqlx"
)

// ClassifierUsageRepositoryImpl implements ClassifierUsageRepository for PostgreSQL
type ClassifierUsageRepositoryImpl struct {
	db *sqlx.DB
}

// NewClassifierUsageRepository creates a new PostgreSQL usage repository
func NewClassifierUsageRepository(db *sqlx.DB) ports.ClassifierUsageRepository {
	return &ClassifierUsageRepositoryImpl{db: db}
}

func (r *ClassifierUsageRepositoryImpl) Record(ctx context.Context, usage *models.ClassifierUsage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO classifier_usage (
			id, check_in_id, model, prompt_tokens, completion_tokens, total_tokens, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		usage.ID, usage.CheckInID, usage.Model,
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
	return apperrors.DatabaseError(err)
}
