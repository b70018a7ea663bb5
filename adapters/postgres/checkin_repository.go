package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"talentbridge/domain/core"
	apperrors "talentbridge/internal/errors"
	"talentbridge/models"
	"talentbridge/ports"

	"github.com/jmoiron/sqlx"
)

// CheckInRepositoryImpl implements CheckInRepository for PostgreSQL
type CheckInRepositoryImpl struct {
	db *sqlx.DB
}

// NewCheckInRepository creates a new PostgreSQL check-in repository
func NewCheckInRepository(db *sqlx.DB) ports.CheckInRepository {
	return &CheckInRepositoryImpl{db: db}
}

const checkInColumns = `
	id, introduction_id, check_in_number, scheduled_for, sent_at,
	responded_at, response_type, response_raw, response_parsed,
	risk_level, risk_reason, flagged_for_review, reviewed_at, review_notes,
	created_at`

// CreateIfMissing relies on the unique (introduction_id, check_in_number)
// constraint: concurrent scheduler runs insert at most one row per milestone.
func (r *CheckInRepositoryImpl) CreateIfMissing(ctx context.Context, intro core.IntroductionID, number int, scheduledFor time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO check_ins (id, introduction_id, check_in_number, scheduled_for, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (introduction_id, check_in_number) DO NOTHING`,
		core.NewID(), intro, number, scheduledFor)
	if err != nil {
		return false, apperrors.DatabaseError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.DatabaseError(err)
	}
	return n > 0, nil
}

func (r *CheckInRepositoryImpl) GetByID(ctx context.Context, id core.CheckInID) (*models.CheckIn, error) {
	var ci models.CheckIn
	err := r.db.GetContext(ctx, &ci,
		`SELECT `+checkInColumns+` FROM check_ins WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("check-in", id.String())
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return &ci, nil
}

func (r *CheckInRepositoryImpl) ListDueUnsent(ctx context.Context, now time.Time) ([]*models.CheckIn, error) {
	var due []*models.CheckIn
	err := r.db.SelectContext(ctx, &due, `
		SELECT `+checkInColumns+` FROM check_ins
		WHERE sent_at IS NULL AND scheduled_for <= $1
		ORDER BY scheduled_for`, now)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return due, nil
}

// ClaimForSend is the atomic dispatch gate: the sent_at IS NULL guard means
// exactly one runner wins the claim for a given check-in.
func (r *CheckInRepositoryImpl) ClaimForSend(ctx context.Context, id core.CheckInID, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE check_ins SET sent_at = $2 WHERE id = $1 AND sent_at IS NULL`, id, at)
	if err != nil {
		return false, apperrors.DatabaseError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.DatabaseError(err)
	}
	return n > 0, nil
}

func (r *CheckInRepositoryImpl) ReleaseClaim(ctx context.Context, id core.CheckInID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE check_ins SET sent_at = NULL WHERE id = $1`, id)
	return apperrors.DatabaseError(err)
}

func (r *CheckInRepositoryImpl) MarkSent(ctx context.Context, id core.CheckInID, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE check_ins SET sent_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("check-in", id.String())
	}
	return nil
}

// SaveClassification writes the complete parse in one statement so the
// responded_at/response_type invariant can never be observed half-set.
// Re-classification overwrites the previous parse.
func (r *CheckInRepositoryImpl) SaveClassification(ctx context.Context, id core.CheckInID, raw string, parsed *models.ParsedResponse, respondedAt time.Time, flaggedForReview bool) error {
	parsedJSON, err := json.Marshal(parsed)
	if err != nil {
		return apperrors.Wrap(err, "marshal parsed response")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE check_ins SET
			responded_at = $2,
			response_type = $3,
			response_raw = $4,
			response_parsed = $5,
			risk_level = $6,
			risk_reason = $7,
			flagged_for_review = $8
		WHERE id = $1`,
		id, respondedAt, parsed.Status, raw, parsedJSON,
		parsed.RiskLevel, parsed.Summary, flaggedForReview)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("check-in", id.String())
	}
	return nil
}

// UpdateReview keeps the stored notes when the caller passes none, so a bare
// flag toggle never erases an earlier review.
func (r *CheckInRepositoryImpl) UpdateReview(ctx context.Context, id core.CheckInID, notes string, flagged bool, reviewedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE check_ins SET
			review_notes = COALESCE(NULLIF($2, ''), review_notes),
			flagged_for_review = $3,
			reviewed_at = $4
		WHERE id = $1`, id, notes, flagged, reviewedAt)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("check-in", id.String())
	}
	return nil
}

func (r *CheckInRepositoryImpl) List(ctx context.Context, filter ports.CheckInFilter) ([]*models.CheckIn, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !core.ID(filter.IntroductionID).IsEmpty() {
		where = append(where, "c.introduction_id = "+arg(filter.IntroductionID))
	}
	if filter.RiskLevel != "" {
		where = append(where, "c.risk_level = "+arg(filter.RiskLevel))
	}
	if filter.FlaggedOnly {
		where = append(where, "c.flagged_for_review = TRUE")
	}
	if filter.Candidate != "" {
		where = append(where, "i.candidate_name ILIKE "+arg("%"+filter.Candidate+"%"))
	}
	if filter.From != nil {
		where = append(where, "c.scheduled_for >= "+arg(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "c.scheduled_for <= "+arg(*filter.To))
	}
	cond := strings.Join(where, " AND ")

	var total int
	err := r.db.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM check_ins c
		JOIN introductions i ON i.id = c.introduction_id
		WHERE `+cond, args...)
	if err != nil {
		return nil, 0, apperrors.DatabaseError(err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	query := `
		SELECT c.id, c.introduction_id, c.check_in_number, c.scheduled_for, c.sent_at,
		       c.responded_at, c.response_type, c.response_raw, c.response_parsed,
		       c.risk_level, c.risk_reason, c.flagged_for_review, c.reviewed_at, c.review_notes,
		       c.created_at
		FROM check_ins c
		JOIN introductions i ON i.id = c.introduction_id
		WHERE ` + cond + `
		ORDER BY c.scheduled_for DESC
		LIMIT ` + arg(limit) + ` OFFSET ` + arg(filter.Offset)

	var items []*models.CheckIn
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, apperrors.DatabaseError(err)
	}
	return items, total, nil
}

func (r *CheckInRepositoryImpl) Counts(ctx context.Context) (*models.CheckInCounts, error) {
	var counts models.CheckInCounts
	err := r.db.GetContext(ctx, &counts, `
		SELECT COUNT(*) AS created,
		       COUNT(sent_at) AS sent,
		       COUNT(responded_at) AS responded,
		       COUNT(*) FILTER (WHERE flagged_for_review) AS flagged
		FROM check_ins`)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return &counts, nil
}
