package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"talentbridge/domain/core"
	"talentbridge/domain/flags"
	apperrors "talentbridge/internal/errors"
	"talentbridge/models"
	"talentbridge/ports"

	"github.com/jmoiron/sqlx"
)

// FlagRepositoryImpl implements FlagRepository for PostgreSQL
type FlagRepositoryImpl struct {
	db *sqlx.DB
}

// NewFlagRepository creates a new PostgreSQL flag repository
func NewFlagRepository(db *sqlx.DB) ports.FlagRepository {
	return &FlagRepositoryImpl{db: db}
}

// flagRow adds the raw evidence column to the model for scanning.
type flagRow struct {
	models.CircumventionFlag
	EvidenceRaw []byte `db:"evidence"`
}

func (row *flagRow) toModel() (*models.CircumventionFlag, error) {
	trail, err := flags.UnmarshalTrail(row.EvidenceRaw)
	if err != nil {
		return nil, apperrors.Wrap(err, "decode flag evidence")
	}
	flag := row.CircumventionFlag
	flag.Evidence = trail
	return &flag, nil
}

const flagColumns = `
	id, introduction_id, status, detected_at, detection_method, evidence,
	estimated_salary, fee_percentage, estimated_fee_owed,
	invoice_number, invoice_sent_at, invoice_amount, invoice_paid_at,
	resolved_at, resolution, resolution_notes, created_at, updated_at`

func (r *FlagRepositoryImpl) Create(ctx context.Context, flag *models.CircumventionFlag) error {
	evidenceJSON, err := flags.MarshalTrail(flag.Evidence)
	if err != nil {
		return apperrors.Wrap(err, "marshal flag evidence")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO circumvention_flags (
			id, introduction_id, status, detected_at, detection_method, evidence,
			estimated_salary, fee_percentage, estimated_fee_owed, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
		flag.ID, flag.IntroductionID, flag.Status, flag.DetectedAt,
		flag.DetectionMethod, evidenceJSON,
		flag.EstimatedSalary, flag.FeePercentage, flag.EstimatedFeeOwed)
	if err != nil {
		// The partial unique index on active flags turns a racing duplicate
		// into a conflict instead of a second open case.
		if strings.Contains(err.Error(), "uq_active_flag_per_introduction") {
			return apperrors.Conflict("introduction already has an active flag")
		}
		return apperrors.DatabaseError(err)
	}
	return nil
}

func (r *FlagRepositoryImpl) GetByID(ctx context.Context, id core.FlagID) (*models.CircumventionFlag, error) {
	var row flagRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+flagColumns+` FROM circumvention_flags WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("flag", id.String())
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return row.toModel()
}

func (r *FlagRepositoryImpl) GetActiveByIntroduction(ctx context.Context, intro core.IntroductionID) (*models.CircumventionFlag, bool, error) {
	var row flagRow
	err := r.db.GetContext(ctx, &row, `
		SELECT `+flagColumns+` FROM circumvention_flags
		WHERE introduction_id = $1 AND status IN ($2, $3)`,
		intro, flags.StatusOpen, flags.StatusInvestigating)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.DatabaseError(err)
	}
	flag, convErr := row.toModel()
	if convErr != nil {
		return nil, false, convErr
	}
	return flag, true, nil
}

// AppendEvidence validates the item, then appends it server-side so two
// concurrent appends both land.
func (r *FlagRepositoryImpl) AppendEvidence(ctx context.Context, id core.FlagID, item flags.Evidence) error {
	if err := item.Validate(); err != nil {
		return err
	}
	itemJSON, err := json.Marshal(item)
	if err != nil {
		return apperrors.Wrap(err, "marshal evidence item")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE circumvention_flags
		SET evidence = evidence || $2::jsonb, updated_at = NOW()
		WHERE id = $1`, id, itemJSON)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("flag", id.String())
	}
	return nil
}

// CompareAndSwapStatus serializes transitions per flag: the WHERE status
// guard makes a stale caller lose cleanly.
func (r *FlagRepositoryImpl) CompareAndSwapStatus(ctx context.Context, id core.FlagID, expected, next flags.Status, mut ports.FlagMutation) (bool, error) {
	set := []string{"status = $3", "updated_at = NOW()"}
	args := []interface{}{id, expected, next}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if mut.InvoiceNumber != nil {
		set = append(set, "invoice_number = "+arg(*mut.InvoiceNumber))
	}
	if mut.InvoiceSentAt != nil {
		set = append(set, "invoice_sent_at = "+arg(*mut.InvoiceSentAt))
	}
	if mut.InvoiceAmount != nil {
		set = append(set, "invoice_amount = "+arg(*mut.InvoiceAmount))
	}
	if mut.InvoicePaidAt != nil {
		set = append(set, "invoice_paid_at = "+arg(*mut.InvoicePaidAt))
	}
	if mut.ResolvedAt != nil {
		set = append(set, "resolved_at = "+arg(*mut.ResolvedAt))
	}
	if mut.Resolution != nil {
		set = append(set, "resolution = "+arg(*mut.Resolution))
	}
	if mut.ResolutionNotes != nil {
		set = append(set, "resolution_notes = "+arg(*mut.ResolutionNotes))
	}

	query := `UPDATE circumvention_flags SET ` + strings.Join(set, ", ") + `
		WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.DatabaseError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.DatabaseError(err)
	}
	return n > 0, nil
}

func (r *FlagRepositoryImpl) UpdateFeeFields(ctx context.Context, id core.FlagID, salary, percentage, owed float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE circumvention_flags
		SET estimated_salary = $2, fee_percentage = $3, estimated_fee_owed = $4, updated_at = NOW()
		WHERE id = $1`, id, salary, percentage, owed)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("flag", id.String())
	}
	return nil
}

func (r *FlagRepositoryImpl) List(ctx context.Context, filter ports.FlagFilter) ([]*models.CircumventionFlag, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		where = append(where, "f.status = "+arg(filter.Status))
	}
	if !core.ID(filter.IntroductionID).IsEmpty() {
		where = append(where, "f.introduction_id = "+arg(filter.IntroductionID))
	}
	if filter.Candidate != "" {
		where = append(where, "i.candidate_name ILIKE "+arg("%"+filter.Candidate+"%"))
	}
	if filter.From != nil {
		where = append(where, "f.detected_at >= "+arg(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "f.detected_at <= "+arg(*filter.To))
	}
	cond := strings.Join(where, " AND ")

	var total int
	err := r.db.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM circumvention_flags f
		JOIN introductions i ON i.id = f.introduction_id
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
		SELECT f.id, f.introduction_id, f.status, f.detected_at, f.detection_method, f.evidence,
		       f.estimated_salary, f.fee_percentage, f.estimated_fee_owed,
		       f.invoice_number, f.invoice_sent_at, f.invoice_amount, f.invoice_paid_at,
		       f.resolved_at, f.resolution, f.resolution_notes, f.created_at, f.updated_at
		FROM circumvention_flags f
		JOIN introductions i ON i.id = f.introduction_id
		WHERE ` + cond + `
		ORDER BY f.detected_at DESC
		LIMIT ` + arg(limit) + ` OFFSET ` + arg(filter.Offset)

	var rows []*flagRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, apperrors.DatabaseError(err)
	}
	items := make([]*models.CircumventionFlag, 0, len(rows))
	for _, row := range rows {
		flag, convErr := row.toModel()
		if convErr != nil {
			return nil, 0, convErr
		}
		items = append(items, flag)
	}
	return items, total, nil
}

func (r *FlagRepositoryImpl) CountsByStatus(ctx context.Context) (map[flags.Status]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM circumvention_flags GROUP BY status`)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	defer rows.Close()

	counts := make(map[flags.Status]int)
	for rows.Next() {
		var status flags.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, apperrors.DatabaseError(err)
		}
		counts[status] = count
	}
	return counts, apperrors.DatabaseError(rows.Err())
}

func (r *FlagRepositoryImpl) Financials(ctx context.Context) (*models.FlagFinancials, error) {
	var fin models.FlagFinancials
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(estimated_fee_owed), 0),
		       COALESCE(SUM(invoice_amount), 0),
		       COALESCE(SUM(invoice_amount) FILTER (WHERE status = $1), 0)
		FROM circumvention_flags`, flags.StatusPaid).
		Scan(&fin.TotalOwed, &fin.TotalInvoiced, &fin.TotalCollected)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	var amounts []float64
	err = r.db.SelectContext(ctx, &amounts, `
		SELECT invoice_amount FROM circumvention_flags
		WHERE invoice_amount IS NOT NULL
		ORDER BY invoice_sent_at`)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	fin.InvoiceAmounts = amounts
	return &fin, nil
}
