package ports

import (
	"context"
	"time"

	"talentbridge/domain/core"
	"talentbridge/domain/flags"
	"talentbridge/models"
)

// IntroductionRepository stores candidate-employer introductions.
type IntroductionRepository interface {
	Create(ctx context.Context, intro *models.Introduction) error
	GetByID(ctx context.Context, id core.IntroductionID) (*models.Introduction, error)
	// ListActive returns introductions whose protection window is open at now.
	ListActive(ctx context.Context, now time.Time) ([]*models.Introduction, error)
	CountActive(ctx context.Context, now time.Time) (int, error)
	UpdateStatus(ctx context.Context, id core.IntroductionID, status models.IntroductionStatus) error
}

// CheckInFilter narrows check-in listings for the admin surface.
type CheckInFilter struct {
	IntroductionID core.IntroductionID
	RiskLevel      models.RiskLevel
	FlaggedOnly    bool
	Candidate      string
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
}

// CheckInRepository stores scheduled outreach records. The mutating methods
// are deliberately narrow: each maps to one atomic statement so the
// scheduler and classifier never half-write a row.
type CheckInRepository interface {
	// CreateIfMissing inserts a check-in for (introduction, number) unless one
	// already exists. Returns true when a row was created.
	CreateIfMissing(ctx context.Context, intro core.IntroductionID, number int, scheduledFor time.Time) (bool, error)
	GetByID(ctx context.Context, id core.CheckInID) (*models.CheckIn, error)
	// ListDueUnsent returns check-ins with sent_at null and scheduled_for <= now.
	ListDueUnsent(ctx context.Context, now time.Time) ([]*models.CheckIn, error)
	// ClaimForSend conditionally stamps sent_at, guarded by sent_at IS NULL.
	// Returns false when another runner already claimed the row.
	ClaimForSend(ctx context.Context, id core.CheckInID, at time.Time) (bool, error)
	// ReleaseClaim rolls a claim back after a failed send so the next
	// scheduler pass retries the dispatch.
	ReleaseClaim(ctx context.Context, id core.CheckInID) error
	// MarkSent unconditionally stamps sent_at; used by the operator resend path.
	MarkSent(ctx context.Context, id core.CheckInID, at time.Time) error
	// SaveClassification persists a full parse result in one statement:
	// responded fields, parsed payload, risk fields and the review flag all
	// land together or not at all.
	SaveClassification(ctx context.Context, id core.CheckInID, raw string, parsed *models.ParsedResponse, respondedAt time.Time, flaggedForReview bool) error
	// UpdateReview stamps the review fields. Empty notes leave the stored
	// notes untouched so toggling the flag alone never erases them.
	UpdateReview(ctx context.Context, id core.CheckInID, notes string, flagged bool, reviewedAt time.Time) error
	List(ctx context.Context, filter CheckInFilter) ([]*models.CheckIn, int, error)
	Counts(ctx context.Context) (*models.CheckInCounts, error)
}

// FlagFilter narrows flag listings for the admin surface.
type FlagFilter struct {
	Status         flags.Status
	IntroductionID core.IntroductionID
	Candidate      string
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
}

// FlagMutation carries the fields applied alongside a status transition.
// Nil pointers leave the column untouched.
type FlagMutation struct {
	InvoiceNumber   *string
	InvoiceSentAt   *time.Time
	InvoiceAmount   *float64
	InvoicePaidAt   *time.Time
	ResolvedAt      *time.Time
	Resolution      *string
	ResolutionNotes *string
}

// FlagRepository stores circumvention cases. Status changes are applied with
// a compare-and-set on the current status so two racing operators produce
// one success and one conflict, never a silent overwrite.
type FlagRepository interface {
	Create(ctx context.Context, flag *models.CircumventionFlag) error
	GetByID(ctx context.Context, id core.FlagID) (*models.CircumventionFlag, error)
	// GetActiveByIntroduction returns the OPEN or INVESTIGATING flag for the
	// introduction, if any.
	GetActiveByIntroduction(ctx context.Context, intro core.IntroductionID) (*models.CircumventionFlag, bool, error)
	// AppendEvidence atomically appends one validated evidence item to the
	// flag's trail.
	AppendEvidence(ctx context.Context, id core.FlagID, item flags.Evidence) error
	// CompareAndSwapStatus moves the flag from expected to next, applying the
	// mutation in the same statement. Returns false when the stored status no
	// longer matches expected.
	CompareAndSwapStatus(ctx context.Context, id core.FlagID, expected, next flags.Status, mut FlagMutation) (bool, error)
	// UpdateFeeFields rewrites the salary/percentage/owed triple. It never
	// touches status.
	UpdateFeeFields(ctx context.Context, id core.FlagID, salary, percentage, owed float64) error
	List(ctx context.Context, filter FlagFilter) ([]*models.CircumventionFlag, int, error)
	CountsByStatus(ctx context.Context) (map[flags.Status]int, error)
	Financials(ctx context.Context) (*models.FlagFinancials, error)
}

// ClassifierUsageRepository records token accounting for classifier calls.
type ClassifierUsageRepository interface {
	Record(ctx context.Context, usage *models.ClassifierUsage) error
}
