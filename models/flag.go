package models

import (
	"time"

	"talentbridge/domain/core"
	"talentbridge/domain/flags"
)

// CircumventionFlag is the case record tracking investigation and fee
// recovery for a suspected circumvention. Status changes only happen through
// the transition table in domain/flags, applied with a compare-and-set.
type CircumventionFlag struct {
	ID              core.FlagID           `db:"id" json:"id"`
	IntroductionID  core.IntroductionID   `db:"introduction_id" json:"introduction_id"`
	Status          flags.Status          `db:"status" json:"status"`
	DetectedAt      time.Time             `db:"detected_at" json:"detected_at"`
	DetectionMethod flags.DetectionMethod `db:"detection_method" json:"detection_method"`
	Evidence        flags.EvidenceTrail   `db:"-" json:"evidence"`

	// Fee fields move together: EstimatedFeeOwed is always the calculator's
	// output for the current (EstimatedSalary, FeePercentage) pair.
	EstimatedSalary  float64 `db:"estimated_salary" json:"estimated_salary"`
	FeePercentage    float64 `db:"fee_percentage" json:"fee_percentage"`
	EstimatedFeeOwed float64 `db:"estimated_fee_owed" json:"estimated_fee_owed"`

	InvoiceNumber *string    `db:"invoice_number" json:"invoice_number,omitempty"`
	InvoiceSentAt *time.Time `db:"invoice_sent_at" json:"invoice_sent_at,omitempty"`
	InvoiceAmount *float64   `db:"invoice_amount" json:"invoice_amount,omitempty"`
	InvoicePaidAt *time.Time `db:"invoice_paid_at" json:"invoice_paid_at,omitempty"`

	ResolvedAt      *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	Resolution      *string    `db:"resolution" json:"resolution,omitempty"`
	ResolutionNotes *string    `db:"resolution_notes" json:"resolution_notes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Active reports whether the flag counts against the one-active-flag
// invariant for its introduction.
func (f *CircumventionFlag) Active() bool {
	return flags.IsActive(f.Status)
}
