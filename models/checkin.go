package models

import (
	"time"

	"talentbridge/domain/core"
)

// ResponseType is the classifier's reading of the candidate's employment
// status as of the check-in reply.
type ResponseType string

const (
	ResponseStillEmployed ResponseType = "STILL_EMPLOYED"
	ResponseLeftJob       ResponseType = "LEFT_JOB"
	ResponseNotHired      ResponseType = "NOT_HIRED"
	ResponseUnclear       ResponseType = "UNCLEAR"
)

// ValidResponseType reports whether t is a known response classification.
func ValidResponseType(t ResponseType) bool {
	switch t {
	case ResponseStillEmployed, ResponseLeftJob, ResponseNotHired, ResponseUnclear:
		return true
	}
	return false
}

// RiskLevel is the classifier's severity rating for a reply: how likely it
// indicates an undisclosed hire.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
	RiskClear  RiskLevel = "CLEAR"
)

// ValidRiskLevel reports whether r is a known risk level.
func ValidRiskLevel(r RiskLevel) bool {
	switch r {
	case RiskHigh, RiskMedium, RiskLow, RiskClear:
		return true
	}
	return false
}

// Warrants reports whether the risk level is severe enough to open or feed a
// circumvention case.
func (r RiskLevel) Warrants() bool {
	return r == RiskHigh || r == RiskMedium
}

// CheckIn is one scheduled outreach to a candidate. Created by the
// scheduler, claimed and stamped on send, and annotated by the classifier
// when a reply arrives. Never deleted.
//
// Invariant: RespondedAt is non-nil iff ResponseType is non-nil.
type CheckIn struct {
	ID               core.CheckInID      `db:"id" json:"id"`
	IntroductionID   core.IntroductionID `db:"introduction_id" json:"introduction_id"`
	CheckInNumber    int                 `db:"check_in_number" json:"check_in_number"`
	ScheduledFor     time.Time           `db:"scheduled_for" json:"scheduled_for"`
	SentAt           *time.Time          `db:"sent_at" json:"sent_at,omitempty"`
	RespondedAt      *time.Time          `db:"responded_at" json:"responded_at,omitempty"`
	ResponseType     *ResponseType       `db:"response_type" json:"response_type,omitempty"`
	ResponseRaw      *string             `db:"response_raw" json:"response_raw,omitempty"`
	ResponseParsed   []byte              `db:"response_parsed" json:"response_parsed,omitempty"`
	RiskLevel        *RiskLevel          `db:"risk_level" json:"risk_level,omitempty"`
	RiskReason       *string             `db:"risk_reason" json:"risk_reason,omitempty"`
	FlaggedForReview bool                `db:"flagged_for_review" json:"flagged_for_review"`
	ReviewedAt       *time.Time          `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNotes      *string             `db:"review_notes" json:"review_notes,omitempty"`
	CreatedAt        time.Time           `db:"created_at" json:"created_at"`
}

// ParsedResponse is the structured result of classifying a raw reply. It is
// produced by the external classifier and validated before persistence.
type ParsedResponse struct {
	Status           ResponseType `json:"status"`
	RiskLevel        RiskLevel    `json:"risk_level"`
	Confidence       float64      `json:"confidence"`
	CompanyMentioned string       `json:"company_mentioned,omitempty"`
	HireDate         string       `json:"hire_date,omitempty"`
	SeparationDate   string       `json:"separation_date,omitempty"`
	Summary          string       `json:"summary,omitempty"`
	SuggestedAction  string       `json:"suggested_action,omitempty"`
}

// ClassifierUsage records token accounting for one classifier call.
// Best-effort: failures to record never fail the classification itself.
type ClassifierUsage struct {
	ID               core.ID        `db:"id" json:"id"`
	CheckInID        core.CheckInID `db:"check_in_id" json:"check_in_id"`
	Model            string         `db:"model" json:"model"`
	PromptTokens     int            `db:"prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int            `db:"completion_tokens" json:"completion_tokens"`
	TotalTokens      int            `db:"total_tokens" json:"total_tokens"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}
