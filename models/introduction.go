package models

import (
	"time"

	"talentbridge/domain/core"
)

// IntroductionStatus tracks whether an introduction is still monitored.
type IntroductionStatus string

const (
	IntroductionActive    IntroductionStatus = "active"
	IntroductionWithdrawn IntroductionStatus = "withdrawn"
	IntroductionExpired   IntroductionStatus = "expired"
)

// ProtectionWindowDays is the length of the fee-protection window opened by
// an introduction.
const ProtectionWindowDays = 365

// CheckInMilestones are the day offsets after an introduction at which the
// candidate is asked for a status update. The 1-based index of a milestone
// is the check-in number.
var CheckInMilestones = []int{30, 60, 90, 180, 365}

// Introduction is the record of a candidate being presented to an employer
// for a job. It is immutable once created except for its status.
type Introduction struct {
	ID               core.IntroductionID `db:"id" json:"id"`
	CandidateName    string              `db:"candidate_name" json:"candidate_name"`
	CandidateEmail   string              `db:"candidate_email" json:"candidate_email"`
	EmployerName     string              `db:"employer_name" json:"employer_name"`
	JobTitle         string              `db:"job_title" json:"job_title"`
	AnnualSalary     float64             `db:"annual_salary" json:"annual_salary"`
	IntroducedAt     time.Time           `db:"introduced_at" json:"introduced_at"`
	ProtectionExpiry time.Time           `db:"protection_expiry" json:"protection_expiry"`
	Status           IntroductionStatus  `db:"status" json:"status"`
	CreatedAt        time.Time           `db:"created_at" json:"created_at"`
}

// NewIntroduction builds an introduction with its protection window derived
// from the introduction time.
func NewIntroduction(candidateName, candidateEmail, employerName, jobTitle string, annualSalary float64, introducedAt time.Time) *Introduction {
	return &Introduction{
		ID:               core.IntroductionID(core.NewID()),
		CandidateName:    candidateName,
		CandidateEmail:   candidateEmail,
		EmployerName:     employerName,
		JobTitle:         jobTitle,
		AnnualSalary:     annualSalary,
		IntroducedAt:     introducedAt,
		ProtectionExpiry: introducedAt.AddDate(0, 0, ProtectionWindowDays),
		Status:           IntroductionActive,
	}
}

// Protected reports whether the fee-protection window is still open at now.
func (i *Introduction) Protected(now time.Time) bool {
	return i.Status == IntroductionActive && i.ProtectionExpiry.After(now)
}
