package flags

import (
	"encoding/json"
	"fmt"
	"time"

	"talentbridge/internal/errors"
)

// DetectionMethod keys the evidence tagged union: each method carries a
// differently shaped payload.
type DetectionMethod string

const (
	DetectionCheckInResponse DetectionMethod = "checkin_response"
	DetectionManualReport    DetectionMethod = "manual_report"
	DetectionPublicProfile   DetectionMethod = "public_profile"
)

// Evidence is one item in a flag's evidence trail. Exactly one of the
// variant pointers is set, matching Method.
type Evidence struct {
	Method     DetectionMethod `json:"method"`
	RecordedAt time.Time       `json:"recorded_at"`

	CheckInResponse *CheckInResponseEvidence `json:"checkin_response,omitempty"`
	ManualReport    *ManualReportEvidence    `json:"manual_report,omitempty"`
	PublicProfile   *PublicProfileEvidence   `json:"public_profile,omitempty"`
}

// CheckInResponseEvidence snapshots a classified check-in reply.
type CheckInResponseEvidence struct {
	CheckInID        string  `json:"check_in_id"`
	CheckInNumber    int     `json:"check_in_number"`
	ResponseRaw      string  `json:"response_raw"`
	Status           string  `json:"status"`
	RiskLevel        string  `json:"risk_level"`
	Confidence       float64 `json:"confidence"`
	CompanyMentioned string  `json:"company_mentioned"`
	Summary          string  `json:"summary"`
}

// ManualReportEvidence captures evidence reported by an operator or tipster.
type ManualReportEvidence struct {
	ReportedBy string `json:"reported_by"`
	Details    string `json:"details"`
	SourceURL  string `json:"source_url,omitempty"`
}

// PublicProfileEvidence records an observed public profile change, e.g. the
// candidate listing the employer on a professional network.
type PublicProfileEvidence struct {
	ProfileURL string `json:"profile_url"`
	Employer   string `json:"employer"`
	Title      string `json:"title,omitempty"`
	ObservedAt string `json:"observed_at,omitempty"`
}

// Validate checks that the evidence item carries exactly the payload its
// method declares.
func (e Evidence) Validate() error {
	set := 0
	if e.CheckInResponse != nil {
		set++
	}
	if e.ManualReport != nil {
		set++
	}
	if e.PublicProfile != nil {
		set++
	}
	if set != 1 {
		return errors.ValidationError("evidence must carry exactly one variant payload")
	}
	switch e.Method {
	case DetectionCheckInResponse:
		if e.CheckInResponse == nil {
			return errors.ValidationError("checkin_response evidence requires a check-in payload")
		}
	case DetectionManualReport:
		if e.ManualReport == nil {
			return errors.ValidationError("manual_report evidence requires a report payload")
		}
	case DetectionPublicProfile:
		if e.PublicProfile == nil {
			return errors.ValidationError("public_profile evidence requires a profile payload")
		}
	default:
		return errors.ValidationError(fmt.Sprintf("unknown detection method %q", e.Method))
	}
	return nil
}

// EvidenceTrail is the accumulated evidence on a flag, stored as a jsonb
// array. Appending is a well-typed operation: items are validated before
// they enter the trail.
type EvidenceTrail []Evidence

// Append returns a new trail with the item added, after validating it.
func (t EvidenceTrail) Append(item Evidence) (EvidenceTrail, error) {
	if err := item.Validate(); err != nil {
		return t, err
	}
	out := make(EvidenceTrail, 0, len(t)+1)
	out = append(out, t...)
	out = append(out, item)
	return out, nil
}

// MarshalTrail serializes the trail for persistence. An empty trail is
// stored as an empty array rather than null.
func MarshalTrail(t EvidenceTrail) ([]byte, error) {
	if t == nil {
		t = EvidenceTrail{}
	}
	return json.Marshal(t)
}

// UnmarshalTrail deserializes a persisted trail.
func UnmarshalTrail(raw []byte) (EvidenceTrail, error) {
	if len(raw) == 0 {
		return EvidenceTrail{}, nil
	}
	var t EvidenceTrail
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("unmarshal evidence trail: %w", err)
	}
	return t, nil
}
