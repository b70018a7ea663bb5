// Package flags defines the circumvention case lifecycle: its status values,
// the explicit transition table that governs them, and the typed evidence
// attached to a case. Every status change in the system goes through
// Transition so illegal edges are structurally impossible.
package flags

import (
	"fmt"
	"strings"

	"talentbridge/internal/errors"
)

// Status is the lifecycle state of a circumvention flag.
type Status string

const (
	StatusOpen          Status = "OPEN"
	StatusInvestigating Status = "INVESTIGATING"
	StatusInvoiceSent   Status = "INVOICE_SENT"
	StatusPaid          Status = "PAID"
	StatusDisputed      Status = "DISPUTED"
	StatusFalsePositive Status = "FALSE_POSITIVE"
	StatusWroteOff      Status = "WROTE_OFF"
)

// Event is an operator- or system-initiated action against a flag.
type Event string

const (
	EventBeginReview       Event = "begin_review"
	EventSendInvoice       Event = "send_invoice"
	EventMarkFalsePositive Event = "mark_false_positive"
	EventPaymentReceived   Event = "payment_received"
	EventDisputeRaised     Event = "dispute_raised"
	EventResolveInFavor    Event = "resolved_in_favor"
	EventWriteOff          Event = "write_off"
)

// transitions is the single source of truth for legal edges.
var transitions = map[Status]map[Event]Status{
	StatusOpen: {
		EventBeginReview:       StatusInvestigating,
		EventSendInvoice:       StatusInvoiceSent,
		EventMarkFalsePositive: StatusFalsePositive,
	},
	StatusInvestigating: {
		EventSendInvoice:       StatusInvoiceSent,
		EventMarkFalsePositive: StatusFalsePositive,
	},
	StatusInvoiceSent: {
		EventPaymentReceived: StatusPaid,
		EventDisputeRaised:   StatusDisputed,
	},
	StatusDisputed: {
		EventResolveInFavor: StatusPaid,
		EventWriteOff:       StatusWroteOff,
	},
}

// terminal states admit no further transitions.
var terminal = map[Status]bool{
	StatusPaid:          true,
	StatusFalsePositive: true,
	StatusWroteOff:      true,
}

// ValidStatus reports whether s is a known flag status.
func ValidStatus(s Status) bool {
	if terminal[s] {
		return true
	}
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether s admits no further transitions.
func IsTerminal(s Status) bool { return terminal[s] }

// IsActive reports whether a flag in this status counts against the
// one-active-flag-per-introduction invariant.
func IsActive(s Status) bool {
	return s == StatusOpen || s == StatusInvestigating
}

// TransitionRequest carries everything needed to evaluate one edge.
type TransitionRequest struct {
	From            Status
	Event           Event
	FeeOwed         float64
	ResolutionNotes string
}

// Transition resolves the target status for the requested edge, enforcing
// the table's preconditions. The flag itself is not mutated here; callers
// apply the result with a compare-and-set on From.
func Transition(req TransitionRequest) (Status, error) {
	edges, ok := transitions[req.From]
	if !ok {
		return "", errors.InvalidTransition(fmt.Sprintf("flag in terminal state %s cannot transition", req.From))
	}
	to, ok := edges[req.Event]
	if !ok {
		return "", errors.InvalidTransition(fmt.Sprintf("event %s is not valid from state %s", req.Event, req.From))
	}
	if req.Event == EventSendInvoice && req.FeeOwed <= 0 {
		return "", errors.ValidationError("cannot send invoice: estimated fee owed must be positive")
	}
	// Closing out a case needs an audit trail entry.
	if terminal[to] && strings.TrimSpace(req.ResolutionNotes) == "" {
		return "", errors.ValidationError(fmt.Sprintf("transition to %s requires resolution notes", to))
	}
	return to, nil
}
