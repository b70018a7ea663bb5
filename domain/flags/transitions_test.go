package flags

import (
	"testing"

	apperrors "talentbridge/internal/errors"
)

// TestTransitionLegalEdges walks every edge in the table
func TestTransitionLegalEdges(t *testing.T) {
	tests := []struct {
		from  Status
		event Event
		notes string
		want  Status
	}{
		{StatusOpen, EventBeginReview, "", StatusInvestigating},
		{StatusOpen, EventSendInvoice, "", StatusInvoiceSent},
		{StatusOpen, EventMarkFalsePositive, "wrong company", StatusFalsePositive},
		{StatusInvestigating, EventSendInvoice, "", StatusInvoiceSent},
		{StatusInvestigating, EventMarkFalsePositive, "candidate not hired", StatusFalsePositive},
		{StatusInvoiceSent, EventPaymentReceived, "wire received", StatusPaid},
		{StatusInvoiceSent, EventDisputeRaised, "", StatusDisputed},
		{StatusDisputed, EventResolveInFavor, "settled at full amount", StatusPaid},
		{StatusDisputed, EventWriteOff, "not worth pursuing", StatusWroteOff},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			got, err := Transition(TransitionRequest{
				From:            tt.from,
				Event:           tt.event,
				FeeOwed:         27000,
				ResolutionNotes: tt.notes,
			})
			if err != nil {
				t.Fatalf("Transition(%s, %s) returned error: %v", tt.from, tt.event, err)
			}
			if got != tt.want {
				t.Errorf("Transition(%s, %s) = %s, want %s", tt.from, tt.event, got, tt.want)
			}
		})
	}
}

// TestTransitionRejectsIllegalEdges tests edges absent from the table
func TestTransitionRejectsIllegalEdges(t *testing.T) {
	tests := []struct {
		from  Status
		event Event
	}{
		{StatusOpen, EventPaymentReceived},
		{StatusOpen, EventDisputeRaised},
		{StatusOpen, EventWriteOff},
		{StatusInvestigating, EventBeginReview},
		{StatusInvestigating, EventPaymentReceived},
		{StatusInvoiceSent, EventSendInvoice},
		{StatusInvoiceSent, EventMarkFalsePositive},
		{StatusDisputed, EventPaymentReceived},
		{StatusDisputed, EventSendInvoice},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			_, err := Transition(TransitionRequest{From: tt.from, Event: tt.event, FeeOwed: 27000, ResolutionNotes: "n"})
			if err == nil {
				t.Fatalf("Transition(%s, %s) expected error, got nil", tt.from, tt.event)
			}
			if !apperrors.IsInvalidTransition(err) {
				t.Errorf("expected INVALID_TRANSITION, got %s", apperrors.GetCode(err))
			}
		})
	}
}

// TestTransitionTerminalStatesAreFinal tests that no event leaves a terminal state
func TestTransitionTerminalStatesAreFinal(t *testing.T) {
	events := []Event{
		EventBeginReview, EventSendInvoice, EventMarkFalsePositive,
		EventPaymentReceived, EventDisputeRaised, EventResolveInFavor, EventWriteOff,
	}
	for _, terminal := range []Status{StatusPaid, StatusFalsePositive, StatusWroteOff} {
		for _, event := range events {
			_, err := Transition(TransitionRequest{From: terminal, Event: event, FeeOwed: 27000, ResolutionNotes: "n"})
			if err == nil {
				t.Errorf("Transition(%s, %s) expected error, got nil", terminal, event)
			}
		}
	}
}

// TestTransitionSendInvoiceRequiresPositiveFee tests the invoice precondition
func TestTransitionSendInvoiceRequiresPositiveFee(t *testing.T) {
	for _, fee := range []float64{0, -100} {
		_, err := Transition(TransitionRequest{From: StatusOpen, Event: EventSendInvoice, FeeOwed: fee})
		if err == nil {
			t.Fatalf("expected error for fee %v, got nil", fee)
		}
		if !apperrors.IsValidation(err) {
			t.Errorf("expected VALIDATION_ERROR, got %s", apperrors.GetCode(err))
		}
	}
}

// TestTransitionTerminalTargetsRequireNotes tests the audit trail requirement
func TestTransitionTerminalTargetsRequireNotes(t *testing.T) {
	tests := []struct {
		from  Status
		event Event
	}{
		{StatusOpen, EventMarkFalsePositive},
		{StatusInvoiceSent, EventPaymentReceived},
		{StatusDisputed, EventResolveInFavor},
		{StatusDisputed, EventWriteOff},
	}
	for _, tt := range tests {
		_, err := Transition(TransitionRequest{From: tt.from, Event: tt.event, FeeOwed: 27000, ResolutionNotes: "   "})
		if err == nil {
			t.Fatalf("Transition(%s, %s) without notes expected error, got nil", tt.from, tt.event)
		}
		if !apperrors.IsValidation(err) {
			t.Errorf("expected VALIDATION_ERROR, got %s", apperrors.GetCode(err))
		}
	}
}

// TestStatusPredicates tests the status classification helpers
func TestStatusPredicates(t *testing.T) {
	for _, s := range []Status{StatusOpen, StatusInvestigating} {
		if !IsActive(s) {
			t.Errorf("expected %s to be active", s)
		}
		if IsTerminal(s) {
			t.Errorf("expected %s to not be terminal", s)
		}
	}
	for _, s := range []Status{StatusPaid, StatusFalsePositive, StatusWroteOff} {
		if IsActive(s) {
			t.Errorf("expected %s to not be active", s)
		}
		if !IsTerminal(s) {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	if IsActive(StatusInvoiceSent) || IsTerminal(StatusInvoiceSent) {
		t.Error("INVOICE_SENT should be neither active nor terminal")
	}
	if ValidStatus(Status("BOGUS")) {
		t.Error("unknown status should not validate")
	}
}
