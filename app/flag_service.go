package app

import (
	"context"
	"fmt"
	"time"

	"talentbridge/domain/core"
	"talentbridge/domain/fees"
	"talentbridge/domain/flags"
	apperrors "talentbridge/internal/errors"
	"talentbridge/models"
	"talentbridge/ports"

	"go.uber.org/zap"
)

// FlagService owns the circumvention case lifecycle: opening cases from
// detection signals, driving them through the transition table, sizing the
// claim, and issuing the invoice. It never notifies the employer or
// candidate; all outward contact is a separate operator decision.
type FlagService struct {
	flagRepo ports.FlagRepository
	intros   ports.IntroductionRepository
	billing  ports.BillingProvider
	logger   *zap.Logger
	now      func() time.Time
}

// NewFlagService creates a flag service.
func NewFlagService(flagRepo ports.FlagRepository, intros ports.IntroductionRepository, billing ports.BillingProvider, logger *zap.Logger) *FlagService {
	return &FlagService{
		flagRepo: flagRepo,
		intros:   intros,
		billing:  billing,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the service clock; used by tests.
func (s *FlagService) WithClock(now func() time.Time) *FlagService {
	s.now = now
	return s
}

// RaiseFlag turns a detection signal into flag state. A first signal opens a
// case; further signals against an introduction with an active case append
// to its evidence trail instead of opening a duplicate. Returns the flag and
// whether it was newly created.
func (s *FlagService) RaiseFlag(ctx context.Context, introID core.IntroductionID, item flags.Evidence) (*models.CircumventionFlag, bool, error) {
	if err := item.Validate(); err != nil {
		return nil, false, err
	}

	existing, found, err := s.flagRepo.GetActiveByIntroduction(ctx, introID)
	if err != nil {
		return nil, false, err
	}
	if found {
		if err := s.flagRepo.AppendEvidence(ctx, existing.ID, item); err != nil {
			return nil, false, err
		}
		s.logger.Info("evidence appended to active flag",
			zap.String("flag_id", existing.ID.String()),
			zap.String("introduction_id", introID.String()),
			zap.String("method", string(item.Method)))
		updated, getErr := s.flagRepo.GetByID(ctx, existing.ID)
		return updated, false, getErr
	}

	intro, err := s.intros.GetByID(ctx, introID)
	if err != nil {
		return nil, false, err
	}

	flag := &models.CircumventionFlag{
		ID:              core.FlagID(core.NewID()),
		IntroductionID:  introID,
		Status:          flags.StatusOpen,
		DetectedAt:      s.now(),
		DetectionMethod: item.Method,
		Evidence:        flags.EvidenceTrail{item},
		FeePercentage:   fees.DefaultPercentage,
	}
	if intro.AnnualSalary > 0 {
		owed, feeErr := fees.Recalculate(intro.AnnualSalary, fees.DefaultPercentage)
		if feeErr != nil {
			return nil, false, feeErr
		}
		flag.EstimatedSalary = intro.AnnualSalary
		flag.EstimatedFeeOwed = owed
	}

	if err := s.flagRepo.Create(ctx, flag); err != nil {
		if apperrors.IsConflict(err) {
			// Lost a race to another detection signal: fold into its case.
			racing, racingFound, raceErr := s.flagRepo.GetActiveByIntroduction(ctx, introID)
			if raceErr != nil || !racingFound {
				return nil, false, err
			}
			if appendErr := s.flagRepo.AppendEvidence(ctx, racing.ID, item); appendErr != nil {
				return nil, false, appendErr
			}
			updated, getErr := s.flagRepo.GetByID(ctx, racing.ID)
			return updated, false, getErr
		}
		return nil, false, err
	}

	s.logger.Info("circumvention flag opened",
		zap.String("flag_id", flag.ID.String()),
		zap.String("introduction_id", introID.String()),
		zap.String("method", string(item.Method)),
		zap.Float64("estimated_fee_owed", flag.EstimatedFeeOwed))
	return flag, true, nil
}

// Recalculate resizes the claim. Only the three fee fields change; status is
// never touched here.
func (s *FlagService) Recalculate(ctx context.Context, id core.FlagID, salary, percentage float64, actor core.Actor) (*models.CircumventionFlag, error) {
	owed, err := fees.Recalculate(salary, percentage)
	if err != nil {
		return nil, err
	}
	if err := s.flagRepo.UpdateFeeFields(ctx, id, salary, percentage, owed); err != nil {
		return nil, err
	}
	s.logger.Info("fee recalculated",
		zap.String("flag_id", id.String()),
		zap.Float64("estimated_fee_owed", owed),
		zap.String("actor", actor.OrSystem().String()))
	return s.flagRepo.GetByID(ctx, id)
}

// BeginReview moves an open case into investigation.
func (s *FlagService) BeginReview(ctx context.Context, id core.FlagID, actor core.Actor) (*models.CircumventionFlag, error) {
	return s.applyTransition(ctx, id, flags.EventBeginReview, "", actor)
}

// MarkFalsePositive closes a case as unfounded. Notes are mandatory.
func (s *FlagService) MarkFalsePositive(ctx context.Context, id core.FlagID, notes string, actor core.Actor) (*models.CircumventionFlag, error) {
	return s.applyTransition(ctx, id, flags.EventMarkFalsePositive, notes, actor)
}

// MarkPaid records payment of the invoice.
func (s *FlagService) MarkPaid(ctx context.Context, id core.FlagID, notes string, actor core.Actor) (*models.CircumventionFlag, error) {
	return s.applyTransition(ctx, id, flags.EventPaymentReceived, notes, actor)
}

// RaiseDispute records that the employer contests the invoice.
func (s *FlagService) RaiseDispute(ctx context.Context, id core.FlagID, actor core.Actor) (*models.CircumventionFlag, error) {
	return s.applyTransition(ctx, id, flags.EventDisputeRaised, "", actor)
}

// ResolveInFavor settles a dispute with payment.
func (s *FlagService) ResolveInFavor(ctx context.Context, id core.FlagID, notes string, actor core.Actor) (*models.CircumventionFlag, error) {
	return s.applyTransition(ctx, id, flags.EventResolveInFavor, notes, actor)
}

// WriteOff abandons recovery on a disputed case.
func (s *FlagService) WriteOff(ctx context.Context, id core.FlagID, notes string, actor core.Actor) (*models.CircumventionFlag, error) {
	return s.applyTransition(ctx, id, flags.EventWriteOff, notes, actor)
}

// applyTransition evaluates the requested edge against the transition table
// and applies it with a compare-and-set on the status the caller observed. A
// stale status yields Conflict and leaves the flag untouched.
func (s *FlagService) applyTransition(ctx context.Context, id core.FlagID, event flags.Event, notes string, actor core.Actor) (*models.CircumventionFlag, error) {
	flag, err := s.flagRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := flags.Transition(flags.TransitionRequest{
		From:            flag.Status,
		Event:           event,
		FeeOwed:         flag.EstimatedFeeOwed,
		ResolutionNotes: notes,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	mut := ports.FlagMutation{}
	if flags.IsTerminal(next) {
		resolution := string(event)
		attributed := fmt.Sprintf("[%s] %s", actor.OrSystem(), notes)
		mut.ResolvedAt = &now
		mut.Resolution = &resolution
		mut.ResolutionNotes = &attributed
	}
	if next == flags.StatusPaid {
		mut.InvoicePaidAt = &now
	}

	swapped, err := s.flagRepo.CompareAndSwapStatus(ctx, id, flag.Status, next, mut)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, apperrors.Conflict(fmt.Sprintf("flag %s changed concurrently, re-fetch and retry", id))
	}

	s.logger.Info("flag transition applied",
		zap.String("flag_id", id.String()),
		zap.String("from", string(flag.Status)),
		zap.String("to", string(next)),
		zap.String("event", string(event)),
		zap.String("actor", actor.OrSystem().String()))
	return s.flagRepo.GetByID(ctx, id)
}

// SendInvoice executes financial recovery for a confirmed case. The status
// move to INVOICE_SENT is claimed first, the billing collaborator is called
// outside any transaction, and the confirmed invoice details are persisted
// only after the provider confirms delivery. A billing failure rolls the
// claim back so the flag is exactly as before.
func (s *FlagService) SendInvoice(ctx context.Context, id core.FlagID, amount float64, actor core.Actor) (*models.CircumventionFlag, error) {
	if amount <= 0 {
		return nil, apperrors.ValidationError("invoice amount must be positive")
	}

	flag, err := s.flagRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prior := flag.Status

	next, err := flags.Transition(flags.TransitionRequest{
		From:    prior,
		Event:   flags.EventSendInvoice,
		FeeOwed: flag.EstimatedFeeOwed,
	})
	if err != nil {
		return nil, err
	}

	intro, err := s.intros.GetByID(ctx, flag.IntroductionID)
	if err != nil {
		return nil, err
	}

	// Claim the transition before the slow external call; a concurrent
	// invoice attempt fails the compare-and-set instead of double-billing.
	claimed, err := s.flagRepo.CompareAndSwapStatus(ctx, id, prior, next, ports.FlagMutation{})
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, apperrors.Conflict(fmt.Sprintf("flag %s changed concurrently, re-fetch and retry", id))
	}

	memo := fmt.Sprintf("Placement fee recovery: %s / %s (%s)",
		intro.CandidateName, intro.EmployerName, intro.JobTitle)
	invoiceNumber, err := s.billing.Issue(ctx, amount, intro.EmployerName, memo)
	if err != nil {
		// Roll the claim back; the flag must read exactly as before.
		if _, rbErr := s.flagRepo.CompareAndSwapStatus(ctx, id, next, prior, ports.FlagMutation{}); rbErr != nil {
			s.logger.Error("invoice claim rollback failed",
				zap.String("flag_id", id.String()),
				zap.Error(rbErr))
		}
		return nil, err
	}

	now := s.now()
	confirmed, err := s.flagRepo.CompareAndSwapStatus(ctx, id, next, next, ports.FlagMutation{
		InvoiceNumber: &invoiceNumber,
		InvoiceSentAt: &now,
		InvoiceAmount: &amount,
	})
	if err != nil {
		return nil, err
	}
	if !confirmed {
		return nil, apperrors.Conflict(fmt.Sprintf("flag %s changed while confirming invoice", id))
	}

	s.logger.Info("invoice sent",
		zap.String("flag_id", id.String()),
		zap.String("invoice_number", invoiceNumber),
		zap.Float64("amount", amount),
		zap.String("actor", actor.OrSystem().String()))
	return s.flagRepo.GetByID(ctx, id)
}
