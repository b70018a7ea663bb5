package app

import (
	"context"
	"sync/atomic"
	"time"

	"talentbridge/domain/core"
	apperrors "talentbridge/internal/errors"
	"talentbridge/models"
	"talentbridge/ports"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SchedulerService keeps the check-in register in step with the calendar:
// every protected introduction carries its full milestone schedule, and every
// due check-in gets dispatched exactly once. The background ticker and the
// admin "run now" action both call Run; the method is idempotent so the two
// can overlap safely.
type SchedulerService struct {
	intros      ports.IntroductionRepository
	checkIns    ports.CheckInRepository
	mailer      ports.Mailer
	logger      *zap.Logger
	concurrency int
	now         func() time.Time
}

// NewSchedulerService creates a scheduler service.
func NewSchedulerService(intros ports.IntroductionRepository, checkIns ports.CheckInRepository, mailer ports.Mailer, logger *zap.Logger, concurrency int) *SchedulerService {
	if concurrency < 1 {
		concurrency = 4
	}
	return &SchedulerService{
		intros:      intros,
		checkIns:    checkIns,
		mailer:      mailer,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// WithClock overrides the service clock; used by tests.
func (s *SchedulerService) WithClock(now func() time.Time) *SchedulerService {
	s.now = now
	return s
}

// Run executes one scheduler pass: create the missing schedule rows for
// every protected introduction, then dispatch everything due and unsent.
// Failures are isolated per introduction and per check-in; one bad record
// never halts the batch.
func (s *SchedulerService) Run(ctx context.Context) (*models.SchedulerResult, error) {
	now := s.now()

	var created, sent atomic.Int64

	active, err := s.intros.ListActive(ctx, now)
	if err != nil {
		return nil, apperrors.Wrap(err, "list active introductions")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, intro := range active {
		g.Go(func() error {
			n, err := s.ensureCheckIns(gctx, intro)
			if err != nil {
				s.logger.Warn("check-in creation failed",
					zap.String("introduction_id", intro.ID.String()),
					zap.Error(err))
				return nil
			}
			created.Add(int64(n))
			return nil
		})
	}
	_ = g.Wait()

	due, err := s.checkIns.ListDueUnsent(ctx, now)
	if err != nil {
		return nil, apperrors.Wrap(err, "list due check-ins")
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, ci := range due {
		g.Go(func() error {
			ok, err := s.dispatch(gctx, ci, now)
			if err != nil {
				s.logger.Warn("check-in dispatch failed",
					zap.String("check_in_id", ci.ID.String()),
					zap.Int("check_in_number", ci.CheckInNumber),
					zap.Error(err))
				return nil
			}
			if ok {
				sent.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &models.SchedulerResult{
		CheckInsCreated: int(created.Load()),
		EmailsSent:      int(sent.Load()),
	}
	s.logger.Info("scheduler pass complete",
		zap.Int("active_introductions", len(active)),
		zap.Int("check_ins_created", result.CheckInsCreated),
		zap.Int("emails_sent", result.EmailsSent))
	return result, nil
}

// ensureCheckIns creates the introduction's full milestone schedule. Rows for
// future milestones sit unsent until due. The final milestone coincides with
// the protection expiry, so its row only becomes due once the introduction
// has left the active scan; it must exist before then. The unique
// (introduction, number) constraint makes this idempotent.
func (s *SchedulerService) ensureCheckIns(ctx context.Context, intro *models.Introduction) (int, error) {
	created := 0
	for i, days := range models.CheckInMilestones {
		ok, err := s.checkIns.CreateIfMissing(ctx, intro.ID, i+1, intro.IntroducedAt.AddDate(0, 0, days))
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// dispatch claims the check-in, mails the candidate, and rolls the claim back
// if the send fails so the next pass retries it. The claim is a conditional
// update guarded by sent_at IS NULL, so a concurrent run sends nothing twice.
// An introduction taken off the register leaves its remaining rows unsent;
// an expired window alone does not, since the final check-in is due exactly
// when the window closes.
func (s *SchedulerService) dispatch(ctx context.Context, ci *models.CheckIn, now time.Time) (bool, error) {
	intro, err := s.intros.GetByID(ctx, ci.IntroductionID)
	if err != nil {
		return false, err
	}
	if intro.Status != models.IntroductionActive {
		return false, nil
	}

	claimed, err := s.checkIns.ClaimForSend(ctx, ci.ID, now)
	if err != nil {
		return false, err
	}
	if !claimed {
		// Another runner got there first.
		return false, nil
	}

	if err := s.mailer.Send(ctx, intro.CandidateEmail, "checkin_status_update", mailVars(intro)); err != nil {
		if releaseErr := s.checkIns.ReleaseClaim(ctx, ci.ID); releaseErr != nil {
			s.logger.Error("claim rollback failed",
				zap.String("check_in_id", ci.ID.String()),
				zap.Error(releaseErr))
		}
		return false, err
	}
	return true, nil
}

// Resend re-dispatches a single check-in on operator request, regardless of
// whether it was sent before. State is only stamped after the mail
// collaborator accepts the message.
func (s *SchedulerService) Resend(ctx context.Context, id core.CheckInID, actor core.Actor) error {
	ci, err := s.checkIns.GetByID(ctx, id)
	if err != nil {
		return err
	}
	intro, err := s.intros.GetByID(ctx, ci.IntroductionID)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, intro.CandidateEmail, "checkin_status_update", mailVars(intro)); err != nil {
		return err
	}
	now := s.now()
	if err := s.checkIns.MarkSent(ctx, id, now); err != nil {
		return err
	}
	s.logger.Info("check-in resent",
		zap.String("check_in_id", id.String()),
		zap.String("actor", actor.OrSystem().String()))
	return nil
}

func mailVars(intro *models.Introduction) map[string]string {
	return map[string]string{
		"candidate_name": intro.CandidateName,
		"employer_name":  intro.EmployerName,
		"job_title":      intro.JobTitle,
	}
}
