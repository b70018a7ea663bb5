package app

import (
	"context"
	"strings"
	"time"

	"talentbridge/domain/core"
	"talentbridge/domain/flags"
	"talentbridge/domain/match"
	"talentbridge/internal/logger"
	"talentbridge/models"
	"talentbridge/ports"

	"go.uber.org/zap"
)

// ClassificationService submits raw check-in replies to the external
// classifier and persists the structured result. Its own responsibilities
// are validation, atomic persistence, and forwarding risky results to the
// flag service; interpreting the language is entirely the model's job.
type ClassificationService struct {
	checkIns ports.CheckInRepository
	intros   ports.IntroductionRepository
	usage    ports.ClassifierUsageRepository
	client   ports.ResponseClassifier
	flagSvc  *FlagService
	logger   *zap.Logger
	now      func() time.Time
}

// NewClassificationService creates a classification service.
func NewClassificationService(checkIns ports.CheckInRepository, intros ports.IntroductionRepository, usage ports.ClassifierUsageRepository, client ports.ResponseClassifier, flagSvc *FlagService, logger *zap.Logger) *ClassificationService {
	return &ClassificationService{
		checkIns: checkIns,
		intros:   intros,
		usage:    usage,
		client:   client,
		flagSvc:  flagSvc,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the service clock; used by tests.
func (s *ClassificationService) WithClock(now func() time.Time) *ClassificationService {
	s.now = now
	return s
}

// Classify runs a raw reply through the classifier and persists the parse.
// Re-classifying a check-in that already has a response overwrites the prior
// parse. The write is all-or-nothing: a collaborator failure surfaces as a
// retryable error with the check-in untouched.
func (s *ClassificationService) Classify(ctx context.Context, id core.CheckInID, rawText string, actor core.Actor) (*models.CheckIn, error) {
	ci, err := s.checkIns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	intro, err := s.intros.GetByID(ctx, ci.IntroductionID)
	if err != nil {
		return nil, err
	}

	parsed, usageData, err := s.client.Classify(ctx, rawText, ports.ClassificationContext{
		CandidateName: intro.CandidateName,
		EmployerName:  intro.EmployerName,
		JobTitle:      intro.JobTitle,
	})
	if err != nil {
		return nil, err
	}

	s.recordUsage(ctx, id, usageData)

	employerMatch := parsed.CompanyMentioned != "" &&
		match.Companies(parsed.CompanyMentioned, intro.EmployerName)
	shouldFlag := parsed.RiskLevel.Warrants() && employerMatch

	respondedAt := s.now()
	if err := s.checkIns.SaveClassification(ctx, id, rawText, parsed, respondedAt, shouldFlag); err != nil {
		return nil, err
	}

	s.logger.Info("check-in reply classified",
		zap.String("check_in_id", id.String()),
		zap.String("status", string(parsed.Status)),
		zap.String("risk_level", string(parsed.RiskLevel)),
		zap.Float64("confidence", parsed.Confidence),
		zap.Bool("employer_match", employerMatch),
		zap.Bool("flagged", shouldFlag),
		zap.String("actor", actor.OrSystem().String()),
		zap.String("reply_preview", logger.TruncateForLog(rawText, 120)))

	if shouldFlag {
		evidence := flags.Evidence{
			Method:     flags.DetectionCheckInResponse,
			RecordedAt: respondedAt,
			CheckInResponse: &flags.CheckInResponseEvidence{
				CheckInID:        id.String(),
				CheckInNumber:    ci.CheckInNumber,
				ResponseRaw:      rawText,
				Status:           string(parsed.Status),
				RiskLevel:        string(parsed.RiskLevel),
				Confidence:       parsed.Confidence,
				CompanyMentioned: parsed.CompanyMentioned,
				Summary:          parsed.Summary,
			},
		}
		if _, _, err := s.flagSvc.RaiseFlag(ctx, ci.IntroductionID, evidence); err != nil {
			// The classification itself is saved; surface the flagging failure
			// so the operator can re-run it.
			return nil, err
		}
	}

	return s.checkIns.GetByID(ctx, id)
}

// UpdateReview stores operator review notes on a check-in. A request without
// notes only toggles the review flag; notes already on record stay in place.
func (s *ClassificationService) UpdateReview(ctx context.Context, id core.CheckInID, notes string, flagged bool, actor core.Actor) (*models.CheckIn, error) {
	attributed := ""
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		attributed = "[" + actor.OrSystem().String() + "] " + trimmed
	}
	if err := s.checkIns.UpdateReview(ctx, id, attributed, flagged, s.now()); err != nil {
		return nil, err
	}
	return s.checkIns.GetByID(ctx, id)
}

// recordUsage is best-effort token accounting; failures are logged, never
// propagated.
func (s *ClassificationService) recordUsage(ctx context.Context, id core.CheckInID, usageData *ports.UsageData) {
	if usageData == nil || s.usage == nil {
		return
	}
	record := &models.ClassifierUsage{
		ID:               core.NewID(),
		CheckInID:        id,
		Model:            usageData.Model,
		PromptTokens:     usageData.PromptTokens,
		CompletionTokens: usageData.CompletionTokens,
		TotalTokens:      usageData.TotalTokens,
	}
	if err := s.usage.Record(ctx, record); err != nil {
		s.logger.Warn("classifier usage recording failed",
			zap.String("check_in_id", id.String()),
			zap.Error(err))
	}
}
