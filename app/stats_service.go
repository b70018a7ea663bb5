package app

import (
	"context"
	"time"

	apperrors "talentbridge/internal/errors"
	"talentbridge/models"
	"talentbridge/ports"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
)

// StatsService assembles the admin-facing engine report.
type StatsService struct {
	intros   ports.IntroductionRepository
	checkIns ports.CheckInRepository
	flagRepo ports.FlagRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewStatsService creates a stats service.
func NewStatsService(intros ports.IntroductionRepository, checkIns ports.CheckInRepository, flagRepo ports.FlagRepository, logger *zap.Logger) *StatsService {
	return &StatsService{
		intros:   intros,
		checkIns: checkIns,
		flagRepo: flagRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// Report computes the current engine summary.
func (s *StatsService) Report(ctx context.Context) (*models.EngineReport, error) {
	active, err := s.intros.CountActive(ctx, s.now())
	if err != nil {
		return nil, apperrors.Wrap(err, "count active introductions")
	}
	counts, err := s.checkIns.Counts(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "count check-ins")
	}
	byStatus, err := s.flagRepo.CountsByStatus(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "count flags")
	}
	financials, err := s.flagRepo.Financials(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "flag financials")
	}

	report := &models.EngineReport{
		ActiveIntroductions: active,
		CheckIns:            *counts,
		FlagsByStatus:       byStatus,
		Financials:          *financials,
	}
	if counts.Sent > 0 {
		report.ResponseRate = float64(counts.Responded) / float64(counts.Sent)
	}
	if len(financials.InvoiceAmounts) > 0 {
		data := stats.Float64Data(financials.InvoiceAmounts)
		if mean, err := stats.Mean(data); err == nil {
			report.MeanInvoiceAmount = mean
		}
		if median, err := stats.Median(data); err == nil {
			report.MedianInvoiceAmount = median
		}
	}
	return report, nil
}
