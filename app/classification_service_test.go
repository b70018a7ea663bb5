package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"talentbridge/domain/core"
	"talentbridge/domain/flags"
	"talentbridge/internal/testkit"
	"talentbridge/models"
	"talentbridge/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type classificationFixture struct {
	kit     *testkit.Kit
	svc     *ClassificationService
	intro   *models.Introduction
	checkIn *models.CheckIn
}

func newClassificationFixture(t *testing.T) *classificationFixture {
	t.Helper()
	kit := testkit.New()
	intro := kit.SeedIntroduction(time.Now().AddDate(0, 0, -31), "Acme Corp", 150000)

	ctx := context.Background()
	created, err := kit.CheckIns.CreateIfMissing(ctx, intro.ID, 1, intro.IntroducedAt.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.True(t, created)
	checkIn := kit.CheckIns.All()[0]

	flagSvc := NewFlagService(kit.Flags, kit.Introductions, kit.Billing, zap.NewNop())
	svc := NewClassificationService(kit.CheckIns, kit.Introductions, kit.Usage, kit.Classifier, flagSvc, zap.NewNop())
	return &classificationFixture{kit: kit, svc: svc, intro: intro, checkIn: checkIn}
}

// TestClassifyHighRiskMatchingEmployerOpensFlag verifies the detection path:
// a HIGH-risk reply naming the introduced employer flags the check-in and
// opens exactly one circumvention case with check-in evidence attached.
func TestClassifyHighRiskMatchingEmployerOpensFlag(t *testing.T) {
	f := newClassificationFixture(t)
	f.kit.Classifier.Result = &models.ParsedResponse{
		Status:           models.ResponseStillEmployed,
		RiskLevel:        models.RiskHigh,
		Confidence:       0.93,
		CompanyMentioned: "Acme",
		Summary:          "candidate says they started at Acme in June",
	}
	f.kit.Classifier.Usage = &ports.UsageData{Model: "gpt-4o-mini", PromptTokens: 410, CompletionTokens: 80, TotalTokens: 490}

	ctx := context.Background()
	raw := "Actually I've been at Acme since June, it's going great!"
	ci, err := f.svc.Classify(ctx, f.checkIn.ID, raw, "casey")
	require.NoError(t, err)

	assert.True(t, ci.FlaggedForReview)
	require.NotNil(t, ci.ResponseType)
	assert.Equal(t, models.ResponseStillEmployed, *ci.ResponseType)
	require.NotNil(t, ci.RiskLevel)
	assert.Equal(t, models.RiskHigh, *ci.RiskLevel)
	require.NotNil(t, ci.ResponseRaw)
	assert.Equal(t, raw, *ci.ResponseRaw)
	assert.NotNil(t, ci.RespondedAt)

	flag, found, err := f.kit.Flags.GetActiveByIntroduction(ctx, f.intro.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, flags.StatusOpen, flag.Status)
	assert.Equal(t, flags.DetectionCheckInResponse, flag.DetectionMethod)
	require.Len(t, flag.Evidence, 1)
	require.NotNil(t, flag.Evidence[0].CheckInResponse)
	assert.Equal(t, f.checkIn.ID.String(), flag.Evidence[0].CheckInResponse.CheckInID)
	assert.Equal(t, raw, flag.Evidence[0].CheckInResponse.ResponseRaw)

	require.Len(t, f.kit.Usage.Records, 1)
	assert.Equal(t, 490, f.kit.Usage.Records[0].TotalTokens)
}

// TestClassifyHighRiskDifferentEmployerDoesNotFlag verifies that naming an
// unrelated company never opens a case against this introduction.
func TestClassifyHighRiskDifferentEmployerDoesNotFlag(t *testing.T) {
	f := newClassificationFixture(t)
	f.kit.Classifier.Result = &models.ParsedResponse{
		Status:           models.ResponseStillEmployed,
		RiskLevel:        models.RiskHigh,
		Confidence:       0.9,
		CompanyMentioned: "Initech",
	}

	ci, err := f.svc.Classify(context.Background(), f.checkIn.ID, "I work at Initech now", "casey")
	require.NoError(t, err)
	assert.False(t, ci.FlaggedForReview)

	_, found, err := f.kit.Flags.GetActiveByIntroduction(context.Background(), f.intro.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

// TestClassifyLowRiskDoesNotFlag verifies benign replies stay unflagged even
// when the employer is mentioned.
func TestClassifyLowRiskDoesNotFlag(t *testing.T) {
	f := newClassificationFixture(t)
	f.kit.Classifier.Result = &models.ParsedResponse{
		Status:           models.ResponseNotHired,
		RiskLevel:        models.RiskClear,
		Confidence:       0.88,
		CompanyMentioned: "Acme Corp",
	}

	ci, err := f.svc.Classify(context.Background(), f.checkIn.ID, "Acme passed on me, still looking", "casey")
	require.NoError(t, err)
	assert.False(t, ci.FlaggedForReview)

	_, found, err := f.kit.Flags.GetActiveByIntroduction(context.Background(), f.intro.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

// TestClassifyMediumRiskWithoutCompanyDoesNotFlag verifies that risk alone,
// with no employer named, is not enough to open a case.
func TestClassifyMediumRiskWithoutCompanyDoesNotFlag(t *testing.T) {
	f := newClassificationFixture(t)
	f.kit.Classifier.Result = &models.ParsedResponse{
		Status:     models.ResponseUnclear,
		RiskLevel:  models.RiskMedium,
		Confidence: 0.55,
	}

	ci, err := f.svc.Classify(context.Background(), f.checkIn.ID, "things are complicated right now", "casey")
	require.NoError(t, err)
	assert.False(t, ci.FlaggedForReview)
}

// TestClassifyClassifierOutageLeavesCheckInUntouched verifies the all-or-
// nothing contract: a collaborator failure persists nothing.
func TestClassifyClassifierOutageLeavesCheckInUntouched(t *testing.T) {
	f := newClassificationFixture(t)
	f.kit.Classifier.Err = errors.New("connection reset")

	_, err := f.svc.Classify(context.Background(), f.checkIn.ID, "hello", "casey")
	require.Error(t, err)

	stored, err := f.kit.CheckIns.GetByID(context.Background(), f.checkIn.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RespondedAt)
	assert.Nil(t, stored.ResponseType)
	assert.False(t, stored.FlaggedForReview)
	assert.Empty(t, f.kit.Usage.Records)
}

// TestClassifySecondRiskyReplyFeedsExistingCase verifies repeated detections
// accumulate on one case.
func TestClassifySecondRiskyReplyFeedsExistingCase(t *testing.T) {
	f := newClassificationFixture(t)
	ctx := context.Background()

	created, err := f.kit.CheckIns.CreateIfMissing(ctx, f.intro.ID, 2, f.intro.IntroducedAt.AddDate(0, 0, 60))
	require.NoError(t, err)
	require.True(t, created)
	var second core.CheckInID
	for _, ci := range f.kit.CheckIns.All() {
		if ci.CheckInNumber == 2 {
			second = ci.ID
		}
	}

	f.kit.Classifier.Result = &models.ParsedResponse{
		Status:           models.ResponseStillEmployed,
		RiskLevel:        models.RiskHigh,
		Confidence:       0.9,
		CompanyMentioned: "Acme",
	}

	_, err = f.svc.Classify(ctx, f.checkIn.ID, "started at Acme", "casey")
	require.NoError(t, err)
	_, err = f.svc.Classify(ctx, second, "yep still at Acme", "casey")
	require.NoError(t, err)

	flag, found, err := f.kit.Flags.GetActiveByIntroduction(ctx, f.intro.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, flag.Evidence, 2)
}

// TestUpdateReviewAttributesNotes verifies operator notes carry attribution.
func TestUpdateReviewAttributesNotes(t *testing.T) {
	f := newClassificationFixture(t)

	ci, err := f.svc.UpdateReview(context.Background(), f.checkIn.ID, "spoke to candidate, false alarm", false, "casey")
	require.NoError(t, err)
	require.NotNil(t, ci.ReviewNotes)
	assert.Equal(t, "[casey] spoke to candidate, false alarm", *ci.ReviewNotes)
	assert.False(t, ci.FlaggedForReview)
	assert.NotNil(t, ci.ReviewedAt)
}

// TestUpdateReviewWithoutNotesKeepsExisting verifies toggling the review flag
// alone never erases notes already on record.
func TestUpdateReviewWithoutNotesKeepsExisting(t *testing.T) {
	f := newClassificationFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateReview(ctx, f.checkIn.ID, "spoke to candidate", true, "casey")
	require.NoError(t, err)

	ci, err := f.svc.UpdateReview(ctx, f.checkIn.ID, "", false, "riley")
	require.NoError(t, err)
	assert.False(t, ci.FlaggedForReview)
	require.NotNil(t, ci.ReviewNotes)
	assert.Equal(t, "[casey] spoke to candidate", *ci.ReviewNotes)
}
