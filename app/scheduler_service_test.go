package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"talentbridge/internal/testkit"
	"talentbridge/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newSchedulerFixture(kit *testkit.Kit) *SchedulerService {
	return NewSchedulerService(kit.Introductions, kit.CheckIns, kit.Mailer, zap.NewNop(), 2)
}

// TestSchedulerCreatesFullSchedule verifies that an introduction 31 days old
// gets all five milestone rows, scheduled at the milestone dates, with only
// the due day-30 check-in dispatched.
func TestSchedulerCreatesFullSchedule(t *testing.T) {
	kit := testkit.New()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	intro := kit.SeedIntroduction(now.AddDate(0, 0, -31), "Acme Corp", 150000)

	svc := newSchedulerFixture(kit).WithClock(fixedClock(now))
	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, result.CheckInsCreated)
	assert.Equal(t, 1, result.EmailsSent)

	all := kit.CheckIns.All()
	require.Len(t, all, 5)
	for i, ci := range all {
		assert.Equal(t, i+1, ci.CheckInNumber)
		assert.Equal(t, intro.IntroducedAt.AddDate(0, 0, models.CheckInMilestones[i]), ci.ScheduledFor)
	}
	assert.NotNil(t, all[0].SentAt)
	assert.Nil(t, all[1].SentAt)
	assert.Equal(t, 1, kit.Mailer.SentCount())
	assert.Equal(t, intro.CandidateEmail, kit.Mailer.Sent[0].To)
}

// TestSchedulerBackfillsMissedMilestones verifies that a late first run
// dispatches every elapsed milestone at once.
func TestSchedulerBackfillsMissedMilestones(t *testing.T) {
	kit := testkit.New()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	kit.SeedIntroduction(now.AddDate(0, 0, -100), "Acme Corp", 150000)

	svc := newSchedulerFixture(kit).WithClock(fixedClock(now))
	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	// Milestones 30, 60 and 90 have elapsed; 180 and 365 have not.
	assert.Equal(t, 5, result.CheckInsCreated)
	assert.Equal(t, 3, result.EmailsSent)

	all := kit.CheckIns.All()
	require.Len(t, all, 5)
	for i, ci := range all {
		assert.Equal(t, i+1, ci.CheckInNumber)
		if i < 3 {
			assert.NotNil(t, ci.SentAt)
		} else {
			assert.Nil(t, ci.SentAt)
		}
	}
}

// TestSchedulerSendsFinalCheckInAfterWindowCloses verifies the day-365
// check-in: its row is created while the introduction is still protected and
// dispatched once the milestone passes, even though the protection window has
// closed by then.
func TestSchedulerSendsFinalCheckInAfterWindowCloses(t *testing.T) {
	kit := testkit.New()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	intro := kit.SeedIntroduction(now.AddDate(0, 0, -364), "Acme Corp", 150000)

	svc := newSchedulerFixture(kit).WithClock(fixedClock(now))
	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, result.CheckInsCreated)
	assert.Equal(t, 4, result.EmailsSent)

	all := kit.CheckIns.All()
	require.Len(t, all, 5)
	final := all[4]
	require.Equal(t, 5, final.CheckInNumber)
	assert.Nil(t, final.SentAt)

	// Two days later the protection window has expired.
	result, err = svc.WithClock(fixedClock(now.AddDate(0, 0, 2))).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.CheckInsCreated)
	assert.Equal(t, 1, result.EmailsSent)

	final, err = kit.CheckIns.GetByID(context.Background(), final.ID)
	require.NoError(t, err)
	assert.NotNil(t, final.SentAt)
	assert.Equal(t, intro.IntroducedAt.AddDate(0, 0, 365), final.ScheduledFor)
}

// TestSchedulerRunIsIdempotent verifies that a second pass neither duplicates
// check-ins nor resends mail.
func TestSchedulerRunIsIdempotent(t *testing.T) {
	kit := testkit.New()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	kit.SeedIntroduction(now.AddDate(0, 0, -31), "Acme Corp", 150000)

	svc := newSchedulerFixture(kit).WithClock(fixedClock(now))
	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.CheckInsCreated)
	assert.Equal(t, 0, result.EmailsSent)
	assert.Len(t, kit.CheckIns.All(), 5)
	assert.Equal(t, 1, kit.Mailer.SentCount())
}

// TestSchedulerSkipsUnprotectedIntroductions verifies withdrawn and expired
// introductions get no check-ins.
func TestSchedulerSkipsUnprotectedIntroductions(t *testing.T) {
	kit := testkit.New()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	withdrawn := kit.SeedIntroduction(now.AddDate(0, 0, -31), "Acme Corp", 150000)
	require.NoError(t, kit.Introductions.UpdateStatus(context.Background(), withdrawn.ID, models.IntroductionWithdrawn))

	// Protection window closed more than a year ago.
	kit.SeedIntroduction(now.AddDate(0, 0, -400), "Initech", 90000)

	svc := newSchedulerFixture(kit).WithClock(fixedClock(now))
	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.CheckInsCreated)
	assert.Equal(t, 0, result.EmailsSent)
}

// TestSchedulerWithdrawalStopsDispatch verifies that withdrawing an
// introduction leaves its remaining scheduled check-ins unsent.
func TestSchedulerWithdrawalStopsDispatch(t *testing.T) {
	kit := testkit.New()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	intro := kit.SeedIntroduction(now.AddDate(0, 0, -31), "Acme Corp", 150000)

	svc := newSchedulerFixture(kit).WithClock(fixedClock(now))
	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, kit.Mailer.SentCount())

	require.NoError(t, kit.Introductions.UpdateStatus(context.Background(), intro.ID, models.IntroductionWithdrawn))

	// The day-60 milestone passes after withdrawal.
	result, err := svc.WithClock(fixedClock(now.AddDate(0, 0, 30))).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.EmailsSent)
	assert.Equal(t, 1, kit.Mailer.SentCount())

	all := kit.CheckIns.All()
	require.Len(t, all, 5)
	assert.Nil(t, all[1].SentAt)
}

// TestSchedulerReleasesClaimOnMailFailure verifies the claim rollback: a
// failed send leaves the check-in unsent so the next pass retries it.
func TestSchedulerReleasesClaimOnMailFailure(t *testing.T) {
	kit := testkit.New()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	kit.SeedIntroduction(now.AddDate(0, 0, -31), "Acme Corp", 150000)
	kit.Mailer.Err = errors.New("smtp relay down")

	svc := newSchedulerFixture(kit).WithClock(fixedClock(now))
	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, result.CheckInsCreated)
	assert.Equal(t, 0, result.EmailsSent)

	all := kit.CheckIns.All()
	require.Len(t, all, 5)
	assert.Nil(t, all[0].SentAt, "claim must be released after a failed send")

	// Mail recovers; the next pass sends without creating anything new.
	kit.Mailer.Err = nil
	result, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.CheckInsCreated)
	assert.Equal(t, 1, result.EmailsSent)
}

// TestSchedulerResend verifies the operator resend path stamps sent_at only
// after the mailer accepts.
func TestSchedulerResend(t *testing.T) {
	kit := testkit.New()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	kit.SeedIntroduction(now.AddDate(0, 0, -31), "Acme Corp", 150000)

	svc := newSchedulerFixture(kit).WithClock(fixedClock(now))
	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	ci := kit.CheckIns.All()[0]

	require.NoError(t, svc.Resend(context.Background(), ci.ID, "casey"))
	assert.Equal(t, 2, kit.Mailer.SentCount())

	kit.Mailer.Err = errors.New("smtp relay down")
	assert.Error(t, svc.Resend(context.Background(), ci.ID, "casey"))
	assert.Equal(t, 2, kit.Mailer.SentCount())
}
