// Package testkit provides in-memory implementations of the engine's ports
// for tests. The fakes honor the same atomicity contracts as the Postgres
// adapters: conditional claims, compare-and-set transitions, and unique
// (introduction, number) check-ins.
package testkit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"talentbridge/domain/core"
	"talentbridge/domain/flags"
	apperrors "talentbridge/internal/errors"
	"talentbridge/models"
	"talentbridge/ports"
)

// Kit bundles the fakes behind one seedable fixture.
type Kit struct {
	Introductions *FakeIntroductionRepo
	CheckIns      *FakeCheckInRepo
	Flags         *FakeFlagRepo
	Usage         *FakeUsageRepo
	Mailer        *FakeMailer
	Classifier    *FakeClassifier
	Billing       *FakeBilling
}

// New creates an empty kit.
func New() *Kit {
	intros := &FakeIntroductionRepo{items: map[core.IntroductionID]*models.Introduction{}}
	return &Kit{
		Introductions: intros,
		CheckIns:      &FakeCheckInRepo{items: map[core.CheckInID]*models.CheckIn{}, intros: intros},
		Flags:         &FakeFlagRepo{items: map[core.FlagID]*models.CircumventionFlag{}},
		Usage:         &FakeUsageRepo{},
		Mailer:        &FakeMailer{},
		Classifier:    &FakeClassifier{},
		Billing:       &FakeBilling{InvoiceNumber: "INV-1001"},
	}
}

// SeedIntroduction adds and returns an active introduction introduced at the
// given time.
func (k *Kit) SeedIntroduction(introducedAt time.Time, employer string, salary float64) *models.Introduction {
	intro := models.NewIntroduction("Jordan Reyes", "jordan@example.com", employer, "Senior Engineer", salary, introducedAt)
	_ = k.Introductions.Create(context.Background(), intro)
	return intro
}

// FakeIntroductionRepo is an in-memory IntroductionRepository.
type FakeIntroductionRepo struct {
	mu    sync.Mutex
	items map[core.IntroductionID]*models.Introduction
}

func (r *FakeIntroductionRepo) Create(_ context.Context, intro *models.Introduction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *intro
	r.items[intro.ID] = &cp
	return nil
}

func (r *FakeIntroductionRepo) GetByID(_ context.Context, id core.IntroductionID) (*models.Introduction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	intro, ok := r.items[id]
	if !ok {
		return nil, apperrors.NotFound("introduction", id.String())
	}
	cp := *intro
	return &cp, nil
}

func (r *FakeIntroductionRepo) ListActive(_ context.Context, now time.Time) ([]*models.Introduction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Introduction
	for _, intro := range r.items {
		if intro.Status == models.IntroductionActive && intro.ProtectionExpiry.After(now) {
			cp := *intro
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IntroducedAt.Before(out[j].IntroducedAt) })
	return out, nil
}

func (r *FakeIntroductionRepo) CountActive(ctx context.Context, now time.Time) (int, error) {
	active, err := r.ListActive(ctx, now)
	return len(active), err
}

func (r *FakeIntroductionRepo) UpdateStatus(_ context.Context, id core.IntroductionID, status models.IntroductionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	intro, ok := r.items[id]
	if !ok {
		return apperrors.NotFound("introduction", id.String())
	}
	intro.Status = status
	return nil
}

// FakeCheckInRepo is an in-memory CheckInRepository. It holds the kit's
// introduction fake so candidate filters can resolve names the way the
// Postgres adapter's join does.
type FakeCheckInRepo struct {
	mu     sync.Mutex
	items  map[core.CheckInID]*models.CheckIn
	intros *FakeIntroductionRepo
}

func (r *FakeCheckInRepo) CreateIfMissing(_ context.Context, intro core.IntroductionID, number int, scheduledFor time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ci := range r.items {
		if ci.IntroductionID == intro && ci.CheckInNumber == number {
			return false, nil
		}
	}
	id := core.CheckInID(core.NewID())
	r.items[id] = &models.CheckIn{
		ID:             id,
		IntroductionID: intro,
		CheckInNumber:  number,
		ScheduledFor:   scheduledFor,
		CreatedAt:      time.Now(),
	}
	return true, nil
}

func (r *FakeCheckInRepo) GetByID(_ context.Context, id core.CheckInID) (*models.CheckIn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ci, ok := r.items[id]
	if !ok {
		return nil, apperrors.NotFound("check-in", id.String())
	}
	cp := *ci
	return &cp, nil
}

func (r *FakeCheckInRepo) ListDueUnsent(_ context.Context, now time.Time) ([]*models.CheckIn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CheckIn
	for _, ci := range r.items {
		if ci.SentAt == nil && !ci.ScheduledFor.After(now) {
			cp := *ci
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

func (r *FakeCheckInRepo) ClaimForSend(_ context.Context, id core.CheckInID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ci, ok := r.items[id]
	if !ok || ci.SentAt != nil {
		return false, nil
	}
	sent := at
	ci.SentAt = &sent
	return true, nil
}

func (r *FakeCheckInRepo) ReleaseClaim(_ context.Context, id core.CheckInID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ci, ok := r.items[id]; ok {
		ci.SentAt = nil
	}
	return nil
}

func (r *FakeCheckInRepo) MarkSent(_ context.Context, id core.CheckInID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ci, ok := r.items[id]
	if !ok {
		return apperrors.NotFound("check-in", id.String())
	}
	sent := at
	ci.SentAt = &sent
	return nil
}

func (r *FakeCheckInRepo) SaveClassification(_ context.Context, id core.CheckInID, raw string, parsed *models.ParsedResponse, respondedAt time.Time, flaggedForReview bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ci, ok := r.items[id]
	if !ok {
		return apperrors.NotFound("check-in", id.String())
	}
	at := respondedAt
	status := parsed.Status
	risk := parsed.RiskLevel
	reason := parsed.Summary
	rawCopy := raw
	ci.RespondedAt = &at
	ci.ResponseType = &status
	ci.ResponseRaw = &rawCopy
	ci.RiskLevel = &risk
	ci.RiskReason = &reason
	ci.FlaggedForReview = flaggedForReview
	return nil
}

func (r *FakeCheckInRepo) UpdateReview(_ context.Context, id core.CheckInID, notes string, flagged bool, reviewedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ci, ok := r.items[id]
	if !ok {
		return apperrors.NotFound("check-in", id.String())
	}
	at := reviewedAt
	if notes != "" {
		notesCopy := notes
		ci.ReviewNotes = &notesCopy
	}
	ci.FlaggedForReview = flagged
	ci.ReviewedAt = &at
	return nil
}

func (r *FakeCheckInRepo) List(ctx context.Context, filter ports.CheckInFilter) ([]*models.CheckIn, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CheckIn
	for _, ci := range r.items {
		if !core.ID(filter.IntroductionID).IsEmpty() && ci.IntroductionID != filter.IntroductionID {
			continue
		}
		if filter.FlaggedOnly && !ci.FlaggedForReview {
			continue
		}
		if filter.RiskLevel != "" && (ci.RiskLevel == nil || *ci.RiskLevel != filter.RiskLevel) {
			continue
		}
		if filter.Candidate != "" && !r.candidateMatches(ctx, ci.IntroductionID, filter.Candidate) {
			continue
		}
		if filter.From != nil && ci.ScheduledFor.Before(*filter.From) {
			continue
		}
		if filter.To != nil && ci.ScheduledFor.After(*filter.To) {
			continue
		}
		cp := *ci
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	total := len(out)
	start, end := pageWindow(total, filter.Limit, filter.Offset)
	return out[start:end], total, nil
}

func (r *FakeCheckInRepo) candidateMatches(ctx context.Context, id core.IntroductionID, candidate string) bool {
	intro, err := r.intros.GetByID(ctx, id)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(intro.CandidateName), strings.ToLower(candidate))
}

func (r *FakeCheckInRepo) Counts(_ context.Context) (*models.CheckInCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := &models.CheckInCounts{}
	for _, ci := range r.items {
		counts.Created++
		if ci.SentAt != nil {
			counts.Sent++
		}
		if ci.RespondedAt != nil {
			counts.Responded++
		}
		if ci.FlaggedForReview {
			counts.Flagged++
		}
	}
	return counts, nil
}

// All returns every stored check-in, for assertions.
func (r *FakeCheckInRepo) All() []*models.CheckIn {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CheckIn
	for _, ci := range r.items {
		cp := *ci
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IntroductionID != out[j].IntroductionID {
			return out[i].IntroductionID < out[j].IntroductionID
		}
		return out[i].CheckInNumber < out[j].CheckInNumber
	})
	return out
}

// FakeFlagRepo is an in-memory FlagRepository.
type FakeFlagRepo struct {
	mu    sync.Mutex
	items map[core.FlagID]*models.CircumventionFlag
}

func (r *FakeFlagRepo) Create(_ context.Context, flag *models.CircumventionFlag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.IntroductionID == flag.IntroductionID && existing.Active() {
			return apperrors.Conflict("introduction already has an active flag")
		}
	}
	cp := *flag
	cp.Evidence = append(flags.EvidenceTrail{}, flag.Evidence...)
	r.items[flag.ID] = &cp
	return nil
}

func (r *FakeFlagRepo) GetByID(_ context.Context, id core.FlagID) (*models.CircumventionFlag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flag, ok := r.items[id]
	if !ok {
		return nil, apperrors.NotFound("flag", id.String())
	}
	cp := *flag
	cp.Evidence = append(flags.EvidenceTrail{}, flag.Evidence...)
	return &cp, nil
}

func (r *FakeFlagRepo) GetActiveByIntroduction(_ context.Context, intro core.IntroductionID) (*models.CircumventionFlag, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, flag := range r.items {
		if flag.IntroductionID == intro && flag.Active() {
			cp := *flag
			cp.Evidence = append(flags.EvidenceTrail{}, flag.Evidence...)
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

func (r *FakeFlagRepo) AppendEvidence(_ context.Context, id core.FlagID, item flags.Evidence) error {
	if err := item.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	flag, ok := r.items[id]
	if !ok {
		return apperrors.NotFound("flag", id.String())
	}
	flag.Evidence = append(flag.Evidence, item)
	return nil
}

func (r *FakeFlagRepo) CompareAndSwapStatus(_ context.Context, id core.FlagID, expected, next flags.Status, mut ports.FlagMutation) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flag, ok := r.items[id]
	if !ok {
		return false, apperrors.NotFound("flag", id.String())
	}
	if flag.Status != expected {
		return false, nil
	}
	flag.Status = next
	if mut.InvoiceNumber != nil {
		flag.InvoiceNumber = mut.InvoiceNumber
	}
	if mut.InvoiceSentAt != nil {
		flag.InvoiceSentAt = mut.InvoiceSentAt
	}
	if mut.InvoiceAmount != nil {
		flag.InvoiceAmount = mut.InvoiceAmount
	}
	if mut.InvoicePaidAt != nil {
		flag.InvoicePaidAt = mut.InvoicePaidAt
	}
	if mut.ResolvedAt != nil {
		flag.ResolvedAt = mut.ResolvedAt
	}
	if mut.Resolution != nil {
		flag.Resolution = mut.Resolution
	}
	if mut.ResolutionNotes != nil {
		flag.ResolutionNotes = mut.ResolutionNotes
	}
	return true, nil
}

func (r *FakeFlagRepo) UpdateFeeFields(_ context.Context, id core.FlagID, salary, percentage, owed float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	flag, ok := r.items[id]
	if !ok {
		return apperrors.NotFound("flag", id.String())
	}
	flag.EstimatedSalary = salary
	flag.FeePercentage = percentage
	flag.EstimatedFeeOwed = owed
	return nil
}

func (r *FakeFlagRepo) List(_ context.Context, filter ports.FlagFilter) ([]*models.CircumventionFlag, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CircumventionFlag
	for _, flag := range r.items {
		if filter.Status != "" && flag.Status != filter.Status {
			continue
		}
		if !core.ID(filter.IntroductionID).IsEmpty() && flag.IntroductionID != filter.IntroductionID {
			continue
		}
		cp := *flag
		cp.Evidence = append(flags.EvidenceTrail{}, flag.Evidence...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.Before(out[j].DetectedAt) })
	total := len(out)
	start, end := pageWindow(total, filter.Limit, filter.Offset)
	return out[start:end], total, nil
}

// pageWindow applies the Postgres adapters' limit clamp and offset semantics.
func pageWindow(total, limit, offset int) (start, end int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end = offset + limit
	if end > total {
		end = total
	}
	return offset, end
}

func (r *FakeFlagRepo) CountsByStatus(_ context.Context) (map[flags.Status]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[flags.Status]int)
	for _, flag := range r.items {
		counts[flag.Status]++
	}
	return counts, nil
}

func (r *FakeFlagRepo) Financials(_ context.Context) (*models.FlagFinancials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fin := &models.FlagFinancials{}
	for _, flag := range r.items {
		fin.TotalOwed += flag.EstimatedFeeOwed
		if flag.InvoiceAmount != nil {
			fin.TotalInvoiced += *flag.InvoiceAmount
			fin.InvoiceAmounts = append(fin.InvoiceAmounts, *flag.InvoiceAmount)
			if flag.Status == flags.StatusPaid {
				fin.TotalCollected += *flag.InvoiceAmount
			}
		}
	}
	return fin, nil
}

// FakeUsageRepo is an in-memory ClassifierUsageRepository.
type FakeUsageRepo struct {
	mu      sync.Mutex
	Records []*models.ClassifierUsage
}

func (r *FakeUsageRepo) Record(_ context.Context, usage *models.ClassifierUsage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *usage
	r.Records = append(r.Records, &cp)
	return nil
}

// SentMail captures one FakeMailer delivery.
type SentMail struct {
	To       string
	Template string
	Vars     map[string]string
}

// FakeMailer is an in-memory Mailer. Set Err to make every send fail.
type FakeMailer struct {
	mu   sync.Mutex
	Err  error
	Sent []SentMail
}

func (m *FakeMailer) Send(_ context.Context, to string, template string, vars map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentMail{To: to, Template: template, Vars: vars})
	return nil
}

// SentCount returns the number of accepted sends.
func (m *FakeMailer) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// FakeClassifier is an in-memory ResponseClassifier returning a canned parse.
type FakeClassifier struct {
	Result *models.ParsedResponse
	Usage  *ports.UsageData
	Err    error
	Calls  int
}

func (c *FakeClassifier) Classify(_ context.Context, _ string, _ ports.ClassificationContext) (*models.ParsedResponse, *ports.UsageData, error) {
	c.Calls++
	if c.Err != nil {
		return nil, nil, c.Err
	}
	if c.Result == nil {
		return nil, nil, fmt.Errorf("testkit: FakeClassifier.Result not set")
	}
	cp := *c.Result
	return &cp, c.Usage, nil
}

// FakeBilling is an in-memory BillingProvider.
type FakeBilling struct {
	mu            sync.Mutex
	InvoiceNumber string
	Err           error
	Calls         int
}

func (b *FakeBilling) Issue(_ context.Context, amount float64, _ string, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Calls++
	if b.Err != nil {
		return "", b.Err
	}
	if amount <= 0 {
		return "", apperrors.ValidationError("invoice amount must be positive")
	}
	return b.InvoiceNumber, nil
}

// CallCount returns how many times Issue was invoked.
func (b *FakeBilling) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Calls
}
