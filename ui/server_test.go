package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"talentbridge/app"
	"talentbridge/internal/config"
	"talentbridge/internal/container"
	"talentbridge/internal/testkit"
	"talentbridge/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(kit *testkit.Kit) *Server {
	logger := zap.NewNop()
	flagSvc := app.NewFlagService(kit.Flags, kit.Introductions, kit.Billing, logger)
	cnt := &container.Container{
		Config:           &config.Config{Server: config.ServerConfig{GinMode: "test"}},
		Logger:           logger,
		IntroductionRepo: kit.Introductions,
		CheckInRepo:      kit.CheckIns,
		FlagRepo:         kit.Flags,
		UsageRepo:        kit.Usage,
		Mailer:           kit.Mailer,
		Classifier:       kit.Classifier,
		Billing:          kit.Billing,
		Scheduler:        app.NewSchedulerService(kit.Introductions, kit.CheckIns, kit.Mailer, logger, 2),
		Flags:            flagSvc,
		Classification:   app.NewClassificationService(kit.CheckIns, kit.Introductions, kit.Usage, kit.Classifier, flagSvc, logger),
		Stats:            app.NewStatsService(kit.Introductions, kit.CheckIns, kit.Flags, logger),
	}
	return NewServer(cnt)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Operator", "casey")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

// TestCreateAndFetchIntroduction exercises the introduction endpoints.
func TestCreateAndFetchIntroduction(t *testing.T) {
	s := newTestServer(testkit.New())

	w := doJSON(t, s, http.MethodPost, "/api/introductions", map[string]any{
		"candidate_name":  "Jordan Reyes",
		"candidate_email": "jordan@example.com",
		"employer_name":   "Acme Corp",
		"job_title":       "Senior Engineer",
		"annual_salary":   150000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var intro models.Introduction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &intro))
	assert.Equal(t, models.IntroductionActive, intro.Status)
	assert.True(t, intro.ProtectionExpiry.Equal(intro.IntroducedAt.AddDate(0, 0, models.ProtectionWindowDays)))

	w = doJSON(t, s, http.MethodGet, "/api/introductions/"+intro.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/introductions", map[string]any{"candidate_name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestErrorCodeMapping verifies the taxonomy-to-status mapping on the wire.
func TestErrorCodeMapping(t *testing.T) {
	kit := testkit.New()
	s := newTestServer(kit)

	w := doJSON(t, s, http.MethodGet, "/api/flags/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")

	intro := kit.SeedIntroduction(time.Now().AddDate(0, 0, -31), "Acme Corp", 150000)
	w = doJSON(t, s, http.MethodPost, "/api/flags", map[string]any{
		"introduction_id": intro.ID.String(),
		"method":          "manual_report",
		"manual_report":   map[string]any{"details": "employer confirmed hire"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var flag models.CircumventionFlag
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flag))

	// PaymentReceived is not a legal edge from OPEN.
	w = doJSON(t, s, http.MethodPost, "/api/flags/"+flag.ID.String()+"/paid", map[string]any{"notes": "n"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TRANSITION")
}

// TestSchedulerAndCheckInFlow drives scheduling, classification and review
// through the HTTP surface.
func TestSchedulerAndCheckInFlow(t *testing.T) {
	kit := testkit.New()
	s := newTestServer(kit)
	kit.SeedIntroduction(time.Now().AddDate(0, 0, -31), "Acme Corp", 150000)

	w := doJSON(t, s, http.MethodPost, "/api/scheduler/run", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result models.SchedulerResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 5, result.CheckInsCreated)
	assert.Equal(t, 1, result.EmailsSent)

	ci := kit.CheckIns.All()[0]

	kit.Classifier.Result = &models.ParsedResponse{
		Status:           models.ResponseStillEmployed,
		RiskLevel:        models.RiskHigh,
		Confidence:       0.9,
		CompanyMentioned: "Acme",
	}
	w = doJSON(t, s, http.MethodPost, "/api/check-ins/"+ci.ID.String()+"/classify",
		map[string]any{"response_text": "started at Acme in June"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var classified models.CheckIn
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &classified))
	assert.True(t, classified.FlaggedForReview)

	_, found, err := kit.Flags.GetActiveByIntroduction(context.Background(), ci.IntroductionID)
	require.NoError(t, err)
	assert.True(t, found)

	w = doJSON(t, s, http.MethodPost, "/api/check-ins/"+ci.ID.String()+"/review",
		map[string]any{"notes": "confirmed by phone", "flagged": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/check-ins?flagged_only=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ci.ID.String())
}

// TestPageParams verifies the listing page bounds, in particular that an
// oversized limit is clamped to the maximum rather than reset to the default.
func TestPageParams(t *testing.T) {
	newCtx := func(query string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/api/check-ins?"+query, nil)
		return c
	}

	limit, offset := pageParams(newCtx(""))
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)

	limit, offset = pageParams(newCtx("limit=25&offset=100"))
	assert.Equal(t, 25, limit)
	assert.Equal(t, 100, offset)

	limit, _ = pageParams(newCtx("limit=500"))
	assert.Equal(t, maxPageLimit, limit)

	limit, offset = pageParams(newCtx("limit=-3&offset=-2"))
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)
}

// TestCheckInListFilters exercises the candidate and date-range filters on
// the check-in listing.
func TestCheckInListFilters(t *testing.T) {
	kit := testkit.New()
	s := newTestServer(kit)
	intro := kit.SeedIntroduction(time.Now().AddDate(0, 0, -31), "Acme Corp", 150000)
	doJSON(t, s, http.MethodPost, "/api/scheduler/run", nil)

	w := doJSON(t, s, http.MethodGet, "/api/check-ins?candidate=jordan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), intro.ID.String())

	w = doJSON(t, s, http.MethodGet, "/api/check-ins?candidate=smith", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":0`)

	// Only the day-30 check-in is scheduled before now.
	to := time.Now().UTC().Format(time.RFC3339)
	w = doJSON(t, s, http.MethodGet, "/api/check-ins?to="+to, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = doJSON(t, s, http.MethodGet, "/api/check-ins?from="+to, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":4`)
}

// TestManualFlagRejectsCheckInMethod verifies check-in evidence cannot be
// injected through the manual endpoint.
func TestManualFlagRejectsCheckInMethod(t *testing.T) {
	kit := testkit.New()
	s := newTestServer(kit)
	intro := kit.SeedIntroduction(time.Now().AddDate(0, 0, -31), "Acme Corp", 150000)

	w := doJSON(t, s, http.MethodPost, "/api/flags", map[string]any{
		"introduction_id": intro.ID.String(),
		"method":          "checkin_response",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestReportSummaryEndpoint verifies the summary endpoint shape.
func TestReportSummaryEndpoint(t *testing.T) {
	kit := testkit.New()
	s := newTestServer(kit)
	kit.SeedIntroduction(time.Now().AddDate(0, 0, -31), "Acme Corp", 150000)

	w := doJSON(t, s, http.MethodGet, "/api/reports/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report models.EngineReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.ActiveIntroductions)
}

// TestReportExportEndpoint verifies the spreadsheet download headers.
func TestReportExportEndpoint(t *testing.T) {
	kit := testkit.New()
	s := newTestServer(kit)
	kit.SeedIntroduction(time.Now().AddDate(0, 0, -31), "Acme Corp", 150000)
	doJSON(t, s, http.MethodPost, "/api/scheduler/run", nil)

	w := doJSON(t, s, http.MethodGet, "/api/reports/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "engine-report-")
	assert.NotZero(t, w.Body.Len())
}
