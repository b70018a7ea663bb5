package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "talentbridge/internal/errors"
	"talentbridge/models"
	"talentbridge/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const goodPayload = `{
	"status": "STILL_EMPLOYED",
	"risk_level": "HIGH",
	"confidence": 0.93,
	"company_mentioned": "Acme",
	"summary": "candidate reports working at Acme"
}`

// TestParseResult tests decoding and validation of model output
func TestParseResult(t *testing.T) {
	result, err := ParseResult(goodPayload)
	require.NoError(t, err)
	assert.Equal(t, models.ResponseStillEmployed, result.Status)
	assert.Equal(t, models.RiskHigh, result.RiskLevel)
	assert.Equal(t, 0.93, result.Confidence)
	assert.Equal(t, "Acme", result.CompanyMentioned)
}

// TestParseResultStripsMarkdownFences tests tolerance for fenced JSON
func TestParseResultStripsMarkdownFences(t *testing.T) {
	fenced := "```json\n" + goodPayload + "\n```"
	result, err := ParseResult(fenced)
	require.NoError(t, err)
	assert.Equal(t, models.RiskHigh, result.RiskLevel)

	bare := "```\n" + goodPayload + "\n```"
	result, err = ParseResult(bare)
	require.NoError(t, err)
	assert.Equal(t, models.ResponseStillEmployed, result.Status)
}

// TestParseResultRejectsBadPayloads tests each validation rule
func TestParseResultRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "the candidate seems happy"},
		{"unknown status", `{"status":"EMPLOYED","risk_level":"HIGH","confidence":0.9}`},
		{"unknown risk level", `{"status":"STILL_EMPLOYED","risk_level":"SEVERE","confidence":0.9}`},
		{"confidence above one", `{"status":"STILL_EMPLOYED","risk_level":"HIGH","confidence":1.5}`},
		{"negative confidence", `{"status":"STILL_EMPLOYED","risk_level":"HIGH","confidence":-0.1}`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResult(tt.content)
			require.Error(t, err)
			assert.True(t, apperrors.IsTransient(err), "malformed model output is retryable")
		})
	}
}

func newTestClassifier(t *testing.T, handler http.HandlerFunc) (*Classifier, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClassifier(Config{APIKey: "test-key", BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)
	return c, srv
}

func classifyContext() ports.ClassificationContext {
	return ports.ClassificationContext{
		CandidateName: "Jordan Reyes",
		EmployerName:  "Acme Corp",
		JobTitle:      "Senior Engineer",
	}
}

// TestClassifyParsesCompletion tests the full request/response cycle
func TestClassifyParsesCompletion(t *testing.T) {
	var gotAuth, gotPath string
	c, _ := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req["model"])

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": goodPayload}},
			},
			"usage": map[string]int{
				"prompt_tokens":     410,
				"completion_tokens": 80,
				"total_tokens":      490,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	result, usage, err := c.Classify(context.Background(), "I started at Acme in June", classifyContext())
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, models.RiskHigh, result.RiskLevel)
	assert.Equal(t, "Acme", result.CompanyMentioned)
	require.NotNil(t, usage)
	assert.Equal(t, "gpt-4o-mini", usage.Model)
	assert.Equal(t, 490, usage.TotalTokens)
}

// TestClassifyTransientStatuses tests that outages and throttling surface as
// retryable errors.
func TestClassifyTransientStatuses(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusTooManyRequests} {
		c, _ := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, _, err := c.Classify(context.Background(), "hello", classifyContext())
		require.Error(t, err)
		assert.True(t, apperrors.IsTransient(err), "status %d should be transient", status)
	}
}

// TestClassifyClientErrorIsNotTransient tests that a 4xx rejection is not
// flagged for retry.
func TestClassifyClientErrorIsNotTransient(t *testing.T) {
	c, _ := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad request"}}`))
	})
	_, _, err := c.Classify(context.Background(), "hello", classifyContext())
	require.Error(t, err)
	assert.False(t, apperrors.IsTransient(err))
}

// TestClassifyConnectionFailureIsTransient tests the network failure path.
func TestClassifyConnectionFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c, err := NewClassifier(Config{APIKey: "test-key", BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	_, _, err = c.Classify(context.Background(), "hello", classifyContext())
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
}
