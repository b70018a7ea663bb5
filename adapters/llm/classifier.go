// Package llm adapts an OpenAI-compatible chat completions API into the
// engine's ResponseClassifier port. Language interpretation is entirely the
// model's job; this adapter shapes the exchange, enforces JSON output, and
// validates what comes back.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "talentbridge/internal/errors"
	"talentbridge/models"
	"talentbridge/ports"

	"go.uber.org/zap"
)

const systemPrompt = `You are an analyst for a recruitment platform. A candidate we introduced to an employer has replied to a scheduled employment status check-in. Classify the reply.

Respond with a single JSON object:
{
  "status": "STILL_EMPLOYED" | "LEFT_JOB" | "NOT_HIRED" | "UNCLEAR",
  "risk_level": "HIGH" | "MEDIUM" | "LOW" | "CLEAR",
  "confidence": 0.0-1.0,
  "company_mentioned": "company name mentioned in the reply, if any",
  "hire_date": "date mentioned for starting a job, if any",
  "separation_date": "date mentioned for leaving a job, if any",
  "summary": "one-sentence summary of the reply",
  "suggested_action": "short recommendation for the recovery team"
}

risk_level measures how likely the reply indicates the candidate was hired by the introduced employer without the platform being told. A reply mentioning working at the introduced employer while the platform shows no placement is HIGH.`

// Config holds classifier client settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// Classifier implements ports.ResponseClassifier over the OpenAI chat
// completions API with JSON-mode output.
type Classifier struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewClassifier creates a classifier client.
func NewClassifier(cfg Config, logger *zap.Logger) (*Classifier, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperrors.ConfigInvalid("classifier API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &Classifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature,omitempty"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Classifier) Classify(ctx context.Context, rawText string, cctx ports.ClassificationContext) (*models.ParsedResponse, *ports.UsageData, error) {
	prompt := buildPrompt(rawText, cctx)

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	reqBody.ResponseFormat.Type = "json_object"

	raw, err := json.Marshal(reqBody)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "marshal classifier request")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "build classifier request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	c.logger.Debug("classifier request",
		zap.String("model", c.cfg.Model),
		zap.Int("prompt_length", len(prompt)))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, apperrors.TransientCollaborator("classifier", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, apperrors.TransientCollaborator("classifier", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, nil, apperrors.TransientCollaborator("classifier",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, apperrors.Wrapf(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			"classifier rejected request")
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, nil, apperrors.TransientCollaborator("classifier", fmt.Errorf("decode response: %w", err))
	}
	if parsed.Error != nil {
		return nil, nil, apperrors.TransientCollaborator("classifier", fmt.Errorf("%s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return nil, nil, apperrors.TransientCollaborator("classifier", fmt.Errorf("empty choices"))
	}

	result, err := ParseResult(parsed.Choices[0].Message.Content)
	if err != nil {
		return nil, nil, err
	}

	usage := &ports.UsageData{
		Model:            c.cfg.Model,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
		TotalTokens:      parsed.Usage.TotalTokens,
	}
	return result, usage, nil
}

func buildPrompt(rawText string, cctx ports.ClassificationContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Candidate: %s\n", cctx.CandidateName)
	fmt.Fprintf(&b, "Introduced employer: %s\n", cctx.EmployerName)
	fmt.Fprintf(&b, "Job title: %s\n\n", cctx.JobTitle)
	b.WriteString("Check-in reply:\n")
	if strings.TrimSpace(rawText) == "" {
		b.WriteString("(empty reply)")
	} else {
		b.WriteString(rawText)
	}
	return b.String()
}

// ParseResult decodes and validates the model's JSON payload. Models
// occasionally wrap JSON in markdown fences despite JSON mode; those are
// stripped before decoding.
func ParseResult(content string) (*models.ParsedResponse, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var result models.ParsedResponse
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, apperrors.TransientCollaborator("classifier", fmt.Errorf("malformed payload: %w", err))
	}
	if !models.ValidResponseType(result.Status) {
		return nil, apperrors.TransientCollaborator("classifier", fmt.Errorf("unknown status %q", result.Status))
	}
	if !models.ValidRiskLevel(result.RiskLevel) {
		return nil, apperrors.TransientCollaborator("classifier", fmt.Errorf("unknown risk level %q", result.RiskLevel))
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		return nil, apperrors.TransientCollaborator("classifier", fmt.Errorf("confidence %.3f outside [0,1]", result.Confidence))
	}
	return &result, nil
}
