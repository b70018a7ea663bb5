// Package mail adapts the platform's HTTP mail provider into the Mailer
// port. Template bodies are authored in markdown and rendered to HTML before
// handoff to the provider.
package mail

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

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"go.uber.org/zap"
)

// templates maps template names to markdown bodies. {{var}} placeholders are
// substituted from the vars map before rendering.
var templates = map[string]string{
	"checkin_status_update": "Hi {{candidate_name}},\n\n" +
		"A little while ago we introduced you to **{{employer_name}}** for the *{{job_title}}* role.\n\n" +
		"How are things going? A quick reply to this email with your current employment status helps us keep your profile up to date.\n\n" +
		"Thanks,\nThe TalentBridge team",
}

// Config holds mail provider settings.
type Config struct {
	BaseURL     string
	APIKey      string
	FromAddress string
	Timeout     time.Duration
}

// Mailer implements ports.Mailer over the provider's HTTP API.
type Mailer struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewMailer creates a mail adapter.
func NewMailer(cfg Config, logger *zap.Logger) (*Mailer, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, apperrors.ConfigInvalid("mail provider base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Mailer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

type sendRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	TextBody string `json:"text_body"`
}

func (m *Mailer) Send(ctx context.Context, to string, template string, vars map[string]string) error {
	if strings.TrimSpace(to) == "" {
		return apperrors.ValidationError("recipient address is required")
	}
	body, ok := templates[template]
	if !ok {
		return apperrors.ValidationError(fmt.Sprintf("unknown mail template %q", template))
	}
	for key, value := range vars {
		body = strings.ReplaceAll(body, "{{"+key+"}}", value)
	}

	req := sendRequest{
		From:     m.cfg.FromAddress,
		To:       to,
		Subject:  subjectFor(template, vars),
		HTMLBody: RenderHTML(body),
		TextBody: body,
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return apperrors.Wrap(err, "marshal mail request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/messages", bytes.NewReader(raw))
	if err != nil {
		return apperrors.Wrap(err, "build mail request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if m.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	}

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return apperrors.TransientCollaborator("mail", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.TransientCollaborator("mail",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
	}

	m.logger.Debug("mail accepted",
		zap.String("template", template),
		zap.String("to", to))
	return nil
}

func subjectFor(template string, vars map[string]string) string {
	switch template {
	case "checkin_status_update":
		return "Quick check-in about your " + vars["job_title"] + " introduction"
	default:
		return "TalentBridge update"
	}
}

// RenderHTML converts a markdown body to HTML.
func RenderHTML(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return string(markdown.Render(doc, renderer))
}
