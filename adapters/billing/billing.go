// Package billing adapts the platform's invoicing API into the
// BillingProvider port.
package billing

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

	"go.uber.org/zap"
)

// Config holds billing provider settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Provider implements ports.BillingProvider over the billing HTTP API.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewProvider creates a billing adapter.
func NewProvider(cfg Config, logger *zap.Logger) (*Provider, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, apperrors.ConfigInvalid("billing provider base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

type issueRequest struct {
	Amount float64 `json:"amount"`
	Payer  string  `json:"payer"`
	Memo   string  `json:"memo"`
}

type issueResponse struct {
	InvoiceNumber string `json:"invoice_number"`
}

// Issue creates and delivers an invoice. The invoice number is only returned
// once the provider confirms delivery, so callers never persist an
// unconfirmed invoice.
func (p *Provider) Issue(ctx context.Context, amount float64, payer string, memo string) (string, error) {
	if amount <= 0 {
		return "", apperrors.ValidationError("invoice amount must be positive")
	}
	if strings.TrimSpace(payer) == "" {
		return "", apperrors.ValidationError("invoice payer is required")
	}

	raw, err := json.Marshal(issueRequest{Amount: amount, Payer: payer, Memo: memo})
	if err != nil {
		return "", apperrors.Wrap(err, "marshal invoice request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/invoices", bytes.NewReader(raw))
	if err != nil {
		return "", apperrors.Wrap(err, "build invoice request")
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", apperrors.TransientCollaborator("billing", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", apperrors.TransientCollaborator("billing", err)
	}
	if resp.StatusCode >= 300 {
		return "", apperrors.TransientCollaborator("billing",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var parsed issueResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", apperrors.TransientCollaborator("billing", fmt.Errorf("decode response: %w", err))
	}
	if strings.TrimSpace(parsed.InvoiceNumber) == "" {
		return "", apperrors.TransientCollaborator("billing", fmt.Errorf("provider returned no invoice number"))
	}

	p.logger.Info("invoice issued",
		zap.String("invoice_number", parsed.InvoiceNumber),
		zap.Float64("amount", amount),
		zap.String("payer", payer))
	return parsed.InvoiceNumber, nil
}
