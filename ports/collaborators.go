package ports

import (
	"context"

	"talentbridge/models"
)

// Mailer delivers templated mail to a candidate. Implementations talk to the
// platform's mail provider; callers never hold a transaction across Send.
type Mailer interface {
	Send(ctx context.Context, to string, template string, vars map[string]string) error
}

// ClassificationContext gives the classifier enough surrounding detail to
// interpret a free-text reply.
type ClassificationContext struct {
	CandidateName string
	EmployerName  string
	JobTitle      string
}

// UsageData is raw token accounting returned by a classifier provider.
type UsageData struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ResponseClassifier turns a raw check-in reply into a structured risk
// assessment. Language interpretation is delegated entirely to the external
// model; implementations only shape and validate the exchange.
type ResponseClassifier interface {
	Classify(ctx context.Context, rawText string, cctx ClassificationContext) (*models.ParsedResponse, *UsageData, error)
}

// BillingProvider issues invoices through the platform's billing system.
type BillingProvider interface {
	// Issue creates and delivers an invoice, returning the provider's invoice
	// number. No local state is written until Issue confirms delivery.
	Issue(ctx context.Context, amount float64, payer string, memo string) (string, error)
}
