package container

import (
	"fmt"

	"talentbridge/adapters/billing"
	"talentbridge/adapters/llm"
	"talentbridge/adapters/mail"
	"talentbridge/adapters/postgres"
	"talentbridge/app"
	"talentbridge/internal/config"
	"talentbridge/ports"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Container holds all engine dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	IntroductionRepo ports.IntroductionRepository
	CheckInRepo      ports.CheckInRepository
	FlagRepo         ports.FlagRepository
	UsageRepo        ports.ClassifierUsageRepository

	// Outbound collaborators
	Mailer     ports.Mailer
	Classifier ports.ResponseClassifier
	Billing    ports.BillingProvider

	// Services
	Scheduler      *app.SchedulerService
	Classification *app.ClassificationService
	Flags          *app.FlagService
	Stats          *app.StatsService
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Container{
		Config: cfg,
		Logger: logger,
	}, nil
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	c.DB = db

	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.initRepositories()

	if err := c.initCollaborators(); err != nil {
		return fmt.Errorf("failed to initialize collaborators: %w", err)
	}

	c.initServices()

	c.Logger.Info("container initialized with database connection")
	return nil
}

func (c *Container) initRepositories() {
	c.IntroductionRepo = postgres.NewIntroductionRepository(c.DB)
	c.CheckInRepo = postgres.NewCheckInRepository(c.DB)
	c.FlagRepo = postgres.NewFlagRepository(c.DB)
	c.UsageRepo = postgres.NewClassifierUsageRepository(c.DB)
}

func (c *Container) initCollaborators() error {
	mailer, err := mail.NewMailer(mail.Config{
		BaseURL:     c.Config.Mail.BaseURL,
		APIKey:      c.Config.Mail.APIKey,
		FromAddress: c.Config.Mail.From,
		Timeout:     c.Config.Mail.Timeout,
	}, c.Logger)
	if err != nil {
		return err
	}
	c.Mailer = mailer

	classifier, err := llm.NewClassifier(llm.Config{
		APIKey:      c.Config.Classifier.APIKey,
		BaseURL:     c.Config.Classifier.BaseURL,
		Model:       c.Config.Classifier.Model,
		Timeout:     c.Config.Classifier.Timeout,
		Temperature: c.Config.Classifier.Temperature,
		MaxTokens:   c.Config.Classifier.MaxTokens,
	}, c.Logger)
	if err != nil {
		return err
	}
	c.Classifier = classifier

	provider, err := billing.NewProvider(billing.Config{
		BaseURL: c.Config.Billing.BaseURL,
		APIKey:  c.Config.Billing.APIKey,
		Timeout: c.Config.Billing.Timeout,
	}, c.Logger)
	if err != nil {
		return err
	}
	c.Billing = provider

	return nil
}

func (c *Container) initServices() {
	c.Scheduler = app.NewSchedulerService(c.IntroductionRepo, c.CheckInRepo, c.Mailer, c.Logger, c.Config.Scheduler.Concurrency)
	c.Flags = app.NewFlagService(c.FlagRepo, c.IntroductionRepo, c.Billing, c.Logger)
	c.Classification = app.NewClassificationService(c.CheckInRepo, c.IntroductionRepo, c.UsageRepo, c.Classifier, c.Flags, c.Logger)
	c.Stats = app.NewStatsService(c.IntroductionRepo, c.CheckInRepo, c.FlagRepo, c.Logger)
}

// Close releases held resources
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
