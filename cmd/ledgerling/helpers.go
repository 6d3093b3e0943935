// Package main contains the ledgerling CLI commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/ledgerling/ledgerling/internal/ai"
	"github.com/ledgerling/ledgerling/internal/alias"
	"github.com/ledgerling/ledgerling/internal/common"
	"github.com/ledgerling/ledgerling/internal/config"
	"github.com/ledgerling/ledgerling/internal/conflict"
	"github.com/ledgerling/ledgerling/internal/engine"
	"github.com/ledgerling/ledgerling/internal/learner"
	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/service"
	"github.com/ledgerling/ledgerling/internal/storage"
	"github.com/ledgerling/ledgerling/internal/variation"
)

func loadConfig() (*config.Config, error) {
	return config.FromViper(viper.GetViper())
}

func requireTenant() (string, error) {
	tenant := viper.GetString("tenant")
	if tenant == "" {
		return "", fmt.Errorf("%w: tenant id (use --tenant or LEDGERLING_TENANT)", common.ErrMissingConfig)
	}
	return tenant, nil
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	db, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func closeStorage(db *storage.SQLiteStorage) {
	if err := db.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}

// app bundles the wired components behind the CLI commands.
type app struct {
	db         *storage.SQLiteStorage
	aliases    *alias.Resolver
	variations *variation.Detector
	learner    *learner.Learner
	engine     *engine.Orchestrator
	cfg        *config.Config
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	patterns := db.Patterns()
	transactions := db.Transactions()
	categorizations := db.Categorizations()

	detector := variation.NewDetector(patterns, cfg.SimilarityFloor)
	resolver := alias.NewResolver(patterns)
	conflicts := conflict.NewDetector(patterns)

	l := learner.New(transactions, patterns, resolver, detector, conflicts,
		cfg.Rounding, cfg.RecurringTolerance)

	var categorizer service.AICategorizer
	if cfg.OpenAIKey != "" {
		client, aiErr := ai.NewClient(cfg.OpenAIKey, cfg.OpenAIModel)
		if aiErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create AI client: %w", aiErr)
		}
		categorizer = &retryingCategorizer{
			inner: client,
			opts: service.RetryOptions{
				MaxAttempts:  3,
				InitialDelay: 500 * time.Millisecond,
				MaxDelay:     15 * time.Second,
				Multiplier:   2.0,
			},
		}
	} else {
		slog.Warn("No OpenAI API key configured, using keyword fallback rules")
	}

	orch := engine.New(transactions, categorizations, patterns, resolver, l,
		categorizer, db.Audit(), db.Metrics(),
		engine.Config{
			Rounding:            cfg.Rounding,
			AutoApplyThreshold:  cfg.AutoApplyThreshold,
			SplitToleranceCents: cfg.SplitToleranceCents,
		})

	return &app{
		db:         db,
		aliases:    resolver,
		variations: detector,
		learner:    l,
		engine:     orch,
		cfg:        cfg,
	}, nil
}

func (a *app) close() {
	closeStorage(a.db)
}

// retryingCategorizer wraps the AI client with backoff. The core never
// retries; the policy lives at the CLI boundary.
type retryingCategorizer struct {
	inner service.AICategorizer
	opts  service.RetryOptions
}

func (r *retryingCategorizer) Categorize(ctx context.Context, txn model.Transaction, tenantID string) (*service.AISuggestion, error) {
	var suggestion *service.AISuggestion
	err := common.WithRetry(ctx, func() error {
		var innerErr error
		suggestion, innerErr = r.inner.Categorize(ctx, txn, tenantID)
		return innerErr
	}, r.opts)
	if err != nil {
		return nil, err
	}
	return suggestion, nil
}
