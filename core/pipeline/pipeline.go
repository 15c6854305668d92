// Package pipeline orchestrates the retrieval, reconciliation and ingestion
// stages: fetch subscriptions, rates and usages (or load a snapshot),
// annotate subscription names, compute costs, dedupe and bulk-load.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"azure-costs/adapters/azure"
	"azure-costs/adapters/elastic"
	"azure-costs/adapters/storage"
	"azure-costs/core/dedupe"
	"azure-costs/core/document"
	"azure-costs/core/pricing"
	"azure-costs/internal/logging"
)

// Config holds everything one pipeline run needs.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	StartDate time.Time
	EndDate   time.Time

	OfferID string

	// LowercaseFields are gjson paths whose string values are lowercased
	// before indexing
	LowercaseFields []string

	// RestDebug enables fetcher debug dumps
	RestDebug bool
}

// Pipeline runs the full retrieval-reconciliation-ingestion sequence. All
// stages execute sequentially on one goroutine.
type Pipeline struct {
	cfg     Config
	store   *storage.SnapshotStore
	indexer *elastic.Indexer
}

// New creates a pipeline.
func New(cfg Config, store *storage.SnapshotStore, indexer *elastic.Indexer) *Pipeline {
	return &Pipeline{cfg: cfg, store: store, indexer: indexer}
}

// Run executes the pipeline once.
func (p *Pipeline) Run(ctx context.Context) error {
	started := time.Now()
	logging.Info("starting run",
		zap.String("run_id", uuid.NewString()),
		zap.String("start_date", p.cfg.StartDate.Format("2006-01-02")),
		zap.String("end_date", p.cfg.EndDate.Format("2006-01-02")))

	startDate, endDate := clampDates(p.cfg.StartDate, p.cfg.EndDate, time.Now().UTC())

	snapshot, err := p.retrieve(ctx, startDate, endDate)
	if err != nil {
		return err
	}

	names := SubscriptionNames(snapshot.Subscriptions)

	logging.Info("got rates", zap.Int("count", len(snapshot.Rates)))
	logging.Info("got usages", zap.Int("count", len(snapshot.Usages)))

	usages := AnnotateSubscriptionNames(snapshot.Usages, names)

	index, err := pricing.NewRateIndex(snapshot.Rates)
	if err != nil {
		return err
	}
	costs, err := pricing.ApplyCosts(index, usages)
	if err != nil {
		return err
	}

	// The persisted usages snapshot carries the enrichments, so a cached
	// re-run reproduces the same documents.
	snapshot.Usages = costs
	if err := p.store.Save(snapshot); err != nil {
		return err
	}

	costs = document.Lowercase(costs, p.cfg.LowercaseFields)

	unique, duplicates := dedupe.Dedupe(costs)
	logging.Info("deduplicated", zap.Int("duplicates", duplicates), zap.Int("unique", len(unique)))

	if err := p.indexer.SaveCosts(ctx, unique); err != nil {
		return err
	}

	logging.Info("done", zap.Duration("elapsed", time.Since(started)))
	return nil
}

// retrieve loads a complete snapshot when one exists, otherwise fetches
// everything from the API.
func (p *Pipeline) retrieve(ctx context.Context, startDate, endDate time.Time) (*storage.Snapshot, error) {
	if p.store.Complete() {
		return p.store.Load()
	}

	tokenClient := azure.NewClient(azure.ClientConfig{
		DebugDump: p.cfg.RestDebug,
	})
	token, err := azure.AcquireToken(ctx, tokenClient, p.cfg.TenantID, p.cfg.ClientID, p.cfg.ClientSecret)
	tokenClient.Close()
	if err != nil {
		return nil, err
	}

	client := azure.NewClient(azure.ClientConfig{
		Token:     token,
		DebugDump: p.cfg.RestDebug,
	})
	defer client.Close()

	logging.Info("using domain", zap.String("domain", azure.DefaultBaseURL))

	subscriptions, err := client.Subscriptions(ctx)
	if err != nil {
		return nil, err
	}
	rates, err := client.Rates(ctx, subscriptions, p.cfg.OfferID)
	if err != nil {
		return nil, err
	}
	usages, err := client.Usages(ctx, subscriptions, startDate, endDate)
	if err != nil {
		return nil, err
	}

	return &storage.Snapshot{
		Subscriptions: subscriptions,
		Rates:         rates,
		Usages:        usages,
	}, nil
}

// clampDates keeps the window out of the future: the start date may be at
// latest yesterday, the end date at latest today.
func clampDates(startDate, endDate, now time.Time) (time.Time, time.Time) {
	today := now.Truncate(24 * time.Hour)

	if !startDate.Before(today) {
		clamped := today.AddDate(0, 0, -1)
		logging.Warn("start date cannot be today or in the future, using yesterday",
			zap.String("start_date", clamped.Format("2006-01-02")))
		startDate = clamped
	}
	if endDate.After(today) {
		logging.Warn("end date cannot be in the future, using today",
			zap.String("end_date", today.Format("2006-01-02")))
		endDate = today
	}

	return startDate, endDate
}
