package etl

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/BartekS5/reviewflow/internal/lake"
	"github.com/BartekS5/reviewflow/internal/metrics"
	"github.com/BartekS5/reviewflow/pkg/models"
)

// Pipeline runs one transform pass: load landed tables, join, validate, and
// deliver both partitions.
type Pipeline struct {
	Store     lake.ObjectStore
	Warehouse CleanSink
	Rejects   RejectSink
	Metadata  MetadataSink
	// Archiver is optional; nil skips the parquet copy.
	Archiver  Archiver
	Validator *Validator
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
	Version   string
	DryRun    bool

	Now      func() time.Time
	NewRunID func() string
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) runID() string {
	if p.NewRunID != nil {
		return p.NewRunID()
	}
	return uuid.NewString()
}

// Run executes the pass over the given table locations. Table load failures
// are reported in the statistics and do not stop the run unless a table the
// join needs is among them. Sink failures are fatal.
func (p *Pipeline) Run(ctx context.Context, paths map[string]string, productFilter string) (*models.RunMetadata, error) {
	start := p.now()
	run := &models.RunMetadata{
		RunID:              p.runID(),
		PipelineVersion:    p.Version,
		ExecutionTimestamp: start.UTC(),
	}
	stats := &run.Statistics
	stats.DryRun = p.DryRun
	stats.FailedTables = []string{}
	log := p.Logger.With().Str("run_id", run.RunID).Logger()
	log.Info().Int("tables", len(paths)).Str("product_id", productFilter).Bool("dry_run", p.DryRun).Msg("starting pipeline")

	done := p.Metrics.Stage("load")
	tables, failed := LoadTables(ctx, p.Store, paths)
	done()
	for name, err := range failed {
		log.Error().Err(err).Str("table", name).Msg("table load failed")
		p.Metrics.ObserveTable("load", err)
		stats.FailedTables = append(stats.FailedTables, name)
	}
	for range tables {
		p.Metrics.ObserveTable("load", nil)
	}
	sort.Strings(stats.FailedTables)
	if len(tables) == 0 {
		return run, errors.New("no tables could be loaded")
	}

	done = p.Metrics.Stage("join")
	candidates, err := Join(tables, productFilter)
	done()
	if err != nil {
		return run, err
	}
	log.Info().Int("rows", len(candidates)).Msg("tables joined")

	done = p.Metrics.Stage("validate")
	res := p.Validator.Validate(candidates)
	done()
	p.Metrics.ObserveValidation(len(res.Accepted), res.Rejected)

	stats.TotalRecordsProcessed = len(candidates)
	stats.CleanRecords = len(res.Accepted)
	stats.RejectedRecords = len(res.Rejected)
	stats.RejectionsByReason = res.ByReason()
	for _, st := range res.Stages {
		log.Info().Str("check", string(st.Reason)).Int("rejected", st.Rejected).Int("remaining", st.Remaining).Msg("check applied")
	}

	if p.DryRun {
		log.Info().
			Int("clean", stats.CleanRecords).
			Int("rejected", stats.RejectedRecords).
			Msg("[DRY RUN] skipping warehouse, document store and archive")
		return run, nil
	}

	if err := p.deliver(ctx, run, res); err != nil {
		return run, err
	}

	if stats.WarehouseInserts == 0 {
		log.Warn().Msg("no records were loaded into the warehouse")
	}

	if p.Metadata != nil {
		if err := p.Metadata.SaveRun(ctx, *run); err != nil {
			return run, err
		}
	}

	elapsed := time.Since(start)
	rate := 0.0
	if elapsed.Seconds() > 0 {
		rate = float64(stats.TotalRecordsProcessed) / elapsed.Seconds()
	}
	log.Info().
		Int("processed", stats.TotalRecordsProcessed).
		Int("warehouse_inserts", stats.WarehouseInserts).
		Int("mongodb_inserts", stats.MongoInserts).
		Float64("records_per_sec", rate).
		Msg("pipeline finished")
	return run, nil
}

// deliver writes both partitions concurrently, then archives the clean set.
func (p *Pipeline) deliver(ctx context.Context, run *models.RunMetadata, res Result) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer p.Metrics.Stage("warehouse")()
		n, err := p.Warehouse.ReplaceAll(gctx, res.Accepted)
		if err != nil {
			return fmt.Errorf("warehouse load: %w", err)
		}
		run.Statistics.WarehouseInserts = n
		return nil
	})
	g.Go(func() error {
		defer p.Metrics.Stage("rejects")()
		n, err := p.Rejects.Append(gctx, res.Rejected)
		if err != nil {
			return fmt.Errorf("rejected load: %w", err)
		}
		run.Statistics.MongoInserts = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if p.Archiver == nil {
		return nil
	}
	defer p.Metrics.Stage("archive")()
	uri, err := p.Archiver.Archive(ctx, run.RunID, res.Accepted)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	run.Statistics.ArchiveURI = uri
	return nil
}
