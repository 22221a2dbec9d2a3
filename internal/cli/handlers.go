package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/BartekS5/reviewflow/internal/api"
	"github.com/BartekS5/reviewflow/internal/config"
	"github.com/BartekS5/reviewflow/internal/etl"
	"github.com/BartekS5/reviewflow/pkg/logger"
	"github.com/BartekS5/reviewflow/pkg/models"
)

func runExtract(c *cobra.Command, g *GlobalOptions) error {
	ctx := c.Context()
	manifest, err := config.LoadTableManifest(g.TablesFile)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, g, config.NeedPostgres, config.NeedBucket)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.extract(ctx, manifest)
	if err != nil {
		return err
	}
	printExtract(c, results)
	if len(etl.FailedTables(results)) == len(results) {
		return errors.New("every table failed to extract")
	}
	return nil
}

func (a *app) extract(ctx context.Context, manifest *models.TableManifest) (map[string]etl.TableResult, error) {
	pool, err := a.postgres(ctx)
	if err != nil {
		return nil, err
	}
	store, err := a.lake(ctx)
	if err != nil {
		return nil, err
	}
	ex := &etl.Extractor{
		Source:     &etl.PostgresExtractor{DB: pool},
		Store:      store,
		Anonymizer: etl.Anonymizer{Salt: a.cfg.AnonymizeSalt},
		Logger:     a.log,
		Metrics:    a.metrics,
	}
	return ex.ExtractAll(ctx, *manifest), nil
}

func printExtract(c *cobra.Command, results map[string]etl.TableResult) {
	names := make([]string, 0, len(results))
	for n := range results {
		names = append(names, n)
	}
	sort.Strings(names)
	out := c.OutOrStdout()
	for _, n := range names {
		r := results[n]
		if r.Err != nil {
			fmt.Fprintf(out, "%-16s FAILED  %v\n", n, r.Err)
			continue
		}
		fmt.Fprintf(out, "%-16s %6d rows  %s\n", n, r.Rows, r.URI)
	}
}

func transformRequirements(opts *TransformOptions) []config.Requirement {
	if opts.DryRun {
		return []config.Requirement{config.NeedBucket}
	}
	return []config.Requirement{config.NeedBucket, config.NeedWarehouse, config.NeedMongo}
}

func runTransform(c *cobra.Command, g *GlobalOptions, opts *TransformOptions) error {
	ctx := c.Context()
	manifest, err := config.LoadTableManifest(g.TablesFile)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, g, transformRequirements(opts)...)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.lake(ctx)
	if err != nil {
		return err
	}
	return a.transform(c, opts, etl.DefaultRawPaths(store, *manifest))
}

func runAll(c *cobra.Command, g *GlobalOptions, opts *TransformOptions) error {
	ctx := c.Context()
	manifest, err := config.LoadTableManifest(g.TablesFile)
	if err != nil {
		return err
	}
	reqs := append(transformRequirements(opts), config.NeedPostgres)
	a, err := newApp(ctx, g, reqs...)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.extract(ctx, manifest)
	if err != nil {
		return err
	}
	printExtract(c, results)

	// Failed tables keep an empty location so the run reports them.
	paths := etl.URIs(results)
	for _, name := range etl.FailedTables(results) {
		paths[name] = ""
	}
	return a.transform(c, opts, paths)
}

func (a *app) transform(c *cobra.Command, opts *TransformOptions, paths map[string]string) error {
	ctx := c.Context()
	rules, err := etl.ParseRuleSet(opts.Rules)
	if err != nil {
		return err
	}
	store, err := a.lake(ctx)
	if err != nil {
		return err
	}

	p := &etl.Pipeline{
		Store:     store,
		Validator: etl.NewValidator(etl.WithRules(rules)),
		Logger:    a.log,
		Metrics:   a.metrics,
		Version:   a.cfg.PipelineVersion,
		DryRun:    opts.DryRun,
	}
	if !opts.DryRun {
		wdb, err := a.warehouse(ctx)
		if err != nil {
			return err
		}
		mdb, err := a.mongoDB(ctx)
		if err != nil {
			return err
		}
		p.Warehouse = etl.NewWarehouseSink(wdb, a.cfg.PipelineVersion)
		p.Rejects = etl.NewMongoRejectSink(mdb)
		p.Metadata = etl.NewMongoMetadataStore(mdb)
		if opts.Archive {
			p.Archiver = &etl.ParquetArchiver{Store: store}
		}
	}

	run, err := p.Run(ctx, paths, opts.ProductID)
	if err != nil {
		return err
	}
	printRun(c, run)
	return nil
}

func printRun(c *cobra.Command, run *models.RunMetadata) {
	out := c.OutOrStdout()
	st := run.Statistics
	prefix := ""
	if st.DryRun {
		prefix = "[DRY RUN] "
	}
	fmt.Fprintf(out, "%sRun %s (version %s)\n", prefix, run.RunID, run.PipelineVersion)
	fmt.Fprintf(out, "  processed:  %d\n", st.TotalRecordsProcessed)
	fmt.Fprintf(out, "  clean:      %d\n", st.CleanRecords)
	fmt.Fprintf(out, "  rejected:   %d\n", st.RejectedRecords)
	printReasons(c, st.RejectionsByReason)
	if !st.DryRun {
		fmt.Fprintf(out, "  warehouse inserts: %d\n", st.WarehouseInserts)
		fmt.Fprintf(out, "  mongodb inserts:   %d\n", st.MongoInserts)
	}
	if st.ArchiveURI != "" {
		fmt.Fprintf(out, "  archive: %s\n", st.ArchiveURI)
	}
	if len(st.FailedTables) > 0 {
		fmt.Fprintf(out, "  failed tables: %v\n", st.FailedTables)
	}
}

func printReasons(c *cobra.Command, byReason map[models.RejectionReason]int) {
	for _, r := range models.RejectionReasons {
		if n := byReason[r]; n > 0 {
			fmt.Fprintf(c.OutOrStdout(), "    %-26s %d\n", r, n)
		}
	}
}

func runSetup(c *cobra.Command, g *GlobalOptions, skipWarehouse bool) error {
	ctx := c.Context()
	reqs := []config.Requirement{config.NeedMongo}
	if !skipWarehouse {
		reqs = append(reqs, config.NeedWarehouse)
	}
	a, err := newApp(ctx, g, reqs...)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.mongoClient(ctx)
	if err != nil {
		return err
	}
	if err := etl.NewMongoMetadataStore(client.Database(a.cfg.MongoDatabase)).EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := etl.EnsureLogIndexes(ctx, client.Database(a.cfg.MongoLogDatabase)); err != nil {
		return err
	}
	a.log.Info().Str("database", a.cfg.MongoDatabase).Msg("mongodb indexes ready")

	if skipWarehouse {
		return nil
	}
	db, err := a.warehouse(ctx)
	if err != nil {
		return err
	}
	if err := etl.NewWarehouseSink(db, a.cfg.PipelineVersion).EnsureSchema(ctx); err != nil {
		return err
	}
	a.log.Info().Msg("warehouse table ready")
	return nil
}

func runStats(c *cobra.Command, g *GlobalOptions, asJSON bool) error {
	ctx := c.Context()
	a, err := newApp(ctx, g, config.NeedPostgres)
	if err != nil {
		return err
	}
	defer a.Close()

	pool, err := a.postgres(ctx)
	if err != nil {
		return err
	}
	rep, err := (&etl.QualityProfiler{DB: pool}).Profile(ctx)
	if err != nil {
		return err
	}

	out := c.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	fmt.Fprintf(out, "Total reviews:        %d\n", rep.TotalReviews)
	fmt.Fprintf(out, "Duplicate review ids: %d\n", rep.DuplicateIDs)
	fmt.Fprintf(out, "Null ratings:         %d\n", rep.NullRatings)
	fmt.Fprintf(out, "Invalid ratings:      %d\n", rep.InvalidRatings)
	fmt.Fprintf(out, "Null buyer ids:       %d\n", rep.NullBuyers)
	fmt.Fprintf(out, "Empty descriptions:   %d\n", rep.EmptyDescriptions)
	fmt.Fprintf(out, "Problematic:          %d (%.2f%%)\n", rep.TotalProblematic, rep.RejectionRate())
	fmt.Fprintf(out, "Expected clean:       %d\n", rep.CleanReviews())
	for _, rc := range rep.RatingDistribution {
		fmt.Fprintf(out, "  rating %d: %d\n", rc.Rating, rc.Count)
	}
	return nil
}

func runServe(c *cobra.Command, g *GlobalOptions) error {
	ctx := c.Context()
	a, err := newApp(ctx, g, config.NeedMongo)
	if err != nil {
		return err
	}
	defer a.Close()

	db, err := a.mongoDB(ctx)
	if err != nil {
		return err
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPass,
		DB:       a.cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		a.log.Warn().Err(err).Str("addr", a.cfg.RedisAddr).Msg("redis unreachable, serving without cache")
	}

	srv := api.New(a.log, a.metrics, api.Options{RPS: float64(a.cfg.APIRateLimit)})
	srv.MountHandlers(&api.Handlers{
		Store: etl.NewMongoMetadataStore(db),
		Cache: api.NewRedisCache(rdb, a.metrics),
		TTL:   a.cfg.CacheTTL,
		Log:   a.log,
	})
	srv.Mount("/metrics", a.metrics.Handler())

	hs := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", hs.Addr).Msg("report api listening")
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.log.Info().Msg("shutting down report api")
	return hs.Shutdown(shutdownCtx)
}

func runValidate(c *cobra.Command, opts *ValidateOptions) error {
	rules, err := etl.ParseRuleSet(opts.Rules)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(opts.File)
	if err != nil {
		return fmt.Errorf("failed to read '%s': %w", opts.File, err)
	}
	tbl, err := etl.DecodeCSV("joined", data)
	if err != nil {
		return err
	}
	candidates, err := etl.CandidatesFromTable(tbl)
	if err != nil {
		return err
	}

	res := etl.NewValidator(etl.WithRules(rules)).Validate(candidates)
	log := logger.Nop()
	if opts.Verbose {
		log = zerolog.New(zerolog.ConsoleWriter{Out: c.ErrOrStderr()}).With().Timestamp().Logger()
	}
	for _, st := range res.Stages {
		log.Debug().Str("check", string(st.Reason)).Int("rejected", st.Rejected).Int("remaining", st.Remaining).Msg("check applied")
	}

	out := c.OutOrStdout()
	fmt.Fprintf(out, "Validated %d records with %s rules\n", len(candidates), rules)
	fmt.Fprintf(out, "  clean:    %d\n", len(res.Accepted))
	fmt.Fprintf(out, "  rejected: %d\n", len(res.Rejected))
	printReasons(c, res.ByReason())

	if opts.Rejected == "" {
		return nil
	}
	f, err := os.Create(opts.Rejected)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	for _, r := range res.Rejected {
		if err := enc.Encode(r); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}
