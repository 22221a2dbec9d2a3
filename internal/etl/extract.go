package etl

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/BartekS5/reviewflow/internal/lake"
	"github.com/BartekS5/reviewflow/internal/metrics"
	"github.com/BartekS5/reviewflow/pkg/models"
)

// PgQuerier is the subset of *pgxpool.Pool used for extraction and profiling.
type PgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresExtractor reads source tables as text. Queries run in the simple
// protocol so every value arrives in its Postgres text form.
type PostgresExtractor struct {
	DB PgQuerier
}

func (e *PostgresExtractor) ExtractTable(ctx context.Context, name, query string) (*models.Table, error) {
	rows, err := e.DB.Query(ctx, query, pgx.QueryExecModeSimpleProtocol)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	t := &models.Table{Name: name, Columns: make([]string, len(fields))}
	for i, f := range fields {
		t.Columns[i] = f.Name
	}
	for rows.Next() {
		raw := rows.RawValues()
		row := make(models.Row, len(fields))
		for i, c := range t.Columns {
			if i < len(raw) && raw[i] != nil {
				row[c] = string(raw[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return t, nil
}

// Anonymizer replaces buyer identifiers with a salted SHA-256 digest.
type Anonymizer struct {
	Salt string
}

func (a Anonymizer) Hash(s string) string {
	sum := sha256.Sum256([]byte(a.Salt + s))
	return hex.EncodeToString(sum[:])
}

// Apply hashes every non-null buyer_id cell in place. Null cells stay null.
func (a Anonymizer) Apply(t *models.Table) {
	if !t.HasColumn("buyer_id") {
		return
	}
	for _, row := range t.Rows {
		if v, ok := row.Get("buyer_id"); ok {
			row["buyer_id"] = a.Hash(v)
		}
	}
}

// TableResult is the outcome of extracting or loading one table.
type TableResult struct {
	URI  string
	Rows int
	Err  error
}

type Extractor struct {
	Source     TableSource
	Store      lake.ObjectStore
	Anonymizer Anonymizer
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
	// Parallelism bounds concurrent table extractions; zero means 4.
	Parallelism int
}

// ExtractAll lands every manifest table in the raw zone. A failed table is
// logged and reported in its result without stopping the others.
func (e *Extractor) ExtractAll(ctx context.Context, manifest models.TableManifest) map[string]TableResult {
	limit := e.Parallelism
	if limit <= 0 {
		limit = 4
	}
	done := e.Metrics.Stage("extract")
	defer done()

	var (
		mu      sync.Mutex
		results = make(map[string]TableResult, len(manifest.Tables))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, st := range manifest.Tables {
		st := st
		g.Go(func() error {
			res := e.extractOne(gctx, manifest.Prefix, st)
			e.Metrics.ObserveTable("extract", res.Err)
			mu.Lock()
			results[st.Name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := FailedTables(results)
	e.Logger.Info().
		Int("tables", len(results)).
		Strs("failed", failed).
		Msg("extraction finished")
	return results
}

func (e *Extractor) extractOne(ctx context.Context, prefix string, st models.SourceTable) TableResult {
	start := time.Now()
	log := e.Logger.With().Str("table", st.Name).Logger()

	t, err := e.Source.ExtractTable(ctx, st.Name, st.SelectQuery())
	if err != nil {
		log.Error().Err(err).Msg("extraction failed")
		return TableResult{Err: err}
	}
	e.Anonymizer.Apply(t)

	body, err := EncodeCSV(t)
	if err != nil {
		log.Error().Err(err).Msg("csv encoding failed")
		return TableResult{Err: err}
	}
	uri, err := e.Store.Put(ctx, lake.RawKey(prefix, st.Name), body, "text/csv")
	if err != nil {
		log.Error().Err(err).Msg("upload failed")
		return TableResult{Err: err}
	}
	log.Info().Int("rows", t.Len()).Str("uri", uri).Dur("took", time.Since(start)).Msg("table extracted")
	return TableResult{URI: uri, Rows: t.Len()}
}

// FailedTables returns the sorted names of tables whose result carries an error.
func FailedTables(results map[string]TableResult) []string {
	failed := []string{}
	for name, r := range results {
		if r.Err != nil {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	return failed
}

// URIs keeps the successful locations, keyed by table.
func URIs(results map[string]TableResult) map[string]string {
	out := make(map[string]string, len(results))
	for name, r := range results {
		if r.Err == nil && r.URI != "" {
			out[name] = r.URI
		}
	}
	return out
}
