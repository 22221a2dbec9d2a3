package etl

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/BartekS5/reviewflow/internal/lake"
	"github.com/BartekS5/reviewflow/pkg/models"
)

// LoadTables fetches and decodes every landed table concurrently. Tables that
// fail are absent from the first map and carry their error in the second.
func LoadTables(ctx context.Context, store lake.ObjectStore, paths map[string]string) (map[string]*models.Table, map[string]error) {
	var (
		mu     sync.Mutex
		tables = make(map[string]*models.Table, len(paths))
		failed = make(map[string]error)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for name, uri := range paths {
		name, uri := name, uri
		g.Go(func() error {
			t, err := loadTable(gctx, store, name, uri)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[name] = err
				return nil
			}
			tables[name] = t
			return nil
		})
	}
	_ = g.Wait()
	return tables, failed
}

func loadTable(ctx context.Context, store lake.ObjectStore, name, uri string) (*models.Table, error) {
	if uri == "" {
		return nil, fmt.Errorf("table %s: no location", name)
	}
	body, err := store.Get(ctx, uri)
	if err != nil {
		return nil, err
	}
	return DecodeCSV(name, body)
}

// DefaultRawPaths derives raw-zone locations for the manifest tables when no
// extraction result is at hand.
func DefaultRawPaths(store lake.ObjectStore, manifest models.TableManifest) map[string]string {
	out := make(map[string]string, len(manifest.Tables))
	for _, st := range manifest.Tables {
		out[st.Name] = store.URI(lake.RawKey(manifest.Prefix, st.Name))
	}
	return out
}
