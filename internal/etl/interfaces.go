package etl

import (
	"context"

	"github.com/BartekS5/reviewflow/pkg/models"
)

// TableSource reads one relational table into memory.
type TableSource interface {
	ExtractTable(ctx context.Context, name, query string) (*models.Table, error)
}

// CleanSink replaces the warehouse contents with the accepted set.
type CleanSink interface {
	ReplaceAll(ctx context.Context, recs []models.AcceptedRecord) (int, error)
}

// RejectSink appends rejected records to the document store.
type RejectSink interface {
	Append(ctx context.Context, recs []models.RejectedRecord) (int, error)
}

type MetadataSink interface {
	SaveRun(ctx context.Context, run models.RunMetadata) error
}

// Archiver keeps a columnar copy of the accepted set and returns its URI.
type Archiver interface {
	Archive(ctx context.Context, runID string, recs []models.AcceptedRecord) (string, error)
}
