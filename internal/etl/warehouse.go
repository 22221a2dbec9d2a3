package etl

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/BartekS5/reviewflow/pkg/models"
)

// warehouseColumns is the insert column order. SQL Server caps a statement at
// 2100 parameters, which bounds warehouseBatch.
var warehouseColumns = []string{
	"review_id", "buyer_id", "p_id", "product_name", "category", "title",
	"description", "rating", "text_length", "has_image", "has_orders",
	"review_img", "ingestion_timestamp", "pipeline_version",
}

const warehouseBatch = 150

// WarehouseSink loads accepted reviews into SQL Server.
type WarehouseSink struct {
	DB      *sql.DB
	Table   string
	Version string
	Now     func() time.Time
}

func NewWarehouseSink(db *sql.DB, version string) *WarehouseSink {
	return &WarehouseSink{DB: db, Table: "reviews", Version: version, Now: time.Now}
}

func (w *WarehouseSink) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`IF OBJECT_ID(N'dbo.%[1]s', N'U') IS NULL
CREATE TABLE dbo.%[1]s (
    review_id           NVARCHAR(50)  NOT NULL PRIMARY KEY,
    buyer_id            NVARCHAR(100) NULL,
    p_id                NVARCHAR(50)  NULL,
    product_name        NVARCHAR(500) NULL,
    category            NVARCHAR(100) NULL,
    title               NVARCHAR(500) NULL,
    description         NVARCHAR(MAX) NULL,
    rating              SMALLINT      NOT NULL,
    text_length         INT           NULL,
    has_image           BIT           NOT NULL DEFAULT 0,
    has_orders          BIT           NOT NULL DEFAULT 0,
    review_img          NVARCHAR(500) NULL,
    ingestion_timestamp DATETIME2     NOT NULL DEFAULT SYSUTCDATETIME(),
    pipeline_version    NVARCHAR(20)  NULL
)`, w.Table)
	if _, err := w.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", w.Table, err)
	}
	return nil
}

// ReplaceAll truncates the table and inserts recs in one transaction, so a
// failed load leaves the previous contents in place.
func (w *WarehouseSink) ReplaceAll(ctx context.Context, recs []models.AcceptedRecord) (int, error) {
	tx, err := w.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "TRUNCATE TABLE "+w.Table); err != nil {
		return 0, fmt.Errorf("truncate %s: %w", w.Table, err)
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	stamp := now().UTC()

	inserted := 0
	for start := 0; start < len(recs); start += warehouseBatch {
		end := min(start+warehouseBatch, len(recs))
		query, args := buildInsert(w.Table, recs[start:end], stamp, w.Version)
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("insert rows %d-%d: %w", start, end, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		} else {
			inserted += end - start
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// buildInsert renders one multi-row INSERT with @pN placeholders.
func buildInsert(table string, recs []models.AcceptedRecord, stamp time.Time, version string) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(warehouseColumns, ", "))

	args := make([]any, 0, len(recs)*len(warehouseColumns))
	for i, r := range recs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range warehouseColumns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "@p%d", len(args)+j+1)
		}
		b.WriteByte(')')
		args = append(args,
			r.ReviewID, nullString(r.BuyerID), nullString(r.ProductID), nullString(r.ProductName),
			r.Category, r.Title, r.Description, r.Rating, r.TextLength,
			r.HasImage, r.HasOrders, nullString(r.ReviewImage), stamp, version,
		)
	}
	return b.String(), args
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
