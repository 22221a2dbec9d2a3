package etl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/BartekS5/reviewflow/internal/lake"
	"github.com/BartekS5/reviewflow/pkg/models"
)

// ParquetReview is the columnar layout of an accepted review.
type ParquetReview struct {
	ReviewID    string  `parquet:"name=review_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	BuyerID     *string `parquet:"name=buyer_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	ProductID   *string `parquet:"name=p_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	ProductName *string `parquet:"name=product_name, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Category    string  `parquet:"name=category, type=BYTE_ARRAY, convertedtype=UTF8"`
	Title       string  `parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8"`
	Description string  `parquet:"name=description, type=BYTE_ARRAY, convertedtype=UTF8"`
	Rating      int32   `parquet:"name=rating, type=INT32"`
	TextLength  int32   `parquet:"name=text_length, type=INT32"`
	HasImage    bool    `parquet:"name=has_image, type=BOOLEAN"`
	HasOrders   bool    `parquet:"name=has_orders, type=BOOLEAN"`
	ReviewImage *string `parquet:"name=review_img, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

func toParquet(r models.AcceptedRecord) ParquetReview {
	return ParquetReview{
		ReviewID:    r.ReviewID,
		BuyerID:     r.BuyerID,
		ProductID:   r.ProductID,
		ProductName: r.ProductName,
		Category:    r.Category,
		Title:       r.Title,
		Description: r.Description,
		Rating:      int32(r.Rating),
		TextLength:  int32(r.TextLength),
		HasImage:    r.HasImage,
		HasOrders:   r.HasOrders,
		ReviewImage: r.ReviewImage,
	}
}

// ParquetArchiver writes the accepted set as snappy parquet and uploads it to
// processed/<run_id>/reviews.parquet.
type ParquetArchiver struct {
	Store  lake.ObjectStore
	TmpDir string
}

func ArchiveKey(runID string) string {
	return fmt.Sprintf("processed/%s/reviews.parquet", runID)
}

func (a *ParquetArchiver) Archive(ctx context.Context, runID string, recs []models.AcceptedRecord) (string, error) {
	dir := a.TmpDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("reviews_%s.parquet", runID))
	defer os.Remove(path)

	if err := writeParquet(path, recs); err != nil {
		return "", err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read parquet file: %w", err)
	}
	uri, err := a.Store.Put(ctx, ArchiveKey(runID), body, "application/vnd.apache.parquet")
	if err != nil {
		return "", fmt.Errorf("upload archive: %w", err)
	}
	return uri, nil
}

func writeParquet(path string, recs []models.AcceptedRecord) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(ParquetReview), 4)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, r := range recs {
		if err := pw.Write(toParquet(r)); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet: %w", err)
	}
	return nil
}
