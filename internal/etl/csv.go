package etl

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/BartekS5/reviewflow/pkg/models"
)

// EncodeCSV writes a header row followed by every row; null cells are empty.
func EncodeCSV(t *models.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, err
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, c := range t.Columns {
			rec[i] = row[c]
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCSV parses a landed table. Every record must have as many fields
// as the header.
func DecodeCSV(name string, data []byte) (*models.Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = 0

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("table %s: parse csv: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("table %s: empty file, no header", name)
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	t := &models.Table{Name: name, Columns: header, Rows: make([]models.Row, 0, len(records)-1)}
	for _, rec := range records[1:] {
		row := make(models.Row, len(header))
		for i, c := range header {
			row[c] = rec[i]
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
