package models

import "encoding/json"

// TableManifest represents the root of the JSON table manifest file.
type TableManifest struct {
	Prefix string        `json:"prefix"`
	Tables []SourceTable `json:"tables"`
}

// SourceTable names a relational table to land in the raw zone.
// Query overrides the default "SELECT * FROM <name>".
type SourceTable struct {
	Name  string `json:"name"`
	Query string `json:"query,omitempty"`
}

// DefaultManifest lists the tables the review pipeline extracts.
func DefaultManifest() *TableManifest {
	names := []string{
		"product", "category", "buyer", "review",
		"product_reviews", "review_images", "orders", "carrier",
	}
	m := &TableManifest{Prefix: "raw/"}
	for _, n := range names {
		m.Tables = append(m.Tables, SourceTable{Name: n})
	}
	return m
}

func LoadManifest(data []byte) (*TableManifest, error) {
	var m TableManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Prefix == "" {
		m.Prefix = "raw/"
	}
	return &m, nil
}

// SelectQuery returns the extraction query for the table.
func (s SourceTable) SelectQuery() string {
	if s.Query != "" {
		return s.Query
	}
	return `SELECT * FROM "` + s.Name + `"`
}
