package etl

import (
	"github.com/BartekS5/reviewflow/pkg/models"
	"github.com/BartekS5/reviewflow/pkg/utils"
)

// candidateColumns lists the columns a candidate table must carry. Each entry
// holds the accepted spellings; the first is canonical.
var candidateColumns = [][]string{
	{"review_id"},
	{"buyer_id"},
	{"p_id", "product_id"},
	{"product_name"},
	{"category"},
	{"title"},
	{"description", "r_desc"},
	{"rating"},
	{"text_length"},
	{"has_image"},
	{"has_orders"},
}

// CandidatesFromTable reads a joined table (for example a CSV dump of an
// earlier join) into candidate records. A column absent from the whole table
// is a *SchemaError; per-cell problems are left for the validator.
func CandidatesFromTable(t *models.Table) ([]models.CandidateRecord, error) {
	cols := make(map[string]string, len(candidateColumns))
	for _, names := range candidateColumns {
		found := ""
		for _, n := range names {
			if t.HasColumn(n) {
				found = n
				break
			}
		}
		if found == "" {
			return nil, &SchemaError{Table: t.Name, Column: names[0]}
		}
		cols[names[0]] = found
	}
	hasImg := t.HasColumn("review_img")

	out := make([]models.CandidateRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		c := models.CandidateRecord{
			ReviewID:    utils.NullableString(row[cols["review_id"]]),
			BuyerID:     utils.NullableString(row[cols["buyer_id"]]),
			ProductID:   utils.NullableString(row[cols["p_id"]]),
			ProductName: utils.NullableString(row[cols["product_name"]]),
			Category:    utils.NullableString(row[cols["category"]]),
			Title:       utils.NullableString(row[cols["title"]]),
			Description: utils.NullableString(row[cols["description"]]),
			HasImage:    utils.NullableBool(row[cols["has_image"]]),
			HasOrders:   utils.NullableBool(row[cols["has_orders"]]),
		}
		if hasImg {
			c.ReviewImage = utils.NullableString(row["review_img"])
		}
		raw := row[cols["rating"]]
		if v, ok := utils.NullableInt(raw); ok {
			c.Rating = v
		} else {
			c.RatingRaw = raw
		}
		rawLen := row[cols["text_length"]]
		if v, ok := utils.NullableInt(rawLen); ok {
			c.TextLength = v
		} else {
			c.TextLengthRaw = rawLen
		}
		out = append(out, c)
	}
	return out, nil
}

// normalize fills defaults on a candidate that passed every check. The
// required-field stage guarantees ReviewID and Rating are set.
func normalize(c *models.CandidateRecord) models.AcceptedRecord {
	rec := models.AcceptedRecord{
		ReviewID:    *c.ReviewID,
		BuyerID:     c.BuyerID,
		ProductID:   c.ProductID,
		ProductName: c.ProductName,
		Category:    defaultCategory,
		Rating:      *c.Rating,
		ReviewImage: c.ReviewImage,
	}
	if c.Title != nil {
		rec.Title = *c.Title
	}
	if c.Description != nil {
		rec.Description = *c.Description
	}
	if c.Category != nil {
		rec.Category = *c.Category
	}
	if c.TextLength != nil {
		rec.TextLength = *c.TextLength
	}
	if c.HasImage != nil {
		rec.HasImage = *c.HasImage
	}
	if c.HasOrders != nil {
		rec.HasOrders = *c.HasOrders
	}
	return rec
}
