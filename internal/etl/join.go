package etl

import (
	"fmt"
	"unicode/utf8"

	"github.com/BartekS5/reviewflow/pkg/models"
	"github.com/BartekS5/reviewflow/pkg/utils"
)

var joinSchema = map[string][]string{
	"review":          {"review_id", "buyer_id", "title", "r_desc", "rating"},
	"product_reviews": {"review_id", "p_id"},
	"product":         {"p_id", "p_name", "category_id"},
	"category":        {"category_id", "name"},
	"review_images":   {"review_id", "review_img"},
	"orders":          {"buyer_id"},
}

var requiredJoinTables = []string{"review", "product_reviews", "product"}

// Join denormalizes the raw entity tables into one candidate per
// review/product link. Reviews without a link still yield one candidate.
// A non-empty productFilter keeps only candidates linked to that product.
//
// Keys compare as text and null keys never match, like SQL equality.
func Join(tables map[string]*models.Table, productFilter string) ([]models.CandidateRecord, error) {
	for _, name := range requiredJoinTables {
		if tables[name] == nil {
			return nil, fmt.Errorf("join: %s: %w", name, ErrTableUnavailable)
		}
	}
	for name, cols := range joinSchema {
		t := tables[name]
		if t == nil {
			continue
		}
		for _, c := range cols {
			if !t.HasColumn(c) {
				return nil, &SchemaError{Table: name, Column: c}
			}
		}
	}

	images := firstImages(tables["review_images"])
	orders := orderCounts(tables["orders"])
	links := groupBy(tables["product_reviews"], "review_id")
	products := groupBy(tables["product"], "p_id")
	categories := groupBy(tables["category"], "category_id")

	out := make([]models.CandidateRecord, 0, tables["review"].Len())
	for _, r := range tables["review"].Rows {
		base := models.CandidateRecord{
			ReviewID:    utils.NullableString(r["review_id"]),
			BuyerID:     utils.NullableString(r["buyer_id"]),
			Title:       utils.NullableString(r["title"]),
			Description: utils.NullableString(r["r_desc"]),
		}
		raw := r["rating"]
		if v, ok := utils.NullableInt(raw); ok {
			base.Rating = v
		} else {
			base.RatingRaw = raw
		}
		if base.Description != nil {
			n := utf8.RuneCountInString(*base.Description)
			base.TextLength = &n
		}

		img := lookupImage(images, base.ReviewID)
		base.ReviewImage = img
		hasImage := img != nil
		base.HasImage = &hasImage

		hasOrders := false
		if base.BuyerID != nil {
			_, hasOrders = orders[*base.BuyerID]
		}
		base.HasOrders = &hasOrders

		for _, link := range matches(links, r, "review_id") {
			if productFilter != "" && link["p_id"] != productFilter {
				continue
			}
			for _, p := range matches(products, link, "p_id") {
				for _, c := range matches(categories, p, "category_id") {
					rec := base
					if p != nil {
						rec.ProductID = utils.NullableString(p["p_id"])
						rec.ProductName = utils.NullableString(p["p_name"])
					}
					if c != nil {
						rec.Category = utils.NullableString(c["name"])
					}
					out = append(out, rec)
				}
			}
		}
	}
	return out, nil
}

// imageRank is the rank-1 review_img for one review. Nulls order first, so a
// review whose image rows include a null has no first image.
type imageRank struct {
	img  string
	null bool
}

func firstImages(t *models.Table) map[string]imageRank {
	out := make(map[string]imageRank)
	if t == nil {
		return out
	}
	for _, row := range t.Rows {
		id, ok := row.Get("review_id")
		if !ok {
			continue
		}
		img, hasImg := row.Get("review_img")
		cur, seen := out[id]
		switch {
		case !hasImg:
			out[id] = imageRank{null: true}
		case !seen:
			out[id] = imageRank{img: img}
		case !cur.null && img < cur.img:
			out[id] = imageRank{img: img}
		}
	}
	return out
}

func lookupImage(images map[string]imageRank, reviewID *string) *string {
	if reviewID == nil {
		return nil
	}
	rank, ok := images[*reviewID]
	if !ok || rank.null {
		return nil
	}
	img := rank.img
	return &img
}

func orderCounts(t *models.Table) map[string]int {
	out := make(map[string]int)
	if t == nil {
		return out
	}
	for _, row := range t.Rows {
		if id, ok := row.Get("buyer_id"); ok {
			out[id]++
		}
	}
	return out
}

// groupBy indexes rows by a key column, keeping table order within a key.
func groupBy(t *models.Table, key string) map[string][]models.Row {
	out := make(map[string][]models.Row)
	if t == nil {
		return out
	}
	for _, row := range t.Rows {
		if k, ok := row.Get(key); ok {
			out[k] = append(out[k], row)
		}
	}
	return out
}

// matches is the right side of a LEFT JOIN on key: the matching rows, or a
// single nil row when nothing matches.
func matches(index map[string][]models.Row, left models.Row, key string) []models.Row {
	if left == nil {
		return []models.Row{nil}
	}
	k, ok := left.Get(key)
	if !ok {
		return []models.Row{nil}
	}
	if rows := index[k]; len(rows) > 0 {
		return rows
	}
	return []models.Row{nil}
}
