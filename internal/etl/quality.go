package etl

import (
	"context"
	"fmt"
)

// QualityReport profiles the source review table before a run.
type QualityReport struct {
	TotalReviews       int64         `json:"total_reviews"`
	DuplicateIDs       int64         `json:"duplicates"`
	NullRatings        int64         `json:"null_ratings"`
	InvalidRatings     int64         `json:"invalid_ratings"`
	NullBuyers         int64         `json:"null_buyers"`
	EmptyDescriptions  int64         `json:"empty_descriptions"`
	TotalProblematic   int64         `json:"rejected_reviews"`
	RatingDistribution []RatingCount `json:"rating_distribution"`
}

type RatingCount struct {
	Rating int64 `json:"rating"`
	Count  int64 `json:"count"`
}

func (q QualityReport) CleanReviews() int64 {
	return q.TotalReviews - q.TotalProblematic
}

// RejectionRate is the share of problematic reviews, in percent.
func (q QualityReport) RejectionRate() float64 {
	if q.TotalReviews == 0 {
		return 0
	}
	return float64(q.TotalProblematic) / float64(q.TotalReviews) * 100
}

var qualityCounts = []struct {
	name  string
	query string
	dst   func(*QualityReport) *int64
}{
	{"total", `SELECT COUNT(*) FROM review`, func(q *QualityReport) *int64 { return &q.TotalReviews }},
	{"duplicates", `SELECT COUNT(*) FROM (
		SELECT review_id FROM review GROUP BY review_id HAVING COUNT(*) > 1
	) d`, func(q *QualityReport) *int64 { return &q.DuplicateIDs }},
	{"null ratings", `SELECT COUNT(*) FROM review WHERE rating IS NULL`, func(q *QualityReport) *int64 { return &q.NullRatings }},
	{"invalid ratings", `SELECT COUNT(*) FROM review WHERE rating < 1 OR rating > 5`, func(q *QualityReport) *int64 { return &q.InvalidRatings }},
	{"null buyers", `SELECT COUNT(*) FROM review WHERE buyer_id IS NULL`, func(q *QualityReport) *int64 { return &q.NullBuyers }},
	{"empty descriptions", `SELECT COUNT(*) FROM review WHERE r_desc IS NULL OR TRIM(r_desc) = ''`, func(q *QualityReport) *int64 { return &q.EmptyDescriptions }},
	{"problematic", `WITH dup AS (
		SELECT review_id FROM review GROUP BY review_id HAVING COUNT(*) > 1
	)
	SELECT COUNT(DISTINCT r.review_id) FROM review r
	WHERE r.review_id IN (SELECT review_id FROM dup)
	   OR r.rating IS NULL OR r.rating < 1 OR r.rating > 5
	   OR r.buyer_id IS NULL
	   OR r.r_desc IS NULL OR TRIM(r.r_desc) = ''`, func(q *QualityReport) *int64 { return &q.TotalProblematic }},
}

const ratingDistributionQuery = `SELECT rating, COUNT(*) FROM review
WHERE rating IS NOT NULL GROUP BY rating ORDER BY rating`

type QualityProfiler struct {
	DB PgQuerier
}

func (p *QualityProfiler) Profile(ctx context.Context) (*QualityReport, error) {
	var rep QualityReport
	for _, c := range qualityCounts {
		if err := p.DB.QueryRow(ctx, c.query).Scan(c.dst(&rep)); err != nil {
			return nil, fmt.Errorf("profile %s: %w", c.name, err)
		}
	}

	rows, err := p.DB.Query(ctx, ratingDistributionQuery)
	if err != nil {
		return nil, fmt.Errorf("profile rating distribution: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rc RatingCount
		if err := rows.Scan(&rc.Rating, &rc.Count); err != nil {
			return nil, fmt.Errorf("scan rating distribution: %w", err)
		}
		rep.RatingDistribution = append(rep.RatingDistribution, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rating distribution: %w", err)
	}
	return &rep, nil
}
