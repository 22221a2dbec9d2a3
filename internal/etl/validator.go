package etl

import (
	"fmt"
	"strings"
	"time"

	"github.com/BartekS5/reviewflow/pkg/models"
)

// RuleSet selects which quality checks are active. The full set runs both
// the description and the buyer checks; the narrower sets keep the checks
// shared by every deployment (duplicates, required fields, rating range).
type RuleSet string

const (
	RulesFull        RuleSet = "full"
	RulesDescription RuleSet = "description"
	RulesBuyer       RuleSet = "buyer"
)

func ParseRuleSet(s string) (RuleSet, error) {
	switch RuleSet(strings.ToLower(strings.TrimSpace(s))) {
	case "", RulesFull:
		return RulesFull, nil
	case RulesDescription:
		return RulesDescription, nil
	case RulesBuyer:
		return RulesBuyer, nil
	}
	return "", fmt.Errorf("unknown rule set %q (want full, description or buyer)", s)
}

const (
	minRating = 1
	maxRating = 5

	defaultCategory = "Unknown"
)

// StageCount records how many records one check removed.
type StageCount struct {
	Reason    models.RejectionReason `json:"reason"`
	Rejected  int                    `json:"rejected"`
	Remaining int                    `json:"remaining"`
}

// Result is the partition of one batch. Accepted keeps input order; Rejected
// is grouped by check, in the order the checks ran.
type Result struct {
	Accepted []models.AcceptedRecord
	Rejected []models.RejectedRecord
	Stages   []StageCount
}

// ByReason counts rejections per reason.
func (r Result) ByReason() map[models.RejectionReason]int {
	out := make(map[models.RejectionReason]int)
	for _, rej := range r.Rejected {
		out[rej.RejectionReason]++
	}
	return out
}

type ValidatorOption func(*Validator)

func WithRules(rs RuleSet) ValidatorOption {
	return func(v *Validator) { v.rules = rs }
}

// WithClock fixes the source of rejected_at. A single reading is taken per
// batch, so a fixed clock makes Validate fully deterministic.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) { v.now = now }
}

// Validator partitions candidate records into accepted and rejected sets.
// It holds no state between calls.
type Validator struct {
	rules RuleSet
	now   func() time.Time
}

func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{rules: RulesFull, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Validator) Rules() RuleSet { return v.rules }

type check struct {
	reason models.RejectionReason
	fn     func(c *models.CandidateRecord) (string, bool)
}

func (v *Validator) checks() []check {
	cs := []check{
		{models.ReasonMissingRequiredFields, checkRequired},
		{models.ReasonInvalidRating, checkRating},
	}
	if v.rules == RulesFull || v.rules == RulesDescription {
		cs = append(cs, check{models.ReasonEmptyDescription, checkDescription})
	}
	if v.rules == RulesFull || v.rules == RulesBuyer {
		cs = append(cs, check{models.ReasonMissingBuyerID, checkBuyer})
	}
	return cs
}

// Validate runs the checks in order. A record is rejected by the first check
// it fails and never seen by later ones; survivors are normalized.
func (v *Validator) Validate(candidates []models.CandidateRecord) Result {
	rejectedAt := v.now().UTC().Format(time.RFC3339Nano)
	res := Result{
		Accepted: []models.AcceptedRecord{},
		Rejected: []models.RejectedRecord{},
	}

	remaining := make([]*models.CandidateRecord, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	dupes := 0
	for i := range candidates {
		c := &candidates[i]
		// Null ids are left to the required-field check.
		if c.ReviewID != nil {
			if _, ok := seen[*c.ReviewID]; ok {
				res.Rejected = append(res.Rejected, reject(c, models.ReasonDuplicateReviewID, "Duplicate review_id found", rejectedAt))
				dupes++
				continue
			}
			seen[*c.ReviewID] = struct{}{}
		}
		remaining = append(remaining, c)
	}
	res.Stages = append(res.Stages, StageCount{Reason: models.ReasonDuplicateReviewID, Rejected: dupes, Remaining: len(remaining)})

	for _, ck := range v.checks() {
		kept := remaining[:0]
		n := 0
		for _, c := range remaining {
			if detail, bad := ck.fn(c); bad {
				res.Rejected = append(res.Rejected, reject(c, ck.reason, detail, rejectedAt))
				n++
				continue
			}
			kept = append(kept, c)
		}
		remaining = kept
		res.Stages = append(res.Stages, StageCount{Reason: ck.reason, Rejected: n, Remaining: len(remaining)})
	}

	for _, c := range remaining {
		res.Accepted = append(res.Accepted, normalize(c))
	}
	return res
}

func checkRequired(c *models.CandidateRecord) (string, bool) {
	var missing []string
	if c.ReviewID == nil {
		missing = append(missing, "review_id")
	}
	if c.Rating == nil {
		missing = append(missing, "rating")
	}
	if len(missing) == 0 {
		return "", false
	}
	detail := "Missing required fields: " + strings.Join(missing, ", ")
	if c.Rating == nil && c.RatingRaw != "" {
		detail += fmt.Sprintf(" (rating %q is not an integer)", c.RatingRaw)
	}
	return detail, true
}

func checkRating(c *models.CandidateRecord) (string, bool) {
	if *c.Rating < minRating || *c.Rating > maxRating {
		return fmt.Sprintf("Invalid rating: %d", *c.Rating), true
	}
	return "", false
}

func checkDescription(c *models.CandidateRecord) (string, bool) {
	if c.Description == nil || strings.TrimSpace(*c.Description) == "" {
		return "Description is empty or null", true
	}
	return "", false
}

func checkBuyer(c *models.CandidateRecord) (string, bool) {
	if c.BuyerID == nil {
		return "Buyer ID is null", true
	}
	return "", false
}

func reject(c *models.CandidateRecord, reason models.RejectionReason, detail, at string) models.RejectedRecord {
	id := models.UnknownReviewID
	if c.ReviewID != nil {
		id = *c.ReviewID
	}
	return models.RejectedRecord{
		ReviewID:        id,
		RejectionReason: reason,
		RejectedAt:      at,
		OriginalData:    c.Fields(),
		ErrorDetails:    detail,
	}
}
