package models

// RejectionReason classifies why a record was excluded from the clean set.
type RejectionReason string

const (
	ReasonDuplicateReviewID     RejectionReason = "duplicate_review_id"
	ReasonMissingRequiredFields RejectionReason = "missing_required_fields"
	ReasonInvalidRating         RejectionReason = "invalid_rating"
	ReasonEmptyDescription      RejectionReason = "empty_description"
	ReasonMissingBuyerID        RejectionReason = "missing_buyer_id"
	ReasonDataQualityIssue      RejectionReason = "data_quality_issue"
	ReasonJoinFailure           RejectionReason = "join_failure"
	ReasonOther                 RejectionReason = "other"
)

// RejectionReasons lists every reason in declaration order.
var RejectionReasons = []RejectionReason{
	ReasonDuplicateReviewID,
	ReasonMissingRequiredFields,
	ReasonInvalidRating,
	ReasonEmptyDescription,
	ReasonMissingBuyerID,
	ReasonDataQualityIssue,
	ReasonJoinFailure,
	ReasonOther,
}

func (r RejectionReason) Valid() bool {
	for _, v := range RejectionReasons {
		if r == v {
			return true
		}
	}
	return false
}

// UnknownReviewID stands in for a rejected record whose review_id is null.
const UnknownReviewID = "UNKNOWN"

// RejectedRecord is the fixed five-column shape stored in the document store.
type RejectedRecord struct {
	ReviewID        string          `json:"review_id" bson:"review_id"`
	RejectionReason RejectionReason `json:"rejection_reason" bson:"rejection_reason"`
	RejectedAt      string          `json:"rejected_at" bson:"rejected_at"`
	OriginalData    map[string]any  `json:"original_data" bson:"original_data"`
	ErrorDetails    string          `json:"error_details" bson:"error_details"`
}
