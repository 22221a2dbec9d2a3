package models

// CandidateRecord is one joined review observation prior to validation.
// Nil pointers are null cells.
type CandidateRecord struct {
	ReviewID    *string
	BuyerID     *string
	ProductID   *string
	ProductName *string
	Category    *string
	Title       *string
	Description *string
	Rating      *int
	// RatingRaw keeps a rating cell that could not be read as an integer.
	RatingRaw  string
	TextLength *int
	// TextLengthRaw keeps a text_length cell that was not an integer.
	TextLengthRaw string
	HasImage      *bool
	HasOrders     *bool
	ReviewImage   *string
}

// Fields returns the full original field set, nulls included, for audit.
func (c CandidateRecord) Fields() map[string]any {
	rating := any(nil)
	switch {
	case c.Rating != nil:
		rating = *c.Rating
	case c.RatingRaw != "":
		rating = c.RatingRaw
	}
	textLength := derefInt(c.TextLength)
	if c.TextLength == nil && c.TextLengthRaw != "" {
		textLength = c.TextLengthRaw
	}
	return map[string]any{
		"review_id":    derefString(c.ReviewID),
		"buyer_id":     derefString(c.BuyerID),
		"p_id":         derefString(c.ProductID),
		"product_name": derefString(c.ProductName),
		"category":     derefString(c.Category),
		"title":        derefString(c.Title),
		"description":  derefString(c.Description),
		"rating":       rating,
		"text_length":  textLength,
		"has_image":    derefBool(c.HasImage),
		"has_orders":   derefBool(c.HasOrders),
		"review_img":   derefString(c.ReviewImage),
	}
}

// AcceptedRecord is a candidate that passed every active check, with
// defaults applied. Required columns are plain values.
type AcceptedRecord struct {
	ReviewID    string  `json:"review_id" bson:"review_id"`
	BuyerID     *string `json:"buyer_id" bson:"buyer_id"`
	ProductID   *string `json:"p_id" bson:"p_id"`
	ProductName *string `json:"product_name" bson:"product_name"`
	Category    string  `json:"category" bson:"category"`
	Title       string  `json:"title" bson:"title"`
	Description string  `json:"description" bson:"description"`
	Rating      int     `json:"rating" bson:"rating"`
	TextLength  int     `json:"text_length" bson:"text_length"`
	HasImage    bool    `json:"has_image" bson:"has_image"`
	HasOrders   bool    `json:"has_orders" bson:"has_orders"`
	ReviewImage *string `json:"review_img" bson:"review_img"`
}

func derefString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func derefInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func derefBool(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}
