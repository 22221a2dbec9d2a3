package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/reviewflow/pkg/models"
)

var joinedColumns = []string{
	"buyer_id", "review_id", "title", "description", "rating", "review_img",
	"text_length", "has_image", "has_orders", "p_id", "product_name", "category",
}

func TestCandidatesFromTable(t *testing.T) {
	tbl := table("joined", joinedColumns,
		[]string{"b1", "r1", "Nice", "Good kettle", "4.0", "img.jpg", "11", "1", "0", "p1", "Kettle", "Kitchen"},
		[]string{"", "r2", "", "", "five", "", "", "0", "1", "", "", ""},
	)

	got, err := CandidatesFromTable(tbl)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 4, *got[0].Rating)
	assert.Equal(t, 11, *got[0].TextLength)
	assert.True(t, *got[0].HasImage)
	assert.False(t, *got[0].HasOrders)
	assert.Equal(t, "img.jpg", *got[0].ReviewImage)

	assert.Nil(t, got[1].BuyerID)
	assert.Nil(t, got[1].Rating)
	assert.Equal(t, "five", got[1].RatingRaw)
	assert.Nil(t, got[1].TextLength)
	assert.Nil(t, got[1].Category)
}

func TestCandidatesFromTableKeepsOutOfRangeCells(t *testing.T) {
	tbl := table("joined", joinedColumns,
		[]string{"b1", "r1", "t", "d", "1e20", "", "abc", "0", "0", "p1", "n", "c"},
		[]string{"b2", "r2", "t", "d", "99999999999999999999", "", "3", "0", "0", "p1", "n", "c"},
	)

	got, err := CandidatesFromTable(tbl)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Nil(t, got[0].Rating)
	assert.Equal(t, "1e20", got[0].RatingRaw)
	assert.Nil(t, got[0].TextLength)
	assert.Equal(t, "abc", got[0].TextLengthRaw)
	assert.Equal(t, "1e20", got[0].Fields()["rating"])
	assert.Equal(t, "abc", got[0].Fields()["text_length"])

	assert.Nil(t, got[1].Rating)
	assert.Equal(t, "99999999999999999999", got[1].RatingRaw)
	assert.Equal(t, 3, got[1].Fields()["text_length"])

	res := NewValidator(WithClock(fixedClock)).Validate(got)
	assert.Empty(t, res.Accepted)
	require.Len(t, res.Rejected, 2)
	for i, raw := range []string{"1e20", "99999999999999999999"} {
		r := res.Rejected[i]
		assert.Equal(t, models.ReasonMissingRequiredFields, r.RejectionReason)
		assert.Equal(t, raw, r.OriginalData["rating"])
		assert.Contains(t, r.ErrorDetails, raw)
		assert.NotContains(t, r.ErrorDetails, "-9223372036854775808")
	}
}

func TestCandidatesFromTableAliases(t *testing.T) {
	cols := []string{"buyer_id", "review_id", "title", "r_desc", "rating",
		"text_length", "has_image", "has_orders", "product_id", "product_name", "category"}
	tbl := table("joined", cols, []string{"b1", "r1", "t", "d", "2", "1", "0", "0", "p9", "n", "c"})

	got, err := CandidatesFromTable(tbl)
	require.NoError(t, err)
	assert.Equal(t, "d", *got[0].Description)
	assert.Equal(t, "p9", *got[0].ProductID)
	assert.Nil(t, got[0].ReviewImage)
}

func TestCandidatesFromTableMissingColumn(t *testing.T) {
	tbl := table("joined", []string{"review_id", "rating"})

	_, err := CandidatesFromTable(tbl)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "buyer_id", se.Column)
	assert.ErrorIs(t, err, ErrMissingColumn)
}
