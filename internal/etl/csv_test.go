package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRoundTripKeepsNulls(t *testing.T) {
	in := table("review", []string{"review_id", "r_desc", "rating"},
		[]string{"r1", "line one\nline \"two\"", "5"},
		[]string{"r2", "", "3"},
		[]string{"r3", " ", ""},
	)

	body, err := EncodeCSV(in)
	require.NoError(t, err)
	out, err := DecodeCSV("review", body)
	require.NoError(t, err)

	assert.Equal(t, in.Columns, out.Columns)
	assert.Equal(t, in.Rows, out.Rows)

	_, ok := out.Rows[1].Get("r_desc")
	assert.False(t, ok, "empty cell reads back as null")
	v, ok := out.Rows[2].Get("r_desc")
	assert.True(t, ok, "whitespace is not null")
	assert.Equal(t, " ", v)
}

func TestDecodeCSVErrors(t *testing.T) {
	_, err := DecodeCSV("empty", nil)
	assert.Error(t, err)

	_, err = DecodeCSV("ragged", []byte("a,b\n1,2,3\n"))
	assert.Error(t, err)
}

func TestDecodeCSVStripsBOM(t *testing.T) {
	out, err := DecodeCSV("t", []byte("\xef\xbb\xbfreview_id,rating\nr1,4\n"))
	require.NoError(t, err)
	assert.True(t, out.HasColumn("review_id"))
	assert.Equal(t, 1, out.Len())
}
