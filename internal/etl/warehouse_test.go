package etl

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/reviewflow/pkg/models"
)

func TestBuildInsert(t *testing.T) {
	stamp := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	recs := []models.AcceptedRecord{
		{ReviewID: "r1", BuyerID: strp("b1"), Category: "Kitchen", Rating: 5, HasImage: true},
		{ReviewID: "r2", Category: "Unknown", Rating: 1},
	}

	query, args := buildInsert("reviews", recs, stamp, "1.0.0")

	assert.True(t, strings.HasPrefix(query, "INSERT INTO reviews (review_id, buyer_id, p_id,"))
	assert.Contains(t, query, "(@p1, @p2,")
	assert.Contains(t, query, "@p14), (@p15,")
	assert.True(t, strings.HasSuffix(query, "@p28)"))

	require.Len(t, args, 28)
	assert.Equal(t, "r1", args[0])
	assert.Equal(t, sql.NullString{String: "b1", Valid: true}, args[1])
	assert.Equal(t, sql.NullString{}, args[15])
	assert.Equal(t, true, args[9])
	assert.Equal(t, stamp, args[12])
	assert.Equal(t, "1.0.0", args[27])
}

func TestWarehouseBatchFitsParameterLimit(t *testing.T) {
	assert.LessOrEqual(t, warehouseBatch*len(warehouseColumns), 2100)
}
