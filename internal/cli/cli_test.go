package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/reviewflow/internal/config"
	"github.com/BartekS5/reviewflow/pkg/models"
)

const joinedCSV = `review_id,buyer_id,p_id,product_name,category,title,description,rating,text_length,has_image,has_orders
r1,b1,p1,Lamp,Home,Bright,Works well,5,10,true,false
r1,b1,p1,Lamp,Home,Bright,Works well,5,10,true,false
r2,b2,p1,Lamp,Home,Meh,Too dim,9,7,false,false
r3,b3,p2,Desk,Office,Ok,,4,0,false,true
r4,,p2,Desk,Office,Fine,Solid build,3,11,false,true
`

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "joined.csv")
	require.NoError(t, os.WriteFile(path, []byte(joinedCSV), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	in := writeCSV(t)
	rejectedOut := filepath.Join(t.TempDir(), "rejected.jsonl")

	out, err := execute(t, "validate", "--file", in, "--rejected-out", rejectedOut)
	require.NoError(t, err)
	assert.Contains(t, out, "Validated 5 records with full rules")
	assert.Contains(t, out, "clean:    1")
	assert.Contains(t, out, "rejected: 4")
	assert.Contains(t, out, "duplicate_review_id")
	assert.Contains(t, out, "missing_buyer_id")

	f, err := os.Open(rejectedOut)
	require.NoError(t, err)
	defer f.Close()
	var got []models.RejectedRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r models.RejectedRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		got = append(got, r)
	}
	require.Len(t, got, 4)
	assert.Equal(t, models.ReasonDuplicateReviewID, got[0].RejectionReason)
	assert.Equal(t, "r1", got[0].ReviewID)
	assert.Equal(t, models.ReasonInvalidRating, got[1].RejectionReason)
	assert.Equal(t, "Invalid rating: 9", got[1].ErrorDetails)
}

func TestValidateCommandBuyerRules(t *testing.T) {
	out, err := execute(t, "validate", "-f", writeCSV(t), "--rules", "buyer")
	require.NoError(t, err)
	assert.Contains(t, out, "clean:    2")
	assert.NotContains(t, out, "empty_description")
}

func TestValidateCommandErrors(t *testing.T) {
	_, err := execute(t, "validate")
	assert.Error(t, err, "--file is required")

	_, err = execute(t, "validate", "-f", writeCSV(t), "--rules", "strict")
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("review_id,rating\nr1,5\n"), 0o644))
	_, err = execute(t, "validate", "-f", bad)
	assert.ErrorContains(t, err, "buyer_id")
}

func TestTransformRequirements(t *testing.T) {
	assert.Equal(t, []config.Requirement{config.NeedBucket}, transformRequirements(&TransformOptions{DryRun: true}))
	assert.ElementsMatch(t,
		[]config.Requirement{config.NeedBucket, config.NeedWarehouse, config.NeedMongo},
		transformRequirements(&TransformOptions{}))
}

func TestRootListsCommands(t *testing.T) {
	cmd := NewRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"extract", "transform", "run", "setup", "stats", "serve", "validate"} {
		assert.Contains(t, names, want)
	}
	f := cmd.PersistentFlags().Lookup("tables")
	require.NotNil(t, f)
}
