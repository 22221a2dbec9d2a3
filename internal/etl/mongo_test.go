package etl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BartekS5/reviewflow/pkg/models"
)

type fakeInserter struct {
	calls int
	docs  []interface{}
	err   error
}

func (f *fakeInserter) InsertMany(_ context.Context, docs []interface{}, _ ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, docs...)
	ids := make([]interface{}, len(docs))
	for i := range docs {
		ids[i] = i
	}
	return &mongo.InsertManyResult{InsertedIDs: ids}, nil
}

func TestMongoRejectSinkAppend(t *testing.T) {
	ins := &fakeInserter{}
	sink := &MongoRejectSink{Coll: ins}

	n, err := sink.Append(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, ins.calls, "empty batch must not reach the store")

	recs := []models.RejectedRecord{
		{ReviewID: "r1", RejectionReason: models.ReasonInvalidRating},
		{ReviewID: "UNKNOWN", RejectionReason: models.ReasonMissingRequiredFields},
	}
	n, err = sink.Append(context.Background(), recs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, recs[1], ins.docs[1])

	ins.err = errors.New("boom")
	_, err = sink.Append(context.Background(), recs)
	assert.Error(t, err)
}

type fakeRuns struct {
	saved []interface{}
	doc   interface{}
	err   error
}

func (f *fakeRuns) InsertOne(_ context.Context, doc interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	f.saved = append(f.saved, doc)
	return &mongo.InsertOneResult{}, nil
}

func (f *fakeRuns) FindOne(_ context.Context, _ interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
	if f.doc == nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, f.err, nil)
	}
	return mongo.NewSingleResultFromDocument(f.doc, f.err, nil)
}

type fakeAggregate struct {
	docs []interface{}
}

func (f *fakeAggregate) Aggregate(_ context.Context, _ interface{}, _ ...*options.AggregateOptions) (*mongo.Cursor, error) {
	return mongo.NewCursorFromDocuments(f.docs, nil, nil)
}

func TestMongoMetadataStoreRuns(t *testing.T) {
	run := models.RunMetadata{
		RunID:              "run-1",
		PipelineVersion:    "1.0.0",
		ExecutionTimestamp: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		Statistics: models.RunStatistics{
			TotalRecordsProcessed: 10,
			CleanRecords:          8,
			RejectedRecords:       2,
			RejectionsByReason:    map[models.RejectionReason]int{models.ReasonInvalidRating: 2},
			FailedTables:          []string{},
		},
	}
	runs := &fakeRuns{doc: run}
	store := &MongoMetadataStore{Runs: runs}

	require.NoError(t, store.SaveRun(context.Background(), run))
	assert.Len(t, runs.saved, 1)

	got, err := store.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 8, got.Statistics.CleanRecords)
	assert.Equal(t, 2, got.Statistics.RejectionsByReason[models.ReasonInvalidRating])
	assert.True(t, run.ExecutionTimestamp.Equal(got.ExecutionTimestamp))
}

func TestMongoMetadataStoreNoRuns(t *testing.T) {
	store := &MongoMetadataStore{Runs: &fakeRuns{err: mongo.ErrNoDocuments}}
	_, err := store.LatestRun(context.Background())
	assert.ErrorIs(t, err, ErrNoRuns)
}

func TestMongoMetadataStoreRejectionSummary(t *testing.T) {
	agg := &fakeAggregate{docs: []interface{}{
		bson.D{{Key: "_id", Value: "invalid_rating"}, {Key: "count", Value: int64(3)}},
		bson.D{{Key: "_id", Value: "missing_buyer_id"}, {Key: "count", Value: int64(1)}},
	}}
	store := &MongoMetadataStore{Rejected: agg}

	got, err := store.RejectionSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.ReasonCount{
		{Reason: models.ReasonInvalidRating, Count: 3},
		{Reason: models.ReasonMissingBuyerID, Count: 1},
	}, got)
}
