package etl

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BartekS5/reviewflow/pkg/models"
)

const (
	RejectedCollection = "rejected_reviews"
	MetadataCollection = "pipeline_metadata"
	LogsCollection     = "pipeline_logs"
)

// ErrNoRuns is returned by LatestRun before any run was recorded.
var ErrNoRuns = errors.New("no pipeline runs recorded")

type manyInserter interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

// MongoRejectSink appends rejected records to rejected_reviews.
type MongoRejectSink struct {
	Coll manyInserter
}

func NewMongoRejectSink(db *mongo.Database) *MongoRejectSink {
	return &MongoRejectSink{Coll: db.Collection(RejectedCollection)}
}

func (s *MongoRejectSink) Append(ctx context.Context, recs []models.RejectedRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, len(recs))
	for i, r := range recs {
		docs[i] = r
	}
	res, err := s.Coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return 0, fmt.Errorf("insert rejected reviews: %w", err)
	}
	return len(res.InsertedIDs), nil
}

type runCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
}

type aggregator interface {
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
}

// MongoMetadataStore records run metadata and serves the report read model.
type MongoMetadataStore struct {
	Runs     runCollection
	Rejected aggregator

	db *mongo.Database
}

func NewMongoMetadataStore(db *mongo.Database) *MongoMetadataStore {
	return &MongoMetadataStore{
		Runs:     db.Collection(MetadataCollection),
		Rejected: db.Collection(RejectedCollection),
		db:       db,
	}
}

func (s *MongoMetadataStore) SaveRun(ctx context.Context, run models.RunMetadata) error {
	if _, err := s.Runs.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("save run %s: %w", run.RunID, err)
	}
	return nil
}

func (s *MongoMetadataStore) LatestRun(ctx context.Context) (*models.RunMetadata, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "execution_timestamp", Value: -1}})
	var run models.RunMetadata
	if err := s.Runs.FindOne(ctx, bson.D{}, opts).Decode(&run); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoRuns
		}
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return &run, nil
}

// RejectionSummary counts every stored rejection by reason, largest first.
func (s *MongoMetadataStore) RejectionSummary(ctx context.Context) ([]models.ReasonCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$rejection_reason"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cur, err := s.Rejected.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("rejection summary: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.ReasonCount{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode rejection summary: %w", err)
	}
	return out, nil
}

// EnsureIndexes creates the indexes the rejected and metadata collections
// are queried by. It is idempotent.
func (s *MongoMetadataStore) EnsureIndexes(ctx context.Context) error {
	if s.db == nil {
		return errors.New("metadata store has no database handle")
	}
	rejected := []mongo.IndexModel{
		{Keys: bson.D{{Key: "review_id", Value: 1}}, Options: options.Index().SetName("idx_rejected_review_id")},
		{Keys: bson.D{{Key: "rejection_reason", Value: 1}}, Options: options.Index().SetName("idx_rejection_reason")},
		{Keys: bson.D{{Key: "rejected_at", Value: -1}}, Options: options.Index().SetName("idx_rejected_at_desc")},
	}
	if _, err := s.db.Collection(RejectedCollection).Indexes().CreateMany(ctx, rejected); err != nil {
		return fmt.Errorf("index %s: %w", RejectedCollection, err)
	}

	runs := []mongo.IndexModel{
		{Keys: bson.D{{Key: "execution_timestamp", Value: -1}}, Options: options.Index().SetName("idx_execution_timestamp_desc")},
		{Keys: bson.D{{Key: "run_id", Value: 1}}, Options: options.Index().SetName("idx_run_id").SetUnique(true)},
	}
	if _, err := s.db.Collection(MetadataCollection).Indexes().CreateMany(ctx, runs); err != nil {
		return fmt.Errorf("index %s: %w", MetadataCollection, err)
	}

	return nil
}

// EnsureLogIndexes indexes the log sink collection, which lives in its own
// database.
func EnsureLogIndexes(ctx context.Context, db *mongo.Database) error {
	logs := []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_log_timestamp_desc")},
		{Keys: bson.D{{Key: "run_id", Value: 1}}, Options: options.Index().SetName("idx_log_run_id")},
	}
	if _, err := db.Collection(LogsCollection).Indexes().CreateMany(ctx, logs); err != nil {
		return fmt.Errorf("index %s: %w", LogsCollection, err)
	}
	return nil
}
