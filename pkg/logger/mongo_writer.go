package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LogInserter is the subset of *mongo.Collection used by MongoWriter.
type LogInserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// LogEntry is the document stored for every log event.
type LogEntry struct {
	Message   string         `bson:"message"`
	Level     string         `bson:"level"`
	Logger    string         `bson:"logger"`
	Timestamp time.Time      `bson:"timestamp"`
	RunID     string         `bson:"run_id,omitempty"`
	Fields    map[string]any `bson:"fields,omitempty"`
}

// MongoWriter persists zerolog JSON events to a collection. It never fails
// the caller: insert errors are reported once on stderr and dropped.
type MongoWriter struct {
	coll    LogInserter
	name    string
	timeout time.Duration

	once sync.Once
}

func NewMongoWriter(coll LogInserter, name string) *MongoWriter {
	return &MongoWriter{coll: coll, name: name, timeout: 2 * time.Second}
}

func (w *MongoWriter) Write(p []byte) (int, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		return len(p), nil
	}
	entry := LogEntry{Logger: w.name, Timestamp: time.Now().UTC()}
	if v, ok := raw["message"].(string); ok {
		entry.Message = v
	}
	if v, ok := raw["level"].(string); ok {
		entry.Level = v
	}
	if v, ok := raw["run_id"].(string); ok {
		entry.RunID = v
	}
	if v, ok := raw["time"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			entry.Timestamp = ts
		}
	}
	delete(raw, "message")
	delete(raw, "level")
	delete(raw, "time")
	delete(raw, "run_id")
	if len(raw) > 0 {
		entry.Fields = raw
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if _, err := w.coll.InsertOne(ctx, entry); err != nil {
		w.once.Do(func() {
			fmt.Fprintf(os.Stderr, "mongo log sink for %s is failing: %v\n", w.name, err)
		})
	}
	return len(p), nil
}
