package models

import "time"

// RunStatistics summarises one pipeline run.
type RunStatistics struct {
	TotalRecordsProcessed int                     `json:"total_records_processed" bson:"total_records_processed"`
	CleanRecords          int                     `json:"clean_records" bson:"clean_records"`
	RejectedRecords       int                     `json:"rejected_records" bson:"rejected_records"`
	WarehouseInserts      int                     `json:"warehouse_inserts" bson:"warehouse_inserts"`
	MongoInserts          int                     `json:"mongodb_inserts" bson:"mongodb_inserts"`
	RejectionsByReason    map[RejectionReason]int `json:"rejections_by_reason" bson:"rejections_by_reason"`
	FailedTables          []string                `json:"failed_tables" bson:"failed_tables"`
	ArchiveURI            string                  `json:"archive_uri,omitempty" bson:"archive_uri,omitempty"`
	DryRun                bool                    `json:"dry_run" bson:"dry_run"`
}

// RunMetadata is the document written to pipeline_metadata after each run.
type RunMetadata struct {
	RunID              string        `json:"run_id" bson:"run_id"`
	PipelineVersion    string        `json:"pipeline_version" bson:"pipeline_version"`
	ExecutionTimestamp time.Time     `json:"execution_timestamp" bson:"execution_timestamp"`
	Statistics         RunStatistics `json:"statistics" bson:"statistics"`
}

// ReasonCount is one bucket of the rejection summary.
type ReasonCount struct {
	Reason RejectionReason `json:"reason" bson:"_id"`
	Count  int64           `json:"count" bson:"count"`
}
