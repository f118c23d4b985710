package models

import "time"

// Job states
const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// QueueMessage is one document waiting in the Redis extraction queue
type QueueMessage struct {
	JobID      string    `json:"job_id"`
	Text       string    `json:"text"`
	ValidOnly  bool      `json:"valid_only,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// StoredExtraction is a queued job's result as the worker persists it
type StoredExtraction struct {
	JobID       string           `bson:"job_id" json:"job_id"`
	Status      string           `bson:"status" json:"status"`
	Result      ExtractionResult `bson:"result" json:"result"`
	Error       string           `bson:"error,omitempty" json:"error,omitempty"`
	EnqueuedAt  time.Time        `bson:"enqueued_at" json:"enqueued_at"`
	CompletedAt time.Time        `bson:"completed_at" json:"completed_at"`
}
