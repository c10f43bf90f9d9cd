package domain

import (
	"fmt"
	"time"
)

// ReindexJobStatus represents the status of a reindex job
type ReindexJobStatus string

const (
	ReindexJobStatusPending    ReindexJobStatus = "pending"
	ReindexJobStatusProcessing ReindexJobStatus = "processing"
	ReindexJobStatusCompleted  ReindexJobStatus = "completed"
	ReindexJobStatusFailed     ReindexJobStatus = "failed"
)

// Reasons a reindex job is enqueued.
const (
	ReindexReasonIndexFailed   = "index_failed"
	ReindexReasonCountMismatch = "count_mismatch"
	ReindexReasonStuck         = "stuck_processing"
	ReindexReasonManual        = "manual"
	ReindexReasonIndexDrift    = "index_drift"
)

// ReindexJob asks the worker to rebuild a document's vector index entries
// from the metadata store.
type ReindexJob struct {
	ID          string
	DocumentID  string
	Reason      string
	Status      ReindexJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ClaimedAt   *time.Time
	ProcessedAt *time.Time
}

// NewReindexJob creates a pending ReindexJob.
func NewReindexJob(id, documentID, reason string, createdAt time.Time) *ReindexJob {
	return &ReindexJob{
		ID:         id,
		DocumentID: documentID,
		Reason:     reason,
		Status:     ReindexJobStatusPending,
		CreatedAt:  createdAt,
	}
}

// ValidateReindexJob validates a ReindexJob instance
func ValidateReindexJob(j *ReindexJob) error {
	if j == nil {
		return fmt.Errorf("reindex job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("reindex job ID is required")
	}

	if j.DocumentID == "" {
		return fmt.Errorf("reindex job DocumentID is required")
	}

	if !isValidReindexJobStatus(j.Status) {
		return fmt.Errorf("reindex job Status is invalid: %s", j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("reindex job Retries cannot be negative")
	}

	return nil
}

func isValidReindexJobStatus(s ReindexJobStatus) bool {
	switch s {
	case ReindexJobStatusPending, ReindexJobStatusProcessing,
		ReindexJobStatusCompleted, ReindexJobStatusFailed:
		return true
	}
	return false
}
