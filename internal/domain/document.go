package domain

import (
	"fmt"
	"time"
)

// DocumentStatus represents the ingestion state of a document
type DocumentStatus string

const (
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document is an uploaded PDF and its ingestion outcome. ExpectedChunks is
// recorded before any chunk is saved; zero means segmentation never finished.
type Document struct {
	ID             string
	Filename       string
	SourceURI      string
	Status         DocumentStatus
	ChunkCount     int
	ExpectedChunks int
	Error          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewDocument creates a document in the processing state.
func NewDocument(id, filename, sourceURI string, now time.Time) *Document {
	return &Document{
		ID:         id,
		Filename:   filename,
		SourceURI:  sourceURI,
		Status:     DocumentStatusProcessing,
		ChunkCount: 0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}

	if !IsValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	if d.ChunkCount < 0 {
		return fmt.Errorf("document ChunkCount cannot be negative")
	}

	if d.ExpectedChunks < 0 {
		return fmt.Errorf("document ExpectedChunks cannot be negative")
	}

	return nil
}

// WantChunks returns how many saved chunks a rebuild needs. Documents marked
// ready before the expected count was tracked fall back to ChunkCount.
func (d *Document) WantChunks() int {
	if d.ExpectedChunks == 0 && d.Status == DocumentStatusReady {
		return d.ChunkCount
	}
	return d.ExpectedChunks
}

// IsValidDocumentStatus checks if a DocumentStatus is valid
func IsValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusProcessing, DocumentStatusReady, DocumentStatusFailed:
		return true
	}
	return false
}
