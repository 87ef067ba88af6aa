package storage

import (
	"context"
	"errors"

	"github.com/Epistemic-Technology/pdf-transcribe/models"
)

// ErrNotFound is returned when no transcript matches the requested ID or fingerprint
var ErrNotFound = errors.New("transcript not found")

// Store defines the interface for holding finished transcripts until they are downloaded
type Store interface {
	// StoreTranscript saves a transcript and returns its ID, assigning one when info.ID is empty
	StoreTranscript(ctx context.Context, info *models.TranscriptInfo) (string, error)

	// GetTranscript retrieves a transcript by ID
	GetTranscript(ctx context.Context, id string) (*models.TranscriptInfo, error)

	// FindByFingerprint returns the most recent transcript produced from the same input and pages
	FindByFingerprint(ctx context.Context, fingerprint string) (*models.TranscriptInfo, error)

	// ListTranscripts returns every stored transcript, newest first
	ListTranscripts(ctx context.Context) ([]models.TranscriptInfo, error)

	// DeleteTranscript removes a transcript
	DeleteTranscript(ctx context.Context, id string) error

	// Close releases the store
	Close() error
}
