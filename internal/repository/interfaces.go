package repository

import (
	"context"
	"time"

	"motioncapture/internal/model"
)

// CaptureRepository defines the operations of a capture store.
type CaptureRepository interface {
	// Create operations
	Insert(ctx context.Context, rec *model.CaptureRecord) (string, error)

	// Read operations
	List(ctx context.Context, since time.Time) ([]model.CaptureRecord, error)
	Stats(ctx context.Context) (*model.StoreStats, error)

	// Delete operations
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	Close(ctx context.Context) error
}
