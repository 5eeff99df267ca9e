package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"motioncapture/internal/model"
)

type captureRow struct {
	ID          string `db:"id"`
	TimestampMS int64  `db:"timestamp_ms"`
	ImageData   []byte `db:"image_data"`
}

// CaptureRepository implements repository.CaptureRepository for SQLite.
// Timestamps are stored as unix milliseconds.
type CaptureRepository struct {
	db *DB
}

// NewCaptureRepository creates a new SQLite capture repository.
func NewCaptureRepository(db *DB) *CaptureRepository {
	return &CaptureRepository{db: db}
}

// Insert adds a capture record. A record without ID gets a random UUID.
func (r *CaptureRepository) Insert(ctx context.Context, rec *model.CaptureRecord) (string, error) {
	const op = "repository.sqlite.Insert"

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO captures (id, timestamp_ms, image_data)
		VALUES (?, ?, ?)
	`, rec.ID, rec.Timestamp.UnixMilli(), rec.ImageData)
	if err != nil {
		return "", fmt.Errorf("%s: failed to insert capture: %w", op, err)
	}

	return rec.ID, nil
}

// DeleteOlderThan removes every record whose timestamp is strictly before cutoff.
func (r *CaptureRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const op = "repository.sqlite.DeleteOlderThan"

	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().ExecContext(ctx, `DELETE FROM captures WHERE timestamp_ms < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%s: failed to delete captures: %w", op, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	return deleted, nil
}

// List returns records captured at or after since, oldest first.
func (r *CaptureRepository) List(ctx context.Context, since time.Time) ([]model.CaptureRecord, error) {
	const op = "repository.sqlite.List"

	r.db.RLock()
	defer r.db.RUnlock()

	var rows []captureRow
	err := r.db.Conn().SelectContext(ctx, &rows, `
		SELECT id, timestamp_ms, image_data
		FROM captures
		WHERE timestamp_ms >= ?
		ORDER BY timestamp_ms ASC
	`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query captures: %w", op, err)
	}

	records := make([]model.CaptureRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, model.CaptureRecord{
			ID:        row.ID,
			Timestamp: time.UnixMilli(row.TimestampMS),
			ImageData: row.ImageData,
		})
	}
	return records, nil
}

// Stats returns count, size and time range of the stored records.
func (r *CaptureRepository) Stats(ctx context.Context) (*model.StoreStats, error) {
	const op = "repository.sqlite.Stats"

	r.db.RLock()
	defer r.db.RUnlock()

	var row struct {
		Count  int64 `db:"cnt"`
		Size   int64 `db:"size"`
		Oldest int64 `db:"oldest"`
		Newest int64 `db:"newest"`
	}
	err := r.db.Conn().GetContext(ctx, &row, `
		SELECT COUNT(*) AS cnt,
			COALESCE(SUM(LENGTH(image_data)), 0) AS size,
			COALESCE(MIN(timestamp_ms), 0) AS oldest,
			COALESCE(MAX(timestamp_ms), 0) AS newest
		FROM captures
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query stats: %w", op, err)
	}

	stats := &model.StoreStats{
		TotalRecords:   row.Count,
		TotalSizeBytes: row.Size,
	}
	if row.Count > 0 {
		stats.Oldest = time.UnixMilli(row.Oldest)
		stats.Newest = time.UnixMilli(row.Newest)
	}
	return stats, nil
}

// Close closes the underlying database.
func (r *CaptureRepository) Close(ctx context.Context) error {
	return r.db.Close()
}
