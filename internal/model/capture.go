package model

import "time"

// CaptureRecord is one stored still image.
type CaptureRecord struct {
	ID        string    `json:"id" bson:"_id"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	ImageData []byte    `json:"-" bson:"image_data"`
}

// StoreStats summarizes the records currently held by a store.
type StoreStats struct {
	TotalRecords   int64     `json:"total_records"`
	TotalSizeBytes int64     `json:"total_size_bytes"`
	Oldest         time.Time `json:"oldest"`
	Newest         time.Time `json:"newest"`
}
