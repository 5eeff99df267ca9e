package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"motioncapture/internal/model"
)

// CaptureRepository implements repository.CaptureRepository for MongoDB.
type CaptureRepository struct {
	db *DB
}

// NewCaptureRepository creates a new MongoDB capture repository.
func NewCaptureRepository(db *DB) *CaptureRepository {
	return &CaptureRepository{db: db}
}

// Insert stores rec as one document. A record without ID gets a random UUID.
func (r *CaptureRepository) Insert(ctx context.Context, rec *model.CaptureRecord) (string, error) {
	const op = "repository.mongodb.Insert"

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	res, err := r.db.Collection().InsertOne(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("%s: failed to insert capture: %w", op, err)
	}

	id, ok := res.InsertedID.(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected inserted id type %T", op, res.InsertedID)
	}
	return id, nil
}

// DeleteOlderThan removes every document whose timestamp is strictly before cutoff.
func (r *CaptureRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const op = "repository.mongodb.DeleteOlderThan"

	res, err := r.db.Collection().DeleteMany(ctx, olderThanFilter(cutoff))
	if err != nil {
		return 0, fmt.Errorf("%s: failed to delete captures: %w", op, err)
	}
	return res.DeletedCount, nil
}

// List returns documents captured at or after since, oldest first.
func (r *CaptureRepository) List(ctx context.Context, since time.Time) ([]model.CaptureRecord, error) {
	const op = "repository.mongodb.List"

	cursor, err := r.db.Collection().Find(ctx, sinceFilter(since),
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query captures: %w", op, err)
	}

	records := make([]model.CaptureRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("%s: failed to decode captures: %w", op, err)
	}
	return records, nil
}

// Stats aggregates count, size and time range of the stored documents.
func (r *CaptureRepository) Stats(ctx context.Context) (*model.StoreStats, error) {
	const op = "repository.mongodb.Stats"

	cursor, err := r.db.Collection().Aggregate(ctx, statsPipeline())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to aggregate stats: %w", op, err)
	}
	defer cursor.Close(ctx)

	var row struct {
		Count  int64     `bson:"count"`
		Size   int64     `bson:"size"`
		Oldest time.Time `bson:"oldest"`
		Newest time.Time `bson:"newest"`
	}
	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, fmt.Errorf("%s: failed to read stats: %w", op, err)
		}
		// empty collection
		return &model.StoreStats{}, nil
	}
	if err := cursor.Decode(&row); err != nil {
		return nil, fmt.Errorf("%s: failed to decode stats: %w", op, err)
	}

	return &model.StoreStats{
		TotalRecords:   row.Count,
		TotalSizeBytes: row.Size,
		Oldest:         row.Oldest,
		Newest:         row.Newest,
	}, nil
}

// Close disconnects from the deployment.
func (r *CaptureRepository) Close(ctx context.Context) error {
	if err := r.db.Close(ctx); err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
		return err
	}
	return nil
}

func olderThanFilter(cutoff time.Time) bson.M {
	return bson.M{"timestamp": bson.M{"$lt": cutoff}}
}

func sinceFilter(since time.Time) bson.M {
	return bson.M{"timestamp": bson.M{"$gte": since}}
}

func statsPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "size", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$binarySize", Value: "$image_data"}}}}},
			{Key: "oldest", Value: bson.D{{Key: "$min", Value: "$timestamp"}}},
			{Key: "newest", Value: bson.D{{Key: "$max", Value: "$timestamp"}}},
		}}},
	}
}
