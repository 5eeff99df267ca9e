package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DB holds the MongoDB client and the capture collection.
type DB struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// New connects to uri, verifies the deployment answers and makes sure the
// collection has its timestamp index.
func New(ctx context.Context, uri, database, collection string, timeout time.Duration) (*DB, error) {
	const op = "repository.mongodb.New"

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect: %w", op, err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: failed to ping: %w", op, err)
	}

	db := &DB{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}

	if err := db.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: failed to create indexes: %w", op, err)
	}

	return db, nil
}

// ensureIndexes creates the timestamp index used by pruning.
func (db *DB) ensureIndexes(ctx context.Context) error {
	_, err := db.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "timestamp", Value: 1}},
		Options: options.Index().SetName("idx_captures_timestamp"),
	})
	return err
}

// Collection returns the capture collection.
func (db *DB) Collection() *mongo.Collection {
	return db.collection
}

// Close disconnects the client.
func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}
