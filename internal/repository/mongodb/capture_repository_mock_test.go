package mongodb

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"motioncapture/internal/model"
)

// ========================================
// Repository against a mock deployment
// ========================================

func newMockRepository(mt *mtest.T) *CaptureRepository {
	return NewCaptureRepository(&DB{client: mt.Client, collection: mt.Coll})
}

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func TestCaptureRepository_Mock(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	mt.Run("insert returns the document id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := newMockRepository(mt)

		rec := &model.CaptureRecord{Timestamp: base, ImageData: []byte{0xFF, 0xD8}}
		id, err := repo.Insert(ctx, rec)
		if err != nil {
			mt.Fatalf("Failed to insert: %v", err)
		}
		if id == "" || id != rec.ID {
			mt.Errorf("Expected generated id %q, got %q", rec.ID, id)
		}
	})

	mt.Run("insert keeps an explicit id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := newMockRepository(mt)

		id, err := repo.Insert(ctx, &model.CaptureRecord{ID: "cap-1", Timestamp: base})
		if err != nil {
			mt.Fatalf("Failed to insert: %v", err)
		}
		if id != "cap-1" {
			mt.Errorf("Expected id cap-1, got %q", id)
		}
	})

	mt.Run("insert write error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))
		repo := newMockRepository(mt)

		_, err := repo.Insert(ctx, &model.CaptureRecord{ID: "cap-1", Timestamp: base})
		if err == nil {
			mt.Fatal("Expected write error, got nil")
		}
		if !mongo.IsDuplicateKeyError(err) {
			mt.Errorf("Expected wrapped duplicate key error, got %v", err)
		}
	})

	mt.Run("delete returns the deleted count", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(3)}))
		repo := newMockRepository(mt)

		deleted, err := repo.DeleteOlderThan(ctx, base)
		if err != nil {
			mt.Fatalf("Failed to delete: %v", err)
		}
		if deleted != 3 {
			mt.Errorf("Expected 3 deleted, got %d", deleted)
		}
	})

	mt.Run("delete command error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Message: "not authorized",
			Name:    "Unauthorized",
		}))
		repo := newMockRepository(mt)

		if _, err := repo.DeleteOlderThan(ctx, base); err == nil {
			mt.Error("Expected delete error, got nil")
		}
	})

	mt.Run("list decodes documents", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "a"},
				{Key: "timestamp", Value: primitive.NewDateTimeFromTime(base)},
				{Key: "image_data", Value: primitive.Binary{Data: []byte{1, 2, 3}}},
			},
			bson.D{
				{Key: "_id", Value: "b"},
				{Key: "timestamp", Value: primitive.NewDateTimeFromTime(base.Add(5 * time.Second))},
				{Key: "image_data", Value: primitive.Binary{Data: []byte{4}}},
			},
		))
		repo := newMockRepository(mt)

		records, err := repo.List(ctx, time.Time{})
		if err != nil {
			mt.Fatalf("Failed to list: %v", err)
		}
		if len(records) != 2 {
			mt.Fatalf("Expected 2 records, got %d", len(records))
		}
		if records[0].ID != "a" || !records[0].Timestamp.Equal(base) || len(records[0].ImageData) != 3 {
			mt.Errorf("Unexpected first record: %+v", records[0])
		}
		if records[1].ID != "b" || !records[1].Timestamp.Equal(base.Add(5*time.Second)) {
			mt.Errorf("Unexpected second record: %+v", records[1])
		}
	})

	mt.Run("list on empty collection", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))
		repo := newMockRepository(mt)

		records, err := repo.List(ctx, base)
		if err != nil {
			mt.Fatalf("Failed to list: %v", err)
		}
		if records == nil || len(records) != 0 {
			mt.Errorf("Expected empty non-nil slice, got %#v", records)
		}
	})

	mt.Run("stats on empty collection", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))
		repo := newMockRepository(mt)

		stats, err := repo.Stats(ctx)
		if err != nil {
			mt.Fatalf("Failed to get stats: %v", err)
		}
		if stats.TotalRecords != 0 || stats.TotalSizeBytes != 0 || !stats.Oldest.IsZero() || !stats.Newest.IsZero() {
			mt.Errorf("Expected zero stats, got %+v", stats)
		}
	})

	mt.Run("stats decodes the group row", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: nil},
				{Key: "count", Value: int32(2)},
				{Key: "size", Value: int64(4096)},
				{Key: "oldest", Value: primitive.NewDateTimeFromTime(base)},
				{Key: "newest", Value: primitive.NewDateTimeFromTime(base.Add(25 * time.Second))},
			},
		))
		repo := newMockRepository(mt)

		stats, err := repo.Stats(ctx)
		if err != nil {
			mt.Fatalf("Failed to get stats: %v", err)
		}
		if stats.TotalRecords != 2 {
			mt.Errorf("Expected 2 records, got %d", stats.TotalRecords)
		}
		if stats.TotalSizeBytes != 4096 {
			mt.Errorf("Expected 4096 bytes, got %d", stats.TotalSizeBytes)
		}
		if !stats.Oldest.Equal(base) || !stats.Newest.Equal(base.Add(25*time.Second)) {
			mt.Errorf("Unexpected range %s..%s", stats.Oldest, stats.Newest)
		}
	})
}
