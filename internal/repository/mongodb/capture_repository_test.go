package mongodb

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"motioncapture/internal/model"
)

func TestOlderThanFilter(t *testing.T) {
	cutoff := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	filter := olderThanFilter(cutoff)

	cond, ok := filter["timestamp"].(bson.M)
	if !ok {
		t.Fatalf("Expected timestamp condition, got %#v", filter)
	}
	if got, ok := cond["$lt"].(time.Time); !ok || !got.Equal(cutoff) {
		t.Errorf("Expected strict $lt %s, got %#v", cutoff, cond)
	}
	if len(cond) != 1 {
		t.Errorf("Expected a single operator, got %#v", cond)
	}
}

func TestSinceFilter(t *testing.T) {
	since := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	cond := sinceFilter(since)["timestamp"].(bson.M)
	if got, ok := cond["$gte"].(time.Time); !ok || !got.Equal(since) {
		t.Errorf("Expected $gte %s, got %#v", since, cond)
	}
}

func TestStatsPipeline_GroupsAllDocuments(t *testing.T) {
	pipeline := statsPipeline()
	if len(pipeline) != 1 {
		t.Fatalf("Expected one stage, got %d", len(pipeline))
	}

	stage := pipeline[0]
	if stage[0].Key != "$group" {
		t.Fatalf("Expected $group stage, got %s", stage[0].Key)
	}

	group := stage[0].Value.(bson.D).Map()
	for _, field := range []string{"_id", "count", "size", "oldest", "newest"} {
		if _, ok := group[field]; !ok {
			t.Errorf("Expected %s in $group", field)
		}
	}
	if group["_id"] != nil {
		t.Errorf("Expected a single group, got _id %v", group["_id"])
	}
}

func TestCaptureRecord_DocumentShape(t *testing.T) {
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := model.CaptureRecord{ID: "abc", Timestamp: ts, ImageData: []byte{0xFF, 0xD8}}

	raw, err := bson.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if doc["_id"] != "abc" {
		t.Errorf("Expected _id abc, got %v", doc["_id"])
	}
	if _, ok := doc["timestamp"]; !ok {
		t.Error("Expected timestamp field")
	}
	if _, ok := doc["image_data"]; !ok {
		t.Error("Expected image_data field")
	}
	if len(doc) != 3 {
		t.Errorf("Expected 3 fields, got %v", doc)
	}
}
