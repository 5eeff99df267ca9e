package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"motioncapture/internal/config"
	"motioncapture/internal/model"
	"motioncapture/internal/repository"
)

func main() {
	outDir := flag.String("out", "exported", "Directory to write images to")
	since := flag.Duration("since", 0, "Only export captures newer than this age (0 exports everything retained)")
	flag.Parse()

	cfg := config.MustLoad()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	repo, err := repository.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer repo.Close(context.Background())

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	var from time.Time
	if *since > 0 {
		from = time.Now().Add(-*since)
	}

	records, err := repo.List(ctx, from)
	if err != nil {
		log.Fatalf("Failed to list captures: %v", err)
	}

	if len(records) == 0 {
		fmt.Println("No captures found to export")
		return
	}

	fmt.Printf("Exporting %d captures from %s store to %s\n", len(records), cfg.Store.Driver, *outDir)

	written := 0
	for _, rec := range records {
		name := FileName(rec.Timestamp, rec.ID)
		if err := os.WriteFile(filepath.Join(*outDir, name), rec.ImageData, 0644); err != nil {
			log.Printf("⚠️  Skipping %s: %v", name, err)
			continue
		}
		written++
	}

	fmt.Printf("✅ Exported %d captures\n", written)
	if skipped := len(records) - written; skipped > 0 {
		fmt.Printf("⚠️  Skipped %d captures (write errors)\n", skipped)
	}

	printStats(ctx, os.Stdout, repo)
}

type statsSource interface {
	Stats(ctx context.Context) (*model.StoreStats, error)
}

// printStats writes the store statistics to out. A failed query is logged.
func printStats(ctx context.Context, out io.Writer, src statsSource) {
	stats, err := src.Stats(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to read store statistics: %v", err)
		return
	}

	fmt.Fprintf(out, "\n📊 Store Statistics:\n")
	fmt.Fprintf(out, "   Total captures: %d\n", stats.TotalRecords)
	fmt.Fprintf(out, "   Total size: %d bytes\n", stats.TotalSizeBytes)
	if stats.TotalRecords > 0 {
		fmt.Fprintf(out, "   Oldest: %s\n", stats.Oldest.Format(time.RFC3339Nano))
		fmt.Fprintf(out, "   Newest: %s\n", stats.Newest.Format(time.RFC3339Nano))
	}
}

// FileName builds the export file name of a capture.
// Format: 2006-01-02_15-04_05.000_<id>.jpg
func FileName(ts time.Time, id string) string {
	return fmt.Sprintf("%s_%s.jpg", ts.Local().Format("2006-01-02_15-04_05.000"), id)
}
