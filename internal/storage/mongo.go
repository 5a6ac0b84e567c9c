package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carscout/internal/listing"
)

// Archiver keeps every raw crawl in MongoDB so reruns of the valuation
// never require re-scraping.
type Archiver struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewArchiver connects to MongoDB and verifies the connection.
func NewArchiver(uri, database, collection string, logger *slog.Logger) (*Archiver, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &Archiver{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "archiver"),
	}, nil
}

// ArchiveRaw stores one crawl's raw records under its run ID.
func (a *Archiver) ArchiveRaw(ctx context.Context, runID string, records listing.RecordSet) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	docs := make([]any, len(records))
	for i, rec := range records {
		docs[i] = map[string]any{
			"run_id":      runID,
			"archived_at": now,
			"record":      rec,
		}
	}

	if _, err := a.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("mongodb insert: %w", err)
	}
	a.logger.Info("raw records archived", "run_id", runID, "count", len(records))
	return nil
}

// Close disconnects from MongoDB.
func (a *Archiver) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.client.Disconnect(ctx)
}
