// Package staging wraps the MongoDB collection where field stations drop pending readings.
package staging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is a connection to the staging collection. It is opened at the start of a
// pass and closed at its end.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Connect opens a client, verifies it with a ping and selects the staging collection.
func Connect(ctx context.Context, uri, database, collection string, timeout time.Duration) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Store{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// ListPending returns every document currently in the staging collection, in listing order.
// Documents that cannot be decoded are returned with Invalid set, or skipped when
// they have no _id.
func (s *Store) ListPending(ctx context.Context) ([]PendingDocument, error) {
	cursor, err := s.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []PendingDocument
	for cursor.Next(ctx) {
		doc, ok := decodePending(cursor.Current)
		if !ok {
			continue
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending documents: %w", err)
	}

	return docs, nil
}

// Stage inserts a pending document and returns its generated _id.
func (s *Store) Stage(ctx context.Context, stationID string, capturedAt int64, readings []Reading) (any, error) {
	result, err := s.collection.InsertOne(ctx, EncodeDocument(stationID, capturedAt, readings))
	if err != nil {
		return nil, fmt.Errorf("failed to stage document for station %s: %w", stationID, err)
	}
	return result.InsertedID, nil
}

// Purge removes every pending document and returns how many were deleted.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to purge staging collection: %w", err)
	}
	return result.DeletedCount, nil
}

// Delete removes a processed document by its _id.
func (s *Store) Delete(ctx context.Context, id any) error {
	result, err := s.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete staging document: %w", err)
	}
	if result.DeletedCount == 0 {
		slog.Warn("Staging document was already gone", "document_id", fmt.Sprint(id))
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}
