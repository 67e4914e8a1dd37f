package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ngascope/ngascope/internal/types"
)

// MongoSink persists classified posts to a MongoDB collection, for runs
// whose results feed downstream analysis.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoSink connects and pings the server.
func NewMongoSink(uri, database string, logger *slog.Logger) (*MongoSink, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection("classified_posts"),
		logger:     logger.With("component", "mongo_sink"),
	}, nil
}

// Store inserts all of a run's classified posts.
func (s *MongoSink) Store(ctx context.Context, posts []types.ClassifiedPost) error {
	if len(posts) == 0 {
		return nil
	}

	docs := make([]any, len(posts))
	for i, post := range posts {
		docs[i] = map[string]any{
			"topic_id":       post.TopicID,
			"title":          post.Title,
			"url":            post.URL,
			"author":         post.Author,
			"content":        post.Content,
			"classification": post.Classification,
			"processed_at":   post.ProcessedAt,
			"error":          post.Error,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("mongodb insert: %w", err)
	}

	s.logger.Info("posts stored in mongodb", "count", len(posts))
	return nil
}

// Close disconnects from the server.
func (s *MongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
