// Package mongo persists an audit trail of ticket resolutions to MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sweetpotato0/support-assistant/schema"
)

// Config holds MongoDB connection configuration for the audit store.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// DefaultConfig returns default MongoDB configuration.
func DefaultConfig() *Config {
	return &Config{
		URI:        "mongodb://localhost:27017",
		Database:   "support_assistant",
		Collection: "resolutions",
	}
}

// Record is one audited resolution: the incoming ticket, the response sent
// back, and the pipeline diagnostics that produced it.
type Record struct {
	ID               string           `bson:"_id"`
	Ticket           string           `bson:"ticket"`
	Response         schema.Response  `bson:"response"`
	RewrittenQueries []string         `bson:"rewritten_queries,omitempty"`
	Quality          string           `bson:"quality,omitempty"`
	Cached           bool             `bson:"cached"`
	Duration         time.Duration    `bson:"duration_ns"`
	CreatedAt        time.Time        `bson:"created_at"`
}

// Store writes resolution records to a MongoDB collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// New connects to MongoDB and ensures the created_at index exists.
func New(config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	store := &Store{
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
	}
	if err := store.createIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return store, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	}
	_, err := s.collection.Indexes().CreateOne(ctx, indexModel)
	return err
}

// Record appends one resolution to the audit trail.
func (s *Store) Record(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("res:%d", time.Now().UnixNano())
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"_id": rec.ID}
	if _, err := s.collection.ReplaceOne(ctx, filter, rec, opts); err != nil {
		return fmt.Errorf("record resolution: %w", err)
	}
	return nil
}

// Recent returns the latest resolutions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list resolutions: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode resolutions: %w", err)
	}
	return records, nil
}

// Count returns the number of audited resolutions.
func (s *Store) Count(ctx context.Context) (int, error) {
	count, err := s.collection.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("count resolutions: %w", err)
	}
	return int(count), nil
}

// Ping checks if the MongoDB connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.client.Disconnect(ctx)
}
