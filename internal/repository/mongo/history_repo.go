package mongo

import (
	"alcyxob/gym-sync/internal/domain"
	"alcyxob/gym-sync/internal/repository"
	"context"
	"errors"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const historyCollectionName = "check_in_history"

// mongoHistoryRepository implements repository.HistoryRepository
type mongoHistoryRepository struct {
	collection *mongo.Collection
}

// NewMongoHistoryRepository creates a new check-in history repository.
func NewMongoHistoryRepository(db *mongo.Database) repository.HistoryRepository {
	return &mongoHistoryRepository{
		collection: db.Collection(historyCollectionName),
	}
}

// Append inserts a new history entry and returns its store-assigned id.
// Entries are never updated after this point.
func (r *mongoHistoryRepository) Append(ctx context.Context, entry *domain.HistoryEntry) (primitive.ObjectID, error) {
	if entry.SubjectID == "" {
		return primitive.NilObjectID, errors.New("history entry requires a subject id")
	}
	entry.ID = primitive.NewObjectID()

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted history entry ID")
	}
	return insertedID, nil
}

// List returns the full history log. The sweeper reads it once per tick, so
// there is no server-side filtering here; malformed entries are skipped.
func (r *mongoHistoryRepository) List(ctx context.Context) ([]domain.HistoryEntry, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := make([]domain.HistoryEntry, 0)
	for cursor.Next(ctx) {
		var entry domain.HistoryEntry
		if err := cursor.Decode(&entry); err != nil {
			log.Printf("WARN: skipping malformed history entry: %v", err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete removes one entry. Two sweepers may race to evict the same expired
// entry, so a zero delete count is success rather than ErrNotFound.
func (r *mongoHistoryRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// EnsureHistoryIndexes creates necessary indexes. Call during startup.
func EnsureHistoryIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Sweeper eviction scans by age.
			Keys:    bson.D{{Key: "observedAt", Value: 1}},
			Options: options.Index(),
		},
		{
			// Per-subject recent-history queries.
			Keys:    bson.D{{Key: "subjectId", Value: 1}, {Key: "observedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
