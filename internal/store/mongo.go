package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tvtracker/internal/models"
)

// MediaStore handles media entry CRUD in MongoDB.
type MediaStore struct {
	col *mongo.Collection
}

func NewMediaStore(db *mongo.Database) *MediaStore {
	return &MediaStore{col: db.Collection("media_entries")}
}

// Insert persists a new entry. The generated id and timestamps are written
// back onto the passed entry.
func (s *MediaStore) Insert(ctx context.Context, entry *models.MediaEntry) error {
	entry.EntryID = primitive.NewObjectID()
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	if _, err := s.col.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("mongo insert: %w", err)
	}
	return nil
}

// ListByUsername returns the user's entries, newest first. An empty result is
// a nil-error empty slice, not a fault.
func (s *MediaStore) ListByUsername(ctx context.Context, username string) ([]models.MediaEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.col.Find(ctx, bson.M{"username": username}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	defer cur.Close(ctx)

	var entries []models.MediaEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}
	return entries, nil
}

// GetByID returns ErrNotFound for an absent or malformed id.
func (s *MediaStore) GetByID(ctx context.Context, id string) (*models.MediaEntry, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var entry models.MediaEntry
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&entry); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo find one: %w", err)
	}
	return &entry, nil
}

// Update rewrites the descriptive fields of an existing entry. The owner and
// creation timestamp are never touched.
func (s *MediaStore) Update(ctx context.Context, entry *models.MediaEntry) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": entry.EntryID}, bson.M{"$set": bson.M{
		"title":       entry.Title,
		"media_type":  entry.MediaType,
		"platform":    entry.Platform,
		"status":      entry.Status,
		"description": entry.Description,
		"updated_at":  time.Now(),
	}})
	if err != nil {
		return fmt.Errorf("mongo update: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete returns ErrNotFound when the id no longer matches a record, which
// makes repeated deletes a modeled negative rather than a fault.
func (s *MediaStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPosterKey records the object key of the entry's poster image.
func (s *MediaStore) SetPosterKey(ctx context.Context, id, key string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"poster_key": key,
		"updated_at": time.Now(),
	}})
	if err != nil {
		return fmt.Errorf("mongo set poster key: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
