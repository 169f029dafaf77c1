package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaEntry is a tracked show or movie stored in MongoDB. Each entry is
// owned by exactly one user account and is never shared across accounts.
type MediaEntry struct {
	EntryID     primitive.ObjectID `json:"entryId"     bson:"_id,omitempty"`
	Username    string             `json:"username"    bson:"username"`
	Title       string             `json:"title"       bson:"title"`
	MediaType   string             `json:"mediaType"   bson:"media_type"`
	Platform    string             `json:"platform"    bson:"platform"`
	Status      string             `json:"status"      bson:"status"`
	Description string             `json:"description" bson:"description"`
	PosterKey   string             `json:"-"           bson:"poster_key"`
	CreatedAt   time.Time          `json:"created_at"  bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"  bson:"updated_at"`
}
