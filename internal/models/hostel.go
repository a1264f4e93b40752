package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Hostel is a property document. OwnerID drives the ownership checks on
// booking status mutations.
type Hostel struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID   primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Name      string             `bson:"name" json:"name"`
	Location  string             `bson:"location" json:"location"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
