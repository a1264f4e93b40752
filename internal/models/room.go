package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Room belongs to a hostel. IsAvailable flips to false when a booking for
// the room is confirmed and back to true only when that booking is
// cancelled.
type Room struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HostelID    primitive.ObjectID `bson:"hostel_id" json:"hostel_id"`
	RoomNumber  string             `bson:"room_number" json:"room_number"`
	Capacity    int                `bson:"capacity" json:"capacity"`
	Price       float64            `bson:"price" json:"price"`
	IsAvailable bool               `bson:"is_available" json:"is_available"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
