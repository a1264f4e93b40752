package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Platform roles.
const (
	RoleStudent = "student"
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
)

// User model
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName  string             `bson:"fullname" json:"fullname"`
	Email     string             `bson:"email" json:"email"`
	Phone     string             `bson:"phone" json:"phone"`
	Role      string             `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
