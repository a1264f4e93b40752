package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/knasante/hostelpay-gobackend/internal/models"
)

// RoomStore reads rooms and owns the availability flag, which the
// booking lifecycle flips as a side effect of confirm and cancel.
type RoomStore struct {
	col *mongo.Collection
	log *zap.Logger
}

func NewRoomStore(db *mongo.Database, log *zap.Logger) *RoomStore {
	return &RoomStore{
		col: db.Collection("rooms"),
		log: log.With(zap.String("store", "rooms")),
	}
}

func (s *RoomStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var room models.Room
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&room); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch room: %w", err)
	}
	return &room, nil
}

func (s *RoomStore) SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_available": available}},
	)
	if err != nil {
		s.log.Error("Failed to update room availability",
			zap.Error(err),
			zap.String("room_id", id.Hex()),
			zap.Bool("available", available),
		)
		return fmt.Errorf("update room availability: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
