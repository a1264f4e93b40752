package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/knasante/hostelpay-gobackend/internal/models"
)

// HostelStore is a read-side collaborator: the booking core needs
// hostels only for existence checks and ownership authorization.
type HostelStore struct {
	col *mongo.Collection
}

func NewHostelStore(db *mongo.Database) *HostelStore {
	return &HostelStore{col: db.Collection("hostels")}
}

func (s *HostelStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Hostel, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var hostel models.Hostel
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&hostel); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch hostel: %w", err)
	}
	return &hostel, nil
}
