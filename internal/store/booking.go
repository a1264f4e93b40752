package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/knasante/hostelpay-gobackend/internal/models"
)

// BookingStore persists bookings. Status transitions are single-document
// conditional updates: the filter carries the expected current state, so
// when a user-triggered verify races the gateway webhook for the same
// reference, exactly one caller wins and the other observes a no-op.
type BookingStore struct {
	col *mongo.Collection
	log *zap.Logger
}

func NewBookingStore(db *mongo.Database, log *zap.Logger) *BookingStore {
	return &BookingStore{
		col: db.Collection("bookings"),
		log: log.With(zap.String("store", "bookings")),
	}
}

// EnsureIndexes creates the indexes the payment lifecycle depends on.
// payment_reference is the sole gateway correlation key and must be
// unique.
func (s *BookingStore) EnsureIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{Keys: bson.M{"payment_reference": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"completion_payment_reference": 1}, Options: options.Index().SetSparse(true)},
		{Keys: bson.M{"student_id": 1, "created_at": -1}},
		{Keys: bson.M{"hostel_id": 1, "created_at": -1}},
		{Keys: bson.M{"booking_status": 1, "created_at": -1}},
	}
	if _, err := s.col.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("create booking indexes: %w", err)
	}
	return nil
}

func (s *BookingStore) Create(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if _, err := s.col.InsertOne(ctx, booking); err != nil {
		s.log.Error("Failed to insert booking",
			zap.Error(err),
			zap.String("payment_reference", booking.PaymentReference),
		)
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (s *BookingStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// FindByReference locates a booking by its payment reference, the key
// the gateway echoes back on verify and webhook events.
func (s *BookingStore) FindByReference(ctx context.Context, reference string) (*models.Booking, error) {
	return s.findOne(ctx, bson.M{"payment_reference": reference})
}

func (s *BookingStore) FindByCompletionReference(ctx context.Context, reference string) (*models.Booking, error) {
	return s.findOne(ctx, bson.M{"completion_payment_reference": reference})
}

func (s *BookingStore) findOne(ctx context.Context, filter bson.M) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var booking models.Booking
	if err := s.col.FindOne(ctx, filter).Decode(&booking); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch booking: %w", err)
	}
	return &booking, nil
}

// ConfirmPayment transitions a pending booking to confirmed. The filter
// includes the pending status, so only one of several racing callers
// modifies the document; the return value reports whether this call won.
func (s *BookingStore) ConfirmPayment(ctx context.Context, reference string, gatewayTxnID int64, amountPaid float64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.col.UpdateOne(ctx,
		bson.M{"payment_reference": reference, "booking_status": models.BookingStatusPending},
		bson.M{"$set": bson.M{
			"booking_status":          models.BookingStatusConfirmed,
			"payment_verified":        true,
			"paystack_transaction_id": gatewayTxnID,
			"transaction_id":          strconv.FormatInt(gatewayTxnID, 10),
			"amount_paid":             amountPaid,
			"updated_at":              time.Now(),
		}},
	)
	if err != nil {
		s.log.Error("Failed to confirm booking",
			zap.Error(err),
			zap.String("payment_reference", reference),
		)
		return false, fmt.Errorf("confirm booking: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// SettleBalance upgrades a partial-plan booking to fully paid. The
// booking status is deliberately untouched: a confirmed booking stays
// confirmed, only its balance is settled.
func (s *BookingStore) SettleBalance(ctx context.Context, completionReference string, amountPaid float64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.col.UpdateOne(ctx,
		bson.M{"completion_payment_reference": completionReference, "payment_status": models.PaymentStatusPartial},
		bson.M{
			"$set": bson.M{
				"payment_status":              models.PaymentStatusFull,
				"completion_payment_verified": true,
				"updated_at":                  time.Now(),
			},
			"$inc": bson.M{"amount_paid": amountPaid},
		},
	)
	if err != nil {
		s.log.Error("Failed to settle balance",
			zap.Error(err),
			zap.String("completion_payment_reference", completionReference),
		)
		return false, fmt.Errorf("settle balance: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// CancelPending cancels a booking that never got confirmed, typically on
// a charge.failed webhook. Confirmed bookings are untouched.
func (s *BookingStore) CancelPending(ctx context.Context, reference string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.col.UpdateOne(ctx,
		bson.M{"payment_reference": reference, "booking_status": models.BookingStatusPending},
		bson.M{"$set": bson.M{
			"booking_status":   models.BookingStatusCancelled,
			"payment_verified": false,
			"updated_at":       time.Now(),
		}},
	)
	if err != nil {
		return false, fmt.Errorf("cancel pending booking: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// SetCompletionReference attaches the completion correlation key before
// the gateway is called, mirroring how the initial reference is
// persisted ahead of the first charge.
func (s *BookingStore) SetCompletionReference(ctx context.Context, id primitive.ObjectID, reference string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"completion_payment_reference": reference,
			"updated_at":                   time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("set completion reference: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *BookingStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"booking_status": status,
			"updated_at":     time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *BookingStore) ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.Booking, error) {
	return s.list(ctx, bson.M{"student_id": studentID})
}

func (s *BookingStore) ListByHostel(ctx context.Context, hostelID primitive.ObjectID) ([]models.Booking, error) {
	return s.list(ctx, bson.M{"hostel_id": hostelID})
}

func (s *BookingStore) list(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cur, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, fmt.Errorf("fetch bookings: %w", err)
	}
	defer cur.Close(ctx)

	var bookings []models.Booking
	if err := cur.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}
	return bookings, nil
}
