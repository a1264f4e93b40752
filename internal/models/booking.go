package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Booking statuses. Pending bookings may become confirmed or cancelled;
// confirmed bookings may become completed or cancelled. Completed and
// cancelled are terminal.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)

// Payment plans. A partial plan collects half the total up front and the
// remainder through the completion flow.
const (
	PaymentStatusPartial = "partial"
	PaymentStatusFull    = "full"
)

// Stay durations.
const (
	DurationFirstSemester  = "first_semester"
	DurationSecondSemester = "second_semester"
	DurationFullYear       = "full_year"
)

// CustomerInfo holds payer details for guest bookings made without an
// authenticated student account.
type CustomerInfo struct {
	FullName string `bson:"full_name" json:"full_name"`
	Email    string `bson:"email" json:"email"`
	Phone    string `bson:"phone" json:"phone"`
}

// Booking is a reservation document in the bookings collection. The
// payment reference is minted before the gateway is ever called and is
// the only correlation key between this system and Paystack.
type Booking struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	StudentID *primitive.ObjectID `bson:"student_id,omitempty" json:"student_id,omitempty"`
	HostelID  primitive.ObjectID  `bson:"hostel_id" json:"hostel_id"`
	RoomID    primitive.ObjectID  `bson:"room_id" json:"room_id"`

	CheckInDate  time.Time `bson:"check_in_date" json:"check_in_date"`
	CheckOutDate time.Time `bson:"check_out_date" json:"check_out_date"`
	Duration     string    `bson:"duration" json:"duration"`

	TotalAmount   float64 `bson:"total_amount" json:"total_amount"`
	AmountPaid    float64 `bson:"amount_paid" json:"amount_paid"`
	PaymentStatus string  `bson:"payment_status" json:"payment_status"`
	BookingStatus string  `bson:"booking_status" json:"booking_status"`

	PaymentReference      string `bson:"payment_reference" json:"payment_reference"`
	PaystackTransactionID int64  `bson:"paystack_transaction_id,omitempty" json:"paystack_transaction_id,omitempty"`
	PaymentVerified       bool   `bson:"payment_verified" json:"payment_verified"`

	CompletionPaymentReference string `bson:"completion_payment_reference,omitempty" json:"completion_payment_reference,omitempty"`
	CompletionPaymentVerified  bool   `bson:"completion_payment_verified" json:"completion_payment_verified"`

	CustomerInfo *CustomerInfo `bson:"customer_info,omitempty" json:"customer_info,omitempty"`

	// Mobile money metadata. TransactionID starts as a local placeholder
	// and is overwritten with the gateway's id once payment is verified.
	Network       string `bson:"network,omitempty" json:"network,omitempty"`
	PhoneNumber   string `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	TransactionID string `bson:"transaction_id" json:"transaction_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
