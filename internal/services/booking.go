package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/knasante/hostelpay-gobackend/internal/models"
	"github.com/knasante/hostelpay-gobackend/internal/paystack"
	"github.com/knasante/hostelpay-gobackend/internal/store"
)

// BookingStore is the persistence surface the state machine depends on.
// The conditional transitions (ConfirmPayment, SettleBalance,
// CancelPending) report whether the caller won the update, which is what
// makes the verify and webhook paths race-safe.
type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error)
	FindByReference(ctx context.Context, reference string) (*models.Booking, error)
	FindByCompletionReference(ctx context.Context, reference string) (*models.Booking, error)
	ConfirmPayment(ctx context.Context, reference string, gatewayTxnID int64, amountPaid float64) (bool, error)
	SettleBalance(ctx context.Context, completionReference string, amountPaid float64) (bool, error)
	CancelPending(ctx context.Context, reference string) (bool, error)
	SetCompletionReference(ctx context.Context, id primitive.ObjectID, reference string) error
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error
	ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.Booking, error)
	ListByHostel(ctx context.Context, hostelID primitive.ObjectID) ([]models.Booking, error)
}

type RoomStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Room, error)
	SetAvailability(ctx context.Context, id primitive.ObjectID, available bool) error
}

type HostelStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Hostel, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// PaymentGateway is the Paystack surface the core calls. Implemented by
// paystack.Client; faked in tests.
type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error)
	ChargeMobileMoney(ctx context.Context, req paystack.ChargeRequest) (*paystack.ChargeResponse, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.VerifyResponse, error)
	ValidateWebhookSignature(payload []byte, signature string) bool
}

// BookingService drives the payment lifecycle: create pending booking,
// orchestrate the gateway, and apply verified transitions.
type BookingService struct {
	bookings BookingStore
	rooms    RoomStore
	hostels  HostelStore
	users    UserStore
	gateway  PaymentGateway

	frontendURL string
	currency    string
	log         *zap.Logger
}

func NewBookingService(
	bookings BookingStore,
	rooms RoomStore,
	hostels HostelStore,
	users UserStore,
	gateway PaymentGateway,
	frontendURL, currency string,
	log *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings:    bookings,
		rooms:       rooms,
		hostels:     hostels,
		users:       users,
		gateway:     gateway,
		frontendURL: frontendURL,
		currency:    currency,
		log:         log.With(zap.String("service", "booking")),
	}
}

// InitializeBookingInput is the validated shape of a new booking
// request. Amounts owed are derived server-side from TotalAmount and
// PaymentPlan; the client never supplies the charge amount.
type InitializeBookingInput struct {
	StudentID    *primitive.ObjectID
	HostelID     primitive.ObjectID
	RoomID       primitive.ObjectID
	CheckInDate  time.Time
	CheckOutDate time.Time
	Duration     string
	TotalAmount  float64
	PaymentPlan  string
	Customer     *models.CustomerInfo
	Network      string
	PhoneNumber  string
}

// InitializeBookingResult is returned to the client so it can hand the
// payer over to the gateway. The access code is never persisted.
type InitializeBookingResult struct {
	BookingID        string  `json:"booking_id"`
	PaymentReference string  `json:"payment_reference"`
	AmountDue        float64 `json:"amount_due"`
	AccessCode       string  `json:"access_code,omitempty"`
	AuthorizationURL string  `json:"authorization_url,omitempty"`
	DisplayText      string  `json:"display_text,omitempty"`
}

// BookingDetail is a booking joined with its hostel, room and student
// for presentation. Joins are best-effort; the booking itself is
// authoritative.
type BookingDetail struct {
	Booking models.Booking `json:"booking"`
	Hostel  *models.Hostel `json:"hostel,omitempty"`
	Room    *models.Room   `json:"room,omitempty"`
	Student *models.User   `json:"student,omitempty"`
}

// InitializeHostedPayment creates a pending booking and starts a hosted
// checkout transaction on the gateway.
func (s *BookingService) InitializeHostedPayment(ctx context.Context, in InitializeBookingInput) (*InitializeBookingResult, error) {
	booking, email, err := s.createPendingBooking(ctx, in)
	if err != nil {
		return nil, err
	}

	amountDue := paymentAmount(in.TotalAmount, in.PaymentPlan)
	res, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:       email,
		AmountMinor: paystack.MinorUnits(amountDue),
		Reference:   booking.PaymentReference,
		CallbackURL: s.frontendURL + "/payments/verify/" + booking.PaymentReference,
		Currency:    s.currency,
		Channels:    []string{"mobile_money"},
		Metadata:    paystack.Metadata{BookingID: booking.ID.Hex()},
	})
	if err != nil {
		// The pending row stays behind on purpose: it carries no risk
		// and manual reconciliation can resume from the reference.
		s.log.Error("Gateway initialization failed",
			zap.Error(err),
			zap.String("payment_reference", booking.PaymentReference),
		)
		return nil, fmt.Errorf("%w: %v", ErrPaymentInitFailed, err)
	}

	s.log.Info("Hosted payment initialized",
		zap.String("booking_id", booking.ID.Hex()),
		zap.String("payment_reference", booking.PaymentReference),
		zap.Float64("amount_due", amountDue),
		zap.String("payment_plan", in.PaymentPlan),
	)

	return &InitializeBookingResult{
		BookingID:        booking.ID.Hex(),
		PaymentReference: booking.PaymentReference,
		AmountDue:        amountDue,
		AccessCode:       res.AccessCode,
		AuthorizationURL: res.AuthorizationURL,
	}, nil
}

// InitializeMobilePayment creates a pending booking and charges the
// payer's mobile money wallet directly.
func (s *BookingService) InitializeMobilePayment(ctx context.Context, in InitializeBookingInput) (*InitializeBookingResult, error) {
	if in.Network == "" || in.PhoneNumber == "" {
		return nil, fmt.Errorf("%w: mobile network and phone number are required", ErrInvalidInput)
	}

	booking, email, err := s.createPendingBooking(ctx, in)
	if err != nil {
		return nil, err
	}

	amountDue := paymentAmount(in.TotalAmount, in.PaymentPlan)
	res, err := s.gateway.ChargeMobileMoney(ctx, paystack.ChargeRequest{
		Email:       email,
		AmountMinor: paystack.MinorUnits(amountDue),
		Reference:   booking.PaymentReference,
		Currency:    s.currency,
		Network:     in.Network,
		PhoneNumber: in.PhoneNumber,
		Metadata:    paystack.Metadata{BookingID: booking.ID.Hex()},
	})
	if err != nil {
		s.log.Error("Mobile money charge failed",
			zap.Error(err),
			zap.String("payment_reference", booking.PaymentReference),
		)
		return nil, fmt.Errorf("%w: %v", ErrPaymentInitFailed, err)
	}

	s.log.Info("Mobile payment initialized",
		zap.String("booking_id", booking.ID.Hex()),
		zap.String("payment_reference", booking.PaymentReference),
		zap.String("network", in.Network),
		zap.Float64("amount_due", amountDue),
	)

	return &InitializeBookingResult{
		BookingID:        booking.ID.Hex(),
		PaymentReference: booking.PaymentReference,
		AmountDue:        amountDue,
		DisplayText:      res.DisplayText,
	}, nil
}

// VerifyPayment is the synchronous confirm path, hit when the payer's
// browser returns from the gateway. It converges with the webhook path
// on the same conditional transition, so running both (or running this
// twice) confirms the booking exactly once.
func (s *BookingService) VerifyPayment(ctx context.Context, reference string) (*BookingDetail, error) {
	v, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	if v.Status != paystack.StatusSuccess {
		s.log.Warn("Payment verification reported non-success",
			zap.String("payment_reference", reference),
			zap.String("gateway_status", v.Status),
		)
		return nil, fmt.Errorf("%w: gateway status %q", ErrPaymentNotSuccessful, v.Status)
	}

	booking, err := s.confirmByReference(ctx, reference, v.ID, v.AmountMinor)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(ctx, booking), nil
}

// confirmByReference applies the pending→confirmed transition. Shared by
// the synchronous verify path and the webhook reconciler so both produce
// the identical end state, idempotently.
func (s *BookingService) confirmByReference(ctx context.Context, reference string, gatewayTxnID, amountMinor int64) (*models.Booking, error) {
	booking, err := s.bookings.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("booking for reference %s: %w", reference, ErrNotFound)
		}
		return nil, err
	}

	if booking.BookingStatus == models.BookingStatusConfirmed && booking.PaymentVerified {
		s.log.Info("Booking already confirmed, skipping",
			zap.String("payment_reference", reference),
		)
		return booking, nil
	}

	amountPaid := float64(amountMinor) / 100
	won, err := s.bookings.ConfirmPayment(ctx, reference, gatewayTxnID, amountPaid)
	if err != nil {
		return nil, err
	}
	if won {
		// Secondary write: the booking record is authoritative, so a
		// failure here is logged and left for reconciliation rather
		// than unwinding the confirmation.
		if err := s.rooms.SetAvailability(ctx, booking.RoomID, false); err != nil {
			s.log.Warn("Failed to mark room unavailable after confirm",
				zap.Error(err),
				zap.String("room_id", booking.RoomID.Hex()),
				zap.String("payment_reference", reference),
			)
		}
		s.log.Info("Booking confirmed",
			zap.String("booking_id", booking.ID.Hex()),
			zap.String("payment_reference", reference),
			zap.Int64("paystack_transaction_id", gatewayTxnID),
			zap.Float64("amount_paid", amountPaid),
		)
	}

	updated, err := s.bookings.FindByReference(ctx, reference)
	if err != nil {
		return booking, nil
	}
	return updated, nil
}

// UpdateBookingStatus is the manual transition endpoint for admins and
// the hostel's owner. Cancelling a confirmed booking releases the room;
// cancelling a pending one leaves availability untouched.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, auth AuthContext, bookingID primitive.ObjectID, newStatus string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("booking %s: %w", bookingID.Hex(), ErrNotFound)
		}
		return nil, err
	}

	if err := s.authorizeHostelAccess(ctx, auth, booking.HostelID); err != nil {
		return nil, err
	}

	if !canTransition(booking.BookingStatus, newStatus) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, booking.BookingStatus, newStatus)
	}

	if err := s.bookings.UpdateStatus(ctx, bookingID, newStatus); err != nil {
		return nil, err
	}

	if newStatus == models.BookingStatusCancelled && booking.BookingStatus == models.BookingStatusConfirmed {
		if err := s.rooms.SetAvailability(ctx, booking.RoomID, true); err != nil {
			s.log.Warn("Failed to release room after cancellation",
				zap.Error(err),
				zap.String("room_id", booking.RoomID.Hex()),
			)
		}
	}

	s.log.Info("Booking status updated",
		zap.String("booking_id", bookingID.Hex()),
		zap.String("from", booking.BookingStatus),
		zap.String("to", newStatus),
		zap.String("actor", auth.UserID),
	)

	booking.BookingStatus = newStatus
	return booking, nil
}

// GetBooking returns a joined booking for the admin, the hostel's owner,
// or the booking's own student.
func (s *BookingService) GetBooking(ctx context.Context, auth AuthContext, bookingID primitive.ObjectID) (*BookingDetail, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("booking %s: %w", bookingID.Hex(), ErrNotFound)
		}
		return nil, err
	}

	if !auth.IsAdmin() && !isBookingStudent(booking, auth) {
		if err := s.authorizeHostelAccess(ctx, auth, booking.HostelID); err != nil {
			return nil, err
		}
	}
	return s.buildDetail(ctx, booking), nil
}

// ListStudentBookings returns the caller's own bookings, newest first.
func (s *BookingService) ListStudentBookings(ctx context.Context, auth AuthContext) ([]models.Booking, error) {
	studentID, err := primitive.ObjectIDFromHex(auth.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrInvalidInput)
	}
	return s.bookings.ListByStudent(ctx, studentID)
}

// ListHostelBookings returns a hostel's bookings for its owner or an
// admin.
func (s *BookingService) ListHostelBookings(ctx context.Context, auth AuthContext, hostelID primitive.ObjectID) ([]models.Booking, error) {
	if err := s.authorizeHostelAccess(ctx, auth, hostelID); err != nil {
		return nil, err
	}
	return s.bookings.ListByHostel(ctx, hostelID)
}

// createPendingBooking validates the hostel and room, derives the amount
// owed, and persists the booking with its minted reference before any
// gateway traffic. A crash after this point leaves a traceable record.
func (s *BookingService) createPendingBooking(ctx context.Context, in InitializeBookingInput) (*models.Booking, string, error) {
	hostel, err := s.hostels.FindByID(ctx, in.HostelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", fmt.Errorf("hostel %s: %w", in.HostelID.Hex(), ErrNotFound)
		}
		return nil, "", err
	}

	room, err := s.rooms.FindByID(ctx, in.RoomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", fmt.Errorf("room %s: %w", in.RoomID.Hex(), ErrNotFound)
		}
		return nil, "", err
	}
	if room.HostelID != hostel.ID {
		return nil, "", fmt.Errorf("room %s in hostel %s: %w", in.RoomID.Hex(), in.HostelID.Hex(), ErrNotFound)
	}

	email, err := s.payerEmail(ctx, in.StudentID, in.Customer)
	if err != nil {
		return nil, "", err
	}

	id := primitive.NewObjectID()
	booking := &models.Booking{
		ID:            id,
		StudentID:     in.StudentID,
		HostelID:      in.HostelID,
		RoomID:        in.RoomID,
		CheckInDate:   in.CheckInDate,
		CheckOutDate:  in.CheckOutDate,
		Duration:      in.Duration,
		TotalAmount:   in.TotalAmount,
		PaymentStatus: in.PaymentPlan,
		BookingStatus: models.BookingStatusPending,

		PaymentReference: mintReference("BKG", id),
		TransactionID:    "pending-" + uuid.NewString(),

		Network:     in.Network,
		PhoneNumber: in.PhoneNumber,
	}
	if in.StudentID == nil {
		booking.CustomerInfo = in.Customer
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, "", err
	}

	s.log.Info("Pending booking created",
		zap.String("booking_id", id.Hex()),
		zap.String("payment_reference", booking.PaymentReference),
		zap.String("hostel_id", in.HostelID.Hex()),
		zap.String("room_id", in.RoomID.Hex()),
		zap.Float64("total_amount", in.TotalAmount),
	)
	return booking, email, nil
}

func (s *BookingService) payerEmail(ctx context.Context, studentID *primitive.ObjectID, customer *models.CustomerInfo) (string, error) {
	if studentID != nil {
		student, err := s.users.FindByID(ctx, *studentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return "", fmt.Errorf("student %s: %w", studentID.Hex(), ErrNotFound)
			}
			return "", err
		}
		return student.Email, nil
	}
	if customer == nil || customer.Email == "" {
		return "", fmt.Errorf("%w: guest bookings require customer info", ErrInvalidInput)
	}
	return customer.Email, nil
}

func (s *BookingService) authorizeHostelAccess(ctx context.Context, auth AuthContext, hostelID primitive.ObjectID) error {
	if auth.IsAdmin() {
		return nil
	}
	hostel, err := s.hostels.FindByID(ctx, hostelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("hostel %s: %w", hostelID.Hex(), ErrNotFound)
		}
		return err
	}
	if auth.Role == models.RoleOwner && hostel.OwnerID.Hex() == auth.UserID {
		return nil
	}
	return ErrForbidden
}

func (s *BookingService) buildDetail(ctx context.Context, booking *models.Booking) *BookingDetail {
	detail := &BookingDetail{Booking: *booking}
	if hostel, err := s.hostels.FindByID(ctx, booking.HostelID); err == nil {
		detail.Hostel = hostel
	}
	if room, err := s.rooms.FindByID(ctx, booking.RoomID); err == nil {
		detail.Room = room
	}
	if booking.StudentID != nil {
		if student, err := s.users.FindByID(ctx, *booking.StudentID); err == nil {
			detail.Student = student
		}
	}
	return detail
}

func isBookingStudent(booking *models.Booking, auth AuthContext) bool {
	return booking.StudentID != nil && booking.StudentID.Hex() == auth.UserID
}

// paymentAmount derives the charge from the plan: half now on a partial
// plan, everything otherwise. This is the only place the split is
// computed; it is never accepted from the client.
func paymentAmount(totalAmount float64, plan string) float64 {
	if plan == models.PaymentStatusPartial {
		return totalAmount / 2
	}
	return totalAmount
}

func canTransition(from, to string) bool {
	switch from {
	case models.BookingStatusPending:
		return to == models.BookingStatusCancelled
	case models.BookingStatusConfirmed:
		return to == models.BookingStatusCancelled || to == models.BookingStatusCompleted
	}
	return false
}

func mintReference(prefix string, id primitive.ObjectID) string {
	return fmt.Sprintf("%s-%s-%d", prefix, id.Hex(), time.Now().Unix())
}
