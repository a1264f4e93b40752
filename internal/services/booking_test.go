package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/knasante/hostelpay-gobackend/internal/models"
	"github.com/knasante/hostelpay-gobackend/internal/paystack"
)

type testEnv struct {
	svc      *BookingService
	bookings *fakeBookingStore
	rooms    *fakeRoomStore
	gateway  *fakeGateway

	hostelID  primitive.ObjectID
	roomID    primitive.ObjectID
	ownerID   primitive.ObjectID
	studentID primitive.ObjectID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		bookings:  newFakeBookingStore(),
		rooms:     newFakeRoomStore(),
		gateway:   newFakeGateway(),
		hostelID:  primitive.NewObjectID(),
		roomID:    primitive.NewObjectID(),
		ownerID:   primitive.NewObjectID(),
		studentID: primitive.NewObjectID(),
	}

	hostels := &fakeHostelStore{hostels: map[primitive.ObjectID]*models.Hostel{
		env.hostelID: {ID: env.hostelID, OwnerID: env.ownerID, Name: "Sunrise Hostel"},
	}}
	users := &fakeUserStore{users: map[primitive.ObjectID]*models.User{
		env.studentID: {ID: env.studentID, FullName: "Ama Mensah", Email: "ama@example.com", Role: models.RoleStudent},
	}}
	env.rooms.rooms[env.roomID] = &models.Room{
		ID:          env.roomID,
		HostelID:    env.hostelID,
		RoomNumber:  "A12",
		IsAvailable: true,
	}

	env.svc = NewBookingService(
		env.bookings, env.rooms, hostels, users, env.gateway,
		"https://hostelpay.example.com", "GHS", zap.NewNop(),
	)
	return env
}

func (e *testEnv) initializeInput(plan string) InitializeBookingInput {
	return InitializeBookingInput{
		StudentID:    &e.studentID,
		HostelID:     e.hostelID,
		RoomID:       e.roomID,
		CheckInDate:  time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		CheckOutDate: time.Date(2027, 5, 31, 0, 0, 0, 0, time.UTC),
		Duration:     models.DurationFullYear,
		TotalAmount:  4000,
		PaymentPlan:  plan,
	}
}

// successVerify scripts the gateway to report success for a reference.
func (e *testEnv) successVerify(reference string, amountMinor int64) {
	e.gateway.scriptVerify(reference, &paystack.VerifyResponse{
		ID:          987654,
		Status:      paystack.StatusSuccess,
		Reference:   reference,
		AmountMinor: amountMinor,
		Channel:     "mobile_money",
	})
}

func TestInitializePartialPlanChargesHalf(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.svc.InitializeHostedPayment(context.Background(), env.initializeInput(models.PaymentStatusPartial))

	require.NoError(t, err)
	assert.Equal(t, int64(200000), env.gateway.lastInit().AmountMinor)
	assert.Equal(t, []string{"mobile_money"}, env.gateway.lastInit().Channels)
	assert.Equal(t, float64(2000), result.AmountDue)
	assert.NotEmpty(t, result.AccessCode)
	assert.NotEmpty(t, result.AuthorizationURL)

	id, err := primitive.ObjectIDFromHex(result.BookingID)
	require.NoError(t, err)
	booking := env.bookings.get(id)
	assert.Equal(t, models.BookingStatusPending, booking.BookingStatus)
	assert.Equal(t, models.PaymentStatusPartial, booking.PaymentStatus)
	assert.Equal(t, result.PaymentReference, booking.PaymentReference)
	assert.False(t, booking.PaymentVerified)
}

func TestInitializeFullPlanChargesTotal(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.svc.InitializeHostedPayment(context.Background(), env.initializeInput(models.PaymentStatusFull))

	require.NoError(t, err)
	assert.Equal(t, int64(400000), env.gateway.lastInit().AmountMinor)
	assert.Equal(t, float64(4000), result.AmountDue)
}

func TestInitializeRoundsMinorUnits(t *testing.T) {
	env := newTestEnv(t)
	in := env.initializeInput(models.PaymentStatusPartial)
	in.TotalAmount = 1050.55 // half is 525.275, rounds to 52528 pesewas

	_, err := env.svc.InitializeHostedPayment(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, int64(52528), env.gateway.lastInit().AmountMinor)
}

func TestInitializeUnknownHostel(t *testing.T) {
	env := newTestEnv(t)
	in := env.initializeInput(models.PaymentStatusFull)
	in.HostelID = primitive.NewObjectID()

	_, err := env.svc.InitializeHostedPayment(context.Background(), in)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInitializeUnknownRoom(t *testing.T) {
	env := newTestEnv(t)
	in := env.initializeInput(models.PaymentStatusFull)
	in.RoomID = primitive.NewObjectID()

	_, err := env.svc.InitializeHostedPayment(context.Background(), in)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInitializeGatewayFailureLeavesPendingBooking(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.initErr = paystack.ErrGatewayUnavailable

	_, err := env.svc.InitializeHostedPayment(context.Background(), env.initializeInput(models.PaymentStatusFull))

	assert.ErrorIs(t, err, ErrPaymentInitFailed)

	// The pending row survives for manual reconciliation.
	var pending int
	for id := range env.bookings.byID {
		if env.bookings.get(id).BookingStatus == models.BookingStatusPending {
			pending++
		}
	}
	assert.Equal(t, 1, pending)
}

func TestInitializeGuestBookingStoresCustomerInfo(t *testing.T) {
	env := newTestEnv(t)
	in := env.initializeInput(models.PaymentStatusFull)
	in.StudentID = nil
	in.Customer = &models.CustomerInfo{FullName: "Kwesi Boateng", Email: "kwesi@example.com", Phone: "0244000000"}

	result, err := env.svc.InitializeHostedPayment(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, "kwesi@example.com", env.gateway.lastInit().Email)

	id, _ := primitive.ObjectIDFromHex(result.BookingID)
	booking := env.bookings.get(id)
	require.NotNil(t, booking.CustomerInfo)
	assert.Equal(t, "Kwesi Boateng", booking.CustomerInfo.FullName)
	assert.Nil(t, booking.StudentID)
}

func TestInitializeGuestBookingWithoutCustomerFails(t *testing.T) {
	env := newTestEnv(t)
	in := env.initializeInput(models.PaymentStatusFull)
	in.StudentID = nil

	_, err := env.svc.InitializeHostedPayment(context.Background(), in)

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMobilePaymentChargesWallet(t *testing.T) {
	env := newTestEnv(t)
	in := env.initializeInput(models.PaymentStatusPartial)
	in.Network = "mtn"
	in.PhoneNumber = "0244123456"

	result, err := env.svc.InitializeMobilePayment(context.Background(), in)

	require.NoError(t, err)
	require.Len(t, env.gateway.chargeReqs, 1)
	assert.Equal(t, int64(200000), env.gateway.chargeReqs[0].AmountMinor)
	assert.Equal(t, "mtn", env.gateway.chargeReqs[0].Network)
	assert.NotEmpty(t, result.DisplayText)
}

func TestVerifyConfirmsBookingAndHoldsRoom(t *testing.T) {
	env := newTestEnv(t)
	result, err := env.svc.InitializeHostedPayment(context.Background(), env.initializeInput(models.PaymentStatusPartial))
	require.NoError(t, err)
	env.successVerify(result.PaymentReference, 200000)

	detail, err := env.svc.VerifyPayment(context.Background(), result.PaymentReference)

	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, detail.Booking.BookingStatus)
	assert.True(t, detail.Booking.PaymentVerified)
	assert.Equal(t, int64(987654), detail.Booking.PaystackTransactionID)
	assert.Equal(t, "987654", detail.Booking.TransactionID)
	assert.Equal(t, float64(2000), detail.Booking.AmountPaid)
	assert.False(t, env.rooms.available(env.roomID))

	// Joined entities for presentation.
	require.NotNil(t, detail.Hostel)
	require.NotNil(t, detail.Room)
	require.NotNil(t, detail.Student)
}

func TestVerifyIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	result, err := env.svc.InitializeHostedPayment(context.Background(), env.initializeInput(models.PaymentStatusFull))
	require.NoError(t, err)
	env.successVerify(result.PaymentReference, 400000)

	first, err := env.svc.VerifyPayment(context.Background(), result.PaymentReference)
	require.NoError(t, err)
	second, err := env.svc.VerifyPayment(context.Background(), result.PaymentReference)
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusConfirmed, first.Booking.BookingStatus)
	assert.Equal(t, models.BookingStatusConfirmed, second.Booking.BookingStatus)
	// The room availability side effect fires exactly once.
	assert.Equal(t, 1, env.rooms.calls(env.roomID))
}

func TestVerifyNonSuccessLeavesBookingPending(t *testing.T) {
	env := newTestEnv(t)
	result, err := env.svc.InitializeHostedPayment(context.Background(), env.initializeInput(models.PaymentStatusFull))
	require.NoError(t, err)
	env.gateway.scriptVerify(result.PaymentReference, &paystack.VerifyResponse{
		Status:    "failed",
		Reference: result.PaymentReference,
	})

	_, err = env.svc.VerifyPayment(context.Background(), result.PaymentReference)

	assert.ErrorIs(t, err, ErrPaymentNotSuccessful)
	id, _ := primitive.ObjectIDFromHex(result.BookingID)
	assert.Equal(t, models.BookingStatusPending, env.bookings.get(id).BookingStatus)
	assert.True(t, env.rooms.available(env.roomID))
}

func TestVerifyUnknownReference(t *testing.T) {
	env := newTestEnv(t)
	env.successVerify("BKG-forged-1", 100000)

	_, err := env.svc.VerifyPayment(context.Background(), "BKG-forged-1")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentVerifyAndWebhookConfirmOnce(t *testing.T) {
	env := newTestEnv(t)
	reconciler := NewWebhookReconciler(env.svc, zap.NewNop())

	result, err := env.svc.InitializeHostedPayment(context.Background(), env.initializeInput(models.PaymentStatusFull))
	require.NoError(t, err)
	env.successVerify(result.PaymentReference, 400000)

	payload := signedChargeSuccess(t, env.gateway.secret, result.PaymentReference, result.BookingID, 400000, false)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, verr := env.svc.VerifyPayment(context.Background(), result.PaymentReference)
			assert.NoError(t, verr)
		}()
		go func() {
			defer wg.Done()
			werr := reconciler.HandleWebhook(context.Background(), payload.body, payload.signature)
			assert.NoError(t, werr)
		}()
	}
	wg.Wait()

	id, _ := primitive.ObjectIDFromHex(result.BookingID)
	booking := env.bookings.get(id)
	assert.Equal(t, models.BookingStatusConfirmed, booking.BookingStatus)
	assert.True(t, booking.PaymentVerified)
	assert.Equal(t, 1, env.rooms.calls(env.roomID), "room availability must toggle exactly once")
}

func TestUpdateStatusCancellation(t *testing.T) {
	env := newTestEnv(t)
	admin := AuthContext{UserID: primitive.NewObjectID().Hex(), Role: models.RoleAdmin}

	t.Run("cancelling a confirmed booking releases the room", func(t *testing.T) {
		result, err := env.svc.InitializeHostedPayment(context.Background(), env.initializeInput(models.PaymentStatusFull))
		require.NoError(t, err)
		env.successVerify(result.PaymentReference, 400000)
		_, err = env.svc.VerifyPayment(context.Background(), result.PaymentReference)
		require.NoError(t, err)
		require.False(t, env.rooms.available(env.roomID))

		id, _ := primitive.ObjectIDFromHex(result.BookingID)
		booking, err := env.svc.UpdateBookingStatus(context.Background(), admin, id, models.BookingStatusCancelled)

		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, booking.BookingStatus)
		assert.True(t, env.rooms.available(env.roomID))
	})

	t.Run("cancelling a pending booking leaves the room untouched", func(t *testing.T) {
		result, err := env.svc.InitializeHostedPayment(context.Background(), env.initializeInput(models.PaymentStatusFull))
		require.NoError(t, err)

		callsBefore := env.rooms.calls(env.roomID)
		id, _ := primitive.ObjectIDFromHex(result.BookingID)
		_, err = env.svc.UpdateBookingStatus(context.Background(), admin, id, models.BookingStatusCancelled)

		require.NoError(t, err)
		assert.Equal(t, callsBefore, env.rooms.calls(env.roomID))
	})
}

func TestUpdateStatusAuthorization(t *testing.T) {
	env := newTestEnv(t)
	result, err := env.svc.InitializeHostedPayment(context.Background(), env.initializeInput(models.PaymentStatusFull))
	require.NoError(t, err)
	id, _ := primitive.ObjectIDFromHex(result.BookingID)

	tests := []struct {
		name    string
		auth    AuthContext
		wantErr error
	}{
		{"stranger owner is forbidden", AuthContext{UserID: primitive.NewObjectID().Hex(), Role: models.RoleOwner}, ErrForbidden},
		{"student is forbidden", AuthContext{UserID: env.studentID.Hex(), Role: models.RoleStudent}, ErrForbidden},
		{"hostel owner is allowed", AuthContext{UserID: env.ownerID.Hex(), Role: models.RoleOwner}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.UpdateBookingStatus(context.Background(), tt.auth, id, models.BookingStatusCancelled)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdateStatusIllegalTransitions(t *testing.T) {
	env := newTestEnv(t)
	admin := AuthContext{UserID: primitive.NewObjectID().Hex(), Role: models.RoleAdmin}

	result, err := env.svc.InitializeHostedPayment(context.Background(), env.initializeInput(models.PaymentStatusFull))
	require.NoError(t, err)
	id, _ := primitive.ObjectIDFromHex(result.BookingID)

	// Pending bookings cannot jump straight to completed.
	_, err = env.svc.UpdateBookingStatus(context.Background(), admin, id, models.BookingStatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Cancelled is terminal.
	_, err = env.svc.UpdateBookingStatus(context.Background(), admin, id, models.BookingStatusCancelled)
	require.NoError(t, err)
	_, err = env.svc.UpdateBookingStatus(context.Background(), admin, id, models.BookingStatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
