package services

import (
	"context"
	"strconv"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/knasante/hostelpay-gobackend/internal/models"
	"github.com/knasante/hostelpay-gobackend/internal/paystack"
	"github.com/knasante/hostelpay-gobackend/internal/store"
)

// fakeBookingStore is an in-memory BookingStore with the same
// conditional-update semantics as the Mongo implementation: transitions
// check the current state under a lock and report whether they applied.
type fakeBookingStore struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Booking
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{byID: map[primitive.ObjectID]*models.Booking{}}
}

func (f *fakeBookingStore) Create(_ context.Context, b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *b
	f.byID[b.ID] = &cp
	return nil
}

func (f *fakeBookingStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.byID[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeBookingStore) FindByReference(_ context.Context, reference string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.byID {
		if b.PaymentReference == reference {
			cp := *b
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeBookingStore) FindByCompletionReference(_ context.Context, reference string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.byID {
		if b.CompletionPaymentReference == reference {
			cp := *b
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeBookingStore) ConfirmPayment(_ context.Context, reference string, gatewayTxnID int64, amountPaid float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.byID {
		if b.PaymentReference == reference && b.BookingStatus == models.BookingStatusPending {
			b.BookingStatus = models.BookingStatusConfirmed
			b.PaymentVerified = true
			b.PaystackTransactionID = gatewayTxnID
			b.TransactionID = strconv.FormatInt(gatewayTxnID, 10)
			b.AmountPaid = amountPaid
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBookingStore) SettleBalance(_ context.Context, reference string, amountPaid float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.byID {
		if b.CompletionPaymentReference == reference && b.PaymentStatus == models.PaymentStatusPartial {
			b.PaymentStatus = models.PaymentStatusFull
			b.CompletionPaymentVerified = true
			b.AmountPaid += amountPaid
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBookingStore) CancelPending(_ context.Context, reference string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.byID {
		if b.PaymentReference == reference && b.BookingStatus == models.BookingStatusPending {
			b.BookingStatus = models.BookingStatusCancelled
			b.PaymentVerified = false
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBookingStore) SetCompletionReference(_ context.Context, id primitive.ObjectID, reference string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	b.CompletionPaymentReference = reference
	return nil
}

func (f *fakeBookingStore) UpdateStatus(_ context.Context, id primitive.ObjectID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	b.BookingStatus = status
	return nil
}

func (f *fakeBookingStore) ListByStudent(_ context.Context, studentID primitive.ObjectID) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.byID {
		if b.StudentID != nil && *b.StudentID == studentID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) ListByHostel(_ context.Context, hostelID primitive.ObjectID) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.byID {
		if b.HostelID == hostelID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) get(id primitive.ObjectID) *models.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.byID[id]
	return &cp
}

type fakeRoomStore struct {
	mu    sync.Mutex
	rooms map[primitive.ObjectID]*models.Room
	// setCalls counts SetAvailability invocations per room, so tests can
	// assert the side effect fired exactly once.
	setCalls map[primitive.ObjectID]int
}

func newFakeRoomStore() *fakeRoomStore {
	return &fakeRoomStore{
		rooms:    map[primitive.ObjectID]*models.Room{},
		setCalls: map[primitive.ObjectID]int{},
	}
}

func (f *fakeRoomStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rooms[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeRoomStore) SetAvailability(_ context.Context, id primitive.ObjectID, available bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	if !ok {
		return store.ErrNotFound
	}
	r.IsAvailable = available
	f.setCalls[id]++
	return nil
}

func (f *fakeRoomStore) calls(id primitive.ObjectID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setCalls[id]
}

func (f *fakeRoomStore) available(id primitive.ObjectID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rooms[id].IsAvailable
}

type fakeHostelStore struct {
	hostels map[primitive.ObjectID]*models.Hostel
}

func (f *fakeHostelStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Hostel, error) {
	if h, ok := f.hostels[id]; ok {
		return h, nil
	}
	return nil, store.ErrNotFound
}

type fakeUserStore struct {
	users map[primitive.ObjectID]*models.User
}

func (f *fakeUserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

// fakeGateway records requests and serves scripted responses.
type fakeGateway struct {
	mu         sync.Mutex
	initReqs   []paystack.InitializeRequest
	chargeReqs []paystack.ChargeRequest

	initErr   error
	chargeErr error

	verifyResps map[string]*paystack.VerifyResponse
	verifyErr   error

	secret string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		verifyResps: map[string]*paystack.VerifyResponse{},
		secret:      "sk_test_secret",
	}
}

func (g *fakeGateway) InitializeTransaction(_ context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.initErr != nil {
		return nil, g.initErr
	}
	g.initReqs = append(g.initReqs, req)
	return &paystack.InitializeResponse{
		AccessCode:       "AC_" + req.Reference,
		AuthorizationURL: "https://checkout.paystack.com/" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (g *fakeGateway) ChargeMobileMoney(_ context.Context, req paystack.ChargeRequest) (*paystack.ChargeResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	g.chargeReqs = append(g.chargeReqs, req)
	return &paystack.ChargeResponse{
		Status:      "pay_offline",
		DisplayText: "Approve the prompt on your phone",
		Reference:   req.Reference,
	}, nil
}

func (g *fakeGateway) VerifyTransaction(_ context.Context, reference string) (*paystack.VerifyResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	if resp, ok := g.verifyResps[reference]; ok {
		return resp, nil
	}
	return &paystack.VerifyResponse{Status: "abandoned", Reference: reference}, nil
}

func (g *fakeGateway) ValidateWebhookSignature(payload []byte, signature string) bool {
	return paystack.ValidateSignature(payload, signature, g.secret)
}

func (g *fakeGateway) lastInit() paystack.InitializeRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.initReqs[len(g.initReqs)-1]
}

func (g *fakeGateway) scriptVerify(reference string, resp *paystack.VerifyResponse) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyResps[reference] = resp
}
