package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/knasante/hostelpay-gobackend/internal/models"
	"github.com/knasante/hostelpay-gobackend/internal/services"
)

// BookingHandler exposes the booking payment lifecycle over HTTP.
type BookingHandler struct {
	svc *services.BookingService
	log *zap.Logger
}

func NewBookingHandler(svc *services.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, log: log.With(zap.String("handler", "booking"))}
}

// InitializePayment creates a pending booking and starts a hosted
// checkout. Works with or without a student session; guests must supply
// customer info.
func (h *BookingHandler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	var req InitializePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body", nil)
		return
	}
	input, ok := h.buildInput(w, r, &req)
	if !ok {
		return
	}

	result, err := h.svc.InitializeHostedPayment(r.Context(), *input)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondCreated(w, "payment initialized", result)
}

// MobilePayment creates a pending booking and charges the wallet
// directly.
func (h *BookingHandler) MobilePayment(w http.ResponseWriter, r *http.Request) {
	var req MobilePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body", nil)
		return
	}
	if errs := validateStruct(&req); len(errs) > 0 {
		respondBadRequest(w, "validation failed", errs)
		return
	}
	input, ok := h.buildInput(w, r, &req.InitializePaymentRequest)
	if !ok {
		return
	}
	input.Network = req.Network
	input.PhoneNumber = req.PhoneNumber

	result, err := h.svc.InitializeMobilePayment(r.Context(), *input)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondCreated(w, "mobile charge initialized", result)
}

// CompleteCheckout starts a hosted payment for the outstanding balance
// of a partial-plan booking.
func (h *BookingHandler) CompleteCheckout(w http.ResponseWriter, r *http.Request) {
	auth, _ := AuthContextFrom(r.Context())

	var req CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body", nil)
		return
	}
	if errs := validateStruct(&req); len(errs) > 0 {
		respondBadRequest(w, "validation failed", errs)
		return
	}
	bookingID, err := primitive.ObjectIDFromHex(req.BookingID)
	if err != nil {
		respondBadRequest(w, "invalid booking id", nil)
		return
	}

	result, err := h.svc.InitiateCompletion(r.Context(), auth, bookingID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondCreated(w, "completion payment initialized", result)
}

// CompleteMobile settles the balance via a direct mobile money charge.
func (h *BookingHandler) CompleteMobile(w http.ResponseWriter, r *http.Request) {
	auth, _ := AuthContextFrom(r.Context())

	var req MobileCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body", nil)
		return
	}
	if errs := validateStruct(&req); len(errs) > 0 {
		respondBadRequest(w, "validation failed", errs)
		return
	}
	bookingID, err := primitive.ObjectIDFromHex(req.BookingID)
	if err != nil {
		respondBadRequest(w, "invalid booking id", nil)
		return
	}

	result, err := h.svc.InitiateMobileCompletion(r.Context(), auth, bookingID, req.Network, req.PhoneNumber)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondCreated(w, "mobile completion charge initialized", result)
}

// UpdateStatus is the manual admin/owner transition.
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	auth, _ := AuthContextFrom(r.Context())

	bookingID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		respondBadRequest(w, "invalid booking id", nil)
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body", nil)
		return
	}
	if errs := validateStruct(&req); len(errs) > 0 {
		respondBadRequest(w, "validation failed", errs)
		return
	}

	booking, err := h.svc.UpdateBookingStatus(r.Context(), auth, bookingID, req.Status)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondOK(w, "booking status updated", booking)
}

// GetBooking returns a single joined booking.
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	auth, _ := AuthContextFrom(r.Context())

	bookingID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		respondBadRequest(w, "invalid booking id", nil)
		return
	}

	detail, err := h.svc.GetBooking(r.Context(), auth, bookingID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondOK(w, "booking retrieved", detail)
}

// ListMyBookings returns the signed-in student's bookings.
func (h *BookingHandler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	auth, _ := AuthContextFrom(r.Context())

	bookings, err := h.svc.ListStudentBookings(r.Context(), auth)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondOK(w, "bookings retrieved", bookings)
}

// ListHostelBookings returns a hostel's bookings for its owner or an
// admin.
func (h *BookingHandler) ListHostelBookings(w http.ResponseWriter, r *http.Request) {
	auth, _ := AuthContextFrom(r.Context())

	hostelID, err := primitive.ObjectIDFromHex(mux.Vars(r)["hostelID"])
	if err != nil {
		respondBadRequest(w, "invalid hostel id", nil)
		return
	}

	bookings, err := h.svc.ListHostelBookings(r.Context(), auth, hostelID)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondOK(w, "bookings retrieved", bookings)
}

// buildInput validates the shared initialize shape and resolves the
// payer: the session's student when present, otherwise the guest
// customer block.
func (h *BookingHandler) buildInput(w http.ResponseWriter, r *http.Request, req *InitializePaymentRequest) (*services.InitializeBookingInput, bool) {
	if errs := validateStruct(req); len(errs) > 0 {
		respondBadRequest(w, "validation failed", errs)
		return nil, false
	}

	hostelID, err := primitive.ObjectIDFromHex(req.HostelID)
	if err != nil {
		respondBadRequest(w, "invalid hostel id", nil)
		return nil, false
	}
	roomID, err := primitive.ObjectIDFromHex(req.RoomID)
	if err != nil {
		respondBadRequest(w, "invalid room id", nil)
		return nil, false
	}

	input := &services.InitializeBookingInput{
		HostelID:     hostelID,
		RoomID:       roomID,
		CheckInDate:  req.CheckInDate,
		CheckOutDate: req.CheckOutDate,
		Duration:     req.Duration,
		TotalAmount:  req.TotalAmount,
		PaymentPlan:  req.PaymentPlan,
	}

	if auth, ok := AuthContextFrom(r.Context()); ok && auth.Role == models.RoleStudent {
		studentID, err := primitive.ObjectIDFromHex(auth.UserID)
		if err != nil {
			respondBadRequest(w, "invalid user id in token", nil)
			return nil, false
		}
		input.StudentID = &studentID
	} else {
		if req.Customer == nil {
			respondBadRequest(w, "customer info is required for guest bookings", nil)
			return nil, false
		}
		if errs := validateStruct(req.Customer); len(errs) > 0 {
			respondBadRequest(w, "validation failed", errs)
			return nil, false
		}
		input.Customer = &models.CustomerInfo{
			FullName: req.Customer.FullName,
			Email:    req.Customer.Email,
			Phone:    req.Customer.Phone,
		}
	}
	return input, true
}
