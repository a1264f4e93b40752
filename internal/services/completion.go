package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/knasante/hostelpay-gobackend/internal/models"
	"github.com/knasante/hostelpay-gobackend/internal/paystack"
	"github.com/knasante/hostelpay-gobackend/internal/store"
)

// CompletionResult is returned when a balance-settling payment is
// started on a partial-plan booking.
type CompletionResult struct {
	BookingID           string  `json:"booking_id"`
	CompletionReference string  `json:"completion_reference"`
	AmountDue           float64 `json:"amount_due"`
	AccessCode          string  `json:"access_code,omitempty"`
	AuthorizationURL    string  `json:"authorization_url,omitempty"`
	DisplayText         string  `json:"display_text,omitempty"`
}

// InitiateCompletion starts a hosted checkout for the outstanding
// balance of a partial-plan booking. Only the booking's own student or
// an admin may initiate it.
func (s *BookingService) InitiateCompletion(ctx context.Context, auth AuthContext, bookingID primitive.ObjectID) (*CompletionResult, error) {
	booking, reference, amountDue, email, err := s.prepareCompletion(ctx, auth, bookingID)
	if err != nil {
		return nil, err
	}

	res, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:       email,
		AmountMinor: paystack.MinorUnits(amountDue),
		Reference:   reference,
		CallbackURL: s.frontendURL + "/payments/completion/" + reference,
		Currency:    s.currency,
		Channels:    []string{"mobile_money"},
		Metadata:    paystack.Metadata{BookingID: booking.ID.Hex(), IsCompletionPayment: true},
	})
	if err != nil {
		s.log.Error("Gateway completion initialization failed",
			zap.Error(err),
			zap.String("completion_reference", reference),
		)
		return nil, fmt.Errorf("%w: %v", ErrPaymentInitFailed, err)
	}

	s.log.Info("Completion payment initialized",
		zap.String("booking_id", booking.ID.Hex()),
		zap.String("completion_reference", reference),
		zap.Float64("amount_due", amountDue),
	)

	return &CompletionResult{
		BookingID:           booking.ID.Hex(),
		CompletionReference: reference,
		AmountDue:           amountDue,
		AccessCode:          res.AccessCode,
		AuthorizationURL:    res.AuthorizationURL,
	}, nil
}

// InitiateMobileCompletion settles the balance through a direct mobile
// money charge instead of the hosted page.
func (s *BookingService) InitiateMobileCompletion(ctx context.Context, auth AuthContext, bookingID primitive.ObjectID, network, phoneNumber string) (*CompletionResult, error) {
	if network == "" || phoneNumber == "" {
		return nil, fmt.Errorf("%w: mobile network and phone number are required", ErrInvalidInput)
	}

	booking, reference, amountDue, email, err := s.prepareCompletion(ctx, auth, bookingID)
	if err != nil {
		return nil, err
	}

	res, err := s.gateway.ChargeMobileMoney(ctx, paystack.ChargeRequest{
		Email:       email,
		AmountMinor: paystack.MinorUnits(amountDue),
		Reference:   reference,
		Currency:    s.currency,
		Network:     network,
		PhoneNumber: phoneNumber,
		Metadata:    paystack.Metadata{BookingID: booking.ID.Hex(), IsCompletionPayment: true},
	})
	if err != nil {
		s.log.Error("Mobile completion charge failed",
			zap.Error(err),
			zap.String("completion_reference", reference),
		)
		return nil, fmt.Errorf("%w: %v", ErrPaymentInitFailed, err)
	}

	return &CompletionResult{
		BookingID:           booking.ID.Hex(),
		CompletionReference: reference,
		AmountDue:           amountDue,
		DisplayText:         res.DisplayText,
	}, nil
}

// VerifyCompletion confirms a balance payment with the gateway and
// upgrades the plan to fully paid. The booking status itself is not
// touched: a confirmed booking stays confirmed.
func (s *BookingService) VerifyCompletion(ctx context.Context, reference string) (*BookingDetail, error) {
	v, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	if v.Status != paystack.StatusSuccess {
		return nil, fmt.Errorf("%w: gateway status %q", ErrPaymentNotSuccessful, v.Status)
	}

	booking, err := s.settleByReference(ctx, reference, v.AmountMinor)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(ctx, booking), nil
}

// settleByReference applies the partial→full transition, shared with the
// webhook path.
func (s *BookingService) settleByReference(ctx context.Context, reference string, amountMinor int64) (*models.Booking, error) {
	booking, err := s.bookings.FindByCompletionReference(ctx, reference)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("booking for completion reference %s: %w", reference, ErrNotFound)
		}
		return nil, err
	}

	if booking.PaymentStatus == models.PaymentStatusFull && booking.CompletionPaymentVerified {
		s.log.Info("Balance already settled, skipping",
			zap.String("completion_reference", reference),
		)
		return booking, nil
	}

	amountPaid := float64(amountMinor) / 100
	won, err := s.bookings.SettleBalance(ctx, reference, amountPaid)
	if err != nil {
		return nil, err
	}
	if won {
		s.log.Info("Booking balance settled",
			zap.String("booking_id", booking.ID.Hex()),
			zap.String("completion_reference", reference),
			zap.Float64("amount_paid", amountPaid),
		)
	}

	updated, err := s.bookings.FindByCompletionReference(ctx, reference)
	if err != nil {
		return booking, nil
	}
	return updated, nil
}

// prepareCompletion runs the shared completion prechecks and persists
// the completion reference before the gateway call.
func (s *BookingService) prepareCompletion(ctx context.Context, auth AuthContext, bookingID primitive.ObjectID) (*models.Booking, string, float64, string, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", 0, "", fmt.Errorf("booking %s: %w", bookingID.Hex(), ErrNotFound)
		}
		return nil, "", 0, "", err
	}

	if !auth.IsAdmin() && !isBookingStudent(booking, auth) {
		return nil, "", 0, "", ErrForbidden
	}
	if booking.PaymentStatus != models.PaymentStatusPartial {
		return nil, "", 0, "", fmt.Errorf("booking %s: %w", bookingID.Hex(), ErrNotPartialPayment)
	}

	email, err := s.payerEmail(ctx, booking.StudentID, booking.CustomerInfo)
	if err != nil {
		return nil, "", 0, "", err
	}

	amountDue := outstandingBalance(booking)
	reference := mintReference("CMP", booking.ID)
	if err := s.bookings.SetCompletionReference(ctx, booking.ID, reference); err != nil {
		return nil, "", 0, "", err
	}
	return booking, reference, amountDue, email, nil
}

// outstandingBalance prefers the recorded amount paid over the legacy
// assumption that exactly half was collected, so the remaining amount
// stays correct even if the split ratio ever changes.
func outstandingBalance(booking *models.Booking) float64 {
	if booking.AmountPaid > 0 {
		return booking.TotalAmount - booking.AmountPaid
	}
	return booking.TotalAmount / 2
}
