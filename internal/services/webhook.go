package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/knasante/hostelpay-gobackend/internal/paystack"
)

// WebhookReconciler applies gateway-pushed events so a booking is
// confirmed even when the payer's browser never comes back to the
// verify redirect. It reuses the state machine's conditional
// transitions, so it is safe to run concurrently with a user-triggered
// verify for the same reference.
type WebhookReconciler struct {
	svc *BookingService
	log *zap.Logger
}

func NewWebhookReconciler(svc *BookingService, log *zap.Logger) *WebhookReconciler {
	return &WebhookReconciler{
		svc: svc,
		log: log.With(zap.String("service", "webhook")),
	}
}

// HandleWebhook validates the signature against the raw payload before
// anything else; a mismatch fails closed with no state touched.
func (r *WebhookReconciler) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if !r.svc.gateway.ValidateWebhookSignature(payload, signature) {
		r.log.Warn("Webhook signature mismatch, rejecting")
		return ErrInvalidSignature
	}

	var event paystack.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: malformed webhook payload", ErrInvalidInput)
	}

	switch event.Event {
	case paystack.EventChargeSuccess:
		return r.handleChargeSuccess(ctx, event.Data)
	case paystack.EventChargeFailed:
		return r.handleChargeFailed(ctx, event.Data)
	default:
		r.log.Info("Ignoring webhook event",
			zap.String("event", event.Event),
			zap.String("reference", event.Data.Reference),
		)
		return nil
	}
}

func (r *WebhookReconciler) handleChargeSuccess(ctx context.Context, data paystack.WebhookData) error {
	if data.Metadata.IsCompletionPayment {
		_, err := r.svc.settleByReference(ctx, data.Reference, data.AmountMinor)
		return err
	}
	_, err := r.svc.confirmByReference(ctx, data.Reference, data.ID, data.AmountMinor)
	return err
}

func (r *WebhookReconciler) handleChargeFailed(ctx context.Context, data paystack.WebhookData) error {
	if data.Metadata.IsCompletionPayment {
		// A failed balance payment leaves the booking as it was; the
		// student can retry the completion flow with a fresh reference.
		r.log.Warn("Completion charge failed",
			zap.String("completion_reference", data.Reference),
		)
		return nil
	}

	cancelled, err := r.svc.bookings.CancelPending(ctx, data.Reference)
	if err != nil {
		return err
	}
	if cancelled {
		// The room was never held for a pending booking, so
		// availability is left alone.
		r.log.Info("Pending booking cancelled after failed charge",
			zap.String("payment_reference", data.Reference),
		)
	} else {
		r.log.Warn("Failed charge for a booking that is not pending, ignoring",
			zap.String("payment_reference", data.Reference),
		)
	}
	return nil
}
