package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/knasante/hostelpay-gobackend/internal/services"
)

// signatureHeader carries the gateway's HMAC of the raw webhook body.
const signatureHeader = "x-paystack-signature"

// PaymentHandler exposes the verify and webhook endpoints.
type PaymentHandler struct {
	svc        *services.BookingService
	reconciler *services.WebhookReconciler
	log        *zap.Logger
}

func NewPaymentHandler(svc *services.BookingService, reconciler *services.WebhookReconciler, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		svc:        svc,
		reconciler: reconciler,
		log:        log.With(zap.String("handler", "payment")),
	}
}

// Verify is the synchronous confirm path. The reference itself is the
// capability: it is unguessable and only the gateway's success record
// for it can confirm the booking.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]
	if reference == "" {
		respondBadRequest(w, "payment reference is required", nil)
		return
	}

	detail, err := h.svc.VerifyPayment(r.Context(), reference)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondOK(w, "payment verified", detail)
}

// VerifyCompletion confirms a balance-settling payment.
func (h *PaymentHandler) VerifyCompletion(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]
	if reference == "" {
		respondBadRequest(w, "payment reference is required", nil)
		return
	}

	detail, err := h.svc.VerifyCompletion(r.Context(), reference)
	if err != nil {
		respondError(w, h.log, err)
		return
	}
	respondOK(w, "completion payment verified", detail)
}

// Webhook receives gateway-pushed events. The raw body is read before
// any parsing so the signature is computed over exactly what was sent.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondBadRequest(w, "unreadable payload", nil)
		return
	}

	err = h.reconciler.HandleWebhook(r.Context(), payload, r.Header.Get(signatureHeader))
	if err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			h.log.Warn("Rejected webhook with bad signature",
				zap.String("remote_addr", r.RemoteAddr),
			)
		}
		respondError(w, h.log, err)
		return
	}
	respondOK(w, "webhook processed", nil)
}
