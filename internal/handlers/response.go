package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/knasante/hostelpay-gobackend/internal/paystack"
	"github.com/knasante/hostelpay-gobackend/internal/services"
)

// Response is the JSON envelope every endpoint returns. Failure bodies
// carry a message string and never raw error internals.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, success bool, message string, data, errs any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(Response{
		Success: success,
		Message: message,
		Data:    data,
		Errors:  errs,
	})
}

func respondOK(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, true, message, data, nil)
}

func respondCreated(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusCreated, true, message, data, nil)
}

func respondBadRequest(w http.ResponseWriter, message string, errs any) {
	writeJSON(w, http.StatusBadRequest, false, message, nil, errs)
}

// respondError maps service and gateway sentinels onto the HTTP status
// taxonomy. Unknown errors become an opaque 500.
func respondError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, false, err.Error(), nil, nil)
	case errors.Is(err, services.ErrForbidden):
		writeJSON(w, http.StatusForbidden, false, "you are not allowed to perform this action", nil, nil)
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidSignature),
		errors.Is(err, services.ErrNotPartialPayment):
		writeJSON(w, http.StatusBadRequest, false, err.Error(), nil, nil)
	case errors.Is(err, services.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, false, err.Error(), nil, nil)
	case errors.Is(err, services.ErrPaymentNotSuccessful):
		writeJSON(w, http.StatusPaymentRequired, false, err.Error(), nil, nil)
	case errors.Is(err, paystack.ErrGatewayRejected):
		writeJSON(w, http.StatusBadRequest, false, err.Error(), nil, nil)
	case errors.Is(err, paystack.ErrGatewayUnavailable),
		errors.Is(err, services.ErrPaymentInitFailed):
		writeJSON(w, http.StatusBadGateway, false, err.Error(), nil, nil)
	default:
		log.Error("Unhandled error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, false, "internal server error", nil, nil)
	}
}
