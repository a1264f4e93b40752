package services

import "errors"

// Sentinel errors the handler layer translates into HTTP responses.
var (
	// ErrNotFound means a referenced hostel, room, user or booking does
	// not exist. Surfaced as 404, never retried.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden means the caller's role or ownership check failed for
	// a status-mutating operation. Surfaced as 403.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput covers request shapes the boundary validation
	// could not rule out, e.g. a guest booking without customer info.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPaymentInitFailed means the pending booking was persisted but
	// the gateway call failed. The booking is intentionally not rolled
	// back; the row carries no risk and is recoverable by reference.
	ErrPaymentInitFailed = errors.New("payment initialization failed")

	// ErrPaymentNotSuccessful means the gateway verified the transaction
	// as something other than success. The booking stays pending.
	ErrPaymentNotSuccessful = errors.New("payment not successful")

	// ErrNotPartialPayment means a completion flow was attempted on a
	// booking that is not on a partial plan.
	ErrNotPartialPayment = errors.New("booking is not on a partial payment plan")

	// ErrInvalidSignature means a webhook payload failed HMAC
	// validation. Processing stops before any state is touched.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrInvalidTransition means the requested manual status change is
	// not legal from the booking's current status.
	ErrInvalidTransition = errors.New("invalid booking status transition")
)
