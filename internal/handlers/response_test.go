package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/knasante/hostelpay-gobackend/internal/paystack"
	"github.com/knasante/hostelpay-gobackend/internal/services"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrNotFound, http.StatusNotFound},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrInvalidInput, http.StatusBadRequest},
		{services.ErrInvalidSignature, http.StatusBadRequest},
		{services.ErrNotPartialPayment, http.StatusBadRequest},
		{services.ErrInvalidTransition, http.StatusConflict},
		{services.ErrPaymentNotSuccessful, http.StatusPaymentRequired},
		{paystack.ErrGatewayRejected, http.StatusBadRequest},
		{paystack.ErrGatewayUnavailable, http.StatusBadGateway},
		{services.ErrPaymentInitFailed, http.StatusBadGateway},
		{errors.New("something else"), http.StatusInternalServerError},
		// Wrapped sentinels map the same as bare ones.
		{fmt.Errorf("booking xyz: %w", services.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: gateway status %q", services.ErrPaymentNotSuccessful, "failed"), http.StatusPaymentRequired},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondError(rec, zap.NewNop(), tt.err)

			assert.Equal(t, tt.want, rec.Code)

			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestRespondErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, zap.NewNop(), errors.New("dial tcp 10.0.0.5:27017: connection refused"))

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Message)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}
