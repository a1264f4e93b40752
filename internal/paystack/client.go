package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.paystack.co"

// ErrGatewayUnavailable covers transport and decode failures talking to
// Paystack. Callers may retry; no booking state has changed.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// ErrGatewayRejected means Paystack understood the request and declined
// it (status:false in the response envelope).
var ErrGatewayRejected = errors.New("payment gateway rejected request")

// Client wraps the Paystack HTTP API. It owns no booking state.
type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

// NewClient returns a gateway client. baseURL is overridable for tests;
// empty means the live API.
func NewClient(secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		secretKey: secretKey,
		baseURL:   baseURL,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

// MinorUnits converts a major-unit amount to the minor units (pesewas)
// Paystack expects. Every call site must go through this helper so the
// charged and recorded amounts cannot drift by a rounding difference.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Metadata is echoed back by the gateway on verify and webhook events.
type Metadata struct {
	BookingID           string `json:"booking_id,omitempty"`
	IsCompletionPayment bool   `json:"is_completion_payment,omitempty"`
}

// InitializeRequest starts a hosted checkout transaction.
type InitializeRequest struct {
	Email       string   `json:"email"`
	AmountMinor int64    `json:"amount"`
	Reference   string   `json:"reference"`
	CallbackURL string   `json:"callback_url,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	Channels    []string `json:"channels,omitempty"`
	Metadata    Metadata `json:"metadata"`
}

// InitializeResponse carries the hosted checkout handles. The access
// code is returned to the client and never persisted server-side.
type InitializeResponse struct {
	AccessCode       string `json:"access_code"`
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

type mobileMoney struct {
	Phone    string `json:"phone"`
	Provider string `json:"provider"`
}

// ChargeRequest charges a mobile money wallet directly, without the
// hosted checkout page.
type ChargeRequest struct {
	Email       string   `json:"email"`
	AmountMinor int64    `json:"amount"`
	Reference   string   `json:"reference"`
	Currency    string   `json:"currency,omitempty"`
	Metadata    Metadata `json:"metadata"`

	Network     string `json:"-"`
	PhoneNumber string `json:"-"`

	MobileMoney mobileMoney `json:"mobile_money"`
}

// ChargeResponse reports the charge state, typically pay_offline with a
// prompt the payer must approve on their handset.
type ChargeResponse struct {
	Status      string `json:"status"`
	DisplayText string `json:"display_text"`
	Reference   string `json:"reference"`
}

// VerifyResponse is the gateway's view of a transaction.
type VerifyResponse struct {
	ID          int64    `json:"id"`
	Status      string   `json:"status"`
	Reference   string   `json:"reference"`
	AmountMinor int64    `json:"amount"`
	Channel     string   `json:"channel"`
	PaidAt      string   `json:"paid_at"`
	Metadata    Metadata `json:"metadata"`
}

// StatusSuccess is the only verify status that confirms a booking.
const StatusSuccess = "success"

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("%w: encode request: %v", ErrGatewayUnavailable, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrGatewayUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrGatewayUnavailable, err)
	}
	if !env.Status {
		return fmt.Errorf("%w: %s", ErrGatewayRejected, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decode data: %v", ErrGatewayUnavailable, err)
		}
	}
	return nil
}

// InitializeTransaction starts a hosted payment on the gateway.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	var out InitializeResponse
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChargeMobileMoney charges a wallet directly.
func (c *Client) ChargeMobileMoney(ctx context.Context, req ChargeRequest) (*ChargeResponse, error) {
	req.MobileMoney = mobileMoney{Phone: req.PhoneNumber, Provider: req.Network}
	var out ChargeResponse
	if err := c.do(ctx, http.MethodPost, "/charge", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyTransaction fetches the gateway's record for a reference. The
// call is a read, so one retry on transport failure is safe.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResponse, error) {
	var out VerifyResponse
	err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &out)
	if err != nil && errors.Is(err, ErrGatewayUnavailable) {
		err = c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &out)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateWebhookSignature checks the x-paystack-signature header
// against the raw request body using the client's secret key.
func (c *Client) ValidateWebhookSignature(payload []byte, signature string) bool {
	return ValidateSignature(payload, signature, c.secretKey)
}
