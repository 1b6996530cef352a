// Package gateway talks to the card payment processor and verifies its callbacks.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SignatureHeader carries the hex HMAC-SHA256 of the callback body.
const SignatureHeader = "X-Gateway-Signature"

var ErrBadSignature = errors.New("gateway: signature tidak valid")

// DeclinedError is a definitive refusal of the charge by the processor.
// Any other Authorize error leaves the outcome unknown.
type DeclinedError struct {
	StatusCode int
	Message    string
}

func (e DeclinedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway menolak charge (HTTP %d)", e.StatusCode)
	}
	return fmt.Sprintf("gateway menolak charge (HTTP %d): %s", e.StatusCode, e.Message)
}

func IsDeclined(err error) bool {
	var target DeclinedError
	return errors.As(err, &target)
}

type ChargeRequest struct {
	Reference  string `json:"reference"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	HolderName string `json:"holder_name"`
	Number     string `json:"number"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
}

type ChargeResponse struct {
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	Raw           json.RawMessage `json:"-"`
}

// Callback is the asynchronous outcome notification.
type Callback struct {
	GatewayTransactionID string `json:"gateway_transaction_id"`
	Reference            string `json:"reference"`
	Status               string `json:"status"`
	Message              string `json:"message"`
}

type Client interface {
	Authorize(ctx context.Context, req ChargeRequest) (ChargeResponse, error)
}

type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTP(baseURL, apiKey string) Client {
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *httpClient) Authorize(ctx context.Context, req ChargeRequest) (ChargeResponse, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return ChargeResponse{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/charges", bytes.NewReader(b))
	if err != nil {
		return ChargeResponse{}, err
	}
	httpReq.SetBasicAuth(c.apiKey, "")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.Reference)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return ChargeResponse{}, fmt.Errorf("gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ChargeResponse{}, fmt.Errorf("gateway: read body: %w", err)
	}
	if declined(resp.StatusCode) {
		var body struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &body)
		return ChargeResponse{}, DeclinedError{StatusCode: resp.StatusCode, Message: body.Message}
	}
	if resp.StatusCode >= 300 {
		return ChargeResponse{}, fmt.Errorf("gateway create charge failed: %s", resp.Status)
	}

	var out ChargeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return ChargeResponse{}, fmt.Errorf("gateway: decode: %w", err)
	}
	if out.TransactionID == "" {
		return ChargeResponse{}, errors.New("gateway: empty transaction id")
	}
	out.Raw = raw
	return out, nil
}

// declined reports 4xx answers except the ones that can succeed on retry.
func declined(code int) bool {
	if code < 400 || code >= 500 {
		return false
	}
	switch code {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return false
	}
	return true
}

// Sign returns the hex signature for body, used by tests and local tooling.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks sigHeader against the HMAC of rawBody.
func VerifySignature(secret, sigHeader string, rawBody []byte) error {
	if secret == "" || strings.TrimSpace(sigHeader) == "" {
		return ErrBadSignature
	}
	got, err := hex.DecodeString(strings.TrimSpace(sigHeader))
	if err != nil {
		return ErrBadSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrBadSignature
	}
	return nil
}

// ParseCallback verifies and decodes a callback body.
func ParseCallback(secret, sigHeader string, rawBody []byte) (Callback, error) {
	if err := VerifySignature(secret, sigHeader, rawBody); err != nil {
		return Callback{}, err
	}
	var cb Callback
	if err := json.Unmarshal(rawBody, &cb); err != nil {
		return Callback{}, fmt.Errorf("gateway: decode callback: %w", err)
	}
	cb.Status = strings.ToLower(strings.TrimSpace(cb.Status))
	return cb, nil
}
