// Package client calls the verification API over HTTP. It is the Gateway the
// checkout controller uses from the terminal client.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mridang-api/internal/application/checkout"
	"github.com/mridang-api/internal/domain"
)

// APIError is a non-2xx reply. Message is the server's "error" field.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string { return e.Message }

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

var _ checkout.Gateway = (*Client)(nil)

type sendResponse struct {
	Message   string `json:"message"`
	ExpiresIn string `json:"expiresIn"`
	OTP       string `json:"otp"`
}

type verifyResponse struct {
	Verified          bool   `json:"verified"`
	VerificationToken string `json:"verificationToken"`
}

type checkoutResponse struct {
	OrderRef string `json:"orderRef"`
}

func (c *Client) SendCode(ctx context.Context, ch domain.Channel, identifier string) (*checkout.SendReceipt, error) {
	path, body := "/send-otp", map[string]string{"email": identifier}
	if ch == domain.ChannelSMS {
		path, body = "/send-sms-otp", map[string]string{"phone": identifier}
	}
	var out sendResponse
	if err := c.post(ctx, path, body, &out); err != nil {
		return nil, err
	}
	return &checkout.SendReceipt{Message: out.Message, ExpiresIn: out.ExpiresIn, MockCode: out.OTP}, nil
}

func (c *Client) VerifyCode(ctx context.Context, ch domain.Channel, identifier, code string) (string, error) {
	path, body := "/verify-otp", map[string]string{"email": identifier, "otp": code}
	if ch == domain.ChannelSMS {
		path, body = "/verify-sms-otp", map[string]string{"phone": identifier, "otp": code}
	}
	var out verifyResponse
	if err := c.post(ctx, path, body, &out); err != nil {
		return "", err
	}
	return out.VerificationToken, nil
}

func (c *Client) Checkout(ctx context.Context, form domain.CheckoutForm) (*domain.Order, error) {
	var out checkoutResponse
	if err := c.post(ctx, "/checkout", form, &out); err != nil {
		return nil, err
	}
	return &domain.Order{Ref: out.OrderRef, Email: form.Email, Phone: form.Phone, Country: form.Country}, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error, Fields: e.Fields}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
