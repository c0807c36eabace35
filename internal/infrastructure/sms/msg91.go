package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mridang-api/internal/config"
)

const defaultMSG91URL = "https://api.msg91.com/api/sendhttp.php"

// MSG91 sends SMS through the MSG91 sendhttp API.
type MSG91 struct {
	authKey    string
	senderID   string
	route      string
	templateID string
	baseURL    string
	httpClient *http.Client
}

// NewMSG91 returns a client, or nil when no auth key is configured.
func NewMSG91(cfg *config.Config) *MSG91 {
	if cfg.MSG91AuthKey == "" {
		return nil
	}
	baseURL := cfg.MSG91BaseURL
	if baseURL == "" {
		baseURL = defaultMSG91URL
	}
	timeout := cfg.SMSTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &MSG91{
		authKey:    cfg.MSG91AuthKey,
		senderID:   cfg.MSG91SenderID,
		route:      cfg.MSG91Route,
		templateID: cfg.MSG91TemplateID,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SendSMS posts the message and returns the MSG91 request id.
func (c *MSG91) SendSMS(ctx context.Context, to, message string) (string, error) {
	form := url.Values{}
	form.Set("authkey", c.authKey)
	form.Set("mobiles", to)
	form.Set("message", message)
	form.Set("sender", c.senderID)
	form.Set("route", c.route)
	form.Set("country", "91")
	if c.templateID != "" {
		form.Set("DLT_TE_ID", c.templateID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build msg91 request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &GatewayError{Kind: KindUnavailable, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", &GatewayError{Kind: KindUnavailable, Status: resp.StatusCode, Err: err}
	}
	body := strings.TrimSpace(string(raw))
	parsed := parseResponse(body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && body != "" && !parsed.isError {
		return parsed.message, nil
	}
	return "", &GatewayError{
		Kind:   Classify(parsed.code, parsed.message),
		Code:   parsed.code,
		Status: resp.StatusCode,
		Body:   body,
	}
}

type msg91Response struct {
	message string
	code    string
	isError bool
}

// parseResponse understands both the JSON envelope ({"type":"error","message":...,"code":...})
// and the bare-text reply of the legacy endpoint, where the body is the request id on success.
func parseResponse(body string) msg91Response {
	var env struct {
		Type    string      `json:"type"`
		MsgType string      `json:"msgType"`
		Message string      `json:"message"`
		Msg     string      `json:"msg"`
		Code    json.Number `json:"code"`
	}
	if strings.HasPrefix(body, "{") && json.Unmarshal([]byte(body), &env) == nil {
		typ := strings.ToLower(env.Type + env.MsgType)
		msg := env.Message
		if msg == "" {
			msg = env.Msg
		}
		return msg91Response{
			message: msg,
			code:    env.Code.String(),
			isError: strings.Contains(typ, "error"),
		}
	}
	return msg91Response{
		message: body,
		isError: strings.Contains(strings.ToLower(body), "error"),
	}
}

var (
	configCodes  = map[string]bool{"105": true, "106": true, "107": true, "401": true, "418": true}
	balanceCodes = map[string]bool{"108": true, "301": true}
	senderCodes  = map[string]bool{"103": true, "203": true}
)

// Classify maps a vendor error code and message to a FailureKind.
// Codes win over message text; message matching is case-insensitive.
func Classify(code, message string) FailureKind {
	switch {
	case balanceCodes[code]:
		return KindBalance
	case senderCodes[code]:
		return KindSender
	case configCodes[code]:
		return KindConfig
	}

	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "balance"), strings.Contains(m, "credit"):
		return KindBalance
	case strings.Contains(m, "sender"):
		return KindSender
	case strings.Contains(m, "auth"),
		strings.Contains(m, "whitelist"),
		strings.Contains(m, "route"),
		strings.Contains(m, "template"),
		strings.Contains(m, "dlt"):
		return KindConfig
	}
	return KindUnknown
}
