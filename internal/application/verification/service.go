package verification

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mridang-api/internal/domain"
	"github.com/mridang-api/internal/infrastructure/metrics"
	"github.com/mridang-api/internal/pkg/identifier"
	"github.com/mridang-api/internal/pkg/otpcode"
)

// Client-facing messages.
const (
	MsgEmailRequired    = "Email is required"
	MsgInvalidEmail     = "Invalid email format"
	MsgEmailOTPRequired = "Email and OTP are required"
	MsgPhoneRequired    = "Phone number is required"
	MsgInvalidPhone     = "Please enter a valid phone number"
	MsgPhoneOTPRequired = "Phone number and OTP are required"
	MsgNotFound         = "OTP not found. Please request a new one."
	MsgExpired          = "OTP has expired. Please request a new one."
	MsgInvalidCode      = "Invalid OTP. Please try again."
	MsgTooManyAttempts  = "Too many invalid attempts. Please request a new one."
	MsgSendFailed       = "Failed to send OTP. Please try again."
	MsgVerifyFailed     = "Failed to verify OTP. Please try again."
	MsgEmailSent        = "OTP sent successfully"
	MsgSMSSent          = "OTP sent successfully to your mobile number"
	MsgMockSent         = "OTP sent successfully (mock mode)"
	MsgEmailVerified    = "OTP verified successfully"
	MsgPhoneVerified    = "Phone number verified successfully"
)

// Store persists at most one pending verification per (channel, identifier).
//
// DeleteIfCode and IncrementAttempts act only while the stored record still
// holds code, checked and applied atomically. Both return an error wrapping
// domain.ErrNotFound when no live record exists and domain.ErrConflict when a
// newer code has replaced it.
type Store interface {
	Put(ctx context.Context, v *domain.Verification) error
	Get(ctx context.Context, channel domain.Channel, identifier string) (*domain.Verification, error)
	DeleteIfCode(ctx context.Context, channel domain.Channel, identifier, code string) error
	IncrementAttempts(ctx context.Context, channel domain.Channel, identifier, code string) (int, error)
}

// Delivery hands a freshly issued code to its recipient.
// Errors must be *domain.Error so the handler can show a safe message.
type Delivery interface {
	Deliver(ctx context.Context, identifier, code string) (Receipt, error)
}

// Receipt describes a completed delivery.
type Receipt struct {
	Mock      bool
	RequestID string
}

// TokenIssuer signs proof that an identifier was verified.
type TokenIssuer interface {
	Sign(channel domain.Channel, identifier string) (string, error)
}

// SendResult is returned by a successful send.
type SendResult struct {
	Channel    domain.Channel
	Identifier string
	Message    string
	ExpiresIn  string
	// Code is only set in mock mode.
	Code       string
	RequestID  string
}

// VerifyResult is returned by a successful verification.
type VerifyResult struct {
	Channel    domain.Channel
	Identifier string
	Message    string
	Token      string
}

type Service interface {
	SendEmail(ctx context.Context, email string) (*SendResult, error)
	VerifyEmail(ctx context.Context, email, code string) (*VerifyResult, error)
	SendSMS(ctx context.Context, phone string) (*SendResult, error)
	VerifySMS(ctx context.Context, phone, code string) (*VerifyResult, error)
}

// ServiceDeps groups the collaborators of the verification service.
// Tokens may be nil, in which case successful verifications carry no token.
type ServiceDeps struct {
	Store       Store
	Email       Delivery
	SMS         Delivery
	Tokens      TokenIssuer
	TTL         time.Duration
	MaxAttempts int
	Now         func() time.Time
	Generate    func() (string, error)
}

type service struct {
	store       Store
	email       Delivery
	sms         Delivery
	tokens      TokenIssuer
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	generate    func() (string, error)
}

func NewService(d ServiceDeps) Service {
	s := &service{
		store:       d.Store,
		email:       d.Email,
		sms:         d.SMS,
		tokens:      d.Tokens,
		ttl:         d.TTL,
		maxAttempts: d.MaxAttempts,
		now:         d.Now,
		generate:    d.Generate,
	}
	if s.ttl <= 0 {
		s.ttl = 10 * time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.generate == nil {
		s.generate = otpcode.Generate
	}
	return s
}

func (s *service) SendEmail(ctx context.Context, email string) (*SendResult, error) {
	if strings.TrimSpace(email) == "" {
		metrics.OTPSent.WithLabelValues(string(domain.ChannelEmail), "invalid").Inc()
		return nil, domain.NewError(domain.ErrBadRequest, MsgEmailRequired, nil)
	}
	normalized, err := identifier.NormalizeEmail(email)
	if err != nil {
		metrics.OTPSent.WithLabelValues(string(domain.ChannelEmail), "invalid").Inc()
		return nil, domain.NewError(domain.ErrBadRequest, MsgInvalidEmail, err)
	}
	res, err := s.send(ctx, domain.ChannelEmail, normalized, s.email)
	if err != nil {
		return nil, err
	}
	res.Message = MsgEmailSent
	if res.Code != "" {
		res.Message = MsgMockSent
	}
	return res, nil
}

func (s *service) SendSMS(ctx context.Context, phone string) (*SendResult, error) {
	if strings.TrimSpace(phone) == "" {
		metrics.OTPSent.WithLabelValues(string(domain.ChannelSMS), "invalid").Inc()
		return nil, domain.NewError(domain.ErrBadRequest, MsgPhoneRequired, nil)
	}
	normalized, err := identifier.NormalizePhone(phone)
	if err != nil {
		metrics.OTPSent.WithLabelValues(string(domain.ChannelSMS), "invalid").Inc()
		return nil, domain.NewError(domain.ErrBadRequest, MsgInvalidPhone, err)
	}
	res, err := s.send(ctx, domain.ChannelSMS, normalized, s.sms)
	if err != nil {
		return nil, err
	}
	res.Message = MsgSMSSent
	if res.Code != "" {
		res.Message = MsgMockSent
	}
	return res, nil
}

func (s *service) VerifyEmail(ctx context.Context, email, code string) (*VerifyResult, error) {
	email, code = strings.TrimSpace(email), strings.TrimSpace(code)
	if email == "" || code == "" {
		metrics.OTPVerified.WithLabelValues(string(domain.ChannelEmail), "bad_request").Inc()
		return nil, domain.NewError(domain.ErrBadRequest, MsgEmailOTPRequired, nil)
	}
	// A malformed address can never have been issued a code.
	normalized, err := identifier.NormalizeEmail(email)
	if err != nil {
		metrics.OTPVerified.WithLabelValues(string(domain.ChannelEmail), "not_found").Inc()
		return nil, domain.NewError(domain.ErrNotFound, MsgNotFound, err)
	}
	res, err := s.verify(ctx, domain.ChannelEmail, normalized, code)
	if err != nil {
		return nil, err
	}
	res.Message = MsgEmailVerified
	return res, nil
}

func (s *service) VerifySMS(ctx context.Context, phone, code string) (*VerifyResult, error) {
	phone, code = strings.TrimSpace(phone), strings.TrimSpace(code)
	if phone == "" || code == "" {
		metrics.OTPVerified.WithLabelValues(string(domain.ChannelSMS), "bad_request").Inc()
		return nil, domain.NewError(domain.ErrBadRequest, MsgPhoneOTPRequired, nil)
	}
	normalized, err := identifier.NormalizePhone(phone)
	if err != nil {
		metrics.OTPVerified.WithLabelValues(string(domain.ChannelSMS), "not_found").Inc()
		return nil, domain.NewError(domain.ErrNotFound, MsgNotFound, err)
	}
	res, err := s.verify(ctx, domain.ChannelSMS, normalized, code)
	if err != nil {
		return nil, err
	}
	res.Message = MsgPhoneVerified
	return res, nil
}

// send issues a fresh code, overwriting any pending one, and delivers it.
// If delivery fails the record is removed again unless a newer send replaced it.
func (s *service) send(ctx context.Context, ch domain.Channel, id string, d Delivery) (*SendResult, error) {
	code, err := s.generate()
	if err != nil {
		metrics.OTPSent.WithLabelValues(string(ch), "failed").Inc()
		return nil, domain.NewError(domain.ErrInternal, MsgSendFailed, fmt.Errorf("generate code: %w", err))
	}

	rec := &domain.Verification{
		Identifier: id,
		Channel:    ch,
		Code:       code,
		ExpiresAt:  s.now().Add(s.ttl),
	}
	if err := s.store.Put(ctx, rec); err != nil {
		metrics.OTPSent.WithLabelValues(string(ch), "failed").Inc()
		return nil, domain.NewError(domain.ErrInternal, MsgSendFailed, fmt.Errorf("store verification: %w", err))
	}

	receipt, err := d.Deliver(ctx, id, code)
	if err != nil {
		metrics.OTPSent.WithLabelValues(string(ch), "failed").Inc()
		slog.Error("otp delivery failed", "channel", ch, "identifier", id, "err", err)
		s.rollback(ctx, ch, id, code)
		var de *domain.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, domain.NewError(domain.ErrDelivery, MsgSendFailed, err)
	}

	res := &SendResult{
		Channel:    ch,
		Identifier: id,
		ExpiresIn:  HumanizeTTL(s.ttl),
		RequestID:  receipt.RequestID,
	}
	if receipt.Mock {
		res.Code = code
		metrics.OTPSent.WithLabelValues(string(ch), "mock").Inc()
		slog.Warn("otp issued in mock mode, nothing was delivered", "channel", ch, "identifier", id)
	} else {
		metrics.OTPSent.WithLabelValues(string(ch), "sent").Inc()
		slog.Info("otp sent", "channel", ch, "identifier", id, "request_id", receipt.RequestID)
	}
	return res, nil
}

// rollback removes an undelivered record unless a newer send replaced it.
func (s *service) rollback(ctx context.Context, ch domain.Channel, id, code string) {
	err := s.store.DeleteIfCode(context.WithoutCancel(ctx), ch, id, code)
	if err != nil && !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrConflict) {
		slog.Warn("failed to roll back undelivered otp", "channel", ch, "identifier", id, "err", err)
	}
}

func (s *service) verify(ctx context.Context, ch domain.Channel, id, code string) (*VerifyResult, error) {
	rec, err := s.store.Get(ctx, ch, id)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.OTPVerified.WithLabelValues(string(ch), "not_found").Inc()
		return nil, domain.NewError(domain.ErrNotFound, MsgNotFound, nil)
	}
	if err != nil {
		return nil, domain.NewError(domain.ErrInternal, MsgVerifyFailed, fmt.Errorf("load verification: %w", err))
	}

	if rec.Expired(s.now()) {
		s.discard(ctx, rec, "expired")
		metrics.OTPVerified.WithLabelValues(string(ch), "expired").Inc()
		return nil, domain.NewError(domain.ErrExpired, MsgExpired, nil)
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		return nil, s.rejectAttempt(ctx, rec)
	}

	// Sign before consuming so a signing failure leaves the code usable.
	res := &VerifyResult{Channel: ch, Identifier: id}
	if s.tokens != nil {
		tok, err := s.tokens.Sign(ch, id)
		if err != nil {
			metrics.OTPVerified.WithLabelValues(string(ch), "failed").Inc()
			return nil, domain.NewError(domain.ErrInternal, MsgVerifyFailed, fmt.Errorf("sign verification token: %w", err))
		}
		res.Token = tok
	}

	err = s.store.DeleteIfCode(ctx, ch, id, rec.Code)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// consumed by a concurrent verify
		metrics.OTPVerified.WithLabelValues(string(ch), "not_found").Inc()
		return nil, domain.NewError(domain.ErrNotFound, MsgNotFound, nil)
	case errors.Is(err, domain.ErrConflict):
		// replaced by a resend, so the presented code is no longer valid
		metrics.OTPVerified.WithLabelValues(string(ch), "invalid").Inc()
		return nil, domain.NewError(domain.ErrInvalidCode, MsgInvalidCode, nil)
	case err != nil:
		return nil, domain.NewError(domain.ErrInternal, MsgVerifyFailed, fmt.Errorf("consume verification: %w", err))
	}
	metrics.OTPVerified.WithLabelValues(string(ch), "verified").Inc()
	slog.Info("otp verified", "channel", ch, "identifier", id)
	return res, nil
}

// rejectAttempt counts a wrong code against the record it was checked
// against. A record consumed or replaced in the meantime is left alone.
func (s *service) rejectAttempt(ctx context.Context, rec *domain.Verification) error {
	attempts, err := s.store.IncrementAttempts(ctx, rec.Channel, rec.Identifier, rec.Code)
	if err != nil && !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrConflict) {
		slog.Warn("failed to record otp attempt", "channel", rec.Channel, "identifier", rec.Identifier, "err", err)
	}
	if err == nil && s.maxAttempts > 0 && attempts >= s.maxAttempts {
		s.discard(ctx, rec, "locked")
		metrics.OTPVerified.WithLabelValues(string(rec.Channel), "locked").Inc()
		slog.Warn("otp locked after too many attempts", "channel", rec.Channel, "identifier", rec.Identifier)
		return domain.NewError(domain.ErrTooManyAttempts, MsgTooManyAttempts, nil)
	}
	metrics.OTPVerified.WithLabelValues(string(rec.Channel), "invalid").Inc()
	return domain.NewError(domain.ErrInvalidCode, MsgInvalidCode, nil)
}

// discard deletes rec if it is still the stored record.
func (s *service) discard(ctx context.Context, rec *domain.Verification, reason string) {
	err := s.store.DeleteIfCode(ctx, rec.Channel, rec.Identifier, rec.Code)
	if err != nil && !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrConflict) {
		slog.Warn("failed to delete otp", "reason", reason, "channel", rec.Channel, "identifier", rec.Identifier, "err", err)
	}
}

// HumanizeTTL renders a lifetime the way messages quote it, e.g. "10 minutes".
func HumanizeTTL(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	secs := int(d.Round(time.Second) / time.Second)
	if secs == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", secs)
}
