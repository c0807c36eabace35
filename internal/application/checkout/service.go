package checkout

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mridang-api/internal/domain"
	jwtinfra "github.com/mridang-api/internal/infrastructure/jwt"
	"github.com/mridang-api/internal/infrastructure/metrics"
	"github.com/mridang-api/internal/pkg/id"
	"github.com/mridang-api/internal/pkg/identifier"
	"github.com/mridang-api/internal/pkg/validate"
)

const (
	MsgFixFields           = "Please fix the highlighted fields"
	MsgVerifyEmail         = "Please verify your email"
	MsgVerifyPhone         = "Please verify your phone number"
	MsgInvalidEmail        = "Please enter a valid email address"
	MsgInvalidPhone        = "Please enter a valid phone number"
	MsgProceedingToPayment = "Proceeding to payment"
)

// TokenVerifier checks verification tokens issued after a successful OTP check.
type TokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

type Service interface {
	Submit(ctx context.Context, form domain.CheckoutForm) (*domain.Order, error)
}

type service struct {
	tokens TokenVerifier
	now    func() time.Time
}

func NewService(tokens TokenVerifier) Service {
	return &service{tokens: tokens, now: time.Now}
}

// Submit accepts the form only when every required field is present and both
// the email and the phone number carry a valid verification token for exactly
// those identifiers.
func (s *service) Submit(ctx context.Context, form domain.CheckoutForm) (*domain.Order, error) {
	fields := map[string]string{}
	if err := validate.Struct(&form); err != nil {
		var fe validate.FieldErrors
		if !errors.As(err, &fe) {
			return nil, err
		}
		for k, v := range fe {
			fields[k] = v
		}
	}

	email, phone := "", ""
	if _, missing := fields["email"]; !missing {
		if e, err := identifier.NormalizeEmail(form.Email); err != nil {
			fields["email"] = MsgInvalidEmail
		} else if !s.proves(form.EmailToken, domain.ChannelEmail, e) {
			fields["email"] = MsgVerifyEmail
		} else {
			email = e
		}
	}
	if _, missing := fields["phone"]; !missing {
		if p, err := identifier.NormalizePhone(form.Phone); err != nil {
			fields["phone"] = MsgInvalidPhone
		} else if !s.proves(form.PhoneToken, domain.ChannelSMS, p) {
			fields["phone"] = MsgVerifyPhone
		} else {
			phone = p
		}
	}

	if len(fields) > 0 {
		metrics.Checkouts.WithLabelValues("rejected").Inc()
		return nil, &domain.ValidationError{Message: MsgFixFields, Fields: fields}
	}

	country := strings.TrimSpace(form.Country)
	if country == "" {
		country = domain.DefaultCountry
	}
	order := &domain.Order{
		Ref:     id.OrderRef(s.now()),
		Email:   email,
		Phone:   phone,
		Country: country,
	}
	metrics.Checkouts.WithLabelValues("accepted").Inc()
	slog.InfoContext(ctx, "checkout accepted", "order_ref", order.Ref, "email", email, "phone", phone)
	return order, nil
}

func (s *service) proves(token string, ch domain.Channel, subject string) bool {
	if token == "" {
		return false
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		slog.Debug("verification token rejected", "channel", ch, "err", err)
		return false
	}
	return claims.Channel == ch && claims.Subject == subject
}
