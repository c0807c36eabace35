package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mridang-api/internal/domain"
	"github.com/mridang-api/internal/infrastructure/metrics"
	"github.com/mridang-api/internal/infrastructure/sms"
)

// Client messages per gateway failure class.
const (
	MsgSMSConfig      = "SMS service is not configured correctly. Please contact support."
	MsgSMSBalance     = "SMS service is temporarily out of credits. Please try email verification or contact support."
	MsgSMSSender      = "SMS sender ID is not approved. Please contact support."
	MsgSMSUnavailable = "SMS service temporarily unavailable. Please try again."
)

// SMSMode decides what the SMS delivery does when asked to send.
type SMSMode int

const (
	// SMSLive sends through the gateway.
	SMSLive SMSMode = iota
	// SMSMock skips the gateway and hands the code back to the caller.
	SMSMock
	// SMSDisabled refuses to send; used in production when no gateway is configured.
	SMSDisabled
)

// ResolveSMSMode picks the SMS mode. Mock is only ever chosen outside production:
// forced by forceMock, or automatically when no gateway is configured.
func ResolveSMSMode(gatewayConfigured, forceMock, production bool) SMSMode {
	switch {
	case production && !gatewayConfigured:
		return SMSDisabled
	case production:
		return SMSLive
	case forceMock || !gatewayConfigured:
		return SMSMock
	}
	return SMSLive
}

type smsDelivery struct {
	sender sms.Sender
	mode   SMSMode
	ttl    time.Duration
}

// NewSMSDelivery sends codes through sender according to mode. sender may be nil
// unless mode is SMSLive.
func NewSMSDelivery(sender sms.Sender, mode SMSMode, ttl time.Duration) Delivery {
	return &smsDelivery{sender: sender, mode: mode, ttl: ttl}
}

// SMSText is the message body sent to the phone.
func SMSText(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your Mridang verification code is: %s. Valid for %s.", code, HumanizeTTL(ttl))
}

func (d *smsDelivery) Deliver(ctx context.Context, phone, code string) (Receipt, error) {
	switch d.mode {
	case SMSMock:
		return Receipt{Mock: true}, nil
	case SMSDisabled:
		return Receipt{}, domain.NewError(domain.ErrMisconfigured, MsgSMSConfig, errors.New("no sms gateway configured"))
	}

	requestID, err := d.sender.SendSMS(ctx, phone, SMSText(code, d.ttl))
	if err != nil {
		kind := sms.KindOf(err)
		metrics.SMSGatewayFailures.WithLabelValues(string(kind)).Inc()
		slog.Error("sms gateway rejected message", "kind", kind, "phone", phone, "err", err)
		return Receipt{}, smsError(kind, err)
	}
	return Receipt{RequestID: requestID}, nil
}

func smsError(kind sms.FailureKind, err error) error {
	switch kind {
	case sms.KindConfig:
		return domain.NewError(domain.ErrMisconfigured, MsgSMSConfig, err)
	case sms.KindBalance:
		return domain.NewError(domain.ErrDelivery, MsgSMSBalance, err)
	case sms.KindSender:
		return domain.NewError(domain.ErrMisconfigured, MsgSMSSender, err)
	case sms.KindUnavailable:
		return domain.NewError(domain.ErrDelivery, MsgSMSUnavailable, err)
	}
	return domain.NewError(domain.ErrDelivery, MsgSendFailed, err)
}
