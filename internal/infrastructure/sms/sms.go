// Package sms talks to SMS gateways and classifies their failures.
package sms

import (
	"context"
	"errors"
	"fmt"
)

// Sender delivers a text message to a phone number in canonical "91XXXXXXXXXX" form.
// It returns the gateway's request or message id on success.
type Sender interface {
	SendSMS(ctx context.Context, to, message string) (string, error)
}

// FailureKind buckets gateway failures by what an operator has to do about them.
type FailureKind string

const (
	// KindConfig covers bad or missing credentials, IP allow-lists, routes and templates.
	KindConfig FailureKind = "config"
	// KindBalance means the account is out of credits.
	KindBalance FailureKind = "balance"
	// KindSender means the sender id is invalid or not approved.
	KindSender FailureKind = "sender"
	// KindUnavailable means the gateway could not be reached.
	KindUnavailable FailureKind = "unavailable"
	// KindUnknown is any other rejection.
	KindUnknown FailureKind = "unknown"
)

// GatewayError describes a failed send. Body holds the raw vendor payload for logs only.
type GatewayError struct {
	Kind   FailureKind
	Code   string
	Status int
	Body   string
	Err    error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("sms gateway %s failure", e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" status=%d", e.Status)
	}
	if e.Code != "" {
		msg += " code=" + e.Code
	}
	if e.Body != "" {
		msg += " body=" + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from err, defaulting to KindUnknown.
func KindOf(err error) FailureKind {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}
