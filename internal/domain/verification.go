package domain

import "time"

// Channel identifies how a verification code is delivered.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Verification is a pending one-time code for an identifier.
// PK: identifier, SK: channel. ExpiresAt doubles as the DynamoDB TTL attribute.
type Verification struct {
	Identifier string    `json:"identifier" dynamodbav:"identifier"`
	Channel    Channel   `json:"channel" dynamodbav:"channel"`
	Code       string    `json:"code" dynamodbav:"code"`
	ExpiresAt  time.Time `json:"expires_at" dynamodbav:"expires_at,unixtime"`
	Attempts   int       `json:"attempts" dynamodbav:"attempts"`
}

// Expired reports whether the record is no longer usable at now.
func (v *Verification) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}
