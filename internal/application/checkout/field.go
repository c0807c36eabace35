package checkout

import (
	"errors"
	"sync"

	"github.com/mridang-api/internal/domain"
)

// FieldState is where a verifiable field is in its send/verify cycle.
type FieldState int

const (
	Unverified FieldState = iota
	Sending
	AwaitingCode
	Verifying
	Verified
)

func (s FieldState) String() string {
	switch s {
	case Unverified:
		return "unverified"
	case Sending:
		return "sending"
	case AwaitingCode:
		return "awaiting_code"
	case Verifying:
		return "verifying"
	case Verified:
		return "verified"
	}
	return "unknown"
}

// ErrBusy is returned when an action is not allowed in the field's current state.
var ErrBusy = errors.New("action not allowed in current state")

// Field tracks one identifier (email or phone) through verification.
// Every edit bumps the generation; results of requests started under an
// older generation are dropped.
type Field struct {
	mu       sync.Mutex
	channel  domain.Channel
	value    string
	state    FieldState
	gen      uint64
	token    string
	errMsg   string
	notice   string
	mockCode string
}

// FieldSnapshot is a read-only copy of a Field.
type FieldSnapshot struct {
	Channel  domain.Channel
	Value    string
	State    FieldState
	Token    string
	Error    string
	Notice   string
	MockCode string
}

func NewField(ch domain.Channel) *Field {
	return &Field{channel: ch}
}

// Edit replaces the value. Any progress, token or message is discarded.
func (f *Field) Edit(value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = value
	f.gen++
	f.state = Unverified
	f.token, f.errMsg, f.notice, f.mockCode = "", "", "", ""
}

// Fail records a field-level error without changing state.
func (f *Field) Fail(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errMsg = msg
}

func (f *Field) Snapshot() FieldSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FieldSnapshot{
		Channel:  f.channel,
		Value:    f.value,
		State:    f.state,
		Token:    f.token,
		Error:    f.errMsg,
		Notice:   f.notice,
		MockCode: f.mockCode,
	}
}

// beginSend moves Unverified or AwaitingCode (resend) to Sending.
func (f *Field) beginSend() (uint64, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Unverified && f.state != AwaitingCode {
		return 0, "", ErrBusy
	}
	f.state = Sending
	f.errMsg, f.notice, f.mockCode = "", "", ""
	return f.gen, f.value, nil
}

// finishSend applies a send result. It reports false when the result was stale.
func (f *Field) finishSend(gen uint64, r *SendReceipt, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen || f.state != Sending {
		return false
	}
	if err != nil {
		f.state = Unverified
		f.errMsg = errorMessage(err)
		return true
	}
	f.state = AwaitingCode
	f.notice = r.Message
	f.mockCode = r.MockCode
	return true
}

// beginVerify moves AwaitingCode to Verifying.
func (f *Field) beginVerify() (uint64, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != AwaitingCode {
		return 0, "", ErrBusy
	}
	f.state = Verifying
	f.errMsg = ""
	return f.gen, f.value, nil
}

// finishVerify applies a verify result. It reports false when the result was stale.
func (f *Field) finishVerify(gen uint64, token string, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen || f.state != Verifying {
		return false
	}
	if err != nil {
		f.state = AwaitingCode
		f.errMsg = errorMessage(err)
		return true
	}
	f.state = Verified
	f.token = token
	f.notice, f.mockCode = "", ""
	return true
}

func errorMessage(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
