package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mridang-api/internal/domain"
)

// VerificationStore keeps pending codes in process memory.
// Expired records are swept lazily on every Put and Get; there is no background timer.
type VerificationStore struct {
	mu      sync.Mutex
	records map[string]domain.Verification
	now     func() time.Time
}

func NewVerificationStore() *VerificationStore {
	return &VerificationStore{
		records: make(map[string]domain.Verification),
		now:     time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (s *VerificationStore) WithClock(now func() time.Time) *VerificationStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func key(channel domain.Channel, identifier string) string {
	return string(channel) + "|" + identifier
}

// sweep drops every expired record. Caller holds mu.
func (s *VerificationStore) sweep() {
	now := s.now()
	for k, v := range s.records {
		if v.Expired(now) {
			delete(s.records, k)
		}
	}
}

// Put inserts or overwrites the record for v's channel and identifier.
func (s *VerificationStore) Put(_ context.Context, v *domain.Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.records[key(v.Channel, v.Identifier)] = *v
	return nil
}

// Get returns a copy of the live record or an error wrapping domain.ErrNotFound.
func (s *VerificationStore) Get(_ context.Context, channel domain.Channel, identifier string) (*domain.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	v, ok := s.records[key(channel, identifier)]
	if !ok {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	return &v, nil
}

// Delete removes the record if present.
func (s *VerificationStore) Delete(_ context.Context, channel domain.Channel, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key(channel, identifier))
	return nil
}

// holding returns the key of the live record for (channel, identifier) if it
// still holds code. Caller holds mu.
func (s *VerificationStore) holding(channel domain.Channel, identifier, code string) (string, error) {
	k := key(channel, identifier)
	v, ok := s.records[k]
	if ok && v.Expired(s.now()) {
		delete(s.records, k)
		ok = false
	}
	if !ok {
		return "", fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	if v.Code != code {
		return "", fmt.Errorf("verification replaced: %w", domain.ErrConflict)
	}
	return k, nil
}

// DeleteIfCode removes the record only while it still holds code.
func (s *VerificationStore) DeleteIfCode(_ context.Context, channel domain.Channel, identifier, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, err := s.holding(channel, identifier, code)
	if err != nil {
		return err
	}
	delete(s.records, k)
	return nil
}

// IncrementAttempts bumps the failed-attempt count of the record holding code.
func (s *VerificationStore) IncrementAttempts(_ context.Context, channel domain.Channel, identifier, code string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, err := s.holding(channel, identifier, code)
	if err != nil {
		return 0, err
	}
	v := s.records[k]
	v.Attempts++
	s.records[k] = v
	return v.Attempts, nil
}

// Len reports how many records are held, expired or not.
func (s *VerificationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Clear drops every record.
func (s *VerificationStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]domain.Verification)
}
