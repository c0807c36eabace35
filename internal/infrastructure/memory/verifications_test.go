package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mridang-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newStore() (*VerificationStore, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	return NewVerificationStore().WithClock(clk.Now), clk
}

func record(clk *fakeClock, id, code string) *domain.Verification {
	return &domain.Verification{
		Identifier: id,
		Channel:    domain.ChannelEmail,
		Code:       code,
		ExpiresAt:  clk.Now().Add(10 * time.Minute),
	}
}

func TestPutGet(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, record(clk, "a@b.com", "1234")))
	v, err := s.Get(ctx, domain.ChannelEmail, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "1234", v.Code)
}

func TestGet_Missing(t *testing.T) {
	s, _ := newStore()
	_, err := s.Get(context.Background(), domain.ChannelEmail, "nobody@b.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPut_Overwrites(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, record(clk, "a@b.com", "1111")))
	require.NoError(t, s.Put(ctx, record(clk, "a@b.com", "2222")))

	v, err := s.Get(ctx, domain.ChannelEmail, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "2222", v.Code)
	assert.Equal(t, 1, s.Len())
}

func TestChannelsAreSeparateKeySpaces(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, record(clk, "919876543210", "1111")))
	sms := record(clk, "919876543210", "2222")
	sms.Channel = domain.ChannelSMS
	require.NoError(t, s.Put(ctx, sms))

	e, err := s.Get(ctx, domain.ChannelEmail, "919876543210")
	require.NoError(t, err)
	p, err := s.Get(ctx, domain.ChannelSMS, "919876543210")
	require.NoError(t, err)
	assert.Equal(t, "1111", e.Code)
	assert.Equal(t, "2222", p.Code)
}

func TestGet_ExpiredIsAbsentAndSwept(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, record(clk, "a@b.com", "1234")))
	require.NoError(t, s.Put(ctx, record(clk, "c@d.com", "5678")))
	clk.Advance(10 * time.Minute)

	_, err := s.Get(ctx, domain.ChannelEmail, "a@b.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, s.Len(), "sweep must drop every expired record, not just the one read")
}

func TestPut_SweepsExpired(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, record(clk, "old@b.com", "1234")))
	clk.Advance(11 * time.Minute)
	require.NoError(t, s.Put(ctx, record(clk, "new@b.com", "5678")))

	assert.Equal(t, 1, s.Len())
}

func TestDelete_Idempotent(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, record(clk, "a@b.com", "1234")))
	require.NoError(t, s.Delete(ctx, domain.ChannelEmail, "a@b.com"))
	require.NoError(t, s.Delete(ctx, domain.ChannelEmail, "a@b.com"))

	_, err := s.Get(ctx, domain.ChannelEmail, "a@b.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteIfCode(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()

	err := s.DeleteIfCode(ctx, domain.ChannelEmail, "a@b.com", "1234")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Put(ctx, record(clk, "a@b.com", "1234")))
	require.NoError(t, s.Put(ctx, record(clk, "a@b.com", "5678")))

	err = s.DeleteIfCode(ctx, domain.ChannelEmail, "a@b.com", "1234")
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 1, s.Len(), "a replaced record must survive")

	require.NoError(t, s.DeleteIfCode(ctx, domain.ChannelEmail, "a@b.com", "5678"))
	assert.Equal(t, 0, s.Len())

	err = s.DeleteIfCode(ctx, domain.ChannelEmail, "a@b.com", "5678")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIncrementAttempts(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()

	_, err := s.IncrementAttempts(ctx, domain.ChannelEmail, "a@b.com", "1234")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Put(ctx, record(clk, "a@b.com", "1234")))
	n, err := s.IncrementAttempts(ctx, domain.ChannelEmail, "a@b.com", "1234")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.IncrementAttempts(ctx, domain.ChannelEmail, "a@b.com", "1234")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Put(ctx, record(clk, "a@b.com", "5678")))
	_, err = s.IncrementAttempts(ctx, domain.ChannelEmail, "a@b.com", "1234")
	assert.ErrorIs(t, err, domain.ErrConflict)

	v, err := s.Get(ctx, domain.ChannelEmail, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "5678", v.Code)
	assert.Equal(t, 0, v.Attempts)
}

func TestConditionalOps_ExpiredIsNotFound(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, record(clk, "a@b.com", "1234")))
	clk.Advance(10 * time.Minute)

	_, err := s.IncrementAttempts(ctx, domain.ChannelEmail, "a@b.com", "1234")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestConcurrentConsume_OnlyOneWins(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, record(clk, "a@b.com", "1234")))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.DeleteIfCode(ctx, domain.ChannelEmail, "a@b.com", "1234") == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestGet_ReturnsCopy(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, record(clk, "a@b.com", "1234")))
	v, err := s.Get(ctx, domain.ChannelEmail, "a@b.com")
	require.NoError(t, err)
	v.Code = "0000"

	again, err := s.Get(ctx, domain.ChannelEmail, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "1234", again.Code)
}

func TestClear(t *testing.T) {
	s, clk := newStore()
	require.NoError(t, s.Put(context.Background(), record(clk, "a@b.com", "1234")))
	s.Clear()
	assert.Equal(t, 0, s.Len())
}

func TestConcurrentAccess(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("user%d@b.com", i%5)
			_ = s.Put(ctx, record(clk, id, fmt.Sprintf("%04d", 1000+i)))
			_, _ = s.Get(ctx, domain.ChannelEmail, id)
			if i%7 == 0 {
				_ = s.Delete(ctx, domain.ChannelEmail, id)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, s.Len(), 5)
}
