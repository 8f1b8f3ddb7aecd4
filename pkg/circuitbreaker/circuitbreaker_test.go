package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errUnavailable = errors.New("远程服务不可用")
	errNotFound    = errors.New("远程资源不存在")
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg Config) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker("zotero", cfg)
	cb.now = clock.Now
	cb.toNewGeneration(clock.Now())
	return cb, clock
}

func fail(ctx context.Context) error    { return errUnavailable }
func succeed(ctx context.Context) error { return nil }

func TestCircuitBreaker(t *testing.T) {
	ctx := context.Background()
	tripAfter3 := func(c Counts) bool { return c.ConsecutiveFailures >= 3 }

	t.Run("关闭状态正常放行", func(t *testing.T) {
		cb, _ := newTestBreaker(Config{ReadyToTrip: tripAfter3})
		for i := 0; i < 10; i++ {
			require.NoError(t, cb.Execute(ctx, succeed))
		}
		assert.Equal(t, StateClosed, cb.State())
		assert.Equal(t, uint32(10), cb.Counts().TotalSuccesses)
	})

	t.Run("连续失败后熔断", func(t *testing.T) {
		cb, _ := newTestBreaker(Config{Timeout: time.Minute, ReadyToTrip: tripAfter3})
		for i := 0; i < 3; i++ {
			assert.ErrorIs(t, cb.Execute(ctx, fail), errUnavailable)
		}
		assert.Equal(t, StateOpen, cb.State())

		called := false
		err := cb.Execute(ctx, func(ctx context.Context) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, ErrOpenState)
		assert.False(t, called)
	})

	t.Run("超时后半开并恢复", func(t *testing.T) {
		cb, clock := newTestBreaker(Config{Timeout: time.Minute, ReadyToTrip: tripAfter3})
		for i := 0; i < 3; i++ {
			_ = cb.Execute(ctx, fail)
		}
		clock.Advance(time.Minute + time.Second)
		assert.Equal(t, StateHalfOpen, cb.State())

		require.NoError(t, cb.Execute(ctx, succeed))
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("半开状态失败重新熔断", func(t *testing.T) {
		cb, clock := newTestBreaker(Config{Timeout: time.Minute, ReadyToTrip: tripAfter3})
		for i := 0; i < 3; i++ {
			_ = cb.Execute(ctx, fail)
		}
		clock.Advance(2 * time.Minute)
		_ = cb.Execute(ctx, fail)
		assert.Equal(t, StateOpen, cb.State())
	})

	t.Run("业务错误不计入失败", func(t *testing.T) {
		cb, _ := newTestBreaker(Config{
			ReadyToTrip:  tripAfter3,
			IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, errNotFound) },
		})
		for i := 0; i < 5; i++ {
			err := cb.Execute(ctx, func(ctx context.Context) error { return errNotFound })
			assert.ErrorIs(t, err, errNotFound)
		}
		assert.Equal(t, StateClosed, cb.State())
		assert.Equal(t, uint32(0), cb.Counts().TotalFailures)
	})

	t.Run("统计窗口到期重置", func(t *testing.T) {
		cb, clock := newTestBreaker(Config{Interval: 10 * time.Second, ReadyToTrip: tripAfter3})
		_ = cb.Execute(ctx, fail)
		_ = cb.Execute(ctx, fail)
		clock.Advance(11 * time.Second)
		_ = cb.Execute(ctx, fail)
		assert.Equal(t, StateClosed, cb.State())
		assert.Equal(t, uint32(1), cb.Counts().ConsecutiveFailures)
	})

	t.Run("状态变化回调", func(t *testing.T) {
		var transitions []string
		cb, clock := newTestBreaker(Config{
			Timeout:     time.Minute,
			ReadyToTrip: tripAfter3,
			OnStateChange: func(name string, from, to State) {
				transitions = append(transitions, from.String()+"->"+to.String())
			},
		})
		for i := 0; i < 3; i++ {
			_ = cb.Execute(ctx, fail)
		}
		clock.Advance(2 * time.Minute)
		_ = cb.Execute(ctx, succeed)

		assert.Equal(t, []string{"CLOSED->OPEN", "OPEN->HALF_OPEN", "HALF_OPEN->CLOSED"}, transitions)
	})
}

func TestCounts_FailureRate(t *testing.T) {
	assert.Equal(t, float64(0), Counts{}.FailureRate())
	assert.InDelta(t, 0.25, Counts{Requests: 4, TotalFailures: 1}.FailureRate(), 1e-9)
}

func BenchmarkCircuitBreaker(b *testing.B) {
	cb := NewCircuitBreaker("bench", Config{})
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		_ = cb.Execute(ctx, succeed)
	}
}
