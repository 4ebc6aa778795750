package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_FivePerMinute(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(5, time.Minute)
	l.now = func() time.Time { return now }

	for i := range 5 {
		ok, _ := l.Allow("10.0.0.1")
		assert.True(t, ok, "attempt %d", i+1)
	}
	ok, retry := l.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.GreaterOrEqual(t, retry, time.Second)

	ok, _ = l.Allow("10.0.0.2")
	assert.True(t, ok, "keys are independent")

	now = now.Add(13 * time.Second)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok, "a token refills after 12s")
}

func TestLimiter_SweepsIdleKeys(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(5, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(3 * time.Minute)
	l.Allow("b")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.buckets, "a")
	assert.Contains(t, l.buckets, "b")
}
