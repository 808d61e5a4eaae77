package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_BurstThenRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(2, 3)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("c1"), "request %d", i)
	}
	assert.False(t, l.Allow("c1"))
	assert.True(t, l.Allow("c2"), "keys are independent")

	now = now.Add(500 * time.Millisecond)
	assert.True(t, l.Allow("c1"))
	assert.False(t, l.Allow("c1"))
}

func TestLimiter_SweepsIdleKeys(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(1, 1)
	l.now = func() time.Time { return now }
	l.maxKeys = 2

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Len())

	now = now.Add(2 * time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.Len())
}

func TestLimiter_KeepsActiveKeysOnSweep(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(1, 1)
	l.now = func() time.Time { return now }
	l.maxKeys = 2

	l.Allow("a")
	now = now.Add(2 * time.Minute)
	assert.True(t, l.Allow("b"))
	assert.True(t, l.Allow("c"))
	assert.Equal(t, 2, l.Len(), "idle a dropped, b kept")

	assert.False(t, l.Allow("b"), "b keeps its drained bucket")
}

func TestLimiter_IdleCoversRefillTime(t *testing.T) {
	assert.Equal(t, time.Minute, New(5, 10).idle)
	assert.Equal(t, 200*time.Second, New(0.5, 100).idle)
}
