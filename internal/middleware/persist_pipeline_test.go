package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"BoltX/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	mu      sync.Mutex
	errors  map[string]int
	dropped map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{errors: map[string]int{}, dropped: map[string]int{}}
}

func (m *countingMetrics) RecordPrediction(models.RiskLevel, int) {}
func (m *countingMetrics) RecordGateDecision(bool)                {}
func (m *countingMetrics) RecordLatency(string, float64)          {}

func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *countingMetrics) RecordDropped(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[kind]++
}

func (m *countingMetrics) Dropped(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped[kind]
}

type flakySink struct {
	mu       sync.Mutex
	failures int
	calls    int
	done     []*models.PersistedPrediction
	block    chan struct{}
}

func (s *flakySink) Process(_ context.Context, p *models.PersistedPrediction) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return errors.New("clickhouse unavailable")
	}
	s.done = append(s.done, p)
	return nil
}

func (s *flakySink) Done() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.done)
}

func pred(session string) *models.PersistedPrediction {
	return &models.PersistedPrediction{ID: "id-" + session, CustomerID: "c1", SessionID: session}
}

func TestPersistPipeline_RetriesUntilSuccess(t *testing.T) {
	sink := &flakySink{failures: 2}
	m := newCountingMetrics()
	p := NewPersistPipeline(sink, m, WithRetry(3, time.Millisecond, 2*time.Millisecond))
	p.Start(context.Background())

	require.True(t, p.Submit(pred("s1")))
	require.NoError(t, p.Stop(context.Background()))

	assert.Equal(t, 1, sink.Done())
	assert.Equal(t, 3, sink.calls)
	assert.Equal(t, 0, m.Dropped("pipeline_flush_failed"))
}

func TestPersistPipeline_DropsAfterMaxAttempts(t *testing.T) {
	sink := &flakySink{failures: 10}
	m := newCountingMetrics()
	p := NewPersistPipeline(sink, m, WithRetry(2, time.Millisecond, time.Millisecond))
	p.Start(context.Background())

	require.True(t, p.Submit(pred("s1")))
	require.NoError(t, p.Stop(context.Background()))

	assert.Equal(t, 0, sink.Done())
	assert.Equal(t, 1, m.Dropped("pipeline_flush_failed"))
}

func TestPersistPipeline_FullBufferDropsWithoutBlocking(t *testing.T) {
	sink := &flakySink{block: make(chan struct{})}
	m := newCountingMetrics()
	p := NewPersistPipeline(sink, m, WithBufferSize(1))
	p.Start(context.Background())

	// First record is taken by the worker and blocks in the sink; the second fills the buffer.
	require.True(t, p.Submit(pred("s1")))
	assert.Eventually(t, func() bool { return p.Depth() == 0 }, time.Second, time.Millisecond)
	require.True(t, p.Submit(pred("s2")))
	assert.False(t, p.Submit(pred("s3")))
	assert.Equal(t, 1, m.Dropped("pipeline_buffer_full"))

	close(sink.block)
	require.NoError(t, p.Stop(context.Background()))
	assert.Equal(t, 2, sink.Done())
}

func TestPersistPipeline_RejectsInvalidAndClosed(t *testing.T) {
	m := newCountingMetrics()
	p := NewPersistPipeline(&flakySink{}, m)

	assert.False(t, p.Submit(nil))
	bad := pred("s1")
	bad.Prediction.RiskScore = 101
	assert.False(t, p.Submit(bad))

	require.NoError(t, p.Stop(context.Background()))
	require.NoError(t, p.Stop(context.Background()))
	assert.False(t, p.Submit(pred("s1")))
	assert.Equal(t, 1, m.Dropped("pipeline_closed"))
}
