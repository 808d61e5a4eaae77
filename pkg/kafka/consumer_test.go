package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	applogger "BoltX/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      chan kafka.Message
	committed []int64
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	ch := make(chan kafka.Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	return &fakeReader{msgs: ch}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) Committed() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) Messages() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

type funcHandler struct {
	topic string
	fn    func(context.Context, []byte) error
}

func (h funcHandler) Topic() string                                 { return h.topic }
func (h funcHandler) Handle(ctx context.Context, data []byte) error { return h.fn(ctx, data) }

func testConsumer(reader messageReader, dlq messageWriter) *Consumer {
	c := newConsumer(&ConsumerConfig{
		WorkerCount: 2,
		BufferSize:  4,
		RetryMax:    2,
		BackoffMin:  time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
		DLQTopic:    "events.dlq",
		Logger:      applogger.Nop(),
	})
	c.newReader = func(string) messageReader { return reader }
	if dlq != nil {
		c.dlq = dlq
	}
	return c
}

func TestConsumer_RetriesThenCommits(t *testing.T) {
	reader := newFakeReader(kafka.Message{Topic: "events", Offset: 7, Value: []byte("x")})
	c := testConsumer(reader, nil)

	var mu sync.Mutex
	calls := 0
	c.RegisterHandler(funcHandler{topic: "events", fn: func(context.Context, []byte) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	}})

	require.NoError(t, c.Start(context.Background()))
	assert.Eventually(t, func() bool { return len(reader.Committed()) == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))

	mu.Lock()
	assert.Equal(t, 2, calls)
	mu.Unlock()
	assert.Equal(t, []int64{7}, reader.Committed())
}

func TestConsumer_PermanentErrorGoesToDLQWithoutRetry(t *testing.T) {
	reader := newFakeReader(kafka.Message{Topic: "events", Offset: 3, Value: []byte("{bad")})
	dlq := &fakeWriter{}
	c := testConsumer(reader, dlq)

	var mu sync.Mutex
	calls := 0
	c.RegisterHandler(funcHandler{topic: "events", fn: func(context.Context, []byte) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return Permanent(errors.New("malformed"))
	}})

	require.NoError(t, c.Start(context.Background()))
	assert.Eventually(t, func() bool { return len(dlq.Messages()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
	got := dlq.Messages()[0]
	assert.Equal(t, "events.dlq", got.Topic)
	assert.Equal(t, []byte("{bad"), got.Value)
	assert.Equal(t, []int64{3}, reader.Committed())
}

func TestConsumer_TraceHookSetsContext(t *testing.T) {
	reader := newFakeReader(kafka.Message{
		Topic:   "events",
		Value:   []byte("x"),
		Headers: []kafka.Header{{Key: TraceHeader, Value: []byte("trace-1")}},
	})
	c := testConsumer(reader, nil)
	c.WithConsumerHook(TraceHook())

	got := make(chan string, 1)
	c.RegisterHandler(funcHandler{topic: "events", fn: func(ctx context.Context, _ []byte) error {
		_, ok := StartTime(ctx)
		assert.True(t, ok)
		got <- TraceID(ctx)
		return nil
	}})

	require.NoError(t, c.Start(context.Background()))
	select {
	case id := <-got:
		assert.Equal(t, "trace-1", id)
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
	require.NoError(t, c.Stop(context.Background()))
}

func TestConsumer_StartWithoutHandlers(t *testing.T) {
	c := testConsumer(newFakeReader(), nil)
	assert.Error(t, c.Start(context.Background()))
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))
	err := Permanent(errors.New("boom"))
	assert.True(t, IsPermanent(err))
	assert.EqualError(t, err, "boom")
	assert.False(t, IsPermanent(errors.New("boom")))
}

func TestBackoffWithJitter(t *testing.T) {
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}

func TestConsumer_HookRejectionIsPermanent(t *testing.T) {
	reader := newFakeReader(kafka.Message{Topic: "events", Offset: 11, Value: []byte("{}")})
	dlq := &fakeWriter{}
	c := testConsumer(reader, dlq)

	var mu sync.Mutex
	var hookErr error
	handled := false
	c.RegisterHandler(funcHandler{topic: "events", fn: func(context.Context, []byte) error {
		mu.Lock()
		defer mu.Unlock()
		handled = true
		return nil
	}})
	c.WithConsumerHook(HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			return ctx, km, data, errors.New("schema version unsupported")
		},
		Err: func(_ context.Context, _ string, _ kafka.Message, _ []byte, err error) {
			mu.Lock()
			defer mu.Unlock()
			hookErr = err
		},
	})

	require.NoError(t, c.Start(context.Background()))
	assert.Eventually(t, func() bool { return len(dlq.Messages()) == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, handled)
	require.Error(t, hookErr)
	assert.True(t, IsPermanent(hookErr))
	assert.Equal(t, []int64{11}, reader.Committed())
}
