package usecase

import (
	"context"
	"errors"
	"testing"

	"BoltX/internal/domain/models"
	pkgkafka "BoltX/pkg/kafka"
	"BoltX/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(events *fakeEventStore, sub *recordingSubmitter) *CheckoutEventsHandler {
	uc := newTestUseCase(events, &fakePredictionStore{}, sub, nil)
	return NewCheckoutEventsHandler("checkout.events", uc, metrics.Nop{}, nil)
}

func TestCheckoutEventsHandler_EvaluatesSession(t *testing.T) {
	sub := &recordingSubmitter{}
	h := newTestHandler(&fakeEventStore{session: paymentMobileSession()}, sub)
	assert.Equal(t, "checkout.events", h.Topic())

	err := h.Handle(context.Background(), []byte(`{"customerId":"c1","sessionId":"s1","eventType":"error_occurred","timestamp":"2024-05-01T11:58:20Z"}`))
	require.NoError(t, err)
	require.Len(t, sub.records, 1)
	assert.Equal(t, "s1", sub.records[0].SessionID)
}

func TestCheckoutEventsHandler_PermanentFailures(t *testing.T) {
	h := newTestHandler(&fakeEventStore{}, &recordingSubmitter{})

	err := h.Handle(context.Background(), []byte(`{not json`))
	assert.True(t, pkgkafka.IsPermanent(err))

	err = h.Handle(context.Background(), []byte(`{"sessionId":"s1"}`))
	assert.True(t, pkgkafka.IsPermanent(err))
	assert.ErrorIs(t, err, ErrMissingCustomer)
}

func TestCheckoutEventsHandler_UnknownSessionIsAcked(t *testing.T) {
	h := newTestHandler(&fakeEventStore{}, &recordingSubmitter{})
	assert.NoError(t, h.Handle(context.Background(), []byte(`{"customerId":"c1","sessionId":"s1","timestamp":1714564700000}`)))
}

func TestCheckoutEventsHandler_StoreFailureIsRetryable(t *testing.T) {
	h := newTestHandler(&fakeEventStore{sessionErr: errors.New("timeout")}, &recordingSubmitter{})
	err := h.Handle(context.Background(), []byte(`{"customerId":"c1","sessionId":"s1"}`))
	require.Error(t, err)
	assert.False(t, pkgkafka.IsPermanent(err))
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) PublishPrediction(context.Context, *models.PersistedPrediction) error {
	p.calls++
	return errors.New("kafka down")
}

func (p *failingPublisher) Close() error { return nil }

func TestPredictionSink(t *testing.T) {
	store := &fakePredictionStore{}
	pub := &failingPublisher{}
	sink := NewPredictionSink(store, pub, metrics.Nop{}, nil)

	rec := &models.PersistedPrediction{ID: "p1", CustomerID: "c1", SessionID: "s1"}
	require.NoError(t, sink.Process(context.Background(), rec), "publish failure is not retried")
	assert.Len(t, store.persists, 1)
	assert.Equal(t, 1, pub.calls)

	store.err = errors.New("ch down")
	assert.Error(t, sink.Process(context.Background(), rec))
	assert.Equal(t, 1, pub.calls, "nothing published when the write fails")
}
