package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_PublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "gzip")

	require.NoError(t, p.Publish(context.Background(), "predictions", []byte("s1"), map[string]int{"riskScore": 56}))
	require.NoError(t, p.PublishMessage(context.Background(), "logs", "raw"))

	msgs := w.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "predictions", msgs[0].Topic)
	assert.Equal(t, []byte("s1"), msgs[0].Key)
	assert.JSONEq(t, `{"riskScore":56}`, string(msgs[0].Value))
	assert.Nil(t, msgs[1].Key)
	assert.Equal(t, []byte("raw"), msgs[1].Value)
}

func TestProducer_PublishBatch(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "gzip")

	require.NoError(t, p.PublishBatch(context.Background(), "t", nil))
	assert.Empty(t, w.Messages())

	require.NoError(t, p.PublishBatch(context.Background(), "t", []Message{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: struct{ N int }{2}},
	}))
	msgs := w.Messages()
	require.Len(t, msgs, 2)
	assert.JSONEq(t, `{"N":2}`, string(msgs[1].Value))
}

func TestProducer_PublishRejectsUnencodable(t *testing.T) {
	p := newProducer(&fakeWriter{}, "gzip")
	assert.Error(t, p.Publish(context.Background(), "t", nil, make(chan int)))
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}
