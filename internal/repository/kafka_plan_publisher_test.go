package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinAlloc/internal/domain/models"
	"FinAlloc/pkg/kafka"
	applogger "FinAlloc/pkg/logger"
)

type recordingPublisher struct {
	topic  string
	key    []byte
	value  interface{}
	batch  []kafka.Message
	err    error
	closed bool
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	r.topic, r.key, r.value = topic, key, value
	return r.err
}

func (r *recordingPublisher) PublishBatch(_ context.Context, topic string, messages []kafka.Message) error {
	r.topic, r.batch = topic, messages
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func TestKafkaPlanPublisher_PublishPlan(t *testing.T) {
	rp := &recordingPublisher{}
	pub := NewKafkaPlanPublisher(rp, "plans.results")

	msg := models.PlanResultMessage{RequestID: "req-1", Error: "invalid amount"}
	require.NoError(t, pub.PublishPlan(context.Background(), "req-1", msg))
	assert.Equal(t, "plans.results", rp.topic)
	assert.Equal(t, []byte("req-1"), rp.key)
	assert.Equal(t, msg, rp.value)

	require.NoError(t, pub.Close())
	assert.True(t, rp.closed)
}

func TestKafkaPlanPublisher_WrapsErrors(t *testing.T) {
	down := errors.New("broker down")
	pub := NewKafkaPlanPublisher(&recordingPublisher{err: down}, "plans.results")
	err := pub.PublishPlan(context.Background(), "req-2", models.PlanResultMessage{})
	assert.ErrorIs(t, err, down)
	assert.Contains(t, err.Error(), "req-2")
}

func TestKafkaPlanPublisher_PublishDigest(t *testing.T) {
	rp := &recordingPublisher{}
	pub := NewKafkaPlanPublisher(rp, "plans.results")
	entries := []applogger.DigestEntry{
		{Level: "warn", Message: "class skipped", Count: 4},
		{Level: "error", Message: "kafka message failed", Count: 1},
	}
	require.NoError(t, pub.PublishDigest(context.Background(), "logs.digest", entries))
	assert.Equal(t, "logs.digest", rp.topic)
	require.Len(t, rp.batch, 2)
	assert.Equal(t, []byte("warn"), rp.batch[0].Key)
	assert.Equal(t, entries[1], rp.batch[1].Value)
}
