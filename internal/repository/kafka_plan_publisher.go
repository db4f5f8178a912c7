package repository

import (
	"context"
	"fmt"

	"FinAlloc/internal/domain/models"
	domrepo "FinAlloc/internal/domain/repository"
	"FinAlloc/pkg/kafka"
	applogger "FinAlloc/pkg/logger"
)

// Publisher is the part of kafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	PublishBatch(ctx context.Context, topic string, messages []kafka.Message) error
	Close() error
}

var (
	_ Publisher             = (*kafka.Producer)(nil)
	_ domrepo.PlanPublisher = (*KafkaPlanPublisher)(nil)
	_ applogger.DigestSink  = (*KafkaPlanPublisher)(nil)
)

// KafkaPlanPublisher writes plan results keyed by request id, and log digests.
type KafkaPlanPublisher struct {
	p     Publisher
	topic string
}

func NewKafkaPlanPublisher(p Publisher, topic string) *KafkaPlanPublisher {
	return &KafkaPlanPublisher{p: p, topic: topic}
}

func (k *KafkaPlanPublisher) PublishPlan(ctx context.Context, key string, msg models.PlanResultMessage) error {
	if err := k.p.Publish(ctx, k.topic, []byte(key), msg); err != nil {
		return fmt.Errorf("publish plan %s: %w", key, err)
	}
	return nil
}

// PublishDigest sends each entry as its own message keyed by level.
func (k *KafkaPlanPublisher) PublishDigest(ctx context.Context, topic string, entries []applogger.DigestEntry) error {
	msgs := make([]kafka.Message, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, kafka.Message{Key: []byte(e.Level), Value: e})
	}
	return k.p.PublishBatch(ctx, topic, msgs)
}

func (k *KafkaPlanPublisher) Close() error {
	return k.p.Close()
}
