package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Sink forwards events outside the process.
type Sink interface {
	Send(ctx context.Context, event Event) error
	Close() error
}

// KafkaSink writes events as JSON, keyed by user id so that one user's
// events stay ordered within a partition. Writes are asynchronous; delivery
// failures are logged by the completion callback.
type KafkaSink struct {
	w     *kafka.Writer
	topic string
	log   *zap.Logger
}

// NewKafkaSink builds a writer for topic on brokers.
func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) *KafkaSink {
	log := logger.With(zap.String("component", "kafka.sink"), zap.String("topic", topic))
	return &KafkaSink{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			Async:                  true,
			BatchTimeout:           50 * time.Millisecond,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					log.Error("kafka delivery failed", zap.Int("messages", len(messages)), zap.Error(err))
				}
			},
		},
		topic: topic,
		log:   log,
	}
}

func (s *KafkaSink) Send(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		s.log.Error("kafka write failed", zap.String("event_id", event.ID), zap.Error(err))
		return err
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.w.Close()
}
