// Package kafka publishes card events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bank-cards/config"
	"bank-cards/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const writeTimeout = 10 * time.Second

// messageWriter is the part of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements ports.EventPublisher. Messages are keyed by card id,
// so every event of one card lands on the same partition in order.
type Publisher struct {
	writer messageWriter
	topic  string
	log    zerolog.Logger
}

// NewPublisher creates an asynchronous publisher for cfg.Topic.
func NewPublisher(cfg config.KafkaConfig, log zerolog.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		Async:        true,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Debug().Msgf(msg, args...)
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error().Msgf(msg, args...)
		}),
	}
	writer.Completion = func(messages []kafka.Message, err error) {
		for _, msg := range messages {
			if err != nil {
				log.Error().Err(err).Str("key", string(msg.Key)).Msg("failed to deliver card event")
				continue
			}
			log.Debug().Str("key", string(msg.Key)).Int("partition", msg.Partition).Msg("card event delivered")
		}
	}

	log.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("Kafka publisher configured")
	return newPublisher(writer, cfg.Topic, log)
}

func newPublisher(w messageWriter, topic string, log zerolog.Logger) *Publisher {
	return &Publisher{writer: w, topic: topic, log: log}
}

// Publish enqueues ev.
func (p *Publisher) Publish(ctx context.Context, ev domain.CardEvent) error {
	msg, err := encode(ev)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("publishing %s to %s: %w", ev.Type, p.topic, err)
	}
	return nil
}

// Close flushes pending messages.
func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("closing kafka writer: %w", err)
	}
	p.log.Info().Msg("Kafka publisher closed")
	return nil
}

func encode(ev domain.CardEvent) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding card event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(ev.CardID.String()),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
			{Key: "event-id", Value: []byte(ev.ID.String())},
		},
	}, nil
}
