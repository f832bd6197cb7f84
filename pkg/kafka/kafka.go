// Package kafka publishes and consumes JSON events on a single topic,
// carrying the trace context in message headers.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const batchTimeout = 10 * time.Millisecond

// Writer is the subset of *kafka.Writer used by Publisher.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Reader is the subset of *kafka.Reader used by Consumer.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Publisher struct {
	writer Writer
}

// NewPublisher writes to topic on the given brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	return NewPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: true,
	})
}

func NewPublisherWithWriter(w Writer) *Publisher {
	return &Publisher{writer: w}
}

// Publish writes one message and injects the trace context of ctx into its headers.
func (p *Publisher) Publish(ctx context.Context, key, value []byte) error {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	msg := kafka.Message{Key: key, Value: value}
	for k, v := range carrier {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.writer.Close() }

// Handler processes one message. The context carries the producer's trace.
type Handler func(ctx context.Context, msg kafka.Message) error

type Consumer struct {
	reader Reader
	logger *zap.Logger
}

// NewConsumer reads topic as part of groupID.
func NewConsumer(brokers []string, topic, groupID string, logger *zap.Logger) *Consumer {
	return NewConsumerWithReader(kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	}), logger)
}

func NewConsumerWithReader(r Reader, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{reader: r, logger: logger}
}

// Run reads until ctx is done. Handler errors are logged and the message is skipped.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	c.logger.Info("Kafka consumer started. Waiting for messages...")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				c.logger.Info("Context done, exiting Kafka read loop.", zap.Error(err))
				return nil
			}
			if errors.Is(err, io.EOF) {
				c.logger.Info("Kafka reader closed")
				return nil
			}
			c.logger.Error("Error reading from Kafka", zap.Error(err))
			continue
		}

		carrier := propagation.MapCarrier{}
		for _, h := range msg.Headers {
			carrier[h.Key] = string(h.Value)
		}
		msgCtx := otel.GetTextMapPropagator().Extract(ctx, carrier)

		if err := handle(msgCtx, msg); err != nil {
			c.logger.Error("Failed to handle Kafka message",
				zap.ByteString("key", msg.Key),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }
