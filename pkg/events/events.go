// Package events publishes domain events as JSON messages keyed by an
// entity id. KafkaPublisher writes to a Kafka topic; LogPublisher records
// events in the log when no brokers are configured.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dmitrymomot/authsvc/pkg/logger"
)

var (
	ErrMarshal = errors.New("events: failed to marshal event")
	ErrPublish = errors.New("events: failed to publish event")
)

// Config selects the event sink.
type Config struct {
	Brokers      []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic        string        `env:"KAFKA_TOPIC" envDefault:"auth.events"`
	WriteTimeout time.Duration `env:"KAFKA_WRITE_TIMEOUT" envDefault:"5s"`
}

// Publisher publishes value under key.
type Publisher interface {
	Publish(ctx context.Context, key string, value any) error
	Close() error
}

// Writer is the part of kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes JSON events to a topic. Messages with the same key
// land on the same partition, so events of one user stay ordered.
type KafkaPublisher struct {
	writer  Writer
	timeout time.Duration
}

// NewKafkaPublisher returns a publisher backed by a kafka.Writer.
func NewKafkaPublisher(cfg Config) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           cfg.WriteTimeout,
	}, cfg.WriteTimeout)
}

// NewKafkaPublisherWithWriter wraps an existing writer. A non-positive
// timeout leaves the caller's deadline untouched.
func NewKafkaPublisherWithWriter(w Writer, timeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{writer: w, timeout: timeout}
}

// Publish encodes value as JSON and writes it keyed by key. Keying by user
// id keeps one user's events ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return errors.Join(ErrMarshal, err)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b}); err != nil {
		return errors.Join(ErrPublish, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher logs events at debug level.
type LogPublisher struct {
	log *slog.Logger
}

// NewLogPublisher returns a Publisher that only logs. It is used when no
// brokers are configured.
func NewLogPublisher(log *slog.Logger) *LogPublisher {
	if log == nil {
		log = logger.Discard()
	}
	return &LogPublisher{log: log.With(logger.Component("events"))}
}

// Publish logs the event at debug level.
func (p *LogPublisher) Publish(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return errors.Join(ErrMarshal, err)
	}
	p.log.DebugContext(ctx, "event", slog.String("key", key), slog.String("payload", string(b)))
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// New returns a KafkaPublisher when brokers are configured and a
// LogPublisher otherwise.
func New(cfg Config, log *slog.Logger) Publisher {
	if len(cfg.Brokers) == 0 {
		return NewLogPublisher(log)
	}
	return NewKafkaPublisher(cfg)
}
