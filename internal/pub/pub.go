package pub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"statement-line-service/internal/domain"
	"statement-line-service/pkg/utils/id"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	LineEventsChannel = "statement_line_events"
	LineEventsTopic   = "statement-line-events"
)

// Publisher sends statement line lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event *domain.LineEvent) error
}

// NewLineEvent stamps a fresh event for the line.
func NewLineEvent(eventType domain.LineEventType, lineID, statementID int64, state domain.LineState, moveIDs []int64) *domain.LineEvent {
	return &domain.LineEvent{
		ID:          id.GenerateEventID("sle"),
		EventType:   eventType,
		LineID:      lineID,
		StatementID: statementID,
		State:       state,
		MoveIDs:     moveIDs,
		Timestamp:   time.Now().UTC(),
	}
}

// RedisPublisher publishes events on a redis pub/sub channel.
type RedisPublisher struct {
	rdb     redis.UniversalClient
	channel string
	logger  *zap.Logger
}

func NewRedisPublisher(rdb redis.UniversalClient, channel string, logger *zap.Logger) *RedisPublisher {
	if channel == "" {
		channel = LineEventsChannel
	}
	return &RedisPublisher{rdb: rdb, channel: channel, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, event *domain.LineEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("line event published",
		zap.String("channel", p.channel),
		zap.String("event_type", string(event.EventType)),
		zap.Int64("line_id", event.LineID))
	return nil
}

// KafkaPublisher writes events to a kafka topic keyed by line id, so all
// events of one line land on the same partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaWriter builds the writer used by KafkaPublisher.
func NewKafkaWriter(brokers []string, topic string, logger *zap.Logger) *kafka.Writer {
	if topic == "" {
		topic = LineEventsTopic
	}
	sugar := logger.Sugar()
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		Compression:  kafka.Snappy,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			sugar.Debugf("[kafka] "+msg, args...)
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			sugar.Errorf("[kafka] "+msg, args...)
		}),
	}
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.LineEvent) error {
	msg, err := newKafkaMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func newKafkaMessage(event *domain.LineEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(event.LineID, 10)),
		Value: payload,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}, nil
}

// MultiPublisher fans an event out to every publisher and joins their errors.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, event *domain.LineEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every event. Used when EVENTS_ENABLED=false.
type Nop struct{}

func (Nop) Publish(context.Context, *domain.LineEvent) error { return nil }
