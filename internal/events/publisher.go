package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/SyncSphere7/smartwin-official/internal/logger"
)

// Event types double as Kafka topic names.
const (
	TypePaymentCompleted      = "payment.completed"
	TypeConsultationRequested = "consultation.requested"
)

type Event struct {
	Type       string                 `json:"event_type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

func New(eventType string, data map[string]interface{}) Event {
	return Event{Type: eventType, OccurredAt: time.Now().UTC(), Data: data}
}

type Publisher interface {
	Publish(ctx context.Context, key string, ev Event) error
	Close() error
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
}

func NewKafkaPublisher(brokers []string) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	logger.Info("kafka producer connected", "brokers", brokers)
	return NewKafkaPublisherWithProducer(producer), nil
}

func NewKafkaPublisherWithProducer(p sarama.SyncProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: p}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: ev.Type,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send %s event: %w", ev.Type, err)
	}

	logger.Debug("event published", "type", ev.Type, "key", key, "partition", partition, "offset", offset)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher drops events. Used when KAFKA_BROKERS is empty.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, key string, ev Event) error {
	logger.Debug("event dropped, no brokers configured", "type", ev.Type, "key", key)
	return nil
}

func (NoopPublisher) Close() error { return nil }
