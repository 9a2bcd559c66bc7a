package eventpublisher

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// batchTimeout bounds how long a single event waits for a batch to fill.
const batchTimeout = 5 * time.Millisecond

// MessageWriter is the part of kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each event to the Kafka topic of the same name.
type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaPublisher creates a publisher backed by a kafka.Writer. The writer
// has no fixed topic; every message carries its own.
func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           batchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	})
}

// NewKafkaPublisherWithWriter creates a publisher over an existing writer.
func NewKafkaPublisherWithWriter(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("kafka write %s: %w", topic, err)
	}

	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
