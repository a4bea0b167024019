package thumbnail

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Publisher writes one message per stored detection. The message value is
// the detection id.
type Publisher struct {
	w *kafka.Writer
}

func NewPublisher(broker, topic string) *Publisher {
	return &Publisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

func (p *Publisher) PublishDetection(ctx context.Context, id uuid.UUID) error {
	const op = "thumbnail.PublishDetection"

	err := p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(id.String()),
		Value: []byte(id.String()),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.w.Close()
}

// MessageReader is the subset of *kafka.Reader the worker needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

func NewReader(broker, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   topic,
		GroupID: groupID,
	})
}
