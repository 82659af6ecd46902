package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	appnotification "github.com/skyvolt/storefront/internal/application/notification"
)

// KafkaNotifier publishes notification messages to the notifications topic.
// The mailer consuming that topic is a separate deployment.
type KafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 5 * time.Second,
		},
	}
}

func (n *KafkaNotifier) Send(ctx context.Context, m appnotification.Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("kafka notifier: encode: %w", err)
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(m.To),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("kafka notifier: write: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
