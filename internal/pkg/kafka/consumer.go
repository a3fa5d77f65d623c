package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/imageslicer/internal/entity"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// RunEventHandler receives every decoded run event. A returned error is
// logged, the offset is still committed.
type RunEventHandler func(ctx context.Context, event entity.RunEvent) error

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader messageReader
}

func NewConsumer(cfg ConsumerConfig) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset, //-2 FirstOffset
	})
	return &Consumer{reader: reader}
}

// Run reads run events until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handle RunEventHandler) error {
	logrus.Info("Run event consumer started...")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			logrus.Errorf("Error reading message from Kafka: %v", err)
			continue
		}

		event, err := decodeRunEvent(msg)
		if err != nil {
			logrus.Warnf("Skipping message at offset %d: %v", msg.Offset, err)
			continue
		}

		if err := handle(ctx, event); err != nil {
			logrus.Errorf("Handling run %s failed: %v", event.RunID, err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func decodeRunEvent(msg kafka.Message) (entity.RunEvent, error) {
	var event entity.RunEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return entity.RunEvent{}, fmt.Errorf("failed to parse run event: %w", err)
	}
	if event.RunID == "" {
		event.RunID = string(msg.Key)
	}
	if event.RunID == "" {
		return entity.RunEvent{}, errors.New("run event without id")
	}
	return event, nil
}
