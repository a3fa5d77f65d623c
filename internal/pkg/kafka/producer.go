package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Producer interface {
	SendMessage(ctx context.Context, key string, message interface{}) error
	Close() error
}

type ProducerConfig struct {
	Enabled      bool
	Brokers      []string
	Topic        string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

type kafkaProducer struct {
	writer       *kafka.Writer
	writeTimeout time.Duration
}

// NewProducer connects to the first broker and makes sure the topic exists.
// When publishing is disabled or the broker is unreachable a logging mock is
// returned so slicing never depends on Kafka.
func NewProducer(cfg ProducerConfig) Producer {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		logrus.Info("Run event publishing disabled")
		return &mockProducer{topic: cfg.Topic}
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}

	// check the broker and create the topic
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		logrus.Warnf("Kafka connection failed: %v. Using mock producer instead", err)
		return &mockProducer{topic: cfg.Topic}
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             cfg.Topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		logrus.Warnf("Could not create topic %s (might already exist): %v", cfg.Topic, err)
	}

	logrus.Infof("Connected to Kafka at %v, topic %s", cfg.Brokers, cfg.Topic)
	return newKafkaProducer(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}, cfg.WriteTimeout)
}

func newKafkaProducer(writer *kafka.Writer, writeTimeout time.Duration) *kafkaProducer {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &kafkaProducer{writer: writer, writeTimeout: writeTimeout}
}

func (p *kafkaProducer) SendMessage(ctx context.Context, key string, message interface{}) error {
	msg, err := buildMessage(key, message)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logrus.Errorf("Failed to write message to Kafka: %v", err)
		return err
	}

	logrus.Debugf("Message %s sent to topic %s", key, p.writer.Topic)
	return nil
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

func buildMessage(key string, message interface{}) (kafka.Message, error) {
	value, err := json.Marshal(message)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}, nil
}

// mockProducer stands in when Kafka is disabled or unreachable.
type mockProducer struct {
	topic string
}

func (m *mockProducer) SendMessage(_ context.Context, key string, message interface{}) error {
	if _, err := buildMessage(key, message); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"topic": m.topic, "key": key}).Debug("MOCK: run event")
	return nil
}

func (m *mockProducer) Close() error {
	return nil
}
