package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/matchday-app/chat-service/pkg/log"
)

// KafkaNotifier publishes notifications to the topic consumed by the
// notification pipeline.
type KafkaNotifier struct {
	producer *kafka.Producer
	topic    string
	doneCh   chan struct{}
}

// NewKafkaNotifier creates a producer and ensures the topic exists.
func NewKafkaNotifier(brokers, topic string, partitions int) (*KafkaNotifier, error) {
	if err := ensureTopic(brokers, topic, partitions); err != nil {
		log.L().Warn().Err(err).Str("topic", topic).Msg("failed to ensure notification topic (may already exist)")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	n := &KafkaNotifier{
		producer: p,
		topic:    topic,
		doneCh:   make(chan struct{}),
	}

	go n.deliveryReportHandler()

	return n, nil
}

func ensureTopic(brokers, topic string, partitions int) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{
		{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		},
	})
	if err != nil {
		return err
	}

	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}

	return nil
}

func (n *KafkaNotifier) deliveryReportHandler() {
	for e := range n.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				log.L().Warn().Err(ev.TopicPartition.Error).Msg("notification delivery failed")
			}
		}
	}
	close(n.doneCh)
}

// Notify publishes the notification keyed by recipient so one user's
// notifications stay ordered.
func (n *KafkaNotifier) Notify(ctx context.Context, notification Notification) error {
	value, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	err = n.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &n.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(notification.Recipient),
		Value: value,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce notification: %w", err)
	}

	return nil
}

// Close flushes pending notifications and shuts the producer down.
func (n *KafkaNotifier) Close() error {
	n.producer.Flush(5000)
	n.producer.Close()
	<-n.doneCh
	return nil
}
