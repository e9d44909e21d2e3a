package producers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tenx-bank-ledger/internal/config"
)

const (
	partitionReadAttempts = 5
	partitionReadBackoff  = 2 * time.Second
)

// topicAdmin is the part of *kafka.Conn used to provision topics
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

// topicSpec describes a topic to provision; zero counts default to 1
type topicSpec struct {
	name              string
	numPartitions     int
	replicationFactor int
}

func (s topicSpec) config() kafka.TopicConfig {
	cfg := kafka.TopicConfig{
		Topic:             s.name,
		NumPartitions:     s.numPartitions,
		ReplicationFactor: s.replicationFactor,
	}
	if cfg.NumPartitions <= 0 {
		cfg.NumPartitions = 1
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 1
	}
	return cfg
}

// createKafkaTopicIfNotExists creates the topic unless its partitions can be read
func createKafkaTopicIfNotExists(admin topicAdmin, spec topicSpec, log *slog.Logger) error {
	return ensureTopic(admin, spec, partitionReadBackoff, log)
}

func ensureTopic(admin topicAdmin, spec topicSpec, backoff time.Duration, log *slog.Logger) error {
	var (
		partitions []kafka.Partition
		err        error
	)

	log.Info("Checking if Kafka topic exists", "topic", spec.name)
	for i := 0; i < partitionReadAttempts; i++ {
		partitions, err = admin.ReadPartitions(spec.name)
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying", "topic", spec.name, "attempt", i+1, "error", err)
		time.Sleep(backoff)
	}

	if len(partitions) > 0 {
		log.Info("Kafka topic already exists", "topic", spec.name, "partitions", len(partitions))
		return nil
	}

	log.Info("Kafka topic does not exist or is not accessible, creating it", "topic", spec.name, "last_read_error", err)
	if err := admin.CreateTopics(spec.config()); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", spec.name, err)
	}
	log.Info("Created Kafka topic", "topic", spec.name)
	return nil
}

// newTopicWriter provisions topic on the configured brokers and returns a
// writer that waits for every in-sync replica to acknowledge
func newTopicWriter(ctx context.Context, log *slog.Logger, cfg *config.KafkaConfig, topic string, balancer kafka.Balancer) (*kafka.Writer, error) {
	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	spec := topicSpec{
		name:              topic,
		numPartitions:     cfg.NumPartitions,
		replicationFactor: cfg.ReplicationFactor,
	}
	if err := createKafkaTopicIfNotExists(conn, spec, log); err != nil {
		return nil, fmt.Errorf("failed to ensure topic %s exists: %w", topic, err)
	}

	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        topic,
		Balancer:     balancer,
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}, nil
}
