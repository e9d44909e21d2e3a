package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/tenx-bank-ledger/internal/config"
)

// TransferRequestProducer publishes async transfer requests to the transfer topic
type TransferRequestProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewTransferRequestProducer ensures the transfer topic exists and opens a writer on it
func NewTransferRequestProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*TransferRequestProducer, error) {
	if cfg.TransferTopic == "" {
		return nil, fmt.Errorf("kafka transfer topic is not configured")
	}

	// Hash keeps every delivery of one request id on one partition
	writer, err := newTopicWriter(ctx, logger, cfg, cfg.TransferTopic, &kafka.Hash{})
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer request producer: %w", err)
	}

	return &TransferRequestProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.TransferTopic,
	}, nil
}

// Publish writes value as JSON and returns once the brokers acknowledged it
func (p *TransferRequestProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish transfer request",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish transfer request to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published transfer request",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *TransferRequestProducer) Close() error {
	p.logger.Info("Closing transfer request producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
