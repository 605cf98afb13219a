package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go-message-details/internal/observability"
	"go-message-details/pkg/models"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler processes consumed messages
type MessageHandler func(ctx context.Context, msg *models.Message) error

// ConsumerClient defines the interface for Kafka consumer operations
type ConsumerClient interface {
	Start(ctx context.Context, handler MessageHandler) error
	Close() error
}

// messageReader is the subset of *kafka.Reader the consumer needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer implements ConsumerClient with worker pool and retry/DLQ logic
type Consumer struct {
	reader           messageReader
	producer         ProducerClient
	logger           *zap.Logger
	metrics          observability.MetricsCollector
	workers          int
	retryMax         int
	retryTopicPrefix string
	dlqTopic         string
	dedupeStore      DedupeStore
	fetchErrBackoff  time.Duration
	wg               sync.WaitGroup
}

type ConsumerConfig struct {
	Brokers          []string
	Topic            string
	GroupID          string
	Workers          int
	RetryMax         int
	FetchMinBytes    int
	FetchMaxBytes    int
	RetryTopicPrefix string
	DLQTopic         string
	Metrics          observability.MetricsCollector
	DedupeStore      DedupeStore
	Logger           *zap.Logger
}

func NewConsumer(cfg ConsumerConfig, producer ProducerClient) *Consumer {
	return newConsumer(cfg, kafka.NewReader(readerConfig(cfg)), producer)
}

// readerConfig subscribes the group to the request topic and to every retry
// stage, so retried copies come back through the same handler.
func readerConfig(cfg ConsumerConfig) kafka.ReaderConfig {
	rc := kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		MinBytes:       cfg.FetchMinBytes,
		MaxBytes:       cfg.FetchMaxBytes,
		CommitInterval: 0, // synchronous commits
		StartOffset:    kafka.LastOffset,
	}
	if cfg.GroupID == "" {
		rc.Topic = cfg.Topic
		return rc
	}
	rc.GroupTopics = []string{cfg.Topic}
	if cfg.RetryTopicPrefix != "" {
		for n := 1; n <= cfg.RetryMax; n++ {
			rc.GroupTopics = append(rc.GroupTopics, retryTopic(cfg.RetryTopicPrefix, n))
		}
	}
	return rc
}

func retryTopic(prefix string, n int) string {
	return fmt.Sprintf("%s-%d", prefix, n)
}

func newConsumer(cfg ConsumerConfig, reader messageReader, producer ProducerClient) *Consumer {
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewInMemoryMetrics()
	}
	if cfg.DedupeStore == nil {
		cfg.DedupeStore = NewInMemoryDedupeStore(1 * time.Hour)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Consumer{
		reader:           reader,
		producer:         producer,
		logger:           cfg.Logger,
		metrics:          cfg.Metrics,
		workers:          cfg.Workers,
		retryMax:         cfg.RetryMax,
		retryTopicPrefix: cfg.RetryTopicPrefix,
		dlqTopic:         cfg.DLQTopic,
		dedupeStore:      cfg.DedupeStore,
		fetchErrBackoff:  time.Second,
	}
}

// Start consumes until ctx is cancelled, then waits for in-flight work.
func (c *Consumer) Start(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Starting consumer", zap.Int("workers", c.workers))

	msgChan := make(chan kafka.Message, c.workers*2)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, msgChan, handler)
	}

	c.wg.Add(1)
	go c.fetcher(ctx, msgChan)

	c.wg.Wait()
	return nil
}

// fetcher reads messages from Kafka and sends to worker pool
func (c *Consumer) fetcher(ctx context.Context, msgChan chan<- kafka.Message) {
	defer c.wg.Done()
	defer close(msgChan)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Fetcher stopping due to context cancellation")
				return
			}
			c.logger.Error("Failed to fetch message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.fetchErrBackoff):
			}
			continue
		}

		c.metrics.IncReceived()

		select {
		case msgChan <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// worker drains msgChan; it exits only when the fetcher closes it.
func (c *Consumer) worker(ctx context.Context, id int, msgChan <-chan kafka.Message, handler MessageHandler) {
	defer c.wg.Done()
	c.logger.Debug("Worker started", zap.Int("worker_id", id))

	for msg := range msgChan {
		c.processMessage(ctx, msg, handler, id)
	}
	c.logger.Debug("Worker stopping - channel closed", zap.Int("worker_id", id))
}

// processMessage handles message processing with retry and DLQ logic
func (c *Consumer) processMessage(ctx context.Context, kafkaMsg kafka.Message, handler MessageHandler, workerID int) {
	msg := c.toInternalMessage(kafkaMsg)
	requestID, hasRequestID := msg.Headers[models.HeaderRequestID]

	logger := c.logger.With(
		zap.String("topic", kafkaMsg.Topic),
		zap.Int("partition", kafkaMsg.Partition),
		zap.Int64("offset", kafkaMsg.Offset),
		zap.String("request_id", requestID),
		zap.Int("worker_id", workerID),
	)

	reserved := false
	if hasRequestID {
		ok, err := c.dedupeStore.Reserve(requestID)
		switch {
		case err != nil:
			logger.Warn("Dedupe store unavailable, processing anyway", zap.Error(err))
		case !ok:
			logger.Info("Duplicate request detected, skipping")
			c.commitMessage(kafkaMsg)
			return
		default:
			reserved = true
		}
	}

	retryCount := c.getRetryCount(msg)

	err := handler(ctx, msg)
	if err == nil {
		c.metrics.IncProcessed()
		logger.Debug("Message processed successfully")
		c.commitMessage(kafkaMsg)
		return
	}

	c.metrics.IncFailed()
	logger.Error("Message processing failed", zap.Error(err))

	// The retry or DLQ copy carries the same request-id.
	if reserved {
		if relErr := c.dedupeStore.Release(requestID); relErr != nil {
			logger.Warn("Failed to release request reservation", zap.Error(relErr))
		}
	}

	var fwdErr error
	if c.retryTopicPrefix != "" && retryCount < c.retryMax && !IsPermanent(err) {
		fwdErr = c.sendToRetry(ctx, msg, kafkaMsg.Topic, retryCount+1, err)
	} else {
		fwdErr = c.sendToDLQ(ctx, msg, kafkaMsg.Topic, err)
	}
	if fwdErr != nil {
		logger.Error("Leaving message uncommitted", zap.Error(fwdErr))
		return
	}
	c.commitMessage(kafkaMsg)
}

func (c *Consumer) commitMessage(msg kafka.Message) {
	if err := c.reader.CommitMessages(context.Background(), msg); err != nil {
		c.logger.Error("Failed to commit message", zap.Error(err))
	}
}

func (c *Consumer) sendToRetry(ctx context.Context, msg *models.Message, sourceTopic string, retryCount int, failureErr error) error {
	topic := retryTopic(c.retryTopicPrefix, retryCount)

	msg.Headers[models.HeaderRetryCount] = strconv.Itoa(retryCount)
	msg.Headers[models.HeaderRetryAttempt] = strconv.Itoa(retryCount)
	msg.Headers[models.HeaderFailureReason] = failureErr.Error()
	if _, ok := msg.Headers[models.HeaderOriginalTopic]; !ok {
		msg.Headers[models.HeaderOriginalTopic] = sourceTopic
	}

	if err := c.producer.Publish(ctx, topic, msg.Key, msg.Value, msg.Headers); err != nil {
		return fmt.Errorf("failed to send message to retry topic %s: %w", topic, err)
	}
	c.metrics.IncRetried()
	c.logger.Warn("Message sent to retry topic",
		zap.String("topic", topic),
		zap.Int("retry_count", retryCount),
	)
	return nil
}

func (c *Consumer) sendToDLQ(ctx context.Context, msg *models.Message, sourceTopic string, failureErr error) error {
	msg.Headers[models.HeaderFailureReason] = failureErr.Error()
	msg.Headers[models.HeaderProcessedAt] = time.Now().UTC().Format(time.RFC3339)
	if _, ok := msg.Headers[models.HeaderOriginalTopic]; !ok {
		msg.Headers[models.HeaderOriginalTopic] = sourceTopic
	}

	if err := c.producer.Publish(ctx, c.dlqTopic, msg.Key, msg.Value, msg.Headers); err != nil {
		return fmt.Errorf("failed to send message to DLQ %s: %w", c.dlqTopic, err)
	}
	c.metrics.IncSentToDLQ()
	c.logger.Info("Message sent to DLQ", zap.String("topic", c.dlqTopic))
	return nil
}

func (c *Consumer) toInternalMessage(kafkaMsg kafka.Message) *models.Message {
	headers := make(map[string]string, len(kafkaMsg.Headers))
	for _, h := range kafkaMsg.Headers {
		headers[h.Key] = string(h.Value)
	}

	return &models.Message{
		ID:        headers[models.HeaderRequestID],
		Key:       string(kafkaMsg.Key),
		Value:     kafkaMsg.Value,
		Headers:   headers,
		Timestamp: kafkaMsg.Time,
	}
}

// getRetryCount extracts retry count from message headers
func (c *Consumer) getRetryCount(msg *models.Message) int {
	if countStr, ok := msg.Headers[models.HeaderRetryCount]; ok {
		if count, err := strconv.Atoi(countStr); err == nil {
			return count
		}
	}
	return 0
}

// Close gracefully shuts down the consumer
func (c *Consumer) Close() error {
	c.logger.Info("Closing consumer")
	var errs []error
	if closer, ok := c.dedupeStore.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close dedupe store: %w", err))
		}
	}
	if err := c.reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
	}
	return errors.Join(errs...)
}
