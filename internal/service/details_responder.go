package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go-message-details/internal/kafka"
	"go-message-details/internal/mock"
	"go-message-details/internal/observability"
	"go-message-details/pkg/models"

	"github.com/sirupsen/logrus"
)

// DetailsResponder answers DetailsRequest messages with mock details
// published to the reply topic.
type DetailsResponder struct {
	builder    *mock.Builder
	producer   kafka.ProducerClient
	replyTopic string
	metrics    observability.MetricsCollector
	logger     *logrus.Logger
}

func NewDetailsResponder(builder *mock.Builder, producer kafka.ProducerClient, replyTopic string, metrics observability.MetricsCollector) *DetailsResponder {
	if builder == nil {
		builder = mock.NewBuilder()
	}
	if metrics == nil {
		metrics = observability.NewInMemoryMetrics()
	}
	return &DetailsResponder{
		builder:    builder,
		producer:   producer,
		replyTopic: replyTopic,
		metrics:    metrics,
		logger:     observability.GetLogger(),
	}
}

// Process is a kafka.MessageHandler. Undecodable requests fail permanently;
// publish failures are retryable.
func (r *DetailsResponder) Process(ctx context.Context, msg *models.Message) error {
	var req models.DetailsRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return &kafka.PermanentError{Err: fmt.Errorf("failed to parse details request: %w", err)}
	}
	if req.RequestID == "" {
		req.RequestID = msg.Headers[models.HeaderRequestID]
	}

	entry := r.logger.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"message_id": req.MessageID,
	})
	entry.Debug("Building message details")

	details := r.builder.Build(req.MessageID)
	payload, err := json.Marshal(details)
	if err != nil {
		return &kafka.PermanentError{Err: fmt.Errorf("failed to encode details: %w", err)}
	}

	headers := map[string]string{
		models.HeaderMessageID:   details.Details.Headers[models.HeaderMessageID],
		models.HeaderContentType: "application/json",
	}
	if req.RequestID != "" {
		headers[models.HeaderCorrelationID] = req.RequestID
	}

	if err := r.producer.Publish(ctx, r.replyTopic, req.MessageID, payload, headers); err != nil {
		return &kafka.RetryableError{Err: fmt.Errorf("failed to publish details reply: %w", err)}
	}

	r.metrics.IncDetailsServed()
	entry.WithField("topic", r.replyTopic).Info("Message details published")
	return nil
}
