package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go-message-details/internal/config"
	"go-message-details/internal/kafka"
	"go-message-details/internal/observability"
	"go-message-details/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Publishes one details request per message id argument.
func main() {
	timeout := flag.Duration("timeout", 30*time.Second, "overall publish timeout")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <message-id>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	observability.InitLogger(cfg.Logging.Level)
	log := observability.GetLogger()

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:    cfg.Kafka.Brokers,
		Acks:       cfg.Producer.Acks,
		Retries:    cfg.Producer.Retries,
		Idempotent: cfg.Producer.Idempotent,
		MaxRetries: 5,
	})
	defer producer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	failed := 0
	for _, messageID := range flag.Args() {
		req := models.DetailsRequest{
			RequestID: uuid.NewString(),
			MessageID: messageID,
		}
		payload, err := json.Marshal(req)
		if err != nil {
			log.WithError(err).Fatal("Failed to encode request")
		}

		entry := log.WithFields(logrus.Fields{
			"request_id": req.RequestID,
			"message_id": req.MessageID,
		})
		err = producer.Publish(ctx, cfg.Producer.Topic, req.MessageID, payload, map[string]string{
			models.HeaderRequestID:   req.RequestID,
			models.HeaderContentType: "application/json",
		})
		if err != nil {
			failed++
			entry.WithError(err).Error("Failed to send details request")
			continue
		}
		entry.Info("Details request sent")
	}

	if failed > 0 {
		producer.Close()
		os.Exit(1)
	}
}
