package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go-message-details/internal/config"
	"go-message-details/internal/kafka"
	"go-message-details/internal/mock"
	"go-message-details/internal/observability"
	"go-message-details/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	serviceName := flag.String("service", "", "consumer group id, overrides KAFKA_CONSUMER_GROUP_ID")
	flag.Parse()

	cfg := config.Load()
	if *serviceName != "" {
		cfg.Consumer.GroupID = *serviceName
	}
	observability.InitLogger(cfg.Logging.Level)
	log := observability.GetLogger()

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	zlog, err := zap.NewProduction()
	if err != nil {
		log.WithError(err).Fatal("Failed to build transport logger")
	}
	defer zlog.Sync()

	metrics := observability.NewInMemoryMetrics()

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:    cfg.Kafka.Brokers,
		Acks:       cfg.Producer.Acks,
		Retries:    cfg.Producer.Retries,
		Idempotent: cfg.Producer.Idempotent,
		Metrics:    metrics,
		Logger:     zlog.Named("producer"),
	})
	defer producer.Close()

	var dedupe kafka.DedupeStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		dedupe = kafka.NewRedisDedupeStore(rdb, "", cfg.Consumer.DedupeTTL)
	} else {
		dedupe = kafka.NewInMemoryDedupeStore(cfg.Consumer.DedupeTTL)
	}

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:          cfg.Kafka.Brokers,
		Topic:            cfg.Consumer.Topic,
		GroupID:          cfg.Consumer.GroupID,
		Workers:          cfg.Consumer.Workers,
		RetryMax:         cfg.Consumer.RetryMax,
		FetchMinBytes:    cfg.Consumer.FetchMinBytes,
		FetchMaxBytes:    cfg.Consumer.FetchMaxBytes,
		RetryTopicPrefix: cfg.Consumer.RetryTopicPrefix,
		DLQTopic:         cfg.Consumer.DLQTopic,
		Metrics:          metrics,
		DedupeStore:      dedupe,
		Logger:           zlog.Named("consumer"),
	}, producer)
	defer consumer.Close()

	responder := service.NewDetailsResponder(mock.NewBuilder(), producer, cfg.Responder.ReplyTopic, metrics)
	monitor := kafka.NewBrokerMonitor(cfg.Kafka.Brokers, 5)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := monitor.HealthCheck(ctx); err != nil {
		log.WithError(err).Warn("Brokers not reachable at startup")
	}

	log.WithFields(logrus.Fields{
		"topic":        cfg.Consumer.Topic,
		"retry_prefix": cfg.Consumer.RetryTopicPrefix,
		"retry_max":    cfg.Consumer.RetryMax,
		"group_id":     cfg.Consumer.GroupID,
		"reply_topic":  cfg.Responder.ReplyTopic,
	}).Info("Starting message details responder")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Start(gctx, responder.Process)
	})
	g.Go(func() error {
		monitor.Watch(gctx, cfg.Kafka.HealthCheckInterval, nil)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Responder stopped with error")
	}
	log.WithField("metrics", metrics.Snapshot()).Info("Responder stopped")
}
