package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go-message-details/internal/observability"

	"github.com/joho/godotenv"
)

type Config struct {
	Kafka     KafkaConfig
	Logging   LoggingConfig
	Consumer  ConsumerConfig
	Producer  ProducerConfig
	Responder ResponderConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
}

type KafkaConfig struct {
	Brokers             []string
	HealthCheckInterval time.Duration
}

type LoggingConfig struct {
	Level string
}

type ConsumerConfig struct {
	Topic            string
	GroupID          string
	Workers          int
	RetryMax         int
	FetchMinBytes    int
	FetchMaxBytes    int
	RetryTopicPrefix string
	DLQTopic         string
	DedupeTTL        time.Duration
}

type ProducerConfig struct {
	Topic      string
	Acks       int
	Retries    int
	Idempotent bool
}

type ResponderConfig struct {
	ReplyTopic string
}

type HTTPConfig struct {
	Addr string
}

// RedisConfig enables the Redis dedupe store when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads .env from the working directory when present, then the
// process environment. A missing .env is not an error.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		observability.GetLogger().Debug(".env file not found, using environment only")
	}
	return FromEnv()
}

// LoadFiles is Load with explicit dotenv files, which must exist.
func LoadFiles(filenames ...string) (*Config, error) {
	if err := godotenv.Load(filenames...); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		Kafka: KafkaConfig{
			Brokers:             parseBrokers(getEnv("KAFKA_BROKERS", "localhost:9092")),
			HealthCheckInterval: getEnvDuration("KAFKA_HEALTHCHECK_INTERVAL", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Consumer: ConsumerConfig{
			Topic:            getEnv("KAFKA_CONSUMER_TOPIC", "message-details-requests"),
			GroupID:          getEnv("KAFKA_CONSUMER_GROUP_ID", "message-details-responder"),
			Workers:          getEnvInt("KAFKA_CONSUMER_WORKERS", 5),
			RetryMax:         getEnvInt("KAFKA_CONSUMER_RETRY_MAX", 3),
			FetchMinBytes:    getEnvInt("KAFKA_CONSUMER_FETCH_MIN_BYTES", 1024),
			FetchMaxBytes:    getEnvInt("KAFKA_CONSUMER_FETCH_MAX_BYTES", 10485760),
			RetryTopicPrefix: getEnv("KAFKA_RETRY_TOPIC_PREFIX", "message-details-requests-retry"),
			DLQTopic:         getEnv("KAFKA_DLQ_TOPIC", "message-details-requests-dlq"),
			DedupeTTL:        getEnvDuration("KAFKA_DEDUPE_TTL", time.Hour),
		},
		Producer: ProducerConfig{
			Topic:      getEnv("KAFKA_PRODUCER_TOPIC", "message-details-requests"),
			Acks:       parseAcks(getEnv("KAFKA_PRODUCER_ACKS", "all")),
			Retries:    getEnvInt("KAFKA_PRODUCER_RETRIES", 3),
			Idempotent: getEnvBool("KAFKA_PRODUCER_IDEMPOTENT", true),
		},
		Responder: ResponderConfig{
			ReplyTopic: getEnv("RESPONDER_REPLY_TOPIC", "message-details"),
		},
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("brokers cannot be empty"))
	}
	if c.Consumer.Topic == "" {
		errs = append(errs, errors.New("consumer topic cannot be empty"))
	}
	if c.Consumer.GroupID == "" {
		errs = append(errs, errors.New("consumer groupID cannot be empty"))
	}
	if c.Consumer.Workers <= 0 {
		errs = append(errs, errors.New("consumer workers must be greater than zero"))
	}
	if c.Consumer.RetryMax < 0 {
		errs = append(errs, errors.New("consumer retryMax cannot be negative"))
	}
	if c.Producer.Topic == "" {
		errs = append(errs, errors.New("producer topic cannot be empty"))
	}
	if c.Responder.ReplyTopic == "" {
		errs = append(errs, errors.New("responder reply topic cannot be empty"))
	}
	if c.Responder.ReplyTopic != "" && c.Responder.ReplyTopic == c.Consumer.Topic {
		errs = append(errs, errors.New("responder reply topic must differ from consumer topic"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	result := make([]string, 0, len(parts))
	for _, broker := range parts {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseAcks(acks string) int {
	switch strings.ToLower(acks) {
	case "all", "-1":
		return -1
	case "0":
		return 0
	case "1":
		return 1
	default:
		return -1 // default to all
	}
}
