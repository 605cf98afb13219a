package kafka

import (
	"context"
	"fmt"
	"math"
	"time"

	"go-message-details/internal/observability"

	kafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// BrokerMonitor checks broker reachability and drives reconnection.
type BrokerMonitor struct {
	brokers     []string
	logger      *logrus.Logger
	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	check       func(ctx context.Context) error
}

func NewBrokerMonitor(brokers []string, maxRetries int) *BrokerMonitor {
	m := &BrokerMonitor{
		brokers:     brokers,
		logger:      observability.GetLogger(),
		maxRetries:  maxRetries,
		baseBackoff: 1 * time.Second,
		maxBackoff:  30 * time.Second,
	}
	m.check = m.dialBrokers
	return m
}

// HealthCheck succeeds when any broker answers a metadata request.
func (m *BrokerMonitor) HealthCheck(ctx context.Context) error {
	return m.check(ctx)
}

func (m *BrokerMonitor) dialBrokers(ctx context.Context) error {
	if len(m.brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}

	var lastErr error
	for _, broker := range m.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = fmt.Errorf("failed to connect to broker %s: %w", broker, err)
			continue
		}
		_, err = conn.Brokers()
		conn.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read metadata from %s: %w", broker, err)
			continue
		}
		return nil
	}
	return lastErr
}

// Watch runs health checks every interval until ctx is done, calling
// onReconnect after a failed check is followed by a successful one.
func (m *BrokerMonitor) Watch(ctx context.Context, interval time.Duration, onReconnect func() error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Broker monitor stopped")
			return
		case <-ticker.C:
			if err := m.HealthCheck(ctx); err != nil {
				m.logger.WithError(err).Warn("Health check failed, attempting reconnection")
				if err := m.reconnectWithBackoff(ctx, onReconnect); err != nil {
					m.logger.WithError(err).Error("Reconnection failed")
				}
			}
		}
	}
}

func (m *BrokerMonitor) reconnectWithBackoff(ctx context.Context, onReconnect func() error) error {
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		backoff := backoffFor(m.baseBackoff, m.maxBackoff, attempt)

		m.logger.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"backoff": backoff,
		}).Info("Attempting reconnection")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		if err := m.HealthCheck(ctx); err != nil {
			m.logger.WithError(err).Warn("Reconnection attempt failed")
			continue
		}

		if onReconnect != nil {
			if err := onReconnect(); err != nil {
				m.logger.WithError(err).Warn("Reconnect callback failed")
				continue
			}
		}

		m.logger.Info("Reconnection successful")
		return nil
	}

	return fmt.Errorf("failed to reconnect after %d attempts", m.maxRetries)
}

func (m *BrokerMonitor) Brokers() []string {
	return m.brokers
}

// backoffFor returns base*2^attempt capped at ceiling.
func backoffFor(base, ceiling time.Duration, attempt int) time.Duration {
	return time.Duration(math.Min(
		float64(base)*math.Pow(2, float64(attempt)),
		float64(ceiling),
	))
}
