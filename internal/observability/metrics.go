package observability

import (
	"sync/atomic"
)

// MetricsCollector provides hooks for metrics collection
type MetricsCollector interface {
	IncPublished()
	IncPublishFailed()
	IncReceived()
	IncProcessed()
	IncFailed()
	IncRetried()
	IncSentToDLQ()
	IncDetailsServed()
}

// InMemoryMetrics keeps counters in process; safe for concurrent use.
type InMemoryMetrics struct {
	published     atomic.Int64
	publishFailed atomic.Int64
	received      atomic.Int64
	processed     atomic.Int64
	failed        atomic.Int64
	retried       atomic.Int64
	sentToDLQ     atomic.Int64
	detailsServed atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Published     int64 `json:"published"`
	PublishFailed int64 `json:"publish_failed"`
	Received      int64 `json:"received"`
	Processed     int64 `json:"processed"`
	Failed        int64 `json:"failed"`
	Retried       int64 `json:"retried"`
	SentToDLQ     int64 `json:"sent_to_dlq"`
	DetailsServed int64 `json:"details_served"`
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{}
}

func (m *InMemoryMetrics) IncPublished()     { m.published.Add(1) }
func (m *InMemoryMetrics) IncPublishFailed() { m.publishFailed.Add(1) }
func (m *InMemoryMetrics) IncReceived()      { m.received.Add(1) }
func (m *InMemoryMetrics) IncProcessed()     { m.processed.Add(1) }
func (m *InMemoryMetrics) IncFailed()        { m.failed.Add(1) }
func (m *InMemoryMetrics) IncRetried()       { m.retried.Add(1) }
func (m *InMemoryMetrics) IncSentToDLQ()     { m.sentToDLQ.Add(1) }
func (m *InMemoryMetrics) IncDetailsServed() { m.detailsServed.Add(1) }

func (m *InMemoryMetrics) GetPublished() int64     { return m.published.Load() }
func (m *InMemoryMetrics) GetPublishFailed() int64 { return m.publishFailed.Load() }
func (m *InMemoryMetrics) GetReceived() int64      { return m.received.Load() }
func (m *InMemoryMetrics) GetProcessed() int64     { return m.processed.Load() }
func (m *InMemoryMetrics) GetFailed() int64        { return m.failed.Load() }
func (m *InMemoryMetrics) GetRetried() int64       { return m.retried.Load() }
func (m *InMemoryMetrics) GetSentToDLQ() int64     { return m.sentToDLQ.Load() }
func (m *InMemoryMetrics) GetDetailsServed() int64 { return m.detailsServed.Load() }

func (m *InMemoryMetrics) Snapshot() Snapshot {
	return Snapshot{
		Published:     m.published.Load(),
		PublishFailed: m.publishFailed.Load(),
		Received:      m.received.Load(),
		Processed:     m.processed.Load(),
		Failed:        m.failed.Load(),
		Retried:       m.retried.Load(),
		SentToDLQ:     m.sentToDLQ.Load(),
		DetailsServed: m.detailsServed.Load(),
	}
}
