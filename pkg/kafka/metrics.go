package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConsumerMetrics counts consumer outcomes per topic and group.
type ConsumerMetrics struct {
	received     *prometheus.CounterVec
	processed    *prometheus.CounterVec
	failed       *prometheus.CounterVec
	deadLettered *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewConsumerMetrics creates consumer collectors and registers them with reg.
func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	labels := []string{"topic", "consumer_group"}
	m := &ConsumerMetrics{
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_consumer_messages_received_total",
			Help: "Kafka messages fetched from the broker",
		}, labels),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_consumer_messages_processed_total",
			Help: "Kafka messages handled successfully",
		}, labels),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_consumer_messages_failed_total",
			Help: "Kafka messages that could not be decoded or exhausted retries",
		}, labels),
		deadLettered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_consumer_dlq_published_total",
			Help: "Kafka messages published to a dead-letter topic",
		}, labels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kafka_consumer_processing_duration_seconds",
			Help:    "Time spent handling a Kafka message, retries included",
			Buckets: prometheus.DefBuckets,
		}, labels),
	}
	reg.MustRegister(m.received, m.processed, m.failed, m.deadLettered, m.duration)
	return m
}

type outcome int

const (
	outcomeReceived outcome = iota
	outcomeProcessed
	outcomeFailed
	outcomeDeadLettered
)

// record is a no-op on a nil receiver so consumers may run without metrics.
func (m *ConsumerMetrics) record(o outcome, topic, group string) {
	if m == nil {
		return
	}
	var vec *prometheus.CounterVec
	switch o {
	case outcomeReceived:
		vec = m.received
	case outcomeProcessed:
		vec = m.processed
	case outcomeFailed:
		vec = m.failed
	case outcomeDeadLettered:
		vec = m.deadLettered
	default:
		return
	}
	vec.WithLabelValues(topic, group).Inc()
}

func (m *ConsumerMetrics) observe(topic, group string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(topic, group).Observe(d.Seconds())
}
