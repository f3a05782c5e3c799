package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConversationMetrics records counters for the message-handling pipeline.
type ConversationMetrics struct {
	inbound            *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	outboundDelivery   *prometheus.CounterVec
}

// NewConversationMetrics registers the pipeline metrics on the provided registerer.
func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	if reg == nil {
		return &ConversationMetrics{}
	}
	inbound := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inbound_messages_total",
		Help: "Inbound messages by phase and handler outcome.",
	}, []string{"phase", "outcome"})
	extraction := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "extraction_duration_seconds",
		Help:    "Latency of structured extraction calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})
	outbound := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbound_deliveries_total",
		Help: "Outbound message delivery attempts by result.",
	}, []string{"result"})
	reg.MustRegister(inbound, extraction, outbound)
	return &ConversationMetrics{
		inbound:            inbound,
		extractionDuration: extraction,
		outboundDelivery:   outbound,
	}
}

// IncInbound counts one handled inbound message.
func (m *ConversationMetrics) IncInbound(phase, outcome string) {
	if m == nil || m.inbound == nil {
		return
	}
	m.inbound.WithLabelValues(normalizeLabel(phase), normalizeLabel(outcome)).Inc()
}

// ObserveExtraction records the duration of one extraction call.
func (m *ConversationMetrics) ObserveExtraction(status string, duration time.Duration) {
	if m == nil || m.extractionDuration == nil {
		return
	}
	m.extractionDuration.WithLabelValues(normalizeLabel(status)).Observe(duration.Seconds())
}

// IncOutbound counts one delivery attempt result.
func (m *ConversationMetrics) IncOutbound(result string) {
	if m == nil || m.outboundDelivery == nil {
		return
	}
	m.outboundDelivery.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
