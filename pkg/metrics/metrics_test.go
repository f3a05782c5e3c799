package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncInboundCountsByLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConversationMetrics(reg)

	m.IncInbound("idle", "handled")
	m.IncInbound("idle", "handled")
	m.IncInbound("", "error")

	if got := testutil.ToFloat64(m.inbound.WithLabelValues("idle", "handled")); got != 2 {
		t.Fatalf("expected 2 handled, got %v", got)
	}
	if got := testutil.ToFloat64(m.inbound.WithLabelValues("unknown", "error")); got != 1 {
		t.Fatalf("empty phase should be normalized to unknown, got %v", got)
	}
}

func TestNilReceiversAreNoOps(t *testing.T) {
	var m *ConversationMetrics
	m.IncInbound("idle", "handled")
	m.ObserveExtraction("ok", time.Second)
	m.IncOutbound("sent")

	empty := NewConversationMetrics(nil)
	empty.IncInbound("idle", "handled")
}
