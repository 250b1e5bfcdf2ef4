package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveTurn("gemini-1.5-flash", "ok", 1.2, 100, 20)
	m.ObserveTurn("gemini-1.5-flash", "ok", 0.8, 50, 10)
	m.PersistFailed()
	m.Dropped(2)
	m.Dropped(0)
	m.UpstreamFailed("converter")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChatTurns.WithLabelValues("gemini-1.5-flash", "ok")))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.TokensUsed.WithLabelValues("gemini-1.5-flash", "prompt")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DroppedMessages))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamFailures.WithLabelValues("converter")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTurn("x", "ok", 1, 1, 1)
		m.PersistFailed()
		m.Dropped(3)
		m.UpstreamFailed("search")
		m.ReportContext("hit")
	})
}
