package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	ChatTurns          *prometheus.CounterVec
	StreamDuration     *prometheus.HistogramVec
	TokensUsed         *prometheus.CounterVec
	PersistFailures    prometheus.Counter
	DroppedMessages    prometheus.Counter
	UpstreamFailures   *prometheus.CounterVec
	ReportContextLoads *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filingchat_chat_turns_total",
			Help: "Chat turns by model and outcome.",
		}, []string{"model", "outcome"}),
		StreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "filingchat_stream_duration_seconds",
			Help:    "Time from model invocation to stream completion.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"model"}),
		TokensUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filingchat_tokens_total",
			Help: "Tokens reported by the model provider.",
		}, []string{"model", "kind"}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filingchat_finish_persist_failures_total",
			Help: "Messages that could not be stored after a stream finished.",
		}),
		DroppedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filingchat_sanitized_messages_total",
			Help: "Response messages dropped by sanitization.",
		}),
		UpstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filingchat_upstream_failures_total",
			Help: "Failed calls to external services.",
		}, []string{"service"}),
		ReportContextLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filingchat_report_context_loads_total",
			Help: "Report context lookups by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.ChatTurns,
		m.StreamDuration,
		m.TokensUsed,
		m.PersistFailures,
		m.DroppedMessages,
		m.UpstreamFailures,
		m.ReportContextLoads,
	)
	return m
}

func (m *Metrics) ObserveTurn(model, outcome string, seconds float64, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	m.ChatTurns.WithLabelValues(model, outcome).Inc()
	m.StreamDuration.WithLabelValues(model).Observe(seconds)
	m.TokensUsed.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	m.TokensUsed.WithLabelValues(model, "completion").Add(float64(completionTokens))
}

func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

func (m *Metrics) Dropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DroppedMessages.Add(float64(n))
}

func (m *Metrics) UpstreamFailed(service string) {
	if m == nil {
		return
	}
	m.UpstreamFailures.WithLabelValues(service).Inc()
}

func (m *Metrics) ReportContext(result string) {
	if m == nil {
		return
	}
	m.ReportContextLoads.WithLabelValues(result).Inc()
}
