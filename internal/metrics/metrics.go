package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "farmconnect"

// Metrics holds the service collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry *prometheus.Registry

	otpIssued        *prometheus.CounterVec
	otpVerify        *prometheus.CounterVec
	dispatchFailures *prometheus.CounterVec
	messagesSent     prometheus.Counter
	realtimeConns    prometheus.Gauge
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		otpIssued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_issued_total",
			Help:      "OTP codes generated, by channel and kind (signup or resend).",
		}, []string{"channel", "kind"}),
		otpVerify: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_verifications_total",
			Help:      "OTP verification attempts by result.",
		}, []string{"result"}),
		dispatchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_dispatch_failures_total",
			Help:      "OTP deliveries that failed and were swallowed.",
		}, []string{"channel"}),
		messagesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Chat messages stored.",
		}),
		realtimeConns: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_connections",
			Help:      "Open change feed websocket connections on this instance.",
		}),
	}
}

func (m *Metrics) OTPIssued(channel, kind string) {
	if m == nil {
		return
	}
	m.otpIssued.WithLabelValues(channel, kind).Inc()
}

func (m *Metrics) OTPVerified(result string) {
	if m == nil {
		return
	}
	m.otpVerify.WithLabelValues(result).Inc()
}

func (m *Metrics) DispatchFailed(channel string) {
	if m == nil {
		return
	}
	m.dispatchFailures.WithLabelValues(channel).Inc()
}

func (m *Metrics) MessageSent() {
	if m == nil {
		return
	}
	m.messagesSent.Inc()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.realtimeConns.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.realtimeConns.Dec()
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
