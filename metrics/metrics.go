// Package metrics exposes Prometheus metrics of the certificate registry.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ruteri/certificate-registry/interfaces"
)

// Metrics holds all registry metrics. Each instance owns its own
// prometheus.Registry so tests and multiple servers never collide.
type Metrics struct {
	registry  *prometheus.Registry
	namespace string

	// Issuance
	CertificatesIssuedTotal *prometheus.CounterVec // Committed certificates by mode (single, bulk)
	IssuanceRejectionsTotal *prometheus.CounterVec // Rejected issuance calls by reason

	// Access control
	IssuersAuthorizedTotal  prometheus.Counter // Successful AuthorizeIssuer calls
	AuthorizationRejections prometheus.Counter // AuthorizeIssuer calls by non-owners

	// Reads
	VerificationsTotal *prometheus.CounterVec // VerifyCertificate calls by result (valid, invalid)

	// Transport
	RequestDurationSeconds *prometheus.HistogramVec // Request latency by route and status code
}

// New creates a new Metrics instance with all metrics registered under namespace.
func New(namespace string) *Metrics {
	namespace = strings.ReplaceAll(namespace, "-", "_")
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry:  reg,
		namespace: namespace,

		CertificatesIssuedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "certificates_issued_total",
			Help:      "Total number of certificates committed to the registry by issuance mode",
		}, []string{"mode"}),

		IssuanceRejectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issuance_rejections_total",
			Help:      "Total number of rejected issuance calls by reason",
		}, []string{"reason"}),

		IssuersAuthorizedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issuers_authorized_total",
			Help:      "Total number of successful issuer authorizations",
		}),

		AuthorizationRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorization_rejections_total",
			Help:      "Total number of issuer authorizations attempted by non-owners",
		}),

		VerificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Total number of certificate verifications by result",
		}, []string{"result"}),

		RequestDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
	}
}

// Registry returns the registry all metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterCertificateCount exports the number of stored certificates.
func (m *Metrics) RegisterCertificateCount(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "certificates",
		Help:      "Current number of certificates in the registry",
	}, func() float64 { return float64(count()) }))
}

// RegisterArchive exports document archive progress.
func (m *Metrics) RegisterArchive(archived, failed func() uint64) {
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "archive_documents_stored_total",
			Help:      "Total number of certificate documents archived",
		}, func() float64 { return float64(archived()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "archive_failures_total",
			Help:      "Total number of certificate documents that could not be archived",
		}, func() float64 { return float64(failed()) }),
	)
}

// RecordIssued records n committed certificates.
func (m *Metrics) RecordIssued(mode string, n int) {
	m.CertificatesIssuedTotal.WithLabelValues(mode).Add(float64(n))
}

// RecordIssuanceRejection records a failed issuance call.
func (m *Metrics) RecordIssuanceRejection(err error) {
	m.IssuanceRejectionsTotal.WithLabelValues(RejectionReason(err)).Inc()
}

// RecordAuthorization records the outcome of an AuthorizeIssuer call.
func (m *Metrics) RecordAuthorization(err error) {
	if err != nil {
		m.AuthorizationRejections.Inc()
		return
	}
	m.IssuersAuthorizedTotal.Inc()
}

// RecordVerification records a VerifyCertificate result.
func (m *Metrics) RecordVerification(valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.VerificationsTotal.WithLabelValues(result).Inc()
}

// ObserveRequestDuration records the latency of a request.
func (m *Metrics) ObserveRequestDuration(route, code string, d time.Duration) {
	m.RequestDurationSeconds.WithLabelValues(route, code).Observe(d.Seconds())
}

// RejectionReason maps registry errors to a low-cardinality label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, interfaces.ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, interfaces.ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, interfaces.ErrDuplicateContent):
		return "duplicate_content"
	case errors.Is(err, interfaces.ErrLengthMismatch):
		return "length_mismatch"
	default:
		return "other"
	}
}

// MetricsServer serves the metrics registry on a dedicated address.
type MetricsServer struct {
	srv *http.Server
}

// NewMetricsServer creates a server exposing m at /metrics on addr.
func NewMetricsServer(addr string, m *Metrics) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.InstrumentMetricHandler(
		m.registry,
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Timeout: 10 * time.Second}),
	))

	return &MetricsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// ListenAndServe blocks until the server is shut down.
func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler returns the HTTP handler of the server.
func (s *MetricsServer) Handler() http.Handler {
	return s.srv.Handler
}
