package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once     sync.Once
	registry *Registry
)

// Outcome labels for transport calls.
const (
	OutcomeOK        = "ok"
	OutcomeHTTPError = "http_error"
	OutcomeNetwork   = "network_error"
	OutcomeEmpty     = "empty_response"
	OutcomeDecode    = "decode_error"
	OutcomeRejected  = "rejected"
)

// Registry holds the console's metrics.
type Registry struct {
	// Rule transport (console -> router)
	TransportRequests *prometheus.CounterVec
	TransportDuration *prometheus.HistogramVec

	// Staging state
	DraftsPending *prometheus.GaugeVec
	Submissions   *prometheus.CounterVec
	Refreshes     *prometheus.CounterVec

	// Development backend
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = newRegistry(prometheus.DefaultRegisterer)
	})
	return registry
}

// NewRegistry builds a registry against reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return newRegistry(reg)
}

func newRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{}
	f := promauto.With(reg)

	r.TransportRequests = f.NewCounterVec(prometheus.CounterOpts{
		Name: "rulestage_transport_requests_total",
		Help: "Rule API calls by verb, category and outcome",
	}, []string{"verb", "category", "outcome"})

	r.TransportDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rulestage_transport_duration_seconds",
		Help:    "Rule API call latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"verb"})

	r.DraftsPending = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rulestage_drafts_pending",
		Help: "Rules staged locally and not yet submitted",
	}, []string{"category"})

	r.Submissions = f.NewCounterVec(prometheus.CounterOpts{
		Name: "rulestage_submissions_total",
		Help: "Batch submissions by category and status",
	}, []string{"category", "status"})

	r.Refreshes = f.NewCounterVec(prometheus.CounterOpts{
		Name: "rulestage_refreshes_total",
		Help: "Active list refreshes by category and status",
	}, []string{"category", "status"})

	r.APIRequests = f.NewCounterVec(prometheus.CounterOpts{
		Name: "rulestage_devapi_requests_total",
		Help: "Requests served by the development backend",
	}, []string{"method", "path", "status"})

	r.APILatency = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rulestage_devapi_request_duration_seconds",
		Help:    "Development backend latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	return r
}

// RecordTransport records one rule API call.
func (r *Registry) RecordTransport(verb, category, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.TransportRequests.WithLabelValues(verb, category, outcome).Inc()
	r.TransportDuration.WithLabelValues(verb).Observe(d.Seconds())
}

// SetDraftsPending publishes the staged-rule count for a category.
func (r *Registry) SetDraftsPending(category string, n int) {
	if r == nil {
		return
	}
	r.DraftsPending.WithLabelValues(category).Set(float64(n))
}

// RecordSubmission counts a batch submission.
func (r *Registry) RecordSubmission(category string, err error) {
	if r == nil {
		return
	}
	r.Submissions.WithLabelValues(category, status(err)).Inc()
}

// RecordRefresh counts an active-list refresh.
func (r *Registry) RecordRefresh(category string, err error) {
	if r == nil {
		return
	}
	r.Refreshes.WithLabelValues(category, status(err)).Inc()
}

// RecordAPIRequest records a request handled by the development backend.
func (r *Registry) RecordAPIRequest(method, path string, code int, duration float64) {
	if r == nil {
		return
	}
	r.APIRequests.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	r.APILatency.WithLabelValues(method, path).Observe(duration)
}

// Handler exposes the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
