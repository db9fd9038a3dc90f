package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var connectionStatuses = []string{"disconnected", "connecting", "connected"}

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	connectionStatus *prometheus.GaugeVec
	connectAttempts  *prometheus.CounterVec
	disconnects      *prometheus.CounterVec
	seriesGenerated  *prometheus.CounterVec
	indicatorFetch   prometheus.Histogram
	strategies       prometheus.Gauge
	notifications    *prometheus.CounterVec
	jobsActive       *prometheus.GaugeVec
	streamClients    prometheus.Gauge
	schedulerRuns    *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.connectionStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pairdash_connection_status",
			Help: "1 for the current broker connection status, 0 for the others",
		},
		[]string{"status"},
	)
	r.connectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairdash_connect_attempts_total",
			Help: "Total number of broker connect attempts",
		},
		[]string{"result"},
	)
	r.disconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairdash_disconnects_total",
			Help: "Total number of broker disconnects",
		},
		[]string{"result"},
	)
	r.seriesGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairdash_series_generated_total",
			Help: "Total number of indicator series generated",
		},
		[]string{"kind"},
	)
	r.indicatorFetch = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pairdash_indicator_fetch_duration_seconds",
			Help:    "Indicator fetch duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5},
		},
	)
	r.strategies = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairdash_strategies",
			Help: "Number of configured strategies",
		},
	)
	r.notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairdash_notifications_total",
			Help: "Total number of notifications delivered",
		},
		[]string{"kind", "status"},
	)
	r.jobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pairdash_jobs_active",
			Help: "Number of active jobs",
		},
		[]string{"type"},
	)
	r.streamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairdash_stream_clients",
			Help: "Number of connected websocket clients",
		},
	)
	r.schedulerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairdash_scheduler_runs_total",
			Help: "Total number of scheduled job runs",
		},
		[]string{"job", "result"},
	)

	reg.MustRegister(r.connectionStatus)
	reg.MustRegister(r.connectAttempts)
	reg.MustRegister(r.disconnects)
	reg.MustRegister(r.seriesGenerated)
	reg.MustRegister(r.indicatorFetch)
	reg.MustRegister(r.strategies)
	reg.MustRegister(r.notifications)
	reg.MustRegister(r.jobsActive)
	reg.MustRegister(r.streamClients)
	reg.MustRegister(r.schedulerRuns)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// SetConnectionStatus marks status as the current connection status.
func (r *Registry) SetConnectionStatus(status string) {
	for _, s := range connectionStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		r.connectionStatus.WithLabelValues(s).Set(v)
	}
}

// RecordConnectAttempt counts a connect attempt by result.
func (r *Registry) RecordConnectAttempt(result string) {
	r.connectAttempts.WithLabelValues(result).Inc()
}

// RecordDisconnect counts a disconnect by result.
func (r *Registry) RecordDisconnect(result string) {
	r.disconnects.WithLabelValues(result).Inc()
}

// SeriesGenerated counts a generated indicator series.
func (r *Registry) SeriesGenerated(kind string) {
	r.seriesGenerated.WithLabelValues(kind).Inc()
}

// ObserveFetch records an indicator fetch.
func (r *Registry) ObserveFetch(d time.Duration) {
	r.indicatorFetch.Observe(d.Seconds())
}

// SetStrategies sets the number of configured strategies.
func (r *Registry) SetStrategies(n int) {
	r.strategies.Set(float64(n))
}

// RecordNotification counts a notification delivery.
func (r *Registry) RecordNotification(kind, status string) {
	r.notifications.WithLabelValues(kind, status).Inc()
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

// SetStreamClients sets the number of websocket clients.
func (r *Registry) SetStreamClients(n int) {
	r.streamClients.Set(float64(n))
}

// RecordSchedulerRun counts a scheduled job run.
func (r *Registry) RecordSchedulerRun(job, result string) {
	r.schedulerRuns.WithLabelValues(job, result).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
