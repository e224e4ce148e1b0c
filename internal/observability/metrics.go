package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "boiler_scraper"

// Product outcomes counted by ProductsTotal.
const (
	OutcomeCreated          = "created"
	OutcomeUpdated          = "updated"
	OutcomeSkippedNotTarget = "skipped_not_target"
	OutcomeSkippedExisting  = "skipped_existing"
	OutcomeError            = "error"
)

// Metrics owns its registry so several instances can live side by side in
// tests. All methods are safe on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	PagesVisited  prometheus.Counter
	ProductsTotal *prometheus.CounterVec
	RunsTotal     *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	BatchFlushes  prometheus.Counter
	EventsTotal   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PagesVisited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_visited_total",
			Help:      "Listing pages collected.",
		}),
		ProductsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_total",
			Help:      "Products seen on listing pages, by outcome.",
		}, []string{"outcome"}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished scrape runs, by status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of scrape runs.",
			Buckets:   []float64{30, 60, 120, 300, 600, 1200, 1800, 3600},
		}),
		BatchFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_flushes_total",
			Help:      "Batches written to the store.",
		}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_total",
			Help:      "Outbox events relayed to redis, by type and result.",
		}, []string{"event_type", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.PagesVisited,
		m.ProductsTotal,
		m.RunsTotal,
		m.RunDuration,
		m.BatchFlushes,
		m.EventsTotal,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) PageVisited() {
	if m == nil {
		return
	}
	m.PagesVisited.Inc()
}

func (m *Metrics) Products(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ProductsTotal.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) BatchFlushed() {
	if m == nil {
		return
	}
	m.BatchFlushes.Inc()
}

func (m *Metrics) RunFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(d.Seconds())
}

// ObservePublish matches database.PublishObserver.
func (m *Metrics) ObservePublish(eventType string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsTotal.WithLabelValues(eventType, result).Inc()
}
