// backend/observability/metrics.go
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lottometeo"

// Metrics holds the Prometheus collectors for ingestion and the scheduler.
type Metrics struct {
	ScrapeRuns    *prometheus.CounterVec // labels: outcome={success,fetch_error,store_error}
	RowsDropped   *prometheus.CounterVec // labels: reason={no_id,no_date,too_few_numbers,invalid,duplicate}
	DrawsUpserted prometheus.Counter

	WeatherCollections *prometheus.CounterVec // labels: source={live,fallback}
	WeatherSaved       prometheus.Counter
	DrawsLinked        prometheus.Counter

	JobDuration      *prometheus.HistogramVec // labels: job={combined,weather,lottery}
	JobFailures      *prometheus.CounterVec   // labels: job
	SchedulerRunning prometheus.Gauge

	EventsPublished prometheus.Counter
	PublishErrors   prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ScrapeRuns,
		m.RowsDropped,
		m.DrawsUpserted,
		m.WeatherCollections,
		m.WeatherSaved,
		m.DrawsLinked,
		m.JobDuration,
		m.JobFailures,
		m.SchedulerRunning,
		m.EventsPublished,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics so tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ScrapeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrape_runs_total",
			Help:      "Draw archive scrape cycles by outcome.",
		}, []string{"outcome"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrape_rows_dropped_total",
			Help:      "Archive rows that did not produce a draw, by reason.",
		}, []string{"reason"}),
		DrawsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draws_upserted_total",
			Help:      "Draw rows inserted or refreshed.",
		}),
		WeatherCollections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_collections_total",
			Help:      "Weather fetches by source (live provider or fallback).",
		}, []string{"source"}),
		WeatherSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_observations_saved_total",
			Help:      "Weather observations appended to history.",
		}),
		DrawsLinked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draws_weather_linked_total",
			Help:      "Draw rows that received a weather snapshot.",
		}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled collection jobs.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"job"}),
		JobFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_failures_total",
			Help:      "Scheduled jobs that returned an error.",
		}, []string{"job"}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 while the collection scheduler loop is active.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Ingestion events written to Kafka.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_errors_total",
			Help:      "Failed Kafka publish attempts.",
		}),
	}
}
