package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "ecomet"

// Collector is a prometheus.Collector with the application metrics.
type Collector struct {
	GithubRequests      *prometheus.CounterVec
	GithubRateLimited   prometheus.Counter
	ScrapedRepositories prometheus.Counter
	StoredRows          *prometheus.CounterVec
	StoreFailures       *prometheus.CounterVec
	DroppedRows         *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		GithubRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "github",
				Name:      "requests_total",
				Help:      "The number of GitHub API requests by response status.",
			}, []string{"status"},
		),
		GithubRateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "github",
				Name:      "rate_limited_total",
				Help:      "The number of waits for the GitHub rate limit reset.",
			},
		),
		ScrapedRepositories: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "github",
				Name:      "scraped_repositories_total",
				Help:      "The number of processed repositories.",
			},
		),
		StoredRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "clickhouse",
				Name:      "stored_rows_total",
				Help:      "The number of rows written to ClickHouse.",
			}, []string{"table"},
		),
		StoreFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "clickhouse",
				Name:      "failed_batches_total",
				Help:      "The number of batches ClickHouse rejected.",
			}, []string{"table"},
		),
		DroppedRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "clickhouse",
				Name:      "dropped_rows_total",
				Help:      "The number of queued rows dropped on overflow or left unwritten on close.",
			}, []string{"table"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "The number of handled API requests.",
			}, []string{"method", "route", "code"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "The time taken to handle API requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "route"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.GithubRequests.Describe(ch)
	c.GithubRateLimited.Describe(ch)
	c.ScrapedRepositories.Describe(ch)
	c.StoredRows.Describe(ch)
	c.StoreFailures.Describe(ch)
	c.DroppedRows.Describe(ch)
	c.HTTPRequests.Describe(ch)
	c.HTTPDuration.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.GithubRequests.Collect(ch)
	c.GithubRateLimited.Collect(ch)
	c.ScrapedRepositories.Collect(ch)
	c.StoredRows.Collect(ch)
	c.StoreFailures.Collect(ch)
	c.DroppedRows.Collect(ch)
	c.HTTPRequests.Collect(ch)
	c.HTTPDuration.Collect(ch)
}

// NewRegistry creates a registry with the collector and the Go runtime metrics.
func NewRegistry(c *Collector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	for _, col := range []prometheus.Collector{
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
