package prometheus

import (
	"net/http"

	"github.com/MrEthical07/trackauth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trackauth"

// Source is the read side of *trackauth.Engine the collector needs.
type Source interface {
	MetricsSnapshot() trackauth.MetricsSnapshot
	NotificationsDropped() uint64
}

// Collector implements prometheus.Collector over an engine snapshot.
type Collector struct {
	source   Source
	counters map[trackauth.MetricID]*prometheus.Desc
	latency  *prometheus.Desc
	dropped  *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds the metric descriptors for source.
func NewCollector(source Source) *Collector {
	c := &Collector{
		source:   source,
		counters: make(map[trackauth.MetricID]*prometheus.Desc),
		latency: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", trackauth.MetricAuthenticateLatency.Name()+"_seconds"),
			trackauth.MetricAuthenticateLatency.Help(),
			nil, nil,
		),
		dropped: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "notifications_dropped_total"),
			"Notifications discarded because the dispatch buffer was full.",
			nil, nil,
		),
	}

	for id := trackauth.MetricID(0); id.Name() != ""; id++ {
		if id == trackauth.MetricAuthenticateLatency {
			continue
		}
		c.counters[id] = prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", id.Name()+"_total"),
			id.Help(),
			nil, nil,
		)
	}
	return c
}

// Describe sends every descriptor the collector can emit.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counters {
		ch <- d
	}
	ch <- c.latency
	ch <- c.dropped
}

// Collect reads one snapshot from the source and emits it as const metrics.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.MetricsSnapshot()

	for id, desc := range c.counters {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(snap.Counters[id]))
	}
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(c.source.NotificationsDropped()))

	if buckets, ok := snap.Histograms[trackauth.MetricAuthenticateLatency]; ok {
		cumulative := make(map[float64]uint64, len(trackauth.HistogramBounds))
		var count uint64
		for i, n := range buckets {
			count += n
			if i < len(trackauth.HistogramBounds) {
				cumulative[trackauth.HistogramBounds[i].Seconds()] = count
			}
		}
		ch <- prometheus.MustNewConstHistogram(c.latency, count, snap.LatencySum.Seconds(), cumulative)
	}
}

// Handler registers a Collector for source on a fresh registry, alongside the
// Go runtime and process collectors, and returns the scrape handler.
func Handler(source Source) (http.Handler, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewCollector(source),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), reg
}
