// Package metrics exports cache statistics to Prometheus.
//
//	c := ttlcache.Must[string, []byte](time.Minute, nil)
//	prometheus.MustRegister(metrics.NewCollector("sessions", c, nil))
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/osmike/ttlcache"
)

const namespace = "ttlcache"

// StatsSource is anything that reports cache statistics: a *ttlcache.Cache,
// *ttlcache.Func or *ttlcache.ArgsFunc.
type StatsSource interface {
	Stats() ttlcache.Stats
}

// Collector is a prometheus.Collector reading a StatsSource on every scrape.
//
// Hits and misses are exported as counters; Clear resets them, which
// Prometheus treats as a counter reset.
type Collector struct {
	src    StatsSource
	hits   *prometheus.Desc
	misses *prometheus.Desc
	size   *prometheus.Desc
}

// NewCollector returns a Collector labelled cache=name.
// constLabels are added to every metric and may be nil.
func NewCollector(name string, src StatsSource, constLabels prometheus.Labels) *Collector {
	labels := prometheus.Labels{"cache": name}
	for k, v := range constLabels {
		labels[k] = v
	}
	return &Collector{
		src: src,
		hits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "hits_total"),
			"Number of lookups that found a live entry.",
			nil, labels,
		),
		misses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "misses_total"),
			"Number of lookups that found no entry.",
			nil, labels,
		),
		size: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "entries"),
			"Number of entries held, including expired entries not yet swept.",
			nil, labels,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.size
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.Size))
}
