package prometheus

import (
	"net/http"

	officeauth "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002"
	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsSource interface {
	MetricsSnapshot() officeauth.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter is a prometheus.Collector that reads engine snapshots
// at scrape time. It never keeps state of its own.
type PrometheusExporter struct {
	source       metricsSource
	counters     map[officeauth.MetricID]*prometheus.Desc
	histograms   map[officeauth.MetricID]*prometheus.Desc
	auditDropped *prometheus.Desc
}

// NewPrometheusExporter creates a collector for engine.
func NewPrometheusExporter(engine *officeauth.Engine) *PrometheusExporter {
	return NewPrometheusExporterFromSource(engine)
}

// NewPrometheusExporterFromSource creates a collector for any snapshot source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	p := &PrometheusExporter{
		source:     source,
		counters:   make(map[officeauth.MetricID]*prometheus.Desc, len(internaldefs.CounterDefs)),
		histograms: make(map[officeauth.MetricID]*prometheus.Desc, len(internaldefs.HistogramDefs)),
		auditDropped: prometheus.NewDesc(
			internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil,
		),
	}
	for _, def := range internaldefs.CounterDefs {
		p.counters[def.ID] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	for _, def := range internaldefs.HistogramDefs {
		p.histograms[def.ID] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	return p
}

// Describe implements prometheus.Collector.
func (p *PrometheusExporter) Describe(ch chan<- *prometheus.Desc) {
	for _, def := range internaldefs.CounterDefs {
		ch <- p.counters[def.ID]
	}
	for _, def := range internaldefs.HistogramDefs {
		ch <- p.histograms[def.ID]
	}
	ch <- p.auditDropped
}

// Collect implements prometheus.Collector. A disabled engine yields only the
// audit drop counter.
func (p *PrometheusExporter) Collect(ch chan<- prometheus.Metric) {
	if p == nil || p.source == nil {
		return
	}

	snapshot := p.source.MetricsSnapshot()
	for _, def := range internaldefs.CounterDefs {
		value, ok := snapshot.Counters[def.ID]
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(p.counters[def.ID], prometheus.CounterValue, float64(value))
	}

	for _, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.UpperBounds))
		for i, le := range internaldefs.UpperBounds {
			buckets[le] = cumulative[i]
		}
		// the snapshot has no sum
		ch <- prometheus.MustNewConstHistogram(p.histograms[def.ID], cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(p.auditDropped, prometheus.CounterValue, float64(p.source.AuditDropped()))
}

// Handler serves the exporter from its own registry, for callers that do
// not run a global one.
func (p *PrometheusExporter) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(p)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
