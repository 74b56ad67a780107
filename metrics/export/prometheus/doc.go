// Package prometheus exposes engine counters as a prometheus.Collector.
//
// Register the exporter with any registry, or mount [PrometheusExporter.Handler]
// directly on /metrics.
package prometheus
