// Package otel publishes engine counters through OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter.
// The resolve latency histogram becomes a cumulative bucket gauge with an
// "le" attribute and a count gauge. A single callback reads
// [officeauth.Engine.MetricsSnapshot] once per collection cycle.
package otel
