// Package metrics exposes depthd's own counters in the Prometheus
// exposition format.
//
// Registry is a scoring.Sink: every batch updates the query, curve and
// cache counters plus the latency and depth histograms. Ensemble gauges are
// collected from the store at scrape time. Requests for ensembles that are
// not loaded are counted under a single "unknown" ensemble label.
package metrics
