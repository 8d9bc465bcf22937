// Package prommetrics exports collector metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc, _ := prommetrics.New(reg, prommetrics.WithNamespace("engine"))
//	gc := tracegc.New(tracegc.WithMetricsCollector(mc))
package prommetrics
