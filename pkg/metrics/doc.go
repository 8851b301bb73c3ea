// Package metrics exposes Prometheus metrics for the portal: webhook
// outcomes, feature gate decisions, subscription mutations, recorded
// payments and HTTP traffic.
//
// Collectors live on a private registry created by New so tests and
// multiple instances never collide on the global registry.
//
//	m := metrics.New()
//	r.Use(m.Middleware)
//	r.Handle("/metrics", m.Handler())
package metrics
