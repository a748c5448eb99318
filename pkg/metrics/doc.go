// Package metrics exposes scan progress to Prometheus.
//
// The Collector keeps its own registry so several runs in one process (or
// tests) never collide on the global one. Server publishes it on /metrics
// next to a /healthz probe.
package metrics
