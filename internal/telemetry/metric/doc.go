// Package metric provides Prometheus metrics for SessBox.
//
// A Registry owns a private prometheus.Registry so tests and multiple
// engines in one process do not collide on the default registerer. All
// recording methods are safe on a nil *Registry, which lets components
// run without metrics.
package metric
