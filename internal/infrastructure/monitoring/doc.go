/*
Package monitoring provides Prometheus metrics for the synchronizer.

# Overview

Metrics are registered on a caller-supplied prometheus.Registerer so that
tests and embedded uses can keep their own registry. A nil *Metrics is valid
and records nothing, which keeps components usable without monitoring.

# Metrics

  - browsersync_http_requests_total / _duration_seconds: HTTP API traffic
  - browsersync_ws_messages_total{direction,command}: transport frames
  - browsersync_ws_connected: 1 while the transport is open
  - browsersync_loads_total{outcome}: requested, finished, error, declined
  - browsersync_load_failures_total{reason}: slow, server_disconnect, ...
  - browsersync_load_blocks_total{kind}: soft and hard policy blocks
  - browsersync_watchdog_expired_total: stalled loads
  - browsersync_mutations_total{op}: mirror operations applied
  - browsersync_mirror_queue_depth: pending mirror operations
  - browsersync_sessions_active: attached sessions (0 or 1)

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
*/
package monitoring
