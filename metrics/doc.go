// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package metrics exposes Prometheus counters for voting activity.

	m := metrics.NewMetricService()
	mux.Handle("GET /metrics", m.Handler())

# Series

  - polls_created_total
  - votes_cast_total
  - votes_rejected_total{reason}
  - results_refresh_failures_total
  - results_compute_duration_seconds
  - identity_verifications_total{outcome}

Every method is safe on a nil *MetricService, so components can be built
without metrics in tests.
*/
package metrics
