// Package metrics exposes scan activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan metrics
var (
	ScanRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fpscan_scan_runs_total",
			Help: "Total number of scans by outcome",
		},
		[]string{"status"}, // "success", "error"
	)

	ScanRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fpscan_scan_running",
			Help: "Whether a scan is currently running (1 = running, 0 = idle)",
		},
	)

	ScanLastDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fpscan_scan_last_duration_seconds",
			Help: "Duration of the last scan in seconds",
		},
	)

	ScanLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fpscan_scan_last_run_timestamp",
			Help: "Timestamp of the last scan end",
		},
	)
)

// Forward scan metrics
var (
	ForwardScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fpscan_forward_scanned_total",
			Help: "Total number of files visited by forward scans",
		},
	)

	ForwardInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fpscan_forward_inserted_total",
			Help: "Total number of fingerprints created by forward scans",
		},
	)

	ForwardUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fpscan_forward_updated_total",
			Help: "Total number of fingerprints refreshed by forward scans",
		},
	)
)

// Reverse scan metrics
var (
	ReverseScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fpscan_reverse_scanned_total",
			Help: "Total number of in-scope fingerprints reconciled by reverse scans",
		},
	)

	ReverseProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fpscan_reverse_processed_total",
			Help: "Total number of fingerprints changed by reverse scan handlers",
		},
	)

	ReverseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fpscan_reverse_errors_total",
			Help: "Total number of fingerprints on which a reverse scan handler failed",
		},
	)

	ReverseProgressRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fpscan_reverse_progress_ratio",
			Help: "Completion of the current reverse scan (0 to 1)",
		},
	)
)

// collectors lists every metric of this package, for pushing.
func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		ScanRunsTotal,
		ScanRunning,
		ScanLastDuration,
		ScanLastRunTimestamp,
		ForwardScanned,
		ForwardInserted,
		ForwardUpdated,
		ReverseScanned,
		ReverseProcessed,
		ReverseErrors,
		ReverseProgressRatio,
	}
}
