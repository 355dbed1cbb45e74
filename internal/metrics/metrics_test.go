package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fpscan/internal/scan"
	"fpscan/internal/testutil"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestScanMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric prometheus.Collector
	}{
		{"ScanRunsTotal", ScanRunsTotal},
		{"ScanRunning", ScanRunning},
		{"ScanLastDuration", ScanLastDuration},
		{"ScanLastRunTimestamp", ScanLastRunTimestamp},
		{"ForwardScanned", ForwardScanned},
		{"ForwardInserted", ForwardInserted},
		{"ForwardUpdated", ForwardUpdated},
		{"ReverseScanned", ReverseScanned},
		{"ReverseProcessed", ReverseProcessed},
		{"ReverseErrors", ReverseErrors},
		{"ReverseProgressRatio", ReverseProgressRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}

	if got := len(collectors()); got != len(tests) {
		t.Errorf("collectors() returned %d metrics, want %d", got, len(tests))
	}
}

func TestObserver(t *testing.T) {
	t.Run("counters advance by deltas", func(t *testing.T) {
		clock := testutil.FixedClock()
		o := NewObserver(clock)

		scanned := promtest.ToFloat64(ForwardScanned)
		inserted := promtest.ToFloat64(ForwardInserted)
		updated := promtest.ToFloat64(ForwardUpdated)
		revScanned := promtest.ToFloat64(ReverseScanned)
		revProcessed := promtest.ToFloat64(ReverseProcessed)
		revErrors := promtest.ToFloat64(ReverseErrors)

		o.ScanStarted(nil, nil, scan.Options{})
		if got := promtest.ToFloat64(ScanRunning); got != 1 {
			t.Errorf("ScanRunning = %v, want 1", got)
		}

		o.ForwardScanStarted()
		o.ForwardScanProgress(scan.ForwardProgress{Scanned: 1, Processed: 1, Inserted: 1})
		o.ForwardScanProgress(scan.ForwardProgress{Scanned: 2, Processed: 2, Inserted: 1, Updated: 1})
		o.ForwardScanProgress(scan.ForwardProgress{Scanned: 3, Processed: 2, Inserted: 1, Updated: 1})
		o.ForwardScanEnded()

		o.ReverseScanStarted()
		o.ReverseScanProgress(scan.ReverseProgress{Total: 2, Scanned: 1, Processed: 1, Completion: 50})
		if got := promtest.ToFloat64(ReverseProgressRatio); got != 0.5 {
			t.Errorf("ReverseProgressRatio = %v, want 0.5", got)
		}
		o.ReverseScanProgress(scan.ReverseProgress{Total: 2, Scanned: 2, Processed: 1, Errors: 1, Completion: 100})
		o.ReverseScanEnded()

		clock.Advance(3 * time.Second)
		o.ScanEnded()

		checks := []struct {
			name   string
			metric prometheus.Collector
			before float64
			delta  float64
		}{
			{"ForwardScanned", ForwardScanned, scanned, 3},
			{"ForwardInserted", ForwardInserted, inserted, 1},
			{"ForwardUpdated", ForwardUpdated, updated, 1},
			{"ReverseScanned", ReverseScanned, revScanned, 2},
			{"ReverseProcessed", ReverseProcessed, revProcessed, 1},
			{"ReverseErrors", ReverseErrors, revErrors, 1},
		}
		for _, c := range checks {
			if got := promtest.ToFloat64(c.metric) - c.before; got != c.delta {
				t.Errorf("%s advanced by %v, want %v", c.name, got, c.delta)
			}
		}

		if got := promtest.ToFloat64(ScanRunning); got != 0 {
			t.Errorf("ScanRunning = %v, want 0", got)
		}
		if got := promtest.ToFloat64(ScanLastDuration); got != 3 {
			t.Errorf("ScanLastDuration = %v, want 3", got)
		}
		if got, want := promtest.ToFloat64(ScanLastRunTimestamp), float64(clock.Now().Unix()); got != want {
			t.Errorf("ScanLastRunTimestamp = %v, want %v", got, want)
		}
	})

	t.Run("outcome label", func(t *testing.T) {
		success := promtest.ToFloat64(ScanRunsTotal.WithLabelValues("success"))
		failure := promtest.ToFloat64(ScanRunsTotal.WithLabelValues("error"))

		o := NewObserver(nil)

		// Completed run.
		o.ScanStarted(nil, nil, scan.Options{})
		o.ReverseScanProgress(scan.ReverseProgress{Completion: 100})
		o.ScanEnded()

		// Run that stopped during the forward phase.
		o.ScanStarted(nil, nil, scan.Options{})
		o.ForwardScanStarted()
		o.ForwardScanProgress(scan.ForwardProgress{Scanned: 1})
		o.ScanEnded()

		if got := promtest.ToFloat64(ScanRunsTotal.WithLabelValues("success")) - success; got != 1 {
			t.Errorf("success runs advanced by %v, want 1", got)
		}
		if got := promtest.ToFloat64(ScanRunsTotal.WithLabelValues("error")) - failure; got != 1 {
			t.Errorf("error runs advanced by %v, want 1", got)
		}
	})
}

func TestPush(t *testing.T) {
	var method, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := Push(server.URL, "fpscan", "host-1"); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if method != http.MethodPut {
		t.Errorf("method = %q, want PUT", method)
	}
	if want := "/metrics/job/fpscan/instance/host-1"; path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
}

func TestPush_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if err := Push(server.URL, "fpscan", ""); err == nil {
		t.Fatal("Push() expected error for a failing gateway")
	}
}
