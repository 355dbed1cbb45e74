package metrics

import (
	"time"

	"fpscan/internal/scan"
)

// Observer implements scan.Observer by feeding the metrics declared in
// metrics.go. Progress notifications carry running totals; the observer
// adds only the difference since the previous notification.
type Observer struct {
	clock   scan.Clock
	started time.Time
	forward scan.ForwardProgress
	reverse scan.ReverseProgress
}

// NewObserver creates a metrics observer. clock may be nil.
func NewObserver(clock scan.Clock) *Observer {
	if clock == nil {
		clock = scan.RealClock{}
	}
	return &Observer{clock: clock}
}

func (o *Observer) ScanStarted(scan.Scope, []scan.Handler, scan.Options) {
	o.started = o.clock.Now()
	ScanRunning.Set(1)
	ReverseProgressRatio.Set(0)
	o.forward = scan.ForwardProgress{}
	o.reverse = scan.ReverseProgress{}
}

func (o *Observer) ScanEnded() {
	now := o.clock.Now()
	ScanRunning.Set(0)
	ScanLastDuration.Set(now.Sub(o.started).Seconds())
	ScanLastRunTimestamp.Set(float64(now.Unix()))
	// The engine always calls ScanEnded last, including on failure. A scan
	// that never reached the end of its reverse phase did not succeed.
	if o.reverse.Completion < 100 {
		ScanRunsTotal.WithLabelValues("error").Inc()
	} else {
		ScanRunsTotal.WithLabelValues("success").Inc()
	}
}

func (o *Observer) ForwardScanStarted() {
	o.forward = scan.ForwardProgress{}
}

func (o *Observer) ForwardScanProgress(p scan.ForwardProgress) {
	ForwardScanned.Add(float64(p.Scanned - o.forward.Scanned))
	ForwardInserted.Add(float64(p.Inserted - o.forward.Inserted))
	ForwardUpdated.Add(float64(p.Updated - o.forward.Updated))
	o.forward = p
}

func (o *Observer) ForwardScanEnded() {}

func (o *Observer) ReverseScanStarted() {
	o.reverse = scan.ReverseProgress{}
}

func (o *Observer) ReverseScanProgress(p scan.ReverseProgress) {
	ReverseScanned.Add(float64(p.Scanned - o.reverse.Scanned))
	ReverseProcessed.Add(float64(p.Processed - o.reverse.Processed))
	ReverseErrors.Add(float64(p.Errors - o.reverse.Errors))
	ReverseProgressRatio.Set(p.Completion / 100)
	o.reverse = p
}

func (o *Observer) ReverseScanEnded() {}

var _ scan.Observer = (*Observer)(nil)
