package testutil

import (
	"sync"

	"fpscan/internal/scan"
)

// RecordingObserver records scan notifications in the order they arrive.
// Progress notifications are recorded once per call.
type RecordingObserver struct {
	mu       sync.Mutex
	Events   []string
	Handlers []string
	Forward  []scan.ForwardProgress
	Reverse  []scan.ReverseProgress
}

func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

func (o *RecordingObserver) record(event string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Events = append(o.Events, event)
}

func (o *RecordingObserver) ScanStarted(_ scan.Scope, handlers []scan.Handler, _ scan.Options) {
	o.mu.Lock()
	o.Handlers = o.Handlers[:0]
	for _, h := range handlers {
		o.Handlers = append(o.Handlers, h.Name())
	}
	o.mu.Unlock()
	o.record("ScanStarted")
}

func (o *RecordingObserver) ScanEnded()          { o.record("ScanEnded") }
func (o *RecordingObserver) ForwardScanStarted() { o.record("ForwardScanStarted") }
func (o *RecordingObserver) ForwardScanEnded()   { o.record("ForwardScanEnded") }
func (o *RecordingObserver) ReverseScanStarted() { o.record("ReverseScanStarted") }
func (o *RecordingObserver) ReverseScanEnded()   { o.record("ReverseScanEnded") }

func (o *RecordingObserver) ForwardScanProgress(p scan.ForwardProgress) {
	o.mu.Lock()
	o.Forward = append(o.Forward, p)
	o.mu.Unlock()
	o.record("ForwardScanProgress")
}

func (o *RecordingObserver) ReverseScanProgress(p scan.ReverseProgress) {
	o.mu.Lock()
	o.Reverse = append(o.Reverse, p)
	o.mu.Unlock()
	o.record("ReverseScanProgress")
}

// Phases returns the recorded events with consecutive duplicates collapsed.
func (o *RecordingObserver) Phases() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []string
	for _, e := range o.Events {
		if len(out) > 0 && out[len(out)-1] == e {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Compile-time check
var _ scan.Observer = (*RecordingObserver)(nil)
