package events

import (
	"encoding/json"
	"time"

	"fpscan/internal/scan"
)

// Event names, appended to "<prefix>.scan." to form the subject.
const (
	EventStarted         = "started"
	EventEnded           = "ended"
	EventForwardStarted  = "forward.started"
	EventForwardProgress = "forward.progress"
	EventForwardEnded    = "forward.ended"
	EventReverseStarted  = "reverse.started"
	EventReverseProgress = "reverse.progress"
	EventReverseEnded    = "reverse.ended"
)

// Event is the JSON payload of every published message.
type Event struct {
	Type     string                `json:"type"`
	Host     string                `json:"host,omitempty"`
	Scope    string                `json:"scope"`
	Time     time.Time             `json:"time"`
	Handlers []string              `json:"handlers,omitempty"`
	Force    bool                  `json:"force,omitempty"`
	Forward  *scan.ForwardProgress `json:"forward,omitempty"`
	Reverse  *scan.ReverseProgress `json:"reverse,omitempty"`
}

// ObserverOptions configures an Observer.
type ObserverOptions struct {
	Prefix        string // Subject prefix, e.g. "fpscan"
	Host          string // Copied into every event
	ProgressEvery int    // Publish progress every N entries; <= 0 disables progress events
}

// Observer implements scan.Observer by publishing each notification as an
// Event. Publish failures are logged and never interrupt the scan.
type Observer struct {
	pub     Publisher
	opts    ObserverOptions
	logger  scan.Logger
	clock   scan.Clock
	scope   string
	forward scan.ForwardProgress
	reverse scan.ReverseProgress

	// scanned counts at the last published progress event, per phase
	lastForward int
	lastReverse int
}

// NewObserver creates an Observer. logger and clock may be nil.
func NewObserver(pub Publisher, opts ObserverOptions, logger scan.Logger, clock scan.Clock) *Observer {
	if logger == nil {
		logger = scan.NewNopLogger()
	}
	if clock == nil {
		clock = scan.RealClock{}
	}
	return &Observer{pub: pub, opts: opts, logger: logger, clock: clock}
}

// Subject returns the subject an event of the given type is published on.
func (o *Observer) Subject(eventType string) string {
	if o.opts.Prefix == "" {
		return "scan." + eventType
	}
	return o.opts.Prefix + ".scan." + eventType
}

func (o *Observer) publish(ev Event) {
	ev.Host = o.opts.Host
	ev.Scope = o.scope
	ev.Time = o.clock.Now().UTC()

	data, err := json.Marshal(ev)
	if err != nil {
		o.logger.Warn("encoding scan event", "type", ev.Type, "error", err)
		return
	}
	subject := o.Subject(ev.Type)
	if err := o.pub.Publish(subject, data); err != nil {
		o.logger.Warn("publishing scan event", "subject", subject, "error", err)
	}
}

func (o *Observer) ScanStarted(scope scan.Scope, handlers []scan.Handler, opts scan.Options) {
	o.scope = ""
	if scope != nil {
		o.scope = scope.Name()
	}
	o.forward = scan.ForwardProgress{}
	o.reverse = scan.ReverseProgress{}

	names := make([]string, len(handlers))
	for i, h := range handlers {
		names[i] = h.Name()
	}
	o.publish(Event{Type: EventStarted, Handlers: names, Force: opts.Force})
}

func (o *Observer) ScanEnded() {
	fwd, rev := o.forward, o.reverse
	o.publish(Event{Type: EventEnded, Forward: &fwd, Reverse: &rev})
}

func (o *Observer) ForwardScanStarted() {
	o.forward = scan.ForwardProgress{}
	o.lastForward = 0
	o.publish(Event{Type: EventForwardStarted})
}

func (o *Observer) ForwardScanProgress(p scan.ForwardProgress) {
	o.forward = p
	if o.due(p.Scanned, &o.lastForward) {
		o.publish(Event{Type: EventForwardProgress, Forward: &p})
	}
}

func (o *Observer) ForwardScanEnded() {
	fwd := o.forward
	o.publish(Event{Type: EventForwardEnded, Forward: &fwd})
}

func (o *Observer) ReverseScanStarted() {
	o.reverse = scan.ReverseProgress{}
	o.lastReverse = 0
	o.publish(Event{Type: EventReverseStarted})
}

func (o *Observer) ReverseScanProgress(p scan.ReverseProgress) {
	o.reverse = p
	if o.due(p.Scanned, &o.lastReverse) {
		o.publish(Event{Type: EventReverseProgress, Reverse: &p})
	}
}

func (o *Observer) ReverseScanEnded() {
	rev := o.reverse
	o.publish(Event{Type: EventReverseEnded, Reverse: &rev})
}

// due reports whether a progress event is owed for n scanned entries. The
// scanners repeat a count when an entry is skipped, so each multiple of
// ProgressEvery is published once.
func (o *Observer) due(n int, last *int) bool {
	if o.opts.ProgressEvery <= 0 || n == 0 || n == *last || n%o.opts.ProgressEvery != 0 {
		return false
	}
	*last = n
	return true
}

var _ scan.Observer = (*Observer)(nil)
