package scan

// ForwardProgress carries the running totals of a forward scan.
type ForwardProgress struct {
	Scanned   int
	Processed int
	Inserted  int
	Updated   int
}

// ReverseProgress carries the running totals of a reverse scan.
// Completion is a percentage in [0, 100] derived from the scope's progress.
type ReverseProgress struct {
	Total      int
	Scanned    int
	Processed  int
	Errors     int
	Completion float64
}

// Observer is notified at scan phase boundaries and after every entry.
// Implementations must not block for long; the scan waits for each call.
type Observer interface {
	ScanStarted(scope Scope, handlers []Handler, opts Options)
	ScanEnded()
	ForwardScanStarted()
	ForwardScanProgress(p ForwardProgress)
	ForwardScanEnded()
	ReverseScanStarted()
	ReverseScanProgress(p ReverseProgress)
	ReverseScanEnded()
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) ScanStarted(Scope, []Handler, Options) {}
func (NopObserver) ScanEnded()                            {}
func (NopObserver) ForwardScanStarted()                   {}
func (NopObserver) ForwardScanProgress(ForwardProgress)   {}
func (NopObserver) ForwardScanEnded()                     {}
func (NopObserver) ReverseScanStarted()                   {}
func (NopObserver) ReverseScanProgress(ReverseProgress)   {}
func (NopObserver) ReverseScanEnded()                     {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return NopObserver{}
	}
	return o
}

// MultiObserver forwards every notification to each of its observers in order.
type MultiObserver []Observer

func (m MultiObserver) ScanStarted(scope Scope, handlers []Handler, opts Options) {
	for _, o := range m {
		o.ScanStarted(scope, handlers, opts)
	}
}

func (m MultiObserver) ScanEnded() {
	for _, o := range m {
		o.ScanEnded()
	}
}

func (m MultiObserver) ForwardScanStarted() {
	for _, o := range m {
		o.ForwardScanStarted()
	}
}

func (m MultiObserver) ForwardScanProgress(p ForwardProgress) {
	for _, o := range m {
		o.ForwardScanProgress(p)
	}
}

func (m MultiObserver) ForwardScanEnded() {
	for _, o := range m {
		o.ForwardScanEnded()
	}
}

func (m MultiObserver) ReverseScanStarted() {
	for _, o := range m {
		o.ReverseScanStarted()
	}
}

func (m MultiObserver) ReverseScanProgress(p ReverseProgress) {
	for _, o := range m {
		o.ReverseScanProgress(p)
	}
}

func (m MultiObserver) ReverseScanEnded() {
	for _, o := range m {
		o.ReverseScanEnded()
	}
}

// LoggingObserver writes phase boundaries and periodic progress to a Logger.
type LoggingObserver struct {
	logger  Logger
	every   int
	forward ForwardProgress
	reverse ReverseProgress
}

// due reports whether a progress line is owed. Scanned counts repeat when
// entries are skipped, so a count already logged as prev is not logged again.
func (o *LoggingObserver) due(scanned, prev int) bool {
	return o.every > 0 && scanned > 0 && scanned != prev && scanned%o.every == 0
}

// NewLoggingObserver creates a LoggingObserver that logs progress every
// `every` entries. A non-positive value disables progress lines.
func NewLoggingObserver(logger Logger, every int) *LoggingObserver {
	return &LoggingObserver{logger: logger, every: every}
}

func (o *LoggingObserver) ScanStarted(scope Scope, handlers []Handler, opts Options) {
	names := make([]string, len(handlers))
	for i, h := range handlers {
		names[i] = h.Name()
	}
	o.logger.Info("scan started", "scope", scope.Name(), "handlers", names, "force", opts.Force)
}

func (o *LoggingObserver) ScanEnded() {
	o.logger.Info("scan ended",
		"forward_scanned", o.forward.Scanned,
		"forward_processed", o.forward.Processed,
		"reverse_scanned", o.reverse.Scanned,
		"reverse_processed", o.reverse.Processed,
		"reverse_errors", o.reverse.Errors,
	)
}

func (o *LoggingObserver) ForwardScanStarted() {
	o.forward = ForwardProgress{}
	o.logger.Debug("forward scan started")
}

func (o *LoggingObserver) ForwardScanProgress(p ForwardProgress) {
	prev := o.forward.Scanned
	o.forward = p
	if o.due(p.Scanned, prev) {
		o.logger.Info("forward scan progress",
			"scanned", p.Scanned, "processed", p.Processed,
			"inserted", p.Inserted, "updated", p.Updated)
	}
}

func (o *LoggingObserver) ForwardScanEnded() {
	o.logger.Info("forward scan complete",
		"scanned", o.forward.Scanned, "inserted", o.forward.Inserted, "updated", o.forward.Updated)
}

func (o *LoggingObserver) ReverseScanStarted() {
	o.reverse = ReverseProgress{}
	o.logger.Debug("reverse scan started")
}

func (o *LoggingObserver) ReverseScanProgress(p ReverseProgress) {
	prev := o.reverse.Scanned
	o.reverse = p
	if o.due(p.Scanned, prev) {
		o.logger.Info("reverse scan progress",
			"total", p.Total, "scanned", p.Scanned, "processed", p.Processed,
			"errors", p.Errors, "percent", int(p.Completion))
	}
}

func (o *LoggingObserver) ReverseScanEnded() {
	o.logger.Info("reverse scan complete",
		"scanned", o.reverse.Scanned, "processed", o.reverse.Processed, "errors", o.reverse.Errors)
}

var (
	_ Observer = NopObserver{}
	_ Observer = MultiObserver(nil)
	_ Observer = (*LoggingObserver)(nil)
)
