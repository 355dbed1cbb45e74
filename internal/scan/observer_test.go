package scan_test

import (
	"testing"

	"fpscan/internal/scan"
	"fpscan/internal/testutil"
)

func TestMultiObserver(t *testing.T) {
	a := testutil.NewRecordingObserver()
	b := testutil.NewRecordingObserver()
	m := scan.MultiObserver{a, b}

	m.ScanStarted(scan.NewFileListScope(testutil.NewMockFilesystem(), nil), nil, scan.Options{})
	m.ForwardScanStarted()
	m.ForwardScanProgress(scan.ForwardProgress{Scanned: 1})
	m.ForwardScanEnded()
	m.ReverseScanStarted()
	m.ReverseScanProgress(scan.ReverseProgress{Scanned: 1})
	m.ReverseScanEnded()
	m.ScanEnded()

	for _, o := range []*testutil.RecordingObserver{a, b} {
		if len(o.Events) != 8 {
			t.Errorf("events = %v, want 8", o.Events)
		}
	}
}

func TestLoggingObserver(t *testing.T) {
	logger := testutil.NewRecordingLogger()
	o := scan.NewLoggingObserver(logger, 2)

	o.ScanStarted(scan.NewDirectoryScope(testutil.NewMockFilesystem(), "/data"), []scan.Handler{&stubHandler{name: "vanished"}}, scan.Options{Force: true})
	o.ForwardScanStarted()
	for i := 1; i <= 5; i++ {
		o.ForwardScanProgress(scan.ForwardProgress{Scanned: i, Processed: i})
	}
	o.ForwardScanEnded()
	o.ReverseScanStarted()
	o.ReverseScanProgress(scan.ReverseProgress{Total: 2, Scanned: 2, Completion: 100})
	// The final report repeats the last count.
	o.ReverseScanProgress(scan.ReverseProgress{Total: 2, Scanned: 2, Completion: 100})
	o.ReverseScanEnded()
	o.ScanEnded()

	started := logger.Find("scan started")
	if len(started) != 1 || started[0].Attr("scope") != "/data" || started[0].Attr("force") != true {
		t.Errorf("scan started = %v", started)
	}
	if n := len(logger.Find("forward scan progress")); n != 2 {
		t.Errorf("forward progress lines = %d, want 2 (every 2nd entry of 5)", n)
	}
	if n := len(logger.Find("reverse scan progress")); n != 1 {
		t.Errorf("reverse progress lines = %d, want 1", n)
	}
	ended := logger.Find("scan ended")
	if len(ended) != 1 || ended[0].Attr("forward_scanned") != 5 || ended[0].Attr("reverse_scanned") != 2 {
		t.Errorf("scan ended = %v", ended)
	}
}

func TestLoggingObserver_NoProgressLines(t *testing.T) {
	logger := testutil.NewRecordingLogger()
	o := scan.NewLoggingObserver(logger, 0)
	o.ForwardScanProgress(scan.ForwardProgress{Scanned: 1000})
	if n := len(logger.Entries()); n != 0 {
		t.Errorf("logged %d entries, want 0", n)
	}
}
