package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fpscan/internal/config"
	"fpscan/internal/database"
	"fpscan/internal/events"
	"fpscan/internal/fs"
	"fpscan/internal/metrics"
	"fpscan/internal/model"
	"fpscan/internal/scan"

	"github.com/nats-io/nats.go"
)

// LogEvery is how many entries pass between progress lines in the log.
const LogEvery = 1000

// FPApp is the application layer between the CLI and the scan engine.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the DB lifecycle on Close.
type FPApp struct {
	cfg      *config.Config
	db       *database.SQLDatabase
	fsys     scan.Filesystem
	clock    scan.Clock
	logger   scan.Logger
	observer scan.Observer
	nc       *nats.Conn
	op       *Operation
	logFile  *os.File
}

// deps are the process-level collaborators of an FPApp.
type deps struct {
	fsys    scan.Filesystem
	clock   scan.Clock
	console io.Writer
}

// NewFPApp creates a fully wired FPApp from the given config.
// operation identifies the CLI command being run (e.g. OpScan, OpMigrateDB).
// The caller must call Close when done.
func NewFPApp(cfg *config.Config, operation string) (*FPApp, error) {
	return newFPApp(cfg, operation, deps{
		fsys:    fs.NewOSFilesystem(),
		clock:   scan.RealClock{},
		console: os.Stderr,
	})
}

func newFPApp(cfg *config.Config, operation string, d deps) (*FPApp, error) {
	op := NewOperation(operation, d.clock.Now())

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	slogger, logFile, err := newLogger(cfg.LogDir, op.RunID, level, d.console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID, d.clock, nil)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	// An in-memory database starts empty on every run.
	if cfg.Database.Type == "memory" {
		err = db.MigrateUp()
	} else if op.requiresSchema() {
		err = db.CheckMigrations()
	}
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	a := &FPApp{
		cfg:     cfg,
		db:      db,
		fsys:    d.fsys,
		clock:   d.clock,
		logger:  logger,
		op:      op,
		logFile: logFile,
	}
	a.observer = a.newObserver()

	logger.Debug("operation started", "operation", op.Name, "host", cfg.HostID)
	return a, nil
}

// newObserver assembles the observers configured for this host. A NATS
// server that cannot be reached disables events for the run.
func (a *FPApp) newObserver() scan.Observer {
	observers := scan.MultiObserver{
		scan.NewLoggingObserver(a.logger, LogEvery),
		metrics.NewObserver(a.clock),
	}

	if url := a.cfg.Events.NATSURL; url != "" {
		nc, err := events.Connect(url, "fpscan-"+a.cfg.HostID, a.logger)
		if err != nil {
			a.logger.Warn("scan events disabled", "error", err)
		} else {
			a.nc = nc
			observers = append(observers, events.NewObserver(nc, events.ObserverOptions{
				Prefix:        a.cfg.Events.SubjectPrefix,
				Host:          a.cfg.HostID,
				ProgressEvery: a.cfg.Events.ProgressEvery,
			}, a.logger, a.clock))
		}
	}
	return observers
}

// ScanOptions are the per-invocation settings of a scan. Filter settings are
// merged with the config's scan section and only apply to directory scopes.
type ScanOptions struct {
	Force   bool
	Exclude []string
	Include []string
	MinSize string // humanized; overrides scan.min_size when set
	MaxSize string // humanized; overrides scan.max_size when set
}

// Scan indexes paths and reconciles the store against them. A single
// directory is scanned as a directory scope; anything else is scanned as a
// list of files. The run is recorded in the scan history whatever the outcome.
func (a *FPApp) Scan(rawPaths []string, opts ScanOptions) (*model.ScanRun, error) {
	if len(rawPaths) == 0 {
		return nil, errors.New("no paths to scan")
	}
	paths := make([]string, len(rawPaths))
	for i, p := range rawPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving path: %w", err)
		}
		paths[i] = abs
	}

	scope, err := a.buildScope(paths, opts)
	if err != nil {
		a.op.Fail()
		return nil, err
	}

	run, err := a.db.CreateScanRun(scope.Name(), opts.Force)
	if err != nil {
		a.op.Fail()
		return nil, err
	}

	scanner := scan.NewScanner(a.db, a.fsys, scan.MD5Digester{}, a.observer, a.logger)
	res, scanErr := scanner.Scan(scope, nil, scan.Options{Force: opts.Force})

	status := database.StatusSuccess
	if scanErr != nil {
		status = database.StatusError
		a.op.Fail()
		a.logger.Error("scan failed", "scope", scope.Name(), "error", scanErr)
	} else {
		run.Forward = res.Forward
		run.Reverse = res.Reverse
	}
	if err := a.db.FinishScanRun(run, status); err != nil {
		a.op.Fail()
		return run, errors.Join(scanErr, err)
	}

	a.pushMetrics()
	return run, scanErr
}

// buildScope picks the scope for the resolved paths.
func (a *FPApp) buildScope(paths []string, opts ScanOptions) (scan.Scope, error) {
	if len(paths) == 1 {
		info, err := a.fsys.Lstat(paths[0])
		if err != nil && !scan.IsTolerable(err) {
			return nil, fmt.Errorf("stat %s: %w", paths[0], err)
		}
		if err == nil && info.IsDir() {
			return a.directoryScope(paths[0], opts)
		}
	}
	return scan.NewFileListScope(a.fsys, paths), nil
}

func (a *FPApp) directoryScope(root string, opts ScanOptions) (*scan.DirectoryScope, error) {
	sc := a.cfg.Scan
	scope := scan.NewDirectoryScope(a.fsys, root).
		Exclude(sc.Exclude...).
		Exclude(opts.Exclude...).
		IncludeFiles(sc.Include...).
		IncludeFiles(opts.Include...)

	if sc.IgnoreFile != "" {
		patterns, err := fs.ParseIgnoreFile(filepath.Join(root, sc.IgnoreFile))
		if err != nil {
			return nil, err
		}
		scope.Exclude(patterns...).Exclude(sc.IgnoreFile)
	}

	if opts.MinSize != "" {
		sc.MinSize = opts.MinSize
	}
	if opts.MaxSize != "" {
		sc.MaxSize = opts.MaxSize
	}
	minSize, err := sc.MinSizeBytes()
	if err != nil {
		return nil, err
	}
	maxSize, err := sc.MaxSizeBytes()
	if err != nil {
		return nil, err
	}
	if minSize > 0 {
		scope.ExcludeFilesSmallerThan(minSize)
	}
	if maxSize > 0 {
		scope.ExcludeFilesLargerThan(maxSize)
	}
	return scope, nil
}

// pushMetrics sends the scan metrics to the configured pushgateway, if any.
// A failed push is logged and does not fail the scan.
func (a *FPApp) pushMetrics() {
	url := a.cfg.Metrics.PushgatewayURL
	if url == "" {
		return
	}
	if err := metrics.Push(url, a.cfg.Metrics.Job, a.cfg.HostID); err != nil {
		a.logger.Warn("metrics push failed", "error", err)
	}
}

// ListFingerprints returns the fingerprints stored under rawPath in path
// order. When vanishedOnly is set, only vanished fingerprints are returned.
func (a *FPApp) ListFingerprints(rawPath string, vanishedOnly bool) ([]*model.Fingerprint, error) {
	root, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	var out []*model.Fingerprint
	for offset := 0; ; {
		page, err := a.db.GetFingerprintsPage(root, offset, scan.PageSize)
		if err != nil {
			return nil, err
		}
		for _, fp := range page {
			if !vanishedOnly || fp.IsVanished() {
				out = append(out, fp)
			}
		}
		if len(page) < scan.PageSize {
			return out, nil
		}
		offset += len(page)
	}
}

// ShowFingerprint returns the fingerprint stored for rawPath.
// Returns nil if no fingerprint exists.
func (a *FPApp) ShowFingerprint(rawPath string) (*model.Fingerprint, error) {
	p, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return a.db.GetFingerprint(p)
}

// GetHistory returns the most recent scan runs.
func (a *FPApp) GetHistory(limit int) ([]*model.ScanRun, error) {
	return a.db.ListScanRuns(limit)
}

// MigrateDB applies all pending schema migrations.
func (a *FPApp) MigrateDB() error {
	if err := a.db.MigrateUp(); err != nil {
		a.op.Fail()
		return err
	}
	a.logger.Info("database migrated", "dialect", string(a.db.Dialect()))
	return nil
}

// snapshot copies a SQLite database into the configured snapshot directory
// as <host>-<runID>.db.
func (a *FPApp) snapshot() error {
	dir := a.cfg.Database.SnapshotDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	dest := filepath.Join(dir, a.cfg.HostID+"-"+a.op.RunID+".db")
	if err := a.db.BackupTo(dest); err != nil {
		return err
	}
	a.logger.Debug("database snapshot written", "path", dest)
	return nil
}

// Close releases the database, the event connection and the log file.
// After a scan of a SQLite database, the database is first snapshotted when
// a snapshot directory is configured.
func (a *FPApp) Close() error {
	var firstErr error

	if a.op.Name == OpScan && a.cfg.Database.Type == "sqlite" && a.cfg.Database.SnapshotDir != "" {
		if err := a.snapshot(); err != nil {
			firstErr = err
		}
	}

	if a.nc != nil {
		if err := a.nc.Drain(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("draining nats connection: %w", err)
		}
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	a.logger.Debug("operation finished", "operation", a.op.Name, "status", a.op.Status)
	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
