package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fpscan/internal/database/migrations"
	"fpscan/internal/model"
	"fpscan/internal/scan"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Scan run statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// SQLDatabase implements scan.Store and the scan run history on top of
// SQLite or PostgreSQL.
type SQLDatabase struct {
	db      *sql.DB
	queries *Queries
	dialect migrations.Dialect
	path    string
	clock   scan.Clock
	idgen   scan.IDGenerator
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
// clock and idgen may be nil, in which case RealClock and UUIDGenerator are used.
func NewSQLiteDatabase(path string, clock scan.Clock, idgen scan.IDGenerator) (*SQLDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	s := newSQLDatabase(db, migrations.SQLite, clock, idgen)
	s.path = path
	return s, nil
}

// NewSQLiteDatabaseFromDB wraps an existing SQLite connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock scan.Clock, idgen scan.IDGenerator) *SQLDatabase {
	return newSQLDatabase(db, migrations.SQLite, clock, idgen)
}

// NewPostgresDatabase connects to the PostgreSQL server described by dsn.
func NewPostgresDatabase(dsn string, clock scan.Clock, idgen scan.IDGenerator) (*SQLDatabase, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return newSQLDatabase(db, migrations.Postgres, clock, idgen), nil
}

func newSQLDatabase(db *sql.DB, dialect migrations.Dialect, clock scan.Clock, idgen scan.IDGenerator) *SQLDatabase {
	if clock == nil {
		clock = scan.RealClock{}
	}
	if idgen == nil {
		idgen = scan.UUIDGenerator{}
	}
	return &SQLDatabase{
		db:      db,
		queries: newQueries(db, dialect == migrations.Postgres),
		dialect: dialect,
		clock:   clock,
		idgen:   idgen,
	}
}

// OpenConnection opens and configures a SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	if path == ":memory:" {
		db, err := sql.Open("sqlite3", path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		return db, nil
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Fingerprint operations

func (s *SQLDatabase) GetFingerprint(path string) (*model.Fingerprint, error) {
	fp, err := s.queries.GetFingerprintByPath(context.Background(), path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding fingerprint by path: %w", err)
	}
	return fp, nil
}

// GetFingerprintByUUID returns the fingerprint with the given UUID, or nil.
func (s *SQLDatabase) GetFingerprintByUUID(id string) (*model.Fingerprint, error) {
	fp, err := s.queries.GetFingerprintByUUID(context.Background(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding fingerprint by uuid: %w", err)
	}
	return fp, nil
}

func (s *SQLDatabase) GetFingerprintsPage(root string, offset, limit int) ([]*model.Fingerprint, error) {
	fps, err := s.queries.GetFingerprintsUnder(context.Background(), root, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("listing fingerprints under %s: %w", root, err)
	}
	return fps, nil
}

func (s *SQLDatabase) CountFingerprints(root string) (int, error) {
	n, err := s.queries.CountFingerprintsUnder(context.Background(), root)
	if err != nil {
		return 0, fmt.Errorf("counting fingerprints under %s: %w", root, err)
	}
	return n, nil
}

func (s *SQLDatabase) PreloadFingerprints(startPath string, count int) ([]*model.Fingerprint, error) {
	fps, err := s.queries.GetFingerprintsFrom(context.Background(), startPath, count)
	if err != nil {
		return nil, fmt.Errorf("preloading fingerprints from %s: %w", startPath, err)
	}
	return fps, nil
}

// InsertFingerprint stores fp, assigning a UUID if it has none.
func (s *SQLDatabase) InsertFingerprint(fp *model.Fingerprint) error {
	if fp.UUID == "" {
		fp.UUID = s.idgen.New()
	}
	if err := s.queries.InsertFingerprint(context.Background(), fp); err != nil {
		return fmt.Errorf("inserting fingerprint %s: %w", fp.LongFilename, err)
	}
	return nil
}

func (s *SQLDatabase) UpdateFingerprint(patch model.FingerprintPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	n, err := s.queries.UpdateFingerprint(context.Background(), patch)
	if err != nil {
		return fmt.Errorf("updating fingerprint %s: %w", patch.UUID, err)
	}
	if n == 0 {
		return fmt.Errorf("updating fingerprint %s: not found", patch.UUID)
	}
	return nil
}

func (s *SQLDatabase) CurrentVanishedTimestamp() (time.Time, error) {
	return s.clock.Now().UTC(), nil
}

// Scan run tracking

// CreateScanRun records the start of a scan of scope.
func (s *SQLDatabase) CreateScanRun(scope string, force bool) (*model.ScanRun, error) {
	startedAt := s.clock.Now().UTC()
	id, err := s.queries.InsertScanRun(context.Background(), scope, force, startedAt, StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("creating scan run: %w", err)
	}
	return &model.ScanRun{
		ID:        id,
		Scope:     scope,
		Force:     force,
		StartedAt: startedAt,
		Status:    StatusRunning,
	}, nil
}

// FinishScanRun stamps run as finished with status and its phase totals.
func (s *SQLDatabase) FinishScanRun(run *model.ScanRun, status string) error {
	run.Status = status
	run.FinishedAt = sql.NullTime{Time: s.clock.Now().UTC(), Valid: true}
	n, err := s.queries.UpdateScanRunFinished(context.Background(), run)
	if err != nil {
		return fmt.Errorf("finishing scan run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finishing scan run %d: not found", run.ID)
	}
	return nil
}

// ListScanRuns returns the most recent scan runs, newest first.
func (s *SQLDatabase) ListScanRuns(limit int) ([]*model.ScanRun, error) {
	runs, err := s.queries.GetScanRuns(context.Background(), limit)
	if err != nil {
		return nil, fmt.Errorf("listing scan runs: %w", err)
	}
	return runs, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
// It is empty for PostgreSQL.
func (s *SQLDatabase) Path() string {
	return s.path
}

// Dialect reports which SQL dialect the database speaks.
func (s *SQLDatabase) Dialect() migrations.Dialect {
	return s.dialect
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db, s.dialect)
}

// MigrateUp applies any pending schema migrations.
func (s *SQLDatabase) MigrateUp() error {
	return migrations.MigrateUp(s.db, s.dialect)
}

// BackupTo creates a complete copy of a SQLite database at destPath using VACUUM INTO.
func (s *SQLDatabase) BackupTo(destPath string) error {
	if s.dialect != migrations.SQLite {
		return fmt.Errorf("backing up database: not supported for %s", s.dialect)
	}
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLDatabase implements scan.Store
var _ scan.Store = (*SQLDatabase)(nil)
