package database_test

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fpscan/internal/database"
	"fpscan/internal/model"
	"fpscan/internal/testutil"
)

// storeFactory returns a fresh, migrated, empty database.
type storeFactory func(t *testing.T, clock *testutil.StubClock) *database.SQLDatabase

func sqliteFactory(t *testing.T, clock *testutil.StubClock) *database.SQLDatabase {
	return testutil.NewTestDatabaseWithClock(t, clock)
}

// postgresFactory connects to FPSCAN_POSTGRES_DSN. The database must be
// dedicated to tests: its tables are truncated.
func postgresFactory(t *testing.T, clock *testutil.StubClock) *database.SQLDatabase {
	t.Helper()

	dsn := os.Getenv("FPSCAN_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FPSCAN_POSTGRES_DSN not set")
	}
	db, err := database.NewPostgresDatabase(dsn, clock, testutil.NewStubIDGenerator())
	if err != nil {
		t.Fatalf("NewPostgresDatabase() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	if err := db.Truncate(); err != nil {
		t.Fatalf("Truncate() error = %v", err)
	}
	return db
}

func TestSQLite(t *testing.T) {
	runStoreTests(t, sqliteFactory)
}

func TestPostgres(t *testing.T) {
	runStoreTests(t, postgresFactory)
}

func runStoreTests(t *testing.T, newDB storeFactory) {
	t.Run("GetFingerprint", func(t *testing.T) { testGetFingerprint(t, newDB) })
	t.Run("InsertFingerprint", func(t *testing.T) { testInsertFingerprint(t, newDB) })
	t.Run("UpdateFingerprint", func(t *testing.T) { testUpdateFingerprint(t, newDB) })
	t.Run("Paging", func(t *testing.T) { testPaging(t, newDB) })
	t.Run("Preload", func(t *testing.T) { testPreload(t, newDB) })
	t.Run("CurrentVanishedTimestamp", func(t *testing.T) { testCurrentVanishedTimestamp(t, newDB) })
	t.Run("ScanRuns", func(t *testing.T) { testScanRuns(t, newDB) })
	t.Run("CheckMigrations", func(t *testing.T) { testCheckMigrations(t, newDB) })
}

func insert(t *testing.T, db *database.SQLDatabase, path string) *model.Fingerprint {
	t.Helper()
	fp := &model.Fingerprint{
		ShortFilename: filepath.Base(path),
		LongFilename:  path,
		MTime:         time.Date(2024, 1, 1, 12, 0, 0, 123456789, time.UTC),
		Size:          42,
		MD5:           testutil.MD5Hex([]byte(path)),
		OwnerID:       model.NoOwnerID,
	}
	if err := db.InsertFingerprint(fp); err != nil {
		t.Fatalf("InsertFingerprint(%s) error = %v", path, err)
	}
	return fp
}

func paths(fps []*model.Fingerprint) []string {
	out := make([]string, len(fps))
	for i, fp := range fps {
		out[i] = fp.LongFilename
	}
	return out
}

func assertPaths(t *testing.T, got []*model.Fingerprint, want ...string) {
	t.Helper()
	gotPaths := paths(got)
	if len(gotPaths) != len(want) {
		t.Fatalf("paths = %v, want %v", gotPaths, want)
	}
	for i := range want {
		if gotPaths[i] != want[i] {
			t.Fatalf("paths = %v, want %v", gotPaths, want)
		}
	}
}

func testGetFingerprint(t *testing.T, newDB storeFactory) {
	t.Run("returns nil when not found", func(t *testing.T) {
		db := newDB(t, testutil.FixedClock())

		fp, err := db.GetFingerprint("/nope.txt")
		if err != nil {
			t.Fatalf("GetFingerprint() error = %v", err)
		}
		if fp != nil {
			t.Errorf("GetFingerprint() = %v, want nil", fp)
		}
	})

	t.Run("round trips all fields", func(t *testing.T) {
		db := newDB(t, testutil.FixedClock())
		want := insert(t, db, "/data/photos/a.jpg")

		got, err := db.GetFingerprint("/data/photos/a.jpg")
		if err != nil {
			t.Fatalf("GetFingerprint() error = %v", err)
		}
		if got == nil {
			t.Fatal("GetFingerprint() returned nil")
		}
		if got.UUID != want.UUID {
			t.Errorf("UUID = %q, want %q", got.UUID, want.UUID)
		}
		if got.ShortFilename != "a.jpg" {
			t.Errorf("ShortFilename = %q, want a.jpg", got.ShortFilename)
		}
		if !got.MTime.Equal(want.MTime) {
			t.Errorf("MTime = %v, want %v (nanoseconds must survive)", got.MTime, want.MTime)
		}
		if got.Size != 42 || got.MD5 != want.MD5 {
			t.Errorf("Size/MD5 = %d/%s, want 42/%s", got.Size, got.MD5, want.MD5)
		}
		if got.IsVanished() {
			t.Error("IsVanished() = true, want false")
		}
		if got.OwnerID != model.NoOwnerID {
			t.Errorf("OwnerID = %q, want %q", got.OwnerID, model.NoOwnerID)
		}
	})
}

func testInsertFingerprint(t *testing.T, newDB storeFactory) {
	t.Run("assigns uuid", func(t *testing.T) {
		db := newDB(t, testutil.FixedClock())
		first := insert(t, db, "/a.txt")
		second := insert(t, db, "/b.txt")

		if first.UUID == "" || second.UUID == "" {
			t.Fatal("UUID not assigned")
		}
		if first.UUID == second.UUID {
			t.Errorf("UUIDs are equal: %q", first.UUID)
		}
	})

	t.Run("rejects duplicate path", func(t *testing.T) {
		db := newDB(t, testutil.FixedClock())
		insert(t, db, "/a.txt")

		dup := &model.Fingerprint{LongFilename: "/a.txt", ShortFilename: "a.txt", OwnerID: model.NoOwnerID}
		if err := db.InsertFingerprint(dup); err == nil {
			t.Error("InsertFingerprint() of duplicate path succeeded")
		}
	})
}

func testUpdateFingerprint(t *testing.T, newDB storeFactory) {
	t.Run("updates only patched fields", func(t *testing.T) {
		db := newDB(t, testutil.FixedClock())
		fp := insert(t, db, "/a.txt")

		md5 := "0123456789abcdef0123456789abcdef"
		if err := db.UpdateFingerprint(model.FingerprintPatch{UUID: fp.UUID, MD5: &md5}); err != nil {
			t.Fatalf("UpdateFingerprint() error = %v", err)
		}

		got, _ := db.GetFingerprint("/a.txt")
		if got.MD5 != md5 {
			t.Errorf("MD5 = %q, want %q", got.MD5, md5)
		}
		if got.Size != fp.Size || !got.MTime.Equal(fp.MTime) {
			t.Errorf("unpatched fields changed: %+v", got)
		}
	})

	t.Run("sets and clears vanished_at", func(t *testing.T) {
		db := newDB(t, testutil.FixedClock())
		fp := insert(t, db, "/a.txt")

		ts := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
		vanished := sql.NullTime{Time: ts, Valid: true}
		if err := db.UpdateFingerprint(model.FingerprintPatch{UUID: fp.UUID, VanishedAt: &vanished}); err != nil {
			t.Fatalf("UpdateFingerprint() error = %v", err)
		}
		got, _ := db.GetFingerprint("/a.txt")
		if !got.IsVanished() || !got.VanishedAt.Time.Equal(ts) {
			t.Errorf("VanishedAt = %v, want %v", got.VanishedAt, ts)
		}

		cleared := sql.NullTime{}
		if err := db.UpdateFingerprint(model.FingerprintPatch{UUID: fp.UUID, VanishedAt: &cleared}); err != nil {
			t.Fatalf("UpdateFingerprint() error = %v", err)
		}
		got, _ = db.GetFingerprint("/a.txt")
		if got.IsVanished() {
			t.Errorf("VanishedAt = %v, want cleared", got.VanishedAt)
		}
	})

	t.Run("empty patch is a no-op", func(t *testing.T) {
		db := newDB(t, testutil.FixedClock())
		if err := db.UpdateFingerprint(model.FingerprintPatch{UUID: "missing"}); err != nil {
			t.Errorf("UpdateFingerprint() error = %v, want nil", err)
		}
	})

	t.Run("unknown uuid is an error", func(t *testing.T) {
		db := newDB(t, testutil.FixedClock())
		size := int64(1)
		if err := db.UpdateFingerprint(model.FingerprintPatch{UUID: "missing", Size: &size}); err == nil {
			t.Error("UpdateFingerprint() of unknown uuid succeeded")
		}
	})
}

func testPaging(t *testing.T, newDB storeFactory) {
	db := newDB(t, testutil.FixedClock())
	for _, p := range []string{
		"/data/b.txt",
		"/data/a/z.txt",
		"/data/a.txt",
		"/data",
		"/database/x.txt",
		"/dat.txt",
		"/data/B.txt",
	} {
		insert(t, db, p)
	}

	t.Run("count includes root and descendants only", func(t *testing.T) {
		n, err := db.CountFingerprints("/data")
		if err != nil {
			t.Fatalf("CountFingerprints() error = %v", err)
		}
		if n != 5 {
			t.Errorf("CountFingerprints() = %d, want 5", n)
		}
	})

	t.Run("pages in byte order", func(t *testing.T) {
		first, err := db.GetFingerprintsPage("/data", 0, 3)
		if err != nil {
			t.Fatalf("GetFingerprintsPage() error = %v", err)
		}
		assertPaths(t, first, "/data", "/data/B.txt", "/data/a.txt")

		second, err := db.GetFingerprintsPage("/data", 3, 3)
		if err != nil {
			t.Fatalf("GetFingerprintsPage() error = %v", err)
		}
		assertPaths(t, second, "/data/a/z.txt", "/data/b.txt")
	})

	t.Run("trailing slash root", func(t *testing.T) {
		fps, err := db.GetFingerprintsPage("/", 0, 100)
		if err != nil {
			t.Fatalf("GetFingerprintsPage() error = %v", err)
		}
		if len(fps) != 7 {
			t.Errorf("len = %d, want 7", len(fps))
		}
	})

	t.Run("offset past end", func(t *testing.T) {
		fps, err := db.GetFingerprintsPage("/data", 10, 3)
		if err != nil {
			t.Fatalf("GetFingerprintsPage() error = %v", err)
		}
		if len(fps) != 0 {
			t.Errorf("len = %d, want 0", len(fps))
		}
	})
}

func testPreload(t *testing.T, newDB storeFactory) {
	db := newDB(t, testutil.FixedClock())
	for _, p := range []string{"/r/c.txt", "/r/a.txt", "/r/b.txt", "/s/a.txt"} {
		insert(t, db, p)
	}

	t.Run("starts at exact path", func(t *testing.T) {
		fps, err := db.PreloadFingerprints("/r/b.txt", 2)
		if err != nil {
			t.Fatalf("PreloadFingerprints() error = %v", err)
		}
		assertPaths(t, fps, "/r/b.txt", "/r/c.txt")
	})

	t.Run("absent path starts at successor", func(t *testing.T) {
		fps, err := db.PreloadFingerprints("/r/bb.txt", 10)
		if err != nil {
			t.Fatalf("PreloadFingerprints() error = %v", err)
		}
		assertPaths(t, fps, "/r/c.txt", "/s/a.txt")
	})
}

func testCurrentVanishedTimestamp(t *testing.T, newDB storeFactory) {
	clock := testutil.FixedClock()
	db := newDB(t, clock)

	ts, err := db.CurrentVanishedTimestamp()
	if err != nil {
		t.Fatalf("CurrentVanishedTimestamp() error = %v", err)
	}
	if !ts.Equal(clock.Now()) {
		t.Errorf("CurrentVanishedTimestamp() = %v, want %v", ts, clock.Now())
	}
}

func testScanRuns(t *testing.T, newDB storeFactory) {
	clock := testutil.FixedClock()
	db := newDB(t, clock)

	first, err := db.CreateScanRun("/data", false)
	if err != nil {
		t.Fatalf("CreateScanRun() error = %v", err)
	}
	if first.Status != database.StatusRunning {
		t.Errorf("Status = %q, want %q", first.Status, database.StatusRunning)
	}

	clock.Advance(3 * time.Second)
	first.Forward = model.PhaseStats{Scanned: 10, Processed: 4}
	first.Reverse = model.PhaseStats{Scanned: 12, Processed: 2, Errors: 1}
	if err := db.FinishScanRun(first, database.StatusSuccess); err != nil {
		t.Fatalf("FinishScanRun() error = %v", err)
	}

	second, err := db.CreateScanRun("/other", true)
	if err != nil {
		t.Fatalf("CreateScanRun() error = %v", err)
	}

	runs, err := db.ListScanRuns(10)
	if err != nil {
		t.Fatalf("ListScanRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].ID != second.ID || !runs[0].Force {
		t.Errorf("runs[0] = %+v, want newest forced run first", runs[0])
	}
	got := runs[1]
	if got.Status != database.StatusSuccess {
		t.Errorf("Status = %q, want %q", got.Status, database.StatusSuccess)
	}
	if !got.FinishedAt.Valid || got.FinishedAt.Time.Sub(got.StartedAt) != 3*time.Second {
		t.Errorf("FinishedAt = %v, StartedAt = %v, want 3s apart", got.FinishedAt, got.StartedAt)
	}
	if got.Forward != first.Forward || got.Reverse != first.Reverse {
		t.Errorf("stats = %+v/%+v, want %+v/%+v", got.Forward, got.Reverse, first.Forward, first.Reverse)
	}

	limited, err := db.ListScanRuns(1)
	if err != nil {
		t.Fatalf("ListScanRuns(1) error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("len(ListScanRuns(1)) = %d, want 1", len(limited))
	}
}

func testCheckMigrations(t *testing.T, newDB storeFactory) {
	db := newDB(t, testutil.FixedClock())
	if err := db.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() error = %v", err)
	}
}

func TestSQLiteDatabase_BackupTo(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	insert(t, db, "/a.txt")

	dest := filepath.Join(t.TempDir(), "backup.db")
	if err := db.BackupTo(dest); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}

	backup, err := database.NewSQLiteDatabase(dest, nil, nil)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase() error = %v", err)
	}
	defer backup.Close()

	fp, err := backup.GetFingerprint("/a.txt")
	if err != nil || fp == nil {
		t.Fatalf("GetFingerprint() on backup = %v, %v", fp, err)
	}
}

func TestSQLiteDatabase_CheckMigrationsUnmigrated(t *testing.T) {
	db, err := database.NewSQLiteDatabase(":memory:", nil, nil)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase() error = %v", err)
	}
	defer db.Close()

	if err := db.CheckMigrations(); err == nil {
		t.Error("CheckMigrations() on empty database succeeded")
	}
}
