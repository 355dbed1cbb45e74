package database

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"fpscan/internal/model"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the statements shared by every dialect. Statements are
// written with '?' placeholders and rebound for dialects that number them.
type Queries struct {
	db       DBTX
	numbered bool
}

func newQueries(db DBTX, numbered bool) *Queries {
	return &Queries{db: db, numbered: numbered}
}

// WithTx returns a Queries that runs its statements inside tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, numbered: q.numbered}
}

// rebind rewrites '?' placeholders as $1, $2, ... when the dialect needs it.
func (q *Queries) rebind(query string) string {
	if !q.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.rebind(query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.rebind(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.rebind(query), args...)
}

// subtreeBounds returns the half-open range [lo, hi) of paths strictly below
// root. '0' is the byte following '/'.
func subtreeBounds(root string) (lo, hi string) {
	lo = root
	if !strings.HasSuffix(lo, "/") {
		lo += "/"
	}
	return lo, lo[:len(lo)-1] + "0"
}

const fingerprintColumns = `uuid, short_filename, long_filename, mtime_ns, size, md5, vanished_at, hidden, owner_id`

const subtreeCondition = `(long_filename = ? OR (long_filename >= ? AND long_filename < ?))`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFingerprint(row rowScanner) (*model.Fingerprint, error) {
	var (
		fp      model.Fingerprint
		mtimeNS int64
	)
	err := row.Scan(
		&fp.UUID,
		&fp.ShortFilename,
		&fp.LongFilename,
		&mtimeNS,
		&fp.Size,
		&fp.MD5,
		&fp.VanishedAt,
		&fp.Hidden,
		&fp.OwnerID,
	)
	if err != nil {
		return nil, err
	}
	fp.MTime = time.Unix(0, mtimeNS).UTC()
	if fp.VanishedAt.Valid {
		fp.VanishedAt.Time = fp.VanishedAt.Time.UTC()
	}
	return &fp, nil
}

func scanFingerprints(rows *sql.Rows) ([]*model.Fingerprint, error) {
	defer rows.Close()

	var out []*model.Fingerprint
	for rows.Next() {
		fp, err := scanFingerprint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (q *Queries) GetFingerprintByPath(ctx context.Context, path string) (*model.Fingerprint, error) {
	row := q.queryRow(ctx, `SELECT `+fingerprintColumns+` FROM fingerprints WHERE long_filename = ?`, path)
	return scanFingerprint(row)
}

func (q *Queries) GetFingerprintByUUID(ctx context.Context, id string) (*model.Fingerprint, error) {
	row := q.queryRow(ctx, `SELECT `+fingerprintColumns+` FROM fingerprints WHERE uuid = ?`, id)
	return scanFingerprint(row)
}

func (q *Queries) GetFingerprintsUnder(ctx context.Context, root string, offset, limit int) ([]*model.Fingerprint, error) {
	lo, hi := subtreeBounds(root)
	rows, err := q.query(ctx, `SELECT `+fingerprintColumns+` FROM fingerprints
		WHERE `+subtreeCondition+`
		ORDER BY long_filename
		LIMIT ? OFFSET ?`, root, lo, hi, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanFingerprints(rows)
}

func (q *Queries) CountFingerprintsUnder(ctx context.Context, root string) (int, error) {
	lo, hi := subtreeBounds(root)
	var n int
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM fingerprints WHERE `+subtreeCondition, root, lo, hi).Scan(&n)
	return n, err
}

func (q *Queries) GetFingerprintsFrom(ctx context.Context, startPath string, limit int) ([]*model.Fingerprint, error) {
	rows, err := q.query(ctx, `SELECT `+fingerprintColumns+` FROM fingerprints
		WHERE long_filename >= ?
		ORDER BY long_filename
		LIMIT ?`, startPath, limit)
	if err != nil {
		return nil, err
	}
	return scanFingerprints(rows)
}

func (q *Queries) InsertFingerprint(ctx context.Context, fp *model.Fingerprint) error {
	_, err := q.exec(ctx, `INSERT INTO fingerprints (`+fingerprintColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fp.UUID,
		fp.ShortFilename,
		fp.LongFilename,
		fp.MTime.UnixNano(),
		fp.Size,
		fp.MD5,
		fp.VanishedAt,
		fp.Hidden,
		fp.OwnerID,
	)
	return err
}

// UpdateFingerprint applies the non-nil fields of patch and returns the
// number of rows changed.
func (q *Queries) UpdateFingerprint(ctx context.Context, patch model.FingerprintPatch) (int64, error) {
	var (
		sets []string
		args []any
	)
	if patch.MTime != nil {
		sets = append(sets, "mtime_ns = ?")
		args = append(args, patch.MTime.UnixNano())
	}
	if patch.Size != nil {
		sets = append(sets, "size = ?")
		args = append(args, *patch.Size)
	}
	if patch.MD5 != nil {
		sets = append(sets, "md5 = ?")
		args = append(args, *patch.MD5)
	}
	if patch.VanishedAt != nil {
		sets = append(sets, "vanished_at = ?")
		args = append(args, *patch.VanishedAt)
	}
	args = append(args, patch.UUID)

	res, err := q.exec(ctx, `UPDATE fingerprints SET `+strings.Join(sets, ", ")+` WHERE uuid = ?`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const scanRunColumns = `id, scope, forced, started_at, finished_at, status,
	forward_scanned, forward_processed, forward_errors,
	reverse_scanned, reverse_processed, reverse_errors`

func scanScanRun(row rowScanner) (*model.ScanRun, error) {
	var run model.ScanRun
	err := row.Scan(
		&run.ID,
		&run.Scope,
		&run.Force,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Status,
		&run.Forward.Scanned,
		&run.Forward.Processed,
		&run.Forward.Errors,
		&run.Reverse.Scanned,
		&run.Reverse.Processed,
		&run.Reverse.Errors,
	)
	if err != nil {
		return nil, err
	}
	run.StartedAt = run.StartedAt.UTC()
	if run.FinishedAt.Valid {
		run.FinishedAt.Time = run.FinishedAt.Time.UTC()
	}
	return &run, nil
}

func (q *Queries) InsertScanRun(ctx context.Context, scope string, force bool, startedAt time.Time, status string) (int64, error) {
	var id int64
	err := q.queryRow(ctx, `INSERT INTO scan_runs (scope, forced, started_at, status)
		VALUES (?, ?, ?, ?)
		RETURNING id`, scope, force, startedAt, status).Scan(&id)
	return id, err
}

func (q *Queries) UpdateScanRunFinished(ctx context.Context, run *model.ScanRun) (int64, error) {
	res, err := q.exec(ctx, `UPDATE scan_runs SET
		finished_at = ?, status = ?,
		forward_scanned = ?, forward_processed = ?, forward_errors = ?,
		reverse_scanned = ?, reverse_processed = ?, reverse_errors = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status,
		run.Forward.Scanned, run.Forward.Processed, run.Forward.Errors,
		run.Reverse.Scanned, run.Reverse.Processed, run.Reverse.Errors,
		run.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) GetScanRuns(ctx context.Context, limit int) ([]*model.ScanRun, error) {
	rows, err := q.query(ctx, `SELECT `+scanRunColumns+` FROM scan_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ScanRun
	for rows.Next() {
		run, err := scanScanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
