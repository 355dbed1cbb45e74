package model

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// NoOwnerID is the reserved owner of fingerprints nobody has claimed.
var NoOwnerID = uuid.Nil.String()

// Fingerprint is the persisted record for one filesystem entry.
type Fingerprint struct {
	UUID          string       // Assigned by the store on insert, never reassigned
	ShortFilename string       // Base name
	LongFilename  string       // Absolute path, unique within the store
	MTime         time.Time    // Modification time as of the last forward scan
	Size          int64        // Size in bytes as of the last forward scan
	MD5           string       // Hex-encoded content digest
	VanishedAt    sql.NullTime // Set while the entry is absent or out of scope
	Hidden        bool
	OwnerID       string
}

// IsVanished reports whether the fingerprint is currently marked as vanished.
func (f *Fingerprint) IsVanished() bool {
	return f.VanishedAt.Valid
}

// FingerprintPatch is a partial update keyed by UUID.
// Nil fields are left untouched.
type FingerprintPatch struct {
	UUID       string
	MTime      *time.Time
	Size       *int64
	MD5        *string
	VanishedAt *sql.NullTime
}

// IsEmpty reports whether the patch would change nothing.
func (p *FingerprintPatch) IsEmpty() bool {
	return p.MTime == nil && p.Size == nil && p.MD5 == nil && p.VanishedAt == nil
}

// PhaseStats are the per-phase totals reported by a scan.
type PhaseStats struct {
	Scanned   int
	Processed int
	Errors    int
}

// ScanRun records one invocation of a scan and its outcome.
type ScanRun struct {
	ID         int64
	Scope      string
	Force      bool
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string // "running", "success" or "error"
	Forward    PhaseStats
	Reverse    PhaseStats
}
