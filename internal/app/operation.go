package app

import "time"

// CLI operations served by an FPApp.
const (
	OpScan      = "Scan"
	OpList      = "ListFingerprints"
	OpShow      = "ShowFingerprint"
	OpHistory   = "GetHistory"
	OpMigrateDB = "MigrateDB"
)

// Operation tracks the CLI command an FPApp was created for. RunID tags every
// log line written during the command. Only scans are persisted, as scan runs.
type Operation struct {
	Name   string
	RunID  string
	Status string // "success" or "error"
}

// NewOperation creates an operation started at now.
func NewOperation(name string, now time.Time) *Operation {
	return &Operation{
		Name:   name,
		RunID:  now.UTC().Format("20060102T150405Z"),
		Status: "success",
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = "error"
}

// requiresSchema reports whether the operation needs an up-to-date schema
// before it may touch the database.
func (op *Operation) requiresSchema() bool {
	return op.Name != OpMigrateDB
}
