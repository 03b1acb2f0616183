// Package accessgate decides whether a caller may read or change a URL record.
package accessgate

import "github.com/patric-chuzhbe/tinyapp/internal/models"

// Mode is the kind of access being requested.
type Mode int

const (
	// Read is access to view or follow a URL.
	Read Mode = iota
	// Write is access to edit or delete a URL.
	Write
)

// String returns "read" or "write".
func (m Mode) String() string {
	if m == Write {
		return "write"
	}

	return "read"
}

// CanAccess reports whether callerID may access record in the given mode.
// Only the owner has access, for reads and writes alike. An anonymous caller never has.
func CanAccess(record *models.URLRecord, callerID string, mode Mode) bool {
	if record == nil || callerID == "" {
		return false
	}

	switch mode {
	case Read, Write:
		return record.OwnerID == callerID
	}

	return false
}
