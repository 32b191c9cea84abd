// Package store persists DID records.
//
// Both implementations return sentinel errors:
//   - sentinel.ErrNotFound when the record (or its owning user) does not exist
//   - sentinel.ErrConflict when the DID string is taken or the user already owns a live DID
//   - sentinel.ErrInvalidState when a status compare-and-swap matched no row
package store

import (
	"quantumtrust/internal/did/models"
)

// liveStatuses are the statuses that count toward the one-live-DID-per-user rule.
var liveStatuses = []string{string(models.StatusPending), string(models.StatusActive)}
