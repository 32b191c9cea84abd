// Package domain holds identifier types shared across modules.
//
// Surrogate keys are database-assigned positive integers. Each entity gets its own
// named type so a DID record id can never be passed where a user id is expected.
package domain

import (
	"strconv"
	"strings"

	dErrors "quantumtrust/pkg/domain-errors"
)

// maxIDLength bounds the textual form accepted at trust boundaries (int64 max is 19 digits).
const maxIDLength = 19

type (
	UserID       int64
	DIDRecordID  int64
	AuditEntryID int64
)

func (u UserID) IsNil() bool          { return u <= 0 }
func (u UserID) String() string       { return strconv.FormatInt(int64(u), 10) }
func (d DIDRecordID) IsNil() bool     { return d <= 0 }
func (d DIDRecordID) String() string  { return strconv.FormatInt(int64(d), 10) }
func (a AuditEntryID) IsNil() bool    { return a <= 0 }
func (a AuditEntryID) String() string { return strconv.FormatInt(int64(a), 10) }

// ParseUserID parses a user id from its decimal form.
func ParseUserID(s string) (UserID, error) {
	v, err := parsePositive(s, "user id")
	return UserID(v), err
}

// ParseDIDRecordID parses a DID record surrogate id from its decimal form.
func ParseDIDRecordID(s string) (DIDRecordID, error) {
	v, err := parsePositive(s, "did id")
	return DIDRecordID(v), err
}

// ParseAuditEntryID parses an audit entry id. Zero is accepted because it is
// the natural "start from the beginning" cursor.
func ParseAuditEntryID(s string) (AuditEntryID, error) {
	if s == "0" {
		return 0, nil
	}
	v, err := parsePositive(s, "audit entry id")
	return AuditEntryID(v), err
}

func parsePositive(s, what string) (int64, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	if len(s) > maxIDLength || strings.TrimFunc(s, isDigit) != "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	return v, nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
