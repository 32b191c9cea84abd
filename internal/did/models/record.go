package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	id "quantumtrust/pkg/domain"
	dErrors "quantumtrust/pkg/domain-errors"
)

const (
	DefaultMethod = "quantumtrust"

	maxPublicKeyLength = 8192
)

// Record is a decentralized identifier bound to one user and one public key.
//
// Invariants:
//   - DID and UserID never change after issuance
//   - PublicKey never changes once Status leaves pending
//   - Status only moves along Status.CanTransitionTo
type Record struct {
	ID        id.DIDRecordID `json:"id"`
	DID       string         `json:"did"`
	UserID    id.UserID      `json:"user_id"`
	PublicKey string         `json:"public_key"`
	Status    Status         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
}

// NewDIDString renders a fresh identifier of the form did:<method>:<uuid>.
func NewDIDString(method string) string {
	if method == "" {
		method = DefaultMethod
	}
	return fmt.Sprintf("did:%s:%s", method, uuid.NewString())
}

// NewRecord builds a pending record. The caller assigns the identifier string.
func NewRecord(did string, userID id.UserID, publicKey string, expiresAt *time.Time, now time.Time) (*Record, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	publicKey = strings.TrimSpace(publicKey)
	if publicKey == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "public key is required")
	}
	if len(publicKey) > maxPublicKeyLength {
		return nil, dErrors.New(dErrors.CodeValidation, "public key is too long")
	}
	if !strings.HasPrefix(did, "did:") {
		return nil, dErrors.New(dErrors.CodeValidation, "malformed did")
	}
	if expiresAt != nil {
		if !expiresAt.After(now) {
			return nil, dErrors.New(dErrors.CodeValidation, "expires_at must be in the future")
		}
		exp := expiresAt.UTC()
		expiresAt = &exp
	}
	return &Record{
		DID:       did,
		UserID:    userID,
		PublicKey: publicKey,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: expiresAt,
	}, nil
}

// IsDue reports whether the record should be expired at now.
// The boundary is inclusive: expires_at == now is due.
func (r *Record) IsDue(now time.Time) bool {
	return r.Status.IsLive() && r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// IsActiveAt reports whether the record is active and not yet due.
func (r *Record) IsActiveAt(now time.Time) bool {
	return r.Status == StatusActive && !r.IsDue(now)
}

// CanActivate checks the pending -> active transition at now.
// A due record is already expired in effect and cannot be activated.
func (r *Record) CanActivate(now time.Time) error {
	if r.IsDue(now) {
		return dErrors.New(dErrors.CodeInvalidState, "did has expired")
	}
	if r.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("cannot activate did in status %s", r.Status))
	}
	return nil
}

// CanRevoke checks the {pending, active} -> revoked transition at now.
func (r *Record) CanRevoke(now time.Time) error {
	if r.IsDue(now) {
		return dErrors.New(dErrors.CodeInvalidState, "did has expired")
	}
	if !r.Status.CanTransitionTo(StatusRevoked) {
		return dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("cannot revoke did in status %s", r.Status))
	}
	return nil
}

// ApplyStatus moves the record to next and stamps UpdatedAt.
// Call the matching CanX first.
func (r *Record) ApplyStatus(next Status, now time.Time) {
	r.Status = next
	r.UpdatedAt = now
}
