package httptransport

import (
	"time"

	auditmodels "quantumtrust/internal/audit/models"
	didmodels "quantumtrust/internal/did/models"
	idmodels "quantumtrust/internal/identity/models"
	id "quantumtrust/pkg/domain"
)

// UserResponse omits the password hash.
type UserResponse struct {
	ID        id.UserID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Country   *string   `json:"country,omitempty"`
	DID       *string   `json:"did,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *idmodels.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		Country:   u.Country,
		DID:       u.DID,
		CreatedAt: u.CreatedAt,
	}
}

// DIDResponse is the public view of a DID record.
type DIDResponse struct {
	ID        id.DIDRecordID `json:"id"`
	DID       string         `json:"did"`
	UserID    id.UserID      `json:"user_id"`
	PublicKey string         `json:"public_key"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
}

func toDIDResponse(r *didmodels.Record) DIDResponse {
	return DIDResponse{
		ID:        r.ID,
		DID:       r.DID,
		UserID:    r.UserID,
		PublicKey: r.PublicKey,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		ExpiresAt: r.ExpiresAt,
	}
}

// AuditPageResponse is one page of ledger entries. NextAfter is set when the
// page is full and more entries may follow.
type AuditPageResponse struct {
	Entries   []auditmodels.Entry `json:"entries"`
	NextAfter *id.AuditEntryID    `json:"next_after,omitempty"`
}

func toAuditPage(entries []auditmodels.Entry, limit int) AuditPageResponse {
	if entries == nil {
		entries = []auditmodels.Entry{}
	}
	resp := AuditPageResponse{Entries: entries}
	if limit > 0 && len(entries) == limit {
		last := entries[len(entries)-1].ID
		resp.NextAfter = &last
	}
	return resp
}
