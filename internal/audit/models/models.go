// Package models defines audit ledger entries and query filters.
package models

import (
	"time"

	id "quantumtrust/pkg/domain"
	dErrors "quantumtrust/pkg/domain-errors"
)

// Action names follow resource.verb.
type Action string

const (
	ActionUserCreate  Action = "user.create"
	ActionDIDIssue    Action = "did.issue"
	ActionDIDActivate Action = "did.activate"
	ActionDIDRevoke   Action = "did.revoke"
	ActionDIDExpire   Action = "did.expire"
)

const (
	ResourceUser = "user"
	ResourceDID  = "did"
)

// Detail keys written by the lifecycle coordinator.
const (
	DetailDID        = "did"
	DetailFromStatus = "from_status"
	DetailToStatus   = "to_status"
	DetailReason     = "reason"
	DetailDevice     = "device"
	DetailRequestID  = "request_id"
	DetailUsername   = "username"
	DetailRole       = "role"
)

// Entry is one immutable ledger row. UserID is zero for system actions.
type Entry struct {
	ID           id.AuditEntryID   `json:"id"`
	UserID       id.UserID         `json:"user_id,omitempty"`
	Action       Action            `json:"action"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
	Details      map[string]string `json:"details,omitempty"`
	IPAddress    string            `json:"ip_address,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (e *Entry) Validate() error {
	if e.Action == "" {
		return dErrors.New(dErrors.CodeValidation, "audit action is required")
	}
	if e.ResourceType == "" {
		return dErrors.New(dErrors.CodeValidation, "audit resource type is required")
	}
	return nil
}

// Filter narrows a ledger query. Zero fields match everything.
// From is inclusive and To exclusive. AfterID resumes after a known entry.
// Limit caps the total number of entries yielded (0 = no cap).
type Filter struct {
	UserID       id.UserID
	ResourceType string
	ResourceID   string
	Actions      []Action
	From         *time.Time
	To           *time.Time
	AfterID      id.AuditEntryID
	Limit        int
}

// Matches reports whether e passes every set field except AfterID and Limit.
func (f Filter) Matches(e Entry) bool {
	if !f.UserID.IsNil() && e.UserID != f.UserID {
		return false
	}
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if f.ResourceID != "" && e.ResourceID != f.ResourceID {
		return false
	}
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if a == e.Action {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !e.CreatedAt.Before(*f.To) {
		return false
	}
	return true
}

func (f Filter) Validate() error {
	if f.Limit < 0 {
		return dErrors.New(dErrors.CodeValidation, "limit must not be negative")
	}
	if f.AfterID < 0 {
		return dErrors.New(dErrors.CodeValidation, "cursor must not be negative")
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return dErrors.New(dErrors.CodeValidation, "from must be before to")
	}
	return nil
}
