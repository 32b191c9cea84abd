package httptransport

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	auditmodels "quantumtrust/internal/audit/models"
	idmodels "quantumtrust/internal/identity/models"
	"quantumtrust/internal/lifecycle"
	id "quantumtrust/pkg/domain"
	dErrors "quantumtrust/pkg/domain-errors"
	pkgstrings "quantumtrust/pkg/platform/strings"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
	maxReasonLength   = 512
)

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Role     string  `json:"role,omitempty"`
	Country  *string `json:"country,omitempty"`
}

// Validate checks presence only; format rules live in the identity model.
func (r *CreateUserRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	if r.Username == "" {
		return dErrors.New(dErrors.CodeValidation, "username is required")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	if r.Role == "" {
		r.Role = string(idmodels.RoleUser)
	}
	return nil
}

func (r *CreateUserRequest) toDomain() lifecycle.RegisterUserRequest {
	return lifecycle.RegisterUserRequest{
		Username: r.Username,
		Email:    r.Email,
		Password: r.Password,
		Role:     idmodels.Role(r.Role),
		Country:  r.Country,
	}
}

// IssueDIDRequest is the body of POST /dids.
type IssueDIDRequest struct {
	PublicKey string     `json:"public_key"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (r *IssueDIDRequest) Validate() error {
	if strings.TrimSpace(r.PublicKey) == "" {
		return dErrors.New(dErrors.CodeValidation, "public_key is required")
	}
	return nil
}

// RevokeDIDRequest is the optional body of POST /dids/{id}/revoke.
type RevokeDIDRequest struct {
	Reason string `json:"reason"`
}

func (r *RevokeDIDRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if len(r.Reason) > maxReasonLength {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	return nil
}

// parseAuditFilter reads GET /audit query parameters.
func parseAuditFilter(q url.Values) (auditmodels.Filter, error) {
	filter := auditmodels.Filter{
		ResourceType: strings.TrimSpace(q.Get("resource_type")),
		ResourceID:   strings.TrimSpace(q.Get("resource_id")),
		Limit:        defaultAuditLimit,
	}
	if raw := q.Get("user_id"); raw != "" {
		userID, err := id.ParseUserID(raw)
		if err != nil {
			return filter, err
		}
		filter.UserID = userID
	}
	for _, action := range pkgstrings.DedupeAndTrim(q["action"]) {
		filter.Actions = append(filter.Actions, auditmodels.Action(action))
	}
	var err error
	if filter.From, err = parseTime(q.Get("from"), "from"); err != nil {
		return filter, err
	}
	if filter.To, err = parseTime(q.Get("to"), "to"); err != nil {
		return filter, err
	}
	if raw := q.Get("after"); raw != "" {
		after, err := id.ParseAuditEntryID(raw)
		if err != nil {
			return filter, err
		}
		filter.AfterID = after
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer")
		}
		filter.Limit = min(limit, maxAuditLimit)
	}
	return filter, filter.Validate()
}

func parseTime(raw, field string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be an RFC3339 timestamp")
	}
	t = t.UTC()
	return &t, nil
}
