package models

import (
	"net/mail"
	"strings"
	"time"

	id "quantumtrust/pkg/domain"
	dErrors "quantumtrust/pkg/domain-errors"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleUser    Role = "user"
	RoleAuditor Role = "auditor"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleAuditor:
		return true
	}
	return false
}

// User is an account record.
//
// Invariants:
//   - Username and Email are globally unique (Email case-insensitively)
//   - DID, when set, names a DID record owned by this user
//   - PasswordHash is opaque; it never leaves the service in responses
type User struct {
	ID           id.UserID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Country      *string   `json:"country,omitempty"`
	DID          *string   `json:"did,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) HasDID() bool {
	return u.DID != nil && *u.DID != ""
}

// ApplyDIDBinding points the user at did and refreshes UpdatedAt.
func (u *User) ApplyDIDBinding(did string, now time.Time) {
	u.DID = &did
	u.UpdatedAt = now
}

// NewUserParams carries the fields a caller supplies at registration.
type NewUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Country      *string
}

// Normalize trims whitespace and lowercases the email.
func (p *NewUserParams) Normalize() {
	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Country != nil {
		c := strings.TrimSpace(*p.Country)
		if c == "" {
			p.Country = nil
		} else {
			p.Country = &c
		}
	}
}

// Column widths follow the users table.
const (
	maxUsernameLength = 50
	maxEmailLength    = 100
	maxCountryLength  = 50
	maxHashLength     = 100
)

func NewUser(p NewUserParams, now time.Time) (*User, error) {
	p.Normalize()
	switch {
	case p.Username == "":
		return nil, dErrors.New(dErrors.CodeValidation, "username is required")
	case len(p.Username) > maxUsernameLength:
		return nil, dErrors.New(dErrors.CodeValidation, "username must be 50 characters or less")
	case p.Email == "":
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	case len(p.Email) > maxEmailLength:
		return nil, dErrors.New(dErrors.CodeValidation, "email must be 100 characters or less")
	case p.PasswordHash == "" || len(p.PasswordHash) > maxHashLength:
		return nil, dErrors.New(dErrors.CodeValidation, "password hash is malformed")
	case !p.Role.IsValid():
		return nil, dErrors.New(dErrors.CodeValidation, "role must be one of admin, user, auditor")
	case p.Country != nil && len(*p.Country) > maxCountryLength:
		return nil, dErrors.New(dErrors.CodeValidation, "country must be 50 characters or less")
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "email is malformed")
	}
	return &User{
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Role:         p.Role,
		Country:      p.Country,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Lookup selects a user by exactly one of id, username or email.
type Lookup struct {
	ID       id.UserID
	Username string
	Email    string
}

func ByID(userID id.UserID) Lookup  { return Lookup{ID: userID} }
func ByUsername(name string) Lookup { return Lookup{Username: name} }
func ByEmail(email string) Lookup   { return Lookup{Email: email} }

func (l Lookup) Validate() error {
	set := 0
	if !l.ID.IsNil() {
		set++
	}
	if l.Username != "" {
		set++
	}
	if l.Email != "" {
		set++
	}
	if set != 1 {
		return dErrors.New(dErrors.CodeBadRequest, "lookup needs exactly one of id, username or email")
	}
	return nil
}
