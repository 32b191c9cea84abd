package lifecycle

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	auditmodels "quantumtrust/internal/audit/models"
	idmodels "quantumtrust/internal/identity/models"
	id "quantumtrust/pkg/domain"
	dErrors "quantumtrust/pkg/domain-errors"
	"quantumtrust/pkg/requestcontext"
)

// RegisterUserRequest is the plaintext registration input.
type RegisterUserRequest struct {
	Username string        `json:"username"`
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Role     idmodels.Role `json:"role"`
	Country  *string       `json:"country,omitempty"`
}

// RegisterUser hashes the password, creates the account and logs user.create.
// The acting user from the context is recorded and must exist (Unauthorized
// otherwise); self-registration records the new user as the actor.
func (s *Service) RegisterUser(ctx context.Context, req RegisterUserRequest) (user *idmodels.User, err error) {
	ctx, end := s.start(ctx, "register_user", attribute.String("username", req.Username))
	defer func() { end(err) }()

	return s.registerUser(ctx, req, false)
}

// EnsureAdmin creates the admin account when no user with that username
// exists. It reports whether an account was created. The audit entry carries
// no actor because the system performs it. It fails with Conflict when the
// username or email is held by an account that is not the admin.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (created bool, err error) {
	ctx, end := s.start(ctx, "ensure_admin")
	defer func() { end(err) }()

	existing, err := s.identity.GetUser(ctx, idmodels.ByUsername(username))
	if err == nil {
		return false, requireAdmin(existing)
	}
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return false, err
	}

	_, err = s.registerUser(ctx, RegisterUserRequest{
		Username: username,
		Email:    email,
		Password: password,
		Role:     idmodels.RoleAdmin,
	}, true)
	if !dErrors.HasCode(err, dErrors.CodeConflict) {
		return err == nil, err
	}

	// a concurrent instance may have seeded it first
	existing, lookupErr := s.identity.GetUser(ctx, idmodels.ByUsername(username))
	if dErrors.HasCode(lookupErr, dErrors.CodeNotFound) {
		return false, dErrors.Wrap(err, dErrors.CodeConflict, "admin email belongs to another account")
	}
	if lookupErr != nil {
		return false, lookupErr
	}
	return false, requireAdmin(existing)
}

func requireAdmin(user *idmodels.User) error {
	if user.Role != idmodels.RoleAdmin {
		return dErrors.New(dErrors.CodeConflict, "admin username belongs to a non-admin account")
	}
	return nil
}

func (s *Service) registerUser(ctx context.Context, req RegisterUserRequest, system bool) (*idmodels.User, error) {
	if req.Role == "" {
		req.Role = idmodels.RoleUser
	}
	if !req.Role.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "role must be one of admin, user, auditor")
	}
	var actor id.UserID
	if !system {
		actor = requestcontext.UserID(ctx)
		if err := s.knownActor(ctx, actor); err != nil {
			return nil, err
		}
	}
	// bcrypt is slow; keep it outside the transaction
	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	var (
		user  *idmodels.User
		entry auditmodels.Entry
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.identity.CreateUser(ctx, idmodels.NewUserParams{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hash,
			Role:         req.Role,
			Country:      req.Country,
		})
		if err != nil {
			return err
		}

		recorded := actor
		if !system && recorded.IsNil() {
			recorded = user.ID
		}
		entry = newEntry(ctx, auditmodels.ActionUserCreate, recorded, auditmodels.ResourceUser, user.ID.String(), map[string]string{
			auditmodels.DetailUsername: user.Username,
			auditmodels.DetailRole:     string(user.Role),
		})
		_, err = s.ledger.Append(ctx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, entry)
	return user, nil
}

// GetUser is a read-through to the identity store.
func (s *Service) GetUser(ctx context.Context, lookup idmodels.Lookup) (*idmodels.User, error) {
	return s.identity.GetUser(ctx, lookup)
}
