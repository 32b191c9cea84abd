package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	idmodels "quantumtrust/internal/identity/models"
	"quantumtrust/internal/lifecycle"
	id "quantumtrust/pkg/domain"
	dErrors "quantumtrust/pkg/domain-errors"
	"quantumtrust/pkg/platform/httputil"
	"quantumtrust/pkg/requestcontext"
)

// UserService is the slice of the lifecycle coordinator the user routes need.
type UserService interface {
	RegisterUser(ctx context.Context, req lifecycle.RegisterUserRequest) (*idmodels.User, error)
	GetUser(ctx context.Context, lookup idmodels.Lookup) (*idmodels.User, error)
}

// UserHandler serves account registration and lookup.
type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// Register mounts user routes. Registration is public; reads need an actor.
func (h *UserHandler) Register(r chi.Router, requireActor func(http.Handler) http.Handler) {
	r.Post("/users", h.handleCreate)
	r.With(requireActor).Get("/users/{id}", h.handleGet)
}

// RoleOf resolves the acting user's role for the admin middleware.
func (h *UserHandler) RoleOf(ctx context.Context, userID id.UserID) (string, error) {
	user, err := h.users.GetUser(ctx, idmodels.ByID(userID))
	if err != nil {
		return "", err
	}
	return string(user.Role), nil
}

func (h *UserHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if idmodels.Role(req.Role) == idmodels.RoleAdmin && !h.actorIsAdmin(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "only admins may create admin accounts"))
		return
	}

	user, err := h.users.RegisterUser(ctx, req.toDomain())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *UserHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	actor := requestcontext.UserID(ctx)
	if actor != userID {
		role, err := h.RoleOf(ctx, actor)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if role != string(idmodels.RoleAdmin) && role != string(idmodels.RoleAuditor) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "cannot read another user's account"))
			return
		}
	}

	user, err := h.users.GetUser(ctx, idmodels.ByID(userID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *UserHandler) actorIsAdmin(ctx context.Context) bool {
	actor := requestcontext.UserID(ctx)
	if actor.IsNil() {
		return false
	}
	role, err := h.RoleOf(ctx, actor)
	return err == nil && role == string(idmodels.RoleAdmin)
}
