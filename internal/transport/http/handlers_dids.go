package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	didmodels "quantumtrust/internal/did/models"
	"quantumtrust/internal/lifecycle"
	id "quantumtrust/pkg/domain"
	dErrors "quantumtrust/pkg/domain-errors"
	"quantumtrust/pkg/platform/httputil"
	"quantumtrust/pkg/requestcontext"
)

// DIDService is the slice of the lifecycle coordinator the DID routes need.
type DIDService interface {
	IssueDID(ctx context.Context, userID id.UserID, publicKey string, expiresAt *time.Time) (*didmodels.Record, error)
	ActivateDID(ctx context.Context, recordID id.DIDRecordID, actor id.UserID) (*didmodels.Record, error)
	RevokeDID(ctx context.Context, recordID id.DIDRecordID, actor id.UserID, reason string) (*didmodels.Record, error)
	ResolveDID(ctx context.Context, did string) (*didmodels.Record, error)
	GetDID(ctx context.Context, recordID id.DIDRecordID) (*didmodels.Record, error)
	ActiveDID(ctx context.Context, userID id.UserID) (*didmodels.Record, error)
	SweepExpired(ctx context.Context, now time.Time) (lifecycle.SweepResult, error)
}

// DIDHandler serves DID issuance, transitions, resolution and sweeps.
type DIDHandler struct {
	dids   DIDService
	logger *slog.Logger
}

func NewDIDHandler(dids DIDService, logger *slog.Logger) *DIDHandler {
	return &DIDHandler{dids: dids, logger: logger}
}

// Register mounts DID routes. Resolution is public.
func (h *DIDHandler) Register(r chi.Router, requireActor func(http.Handler) http.Handler) {
	r.Get("/dids/resolve/{did}", h.handleResolve)
	r.Get("/users/{id}/did", h.handleActiveForUser)
	r.Group(func(r chi.Router) {
		r.Use(requireActor)
		r.Post("/dids", h.handleIssue)
		r.Get("/dids/{id}", h.handleGet)
		r.Post("/dids/{id}/activate", h.handleActivate)
		r.Post("/dids/{id}/revoke", h.handleRevoke)
	})
}

// RegisterAdmin mounts operator routes; the caller supplies the role guard.
func (h *DIDHandler) RegisterAdmin(r chi.Router) {
	r.Post("/dids/sweep", h.handleSweep)
}

func (h *DIDHandler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.UserID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueDIDRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	rec, err := h.dids.IssueDID(ctx, actor, req.PublicKey, req.ExpiresAt)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toDIDResponse(rec))
}

func (h *DIDHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	recordID, err := id.ParseDIDRecordID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.dids.GetDID(r.Context(), recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDIDResponse(rec))
}

func (h *DIDHandler) handleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, err := id.ParseDIDRecordID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.dids.ActivateDID(ctx, recordID, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDIDResponse(rec))
}

func (h *DIDHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID, err := id.ParseDIDRecordID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// The body is optional; an empty one means no reason.
	var req RevokeDIDRequest
	if err := httputil.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.dids.RevokeDID(ctx, recordID, requestcontext.UserID(ctx), req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDIDResponse(rec))
}

func (h *DIDHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	did, err := url.PathUnescape(chi.URLParam(r, "did"))
	if err != nil || did == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid did"))
		return
	}
	rec, err := h.dids.ResolveDID(r.Context(), did)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDIDResponse(rec))
}

func (h *DIDHandler) handleActiveForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.dids.ActiveDID(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDIDResponse(rec))
}

func (h *DIDHandler) handleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := requestcontext.Now(ctx)
	if raw := r.URL.Query().Get("now"); raw != "" {
		at, err := parseTime(raw, "now")
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		now = *at
	}

	result, err := h.dids.SweepExpired(ctx, now)
	if err != nil {
		h.logger.ErrorContext(ctx, "sweep aborted",
			"request_id", requestcontext.RequestID(ctx),
			"expired", result.Expired,
			"skipped", result.Skipped,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
