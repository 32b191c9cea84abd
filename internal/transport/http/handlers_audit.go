package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	auditmodels "quantumtrust/internal/audit/models"
	"quantumtrust/pkg/platform/httputil"
)

// AuditQuerier reads the audit ledger.
type AuditQuerier interface {
	Collect(ctx context.Context, filter auditmodels.Filter) ([]auditmodels.Entry, error)
}

// AuditHandler serves paged ledger queries.
type AuditHandler struct {
	ledger AuditQuerier
	logger *slog.Logger
}

func NewAuditHandler(ledger AuditQuerier, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{ledger: ledger, logger: logger}
}

// Register mounts GET /audit. The caller supplies the role guard.
func (h *AuditHandler) Register(r chi.Router) {
	r.Get("/audit", h.handleQuery)
}

func (h *AuditHandler) handleQuery(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAuditFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.ledger.Collect(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditPage(entries, filter.Limit))
}
