package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	idmodels "quantumtrust/internal/identity/models"
	"quantumtrust/internal/platform/metrics"
	"quantumtrust/internal/platform/middleware"
	"quantumtrust/pkg/platform/httputil"
	adminmw "quantumtrust/pkg/platform/middleware/admin"
	authmw "quantumtrust/pkg/platform/middleware/auth"
	"quantumtrust/pkg/platform/middleware/metadata"
	"quantumtrust/pkg/platform/middleware/requesttime"
)

const healthTimeout = 2 * time.Second

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config collects what the router needs.
type Config struct {
	APIPrefix string
	Users     UserService
	DIDs      DIDService
	Audit     AuditQuerier
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Health    map[string]HealthCheck
}

// NewRouter builds the HTTP surface. Every route under APIPrefix gets request
// time, client metadata and the acting user in its context.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if cfg.Metrics != nil {
		r.Use(middleware.Instrument(cfg.Metrics))
	}
	r.Use(middleware.AccessLog(logger))

	r.Get("/health", healthHandler(cfg.Health))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	users := NewUserHandler(cfg.Users, logger)
	dids := NewDIDHandler(cfg.DIDs, logger)
	audit := NewAuditHandler(cfg.Audit, logger)
	requireActor := authmw.RequireActor(logger)

	r.Route(cfg.APIPrefix, func(api chi.Router) {
		api.Use(authmw.Actor(logger))
		users.Register(api, requireActor)
		dids.Register(api, requireActor)

		api.Group(func(g chi.Router) {
			g.Use(adminmw.RequireRole(users, logger, string(idmodels.RoleAdmin), string(idmodels.RoleAuditor)))
			audit.Register(g)
		})
		api.Route("/admin", func(adm chi.Router) {
			adm.Use(adminmw.RequireRole(users, logger, string(idmodels.RoleAdmin)))
			dids.RegisterAdmin(adm)
		})
	})
	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "up"
		}
		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		httputil.WriteJSON(w, status, map[string]any{"status": state, "checks": results})
	}
}
