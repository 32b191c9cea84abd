// Package lifecycle coordinates the identity store, the DID registry and the
// audit ledger. Every mutating operation runs in one transaction: the data
// change and its single audit entry commit together or not at all.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	auditmodels "quantumtrust/internal/audit/models"
	didmodels "quantumtrust/internal/did/models"
	idmodels "quantumtrust/internal/identity/models"
	"quantumtrust/internal/lifecycle/metrics"
	id "quantumtrust/pkg/domain"
	dErrors "quantumtrust/pkg/domain-errors"
	"quantumtrust/pkg/requestcontext"
)

const defaultSweepBatchSize = 100

type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Identity interface {
	CreateUser(ctx context.Context, params idmodels.NewUserParams) (*idmodels.User, error)
	GetUser(ctx context.Context, lookup idmodels.Lookup) (*idmodels.User, error)
	BindDID(ctx context.Context, userID id.UserID, recordID id.DIDRecordID) (*idmodels.User, error)
}

type Registry interface {
	Issue(ctx context.Context, userID id.UserID, publicKey string, expiresAt *time.Time) (*didmodels.Record, error)
	Activate(ctx context.Context, recordID id.DIDRecordID) (*didmodels.Record, error)
	Revoke(ctx context.Context, recordID id.DIDRecordID) (*didmodels.Record, error)
	ExpireIfDue(ctx context.Context, recordID id.DIDRecordID, now time.Time) (*didmodels.Record, bool, error)
	Get(ctx context.Context, recordID id.DIDRecordID) (*didmodels.Record, error)
	GetByDID(ctx context.Context, did string) (*didmodels.Record, error)
	GetActiveForUser(ctx context.Context, userID id.UserID) (*didmodels.Record, error)
	ListDue(ctx context.Context, now time.Time, afterID id.DIDRecordID, limit int) ([]id.DIDRecordID, error)
}

type Ledger interface {
	Append(ctx context.Context, entry auditmodels.Entry) (id.AuditEntryID, error)
}

// PasswordHasher turns a plaintext password into the stored credential.
type PasswordHasher func(plaintext string) (string, error)

type Service struct {
	tx             Transactor
	identity       Identity
	registry       Registry
	ledger         Ledger
	hashPassword   PasswordHasher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	sweepBatchSize int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func WithSweepBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sweepBatchSize = n
		}
	}
}

func WithPasswordHasher(h PasswordHasher) Option {
	return func(s *Service) {
		s.hashPassword = h
	}
}

func New(tx Transactor, identity Identity, registry Registry, ledger Ledger, opts ...Option) *Service {
	s := &Service{
		tx:             tx,
		identity:       identity,
		registry:       registry,
		ledger:         ledger,
		sweepBatchSize: defaultSweepBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("quantumtrust/lifecycle")
	}
	if s.hashPassword == nil {
		s.hashPassword = func(string) (string, error) {
			return "", dErrors.New(dErrors.CodeInternal, "password hashing is not configured")
		}
	}
	return s
}

// start opens a span and returns a func that ends it, recording duration and
// failure metrics for the operation.
func (s *Service) start(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	begin := time.Now()
	ctx, span := s.tracer.Start(ctx, "lifecycle."+operation, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			code := dErrors.CodeOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, string(code))
			if s.metrics != nil {
				s.metrics.IncrementFailure(operation, string(code))
			}
			s.logFailure(ctx, operation, err)
		}
		if s.metrics != nil {
			s.metrics.ObserveOperation(operation, begin)
		}
		span.End()
	}
}

func (s *Service) logFailure(ctx context.Context, operation string, err error) {
	args := []any{"operation", operation, "error", err, "code", dErrors.CodeOf(err)}
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		args = append(args, "request_id", reqID)
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeStoreUnavailable, dErrors.CodeInternal, dErrors.CodeTimeout:
		s.logger.ErrorContext(ctx, "lifecycle operation failed", args...)
	default:
		s.logger.WarnContext(ctx, "lifecycle operation rejected", args...)
	}
}

// knownActor rejects an acting user id that names no account. Audit rows
// reference users, so an unknown actor cannot be recorded.
func (s *Service) knownActor(ctx context.Context, actor id.UserID) error {
	if actor.IsNil() {
		return nil
	}
	_, err := s.identity.GetUser(ctx, idmodels.ByID(actor))
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return dErrors.New(dErrors.CodeUnauthorized, "acting user does not exist")
	}
	return err
}

// committed logs and counts a transition after its transaction commits.
func (s *Service) committed(ctx context.Context, entry auditmodels.Entry, attrs ...any) {
	args := append([]any{
		"event", string(entry.Action),
		"log_type", "audit",
		"resource_type", entry.ResourceType,
		"resource_id", entry.ResourceID,
		"user_id", entry.UserID,
	}, attrs...)
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		args = append(args, "request_id", reqID)
	}
	s.logger.InfoContext(ctx, string(entry.Action), args...)
	if s.metrics != nil {
		s.metrics.IncrementTransition(string(entry.Action))
	}
}

// newEntry builds an audit entry enriched with request metadata from ctx.
func newEntry(ctx context.Context, action auditmodels.Action, actor id.UserID, resourceType, resourceID string, details map[string]string) auditmodels.Entry {
	if details == nil {
		details = make(map[string]string)
	}
	if device := requestcontext.Device(ctx); device != "" {
		details[auditmodels.DetailDevice] = device
	}
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		details[auditmodels.DetailRequestID] = reqID
	}
	return auditmodels.Entry{
		UserID:       actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    requestcontext.ClientIP(ctx),
		CreatedAt:    requestcontext.Now(ctx),
	}
}

func transitionEntry(ctx context.Context, action auditmodels.Action, actor id.UserID, rec *didmodels.Record, from didmodels.Status) auditmodels.Entry {
	return newEntry(ctx, action, actor, auditmodels.ResourceDID, rec.ID.String(), map[string]string{
		auditmodels.DetailDID:        rec.DID,
		auditmodels.DetailFromStatus: string(from),
		auditmodels.DetailToStatus:   string(rec.Status),
	})
}
