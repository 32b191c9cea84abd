package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"quantumtrust/internal/audit/ledger"
	auditstore "quantumtrust/internal/audit/store"
	"quantumtrust/internal/did/registry"
	didstore "quantumtrust/internal/did/store"
	idservice "quantumtrust/internal/identity/service"
	idstore "quantumtrust/internal/identity/store"
	"quantumtrust/internal/storage"
	"quantumtrust/pkg/requestcontext"
)

func TestOperationsAreTraced(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	users := idstore.NewInMemory()
	dids := didstore.NewInMemory()
	audit := auditstore.NewInMemory()
	tx := storage.NewTransactor(users, dids, audit)
	reg := registry.New(dids, users)
	svc := New(tx, idservice.New(users, reg), reg, ledger.New(audit, ledger.WithTransactor(tx)),
		WithTracer(provider.Tracer("test")),
		WithPasswordHasher(fakeHash),
	)

	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC))
	user, err := svc.RegisterUser(ctx, RegisterUserRequest{Username: "alice", Email: "alice@example.com", Password: "password-a"})
	require.NoError(t, err)
	rec, err := svc.IssueDID(ctx, user.ID, "pk_abc", nil)
	require.NoError(t, err)
	_, err = svc.ActivateDID(ctx, rec.ID, user.ID+1)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "lifecycle.register_user", spans[0].Name())
	assert.Equal(t, "lifecycle.issue_did", spans[1].Name())
	assert.Equal(t, codes.Unset, spans[1].Status().Code)

	failed := spans[2]
	assert.Equal(t, "lifecycle.activate_did", failed.Name())
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, "forbidden", failed.Status().Description)
	require.NotEmpty(t, failed.Events(), "error is recorded on the span")
}
