package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "quantumtrust/pkg/domain-errors"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusActive, true},
		{StatusPending, StatusRevoked, true},
		{StatusPending, StatusExpired, true},
		{StatusActive, StatusRevoked, true},
		{StatusActive, StatusExpired, true},
		{StatusActive, StatusPending, false},
		{StatusActive, StatusActive, false},
		{StatusExpired, StatusActive, false},
		{StatusExpired, StatusRevoked, false},
		{StatusRevoked, StatusActive, false},
		{StatusRevoked, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
	assert.True(t, StatusExpired.IsTerminal())
	assert.True(t, StatusRevoked.IsTerminal())
	assert.False(t, Status("archived").IsValid())
}

func TestNewRecord(t *testing.T) {
	did := NewDIDString("")
	require.True(t, strings.HasPrefix(did, "did:quantumtrust:"))

	t.Run("starts pending", func(t *testing.T) {
		exp := t0.Add(30 * 24 * time.Hour)
		rec, err := NewRecord(did, 7, " pk_abc ", &exp, t0)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, rec.Status)
		assert.Equal(t, "pk_abc", rec.PublicKey)
		assert.Equal(t, exp, *rec.ExpiresAt)
	})

	t.Run("rejects empty key", func(t *testing.T) {
		_, err := NewRecord(did, 7, "  ", nil, t0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects expiry in the past", func(t *testing.T) {
		exp := t0
		_, err := NewRecord(did, 7, "pk", &exp, t0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects missing user", func(t *testing.T) {
		_, err := NewRecord(did, 0, "pk", nil, t0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestIsDueBoundaryIsInclusive(t *testing.T) {
	exp := t0.Add(time.Hour)
	rec := &Record{Status: StatusActive, ExpiresAt: &exp}

	assert.False(t, rec.IsDue(exp.Add(-time.Nanosecond)))
	assert.True(t, rec.IsDue(exp))
	assert.True(t, rec.IsDue(exp.Add(time.Second)))

	rec.Status = StatusRevoked
	assert.False(t, rec.IsDue(exp.Add(time.Second)), "terminal records are never due")

	noExpiry := &Record{Status: StatusActive}
	assert.False(t, noExpiry.IsDue(t0.Add(100*365*24*time.Hour)))
}

func TestGuards(t *testing.T) {
	exp := t0.Add(time.Hour)

	t.Run("activate only from pending", func(t *testing.T) {
		rec := &Record{Status: StatusPending, ExpiresAt: &exp}
		require.NoError(t, rec.CanActivate(t0))
		rec.ApplyStatus(StatusActive, t0)
		assert.Equal(t, t0, rec.UpdatedAt)
		assert.True(t, dErrors.HasCode(rec.CanActivate(t0), dErrors.CodeInvalidState))
	})

	t.Run("due record cannot be activated or revoked", func(t *testing.T) {
		rec := &Record{Status: StatusPending, ExpiresAt: &exp}
		assert.True(t, dErrors.HasCode(rec.CanActivate(exp), dErrors.CodeInvalidState))
		assert.True(t, dErrors.HasCode(rec.CanRevoke(exp), dErrors.CodeInvalidState))
	})

	t.Run("revoke from terminal fails", func(t *testing.T) {
		for _, st := range []Status{StatusExpired, StatusRevoked} {
			rec := &Record{Status: st}
			assert.True(t, dErrors.HasCode(rec.CanRevoke(t0), dErrors.CodeInvalidState))
		}
	})

	t.Run("IsActiveAt hides due records", func(t *testing.T) {
		rec := &Record{Status: StatusActive, ExpiresAt: &exp}
		assert.True(t, rec.IsActiveAt(t0))
		assert.False(t, rec.IsActiveAt(exp))
	})
}
