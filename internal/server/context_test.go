package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/graphreports/internal/config"
	"github.com/teemow/graphreports/internal/mail"
	"github.com/teemow/graphreports/internal/reports"
)

type stubAccount struct{}

func (stubAccount) IsAuthenticated(context.Context) bool { return true }

func (stubAccount) Authenticate(context.Context, []string) (bool, error) { return true, nil }

func (stubAccount) Mailbox(string) mail.Mailbox { return nil }

func newTestSession(t *testing.T) *reports.Session {
	t.Helper()
	cfg := config.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		ProgramEmail: "program@example.org",
	}
	s, err := reports.Init(context.Background(), cfg, "", reports.WithAccount(stubAccount{}))
	require.NoError(t, err)
	return s
}

func TestNewServerContext_RequiresFactory(t *testing.T) {
	sc, err := NewServerContext(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, sc)
}

func TestServerContext_SessionIsCreatedOnce(t *testing.T) {
	session := newTestSession(t)
	calls := 0

	sc, err := NewServerContext(context.Background(), func(context.Context) (*reports.Session, error) {
		calls++
		return session, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)

	for range 3 {
		got, err := sc.Session(context.Background())
		require.NoError(t, err)
		assert.Same(t, session, got)
	}
	assert.Equal(t, 1, calls)
}

func TestServerContext_SessionFailureIsNotCached(t *testing.T) {
	session := newTestSession(t)
	authErr := &reports.AuthenticationError{Message: "could not authenticate with MS Graph API"}
	calls := 0

	sc, err := NewServerContext(context.Background(), func(context.Context) (*reports.Session, error) {
		calls++
		if calls == 1 {
			return nil, authErr
		}
		return session, nil
	})
	require.NoError(t, err)

	_, err = sc.Session(context.Background())
	var target *reports.AuthenticationError
	assert.ErrorAs(t, err, &target)

	got, err := sc.Session(context.Background())
	require.NoError(t, err)
	assert.Same(t, session, got)
	assert.Equal(t, 2, calls)
}

func TestServerContext_SetSession(t *testing.T) {
	session := newTestSession(t)

	sc, err := NewServerContext(context.Background(), func(context.Context) (*reports.Session, error) {
		return nil, errors.New("factory should not be called")
	})
	require.NoError(t, err)

	sc.SetSession(session)
	got, err := sc.Session(context.Background())
	require.NoError(t, err)
	assert.Same(t, session, got)
}

func TestServerContext_Shutdown(t *testing.T) {
	sc, err := NewServerContext(context.Background(), func(context.Context) (*reports.Session, error) {
		return newTestSession(t), nil
	})
	require.NoError(t, err)

	assert.False(t, sc.IsShutdown())
	assert.NotNil(t, sc.Logger())
	assert.Nil(t, sc.Metrics())

	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.ErrorIs(t, sc.Context().Err(), context.Canceled)

	_, err = sc.Session(context.Background())
	assert.ErrorIs(t, err, ErrShutdown)

	// A second shutdown is a no-op.
	assert.NoError(t, sc.Shutdown())
}
