package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/teemow/graphreports/internal/instrumentation"
	"github.com/teemow/graphreports/internal/reports"
)

// ErrShutdown is returned once the server context has been shut down.
var ErrShutdown = errors.New("server is shutting down")

// SessionFactory creates the reports session used by the tools.
type SessionFactory func(ctx context.Context) (*reports.Session, error)

// ServerContext holds the state shared by MCP tool handlers.
type ServerContext struct {
	ctx        context.Context
	cancel     context.CancelFunc
	newSession SessionFactory
	session    *reports.Session
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	mu         sync.RWMutex
	shutdown   bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithMetrics sets the metrics recorder used by instrumented tools.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(sc *ServerContext) { sc.metrics = metrics }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) { sc.logger = logger }
}

// NewServerContext creates a server context. The session is created by
// newSession on first use, so the server starts even without a token.
func NewServerContext(ctx context.Context, newSession SessionFactory, opts ...Option) (*ServerContext, error) {
	if newSession == nil {
		return nil, errors.New("session factory is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:        shutdownCtx,
		cancel:     cancel,
		newSession: newSession,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Session returns the reports session, creating it on first use. A failed
// attempt is not cached; the next call tries again.
func (sc *ServerContext) Session(ctx context.Context) (*reports.Session, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil, ErrShutdown
	}
	if sc.session != nil {
		return sc.session, nil
	}

	session, err := sc.newSession(ctx)
	if err != nil {
		return nil, err
	}
	sc.session = session
	return session, nil
}

// SetSession replaces the cached session.
func (sc *ServerContext) SetSession(session *reports.Session) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.session = session
}

// Metrics returns the metrics recorder, or nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// Logger returns the logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
