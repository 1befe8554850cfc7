package authclient

import (
	"context"
	"sync"
	"sync/atomic"
)

// ProviderOption customizes a SessionProvider
type ProviderOption func(*SessionProvider)

// WithProviderConfig sets the config used for routing decisions
func WithProviderConfig(cfg Config) ProviderOption {
	return func(p *SessionProvider) {
		if cfg != nil {
			p.cfg = cfg
		}
	}
}

// WithProviderLogger overrides the logger
func WithProviderLogger(logger Logger) ProviderOption {
	return func(p *SessionProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithProviderActivitySink sets the ActivitySink used to publish session events.
func WithProviderActivitySink(sink ActivitySink) ProviderOption {
	return func(p *SessionProvider) {
		p.activity = normalizeActivitySink(sink)
	}
}

// WithProviderPendingDestination shares a Pending-Destination holder
func WithProviderPendingDestination(pending *PendingDestination) ProviderOption {
	return func(p *SessionProvider) {
		if pending != nil {
			p.pending = pending
		}
	}
}

// SessionProvider wires the session store to the gateway, the unauthorized
// bus and navigation. It is the only writer of the store.
type SessionProvider struct {
	gateway  Gateway
	store    *SessionStore
	bus      *UnauthorizedBus
	nav      Navigator
	cfg      Config
	guard    *RouteGuard
	pending  *PendingDestination
	logger   Logger
	activity ActivitySink

	initialLoadDone atomic.Bool
	startOnce       sync.Once

	unsubscribe func()
	closeOnce   sync.Once
}

// NewSessionProvider subscribes to bus right away. Signals are ignored until
// Start has finished the initial identity check.
func NewSessionProvider(gateway Gateway, store *SessionStore, bus *UnauthorizedBus, nav Navigator, opts ...ProviderOption) *SessionProvider {
	if store == nil {
		store = NewSessionStore()
	}
	if bus == nil {
		bus = NewUnauthorizedBus()
	}
	if nav == nil {
		nav = NewHistory()
	}

	p := &SessionProvider{
		gateway:  gateway,
		store:    store,
		bus:      bus,
		nav:      nav,
		cfg:      NewDefaultConfig(),
		pending:  &PendingDestination{},
		logger:   defLogger{},
		activity: noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	p.guard = NewRouteGuard(store, p.cfg,
		WithGuardPendingDestination(p.pending),
		WithGuardLogger(p.logger),
		WithGuardActivitySink(p.activity),
	)

	p.unsubscribe = bus.Subscribe(p.handleUnauthorized)

	return p
}

// Start runs the initial identity check. Only the first call does any work;
// later calls return the current identity.
func (p *SessionProvider) Start(ctx context.Context) *Identity {
	p.startOnce.Do(func() {
		identity := p.gateway.Identity(ctx)

		p.store.SetIdentity(identity)
		p.store.SetLoading(false)
		p.initialLoadDone.Store(true)

		p.logger.Debug("initial identity check resolved: %s", identity)

		recordActivity(ctx, p.activity, p.logger, ActivityEvent{
			EventType:  ActivitySessionInitialized,
			IdentityID: identityID(identity),
			Metadata:   map[string]any{"authenticated": identity != nil},
		})
	})

	return p.store.State().Identity
}

// InitialLoadDone reports whether Start has completed
func (p *SessionProvider) InitialLoadDone() bool {
	return p.initialLoadDone.Load()
}

// Login authenticates, resolves the identity and navigates to the
// Pending-Destination, or to the default route when none was captured.
func (p *SessionProvider) Login(ctx context.Context, req LoginRequest) (string, error) {
	if err := p.gateway.Login(ctx, req); err != nil {
		recordActivity(ctx, p.activity, p.logger, ActivityEvent{
			EventType: ActivityLoginFailure,
			Metadata: map[string]any{
				"email": req.Email,
				"error": err.Error(),
			},
		})
		return "", err
	}

	identity := p.gateway.Identity(ctx)
	p.store.SetIdentity(identity)

	if identity == nil {
		err := withDetails(ErrTransport, nil, map[string]any{
			"reason": "identity unavailable after login",
		})
		recordActivity(ctx, p.activity, p.logger, ActivityEvent{
			EventType: ActivityLoginFailure,
			Metadata: map[string]any{
				"email": req.Email,
				"error": err.Error(),
			},
		})
		return "", err
	}

	dest, ok := p.pending.Take()
	if !ok {
		dest = p.cfg.GetDefaultRoute()
	}

	recordActivity(ctx, p.activity, p.logger, ActivityEvent{
		EventType:  ActivityLoginSuccess,
		IdentityID: identityID(identity),
		Metadata:   map[string]any{"destination": dest},
	})

	p.nav.Navigate(Location{Path: dest, Replace: true})

	return dest, nil
}

// Logout clears the local session before calling the service, so the user
// is logged out locally whatever the remote outcome. The remote error, if
// any, is returned after the redirect.
func (p *SessionProvider) Logout(ctx context.Context) error {
	previous := p.store.SetIdentity(nil)
	p.pending.Clear()

	err := p.gateway.Logout(ctx)
	if err != nil {
		p.logger.Warn("remote logout failed, local session cleared: %v", err)
	}

	recordActivity(ctx, p.activity, p.logger, ActivityEvent{
		EventType:  ActivityLogout,
		IdentityID: identityID(previous),
		Metadata:   map[string]any{"remote_ok": err == nil},
	})

	p.nav.Navigate(Location{Path: p.cfg.GetLoginPath(), Replace: true})

	return err
}

// Refresh re-reads the identity. The latest resolved call wins. It never
// redirects on its own.
func (p *SessionProvider) Refresh(ctx context.Context) *Identity {
	p.store.beginRefresh()
	defer p.store.endRefresh()

	identity := p.gateway.Identity(ctx)
	p.store.SetIdentity(identity)

	return identity
}

// Register creates an account without touching the session
func (p *SessionProvider) Register(ctx context.Context, req RegisterRequest) error {
	return p.gateway.Register(ctx, req)
}

// ForgotPassword requests a reset code without touching the session
func (p *SessionProvider) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	return p.gateway.ForgotPassword(ctx, req)
}

// ResetPassword completes a reset without touching the session
func (p *SessionProvider) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	return p.gateway.ResetPassword(ctx, req)
}

// Navigate evaluates the guard for path and issues the resulting
// navigation. Nothing is issued while the initial check is running.
func (p *SessionProvider) Navigate(path string) Decision {
	decision := p.guard.Evaluate(path)

	switch decision.Kind {
	case DecisionAllow:
		p.nav.Navigate(Location{Path: path})
	case DecisionRedirect:
		p.nav.Navigate(decision.Location)
	}

	return decision
}

// State returns the current session snapshot
func (p *SessionProvider) State() SessionState {
	return p.store.State()
}

// Store returns the session store
func (p *SessionProvider) Store() *SessionStore {
	return p.store
}

// Guard returns the route guard
func (p *SessionProvider) Guard() *RouteGuard {
	return p.guard
}

// Pending returns the Pending-Destination holder
func (p *SessionProvider) Pending() *PendingDestination {
	return p.pending
}

// Bus returns the unauthorized bus
func (p *SessionProvider) Bus() *UnauthorizedBus {
	return p.bus
}

// Close stops listening for unauthorized signals
func (p *SessionProvider) Close() {
	p.closeOnce.Do(func() {
		if p.unsubscribe != nil {
			p.unsubscribe()
		}
		p.guard.Close()
	})
}

// handleUnauthorized treats a signal as "the session just expired". Signals
// that arrive before the initial check finished are ignored, and only the
// call that actually removes an identity redirects.
func (p *SessionProvider) handleUnauthorized() {
	ctx := context.Background()

	if !p.initialLoadDone.Load() {
		p.logger.Debug("unauthorized signal ignored during initial load")
		recordActivity(ctx, p.activity, p.logger, ActivityEvent{
			EventType: ActivitySignalSuppressed,
		})
		return
	}

	previous := p.store.SetIdentity(nil)
	if previous == nil {
		p.logger.Debug("unauthorized signal with no active session")
		return
	}

	p.logger.Info("session expired for %s, redirecting to %s", identityID(previous), p.cfg.GetLoginPath())

	recordActivity(ctx, p.activity, p.logger, ActivityEvent{
		EventType:  ActivitySessionExpired,
		IdentityID: identityID(previous),
	})

	p.nav.Navigate(Location{Path: p.cfg.GetLoginPath(), Replace: true})
}
