package authclient

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"
)

// GuardState is the route guard state
type GuardState string

const (
	GuardChecking     GuardState = "checking"
	GuardAuthorized   GuardState = "authorized"
	GuardUnauthorized GuardState = "unauthorized"
)

// GuardStateOf derives the guard state from a session snapshot
func GuardStateOf(state SessionState) GuardState {
	if state.IsLoading {
		return GuardChecking
	}
	if state.Identity != nil {
		return GuardAuthorized
	}
	return GuardUnauthorized
}

// DecisionKind is the outcome of a guard evaluation
type DecisionKind string

const (
	// DecisionWait renders a neutral loading affordance, nothing else.
	DecisionWait     DecisionKind = "wait"
	DecisionAllow    DecisionKind = "allow"
	DecisionRedirect DecisionKind = "redirect"
)

// Decision tells the caller what to render for a requested path
type Decision struct {
	Kind     DecisionKind
	Location Location
}

// PendingDestination returns the path to resume after login, if any
func (d Decision) PendingDestination() (string, bool) {
	if d.Kind != DecisionRedirect || d.Location.From == "" {
		return "", false
	}
	return d.Location.From, true
}

// Evaluate decides whether requestedPath may render for the given state.
// Public paths always render. Protected paths wait while checking, render
// when authorized, and redirect to the login entry point otherwise.
func Evaluate(state SessionState, requestedPath string, cfg Config) Decision {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}

	if cfg.IsPublicPath(requestedPath) {
		return Decision{Kind: DecisionAllow, Location: Location{Path: requestedPath}}
	}

	switch GuardStateOf(state) {
	case GuardChecking:
		return Decision{Kind: DecisionWait}
	case GuardAuthorized:
		return Decision{Kind: DecisionAllow, Location: Location{Path: requestedPath}}
	}

	return Decision{
		Kind: DecisionRedirect,
		Location: Location{
			Path:    cfg.GetLoginPath(),
			Replace: true,
			From:    pendingDestinationFor(requestedPath, cfg),
		},
	}
}

// pendingDestinationFor keeps path and query of a specific protected page.
// The root and the login entry point are never captured.
func pendingDestinationFor(requestedPath string, cfg Config) string {
	p := cleanPath(requestedPath)
	if p == "" || p == "/" || p == cleanPath(cfg.GetLoginPath()) {
		return ""
	}

	u, err := url.Parse(strings.TrimSpace(requestedPath))
	if err != nil || u.RawQuery == "" {
		return p
	}
	return p + "?" + u.RawQuery
}

// GuardTransition records a guard state change
type GuardTransition struct {
	From    GuardState
	To      GuardState
	Allowed bool
	At      time.Time
}

// GuardOption customizes route guard construction.
type GuardOption func(*RouteGuard)

// WithGuardPendingDestination shares the holder the guard captures into.
func WithGuardPendingDestination(p *PendingDestination) GuardOption {
	return func(g *RouteGuard) {
		if p != nil {
			g.pending = p
		}
	}
}

// WithGuardActivitySink sets the ActivitySink used to publish transitions.
func WithGuardActivitySink(sink ActivitySink) GuardOption {
	return func(g *RouteGuard) {
		g.activity = normalizeActivitySink(sink)
	}
}

// WithGuardLogger overrides the logger.
func WithGuardLogger(logger Logger) GuardOption {
	return func(g *RouteGuard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGuardClock injects a custom clock (useful for tests).
func WithGuardClock(clock func() time.Time) GuardOption {
	return func(g *RouteGuard) {
		if clock != nil {
			g.now = clock
		}
	}
}

// RouteGuard follows the session store and exposes the checking,
// authorized and unauthorized state machine. It runs for the lifetime of
// the application and has no terminal state.
type RouteGuard struct {
	mu          sync.Mutex
	store       *SessionStore
	cfg         Config
	current     GuardState
	transitions map[GuardState]map[GuardState]struct{}
	history     []GuardTransition
	pending     *PendingDestination
	activity    ActivitySink
	logger      Logger
	now         func() time.Time
	unsubscribe func()
}

// NewRouteGuard subscribes to store and tracks its state from now on.
func NewRouteGuard(store *SessionStore, cfg Config, opts ...GuardOption) *RouteGuard {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}

	g := &RouteGuard{
		store: store,
		cfg:   cfg,
		transitions: map[GuardState]map[GuardState]struct{}{
			GuardChecking: {
				GuardAuthorized:   {},
				GuardUnauthorized: {},
			},
			GuardAuthorized: {
				GuardUnauthorized: {},
			},
			GuardUnauthorized: {
				GuardAuthorized: {},
			},
		},
		pending:  &PendingDestination{},
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	g.unsubscribe = store.Subscribe(g.observe)

	return g
}

// Current returns the current guard state
func (g *RouteGuard) Current() GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Transitions returns every state change observed so far
func (g *RouteGuard) Transitions() []GuardTransition {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]GuardTransition, len(g.history))
	copy(out, g.history)
	return out
}

// Pending returns the holder redirects capture into
func (g *RouteGuard) Pending() *PendingDestination {
	return g.pending
}

// Evaluate runs Evaluate against the latest state and captures the
// Pending-Destination of a redirect.
func (g *RouteGuard) Evaluate(requestedPath string) Decision {
	decision := Evaluate(g.store.State(), requestedPath, g.cfg)
	if dest, ok := decision.PendingDestination(); ok {
		g.pending.Capture(dest)
		g.logger.Debug("guard redirect to %s, pending destination %s", decision.Location.Path, dest)
	}
	return decision
}

// Close stops following the store
func (g *RouteGuard) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
}

func (g *RouteGuard) canTransition(from, to GuardState) bool {
	targets, ok := g.transitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// observe keeps the guard aligned with the store. The store is the source of
// truth, so transitions outside the table are applied and logged.
func (g *RouteGuard) observe(state SessionState) {
	next := GuardStateOf(state)

	g.mu.Lock()
	from := g.current
	if from == "" {
		g.current = next
		g.mu.Unlock()
		return
	}
	if from == next {
		g.mu.Unlock()
		return
	}

	allowed := g.canTransition(from, next)
	g.current = next
	g.history = append(g.history, GuardTransition{
		From:    from,
		To:      next,
		Allowed: allowed,
		At:      g.now(),
	})
	g.mu.Unlock()

	if !allowed {
		g.logger.Warn("unexpected guard transition %s -> %s", from, next)
	}

	recordActivity(context.Background(), g.activity, g.logger, ActivityEvent{
		EventType:  ActivityGuardTransition,
		IdentityID: identityID(state.Identity),
		From:       from,
		To:         next,
		OccurredAt: g.now(),
	})
}
