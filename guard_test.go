package authclient_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-authclient"
)

func TestGuardStateOf(t *testing.T) {
	tests := []struct {
		name  string
		state authclient.SessionState
		want  authclient.GuardState
	}{
		{"loading wins over identity", authclient.SessionState{IsLoading: true, Identity: testIdentity("1")}, authclient.GuardChecking},
		{"loading without identity", authclient.SessionState{IsLoading: true}, authclient.GuardChecking},
		{"identity present", authclient.SessionState{Identity: testIdentity("1")}, authclient.GuardAuthorized},
		{"refreshing keeps identity", authclient.SessionState{Identity: testIdentity("1"), Refreshing: true}, authclient.GuardAuthorized},
		{"no identity", authclient.SessionState{}, authclient.GuardUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, authclient.GuardStateOf(tt.state))
		})
	}
}

func TestEvaluate(t *testing.T) {
	cfg := authclient.NewDefaultConfig()
	checking := authclient.SessionState{IsLoading: true}
	authorized := authclient.SessionState{Identity: testIdentity("1")}
	anonymous := authclient.SessionState{}

	tests := []struct {
		name    string
		state   authclient.SessionState
		path    string
		kind    authclient.DecisionKind
		loc     authclient.Location
		pending string
	}{
		{
			name:  "checking waits on protected path",
			state: checking,
			path:  "/dashboard",
			kind:  authclient.DecisionWait,
		},
		{
			name:  "public path renders while checking",
			state: checking,
			path:  "/login",
			kind:  authclient.DecisionAllow,
			loc:   authclient.Location{Path: "/login"},
		},
		{
			name:  "authorized renders protected path",
			state: authorized,
			path:  "/budget",
			kind:  authclient.DecisionAllow,
			loc:   authclient.Location{Path: "/budget"},
		},
		{
			name:    "anonymous redirects with pending destination",
			state:   anonymous,
			path:    "/budget",
			kind:    authclient.DecisionRedirect,
			loc:     authclient.Location{Path: "/login", Replace: true, From: "/budget"},
			pending: "/budget",
		},
		{
			name:    "query string is kept",
			state:   anonymous,
			path:    "/inventory?category=food",
			kind:    authclient.DecisionRedirect,
			loc:     authclient.Location{Path: "/login", Replace: true, From: "/inventory?category=food"},
			pending: "/inventory?category=food",
		},
		{
			name:  "root redirects without pending destination",
			state: anonymous,
			path:  "/",
			kind:  authclient.DecisionRedirect,
			loc:   authclient.Location{Path: "/login", Replace: true},
		},
		{
			name:  "register stays public when anonymous",
			state: anonymous,
			path:  "/register",
			kind:  authclient.DecisionAllow,
			loc:   authclient.Location{Path: "/register"},
		},
		{
			name:  "forgot password with trailing slash is public",
			state: anonymous,
			path:  "/forgot-password/",
			kind:  authclient.DecisionAllow,
			loc:   authclient.Location{Path: "/forgot-password/"},
		},
		{
			name:  "login renders for authorized users",
			state: authorized,
			path:  "/login",
			kind:  authclient.DecisionAllow,
			loc:   authclient.Location{Path: "/login"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := authclient.Evaluate(tt.state, tt.path, cfg)
			assert.Equal(t, tt.kind, decision.Kind)
			assert.Equal(t, tt.loc, decision.Location)

			pending, ok := decision.PendingDestination()
			assert.Equal(t, tt.pending != "", ok)
			assert.Equal(t, tt.pending, pending)
		})
	}
}

func TestEvaluateNilConfigUsesDefaults(t *testing.T) {
	decision := authclient.Evaluate(authclient.SessionState{}, "/reminders", nil)
	assert.Equal(t, authclient.DecisionRedirect, decision.Kind)
	assert.Equal(t, "/login", decision.Location.Path)
}

func TestEvaluateCustomLoginPath(t *testing.T) {
	cfg := authclient.NewDefaultConfig()
	cfg.LoginPath = "/signin"

	decision := authclient.Evaluate(authclient.SessionState{}, "/signin", cfg)
	assert.Equal(t, authclient.DecisionAllow, decision.Kind)

	decision = authclient.Evaluate(authclient.SessionState{}, "/budget", cfg)
	assert.Equal(t, authclient.Location{Path: "/signin", Replace: true, From: "/budget"}, decision.Location)
}

func TestRouteGuardFollowsStore(t *testing.T) {
	store := authclient.NewSessionStore()
	sink := &recordingSink{}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	guard := authclient.NewRouteGuard(store, nil,
		authclient.WithGuardActivitySink(sink),
		authclient.WithGuardLogger(quietLogger{}),
		authclient.WithGuardClock(func() time.Time { return now }),
	)
	defer guard.Close()

	assert.Equal(t, authclient.GuardChecking, guard.Current())
	assert.Empty(t, guard.Transitions())

	store.SetIdentity(testIdentity("1"))
	assert.Equal(t, authclient.GuardChecking, guard.Current())

	store.SetLoading(false)
	assert.Equal(t, authclient.GuardAuthorized, guard.Current())

	store.SetIdentity(nil)
	assert.Equal(t, authclient.GuardUnauthorized, guard.Current())

	store.SetIdentity(testIdentity("1"))
	assert.Equal(t, authclient.GuardAuthorized, guard.Current())

	transitions := guard.Transitions()
	require.Len(t, transitions, 3)
	assert.Equal(t, authclient.GuardTransition{From: authclient.GuardChecking, To: authclient.GuardAuthorized, Allowed: true, At: now}, transitions[0])
	assert.Equal(t, authclient.GuardTransition{From: authclient.GuardAuthorized, To: authclient.GuardUnauthorized, Allowed: true, At: now}, transitions[1])
	assert.Equal(t, authclient.GuardTransition{From: authclient.GuardUnauthorized, To: authclient.GuardAuthorized, Allowed: true, At: now}, transitions[2])

	assert.Equal(t, 3, sink.count(authclient.ActivityGuardTransition))
}

func TestRouteGuardRecordsUnexpectedTransition(t *testing.T) {
	store := authclient.NewSessionStore()
	store.SetLoading(false)

	guard := authclient.NewRouteGuard(store, nil, authclient.WithGuardLogger(quietLogger{}))
	defer guard.Close()
	require.Equal(t, authclient.GuardUnauthorized, guard.Current())

	store.SetLoading(true)

	assert.Equal(t, authclient.GuardChecking, guard.Current())
	transitions := guard.Transitions()
	require.Len(t, transitions, 1)
	assert.False(t, transitions[0].Allowed)
}

func TestRouteGuardEvaluateCapturesPending(t *testing.T) {
	store := authclient.NewSessionStore()
	pending := &authclient.PendingDestination{}
	guard := authclient.NewRouteGuard(store, nil,
		authclient.WithGuardPendingDestination(pending),
		authclient.WithGuardLogger(quietLogger{}),
	)
	defer guard.Close()

	assert.Same(t, pending, guard.Pending())

	decision := guard.Evaluate("/budget")
	assert.Equal(t, authclient.DecisionWait, decision.Kind)
	_, ok := pending.Peek()
	assert.False(t, ok)

	store.SetLoading(false)

	decision = guard.Evaluate("/budget")
	assert.Equal(t, authclient.DecisionRedirect, decision.Kind)
	got, ok := pending.Peek()
	require.True(t, ok)
	assert.Equal(t, "/budget", got)

	guard.Evaluate("/")
	got, _ = pending.Peek()
	assert.Equal(t, "/budget", got)

	guard.Evaluate("/reminders")
	got, _ = pending.Peek()
	assert.Equal(t, "/reminders", got)
}

func TestRouteGuardClose(t *testing.T) {
	store := authclient.NewSessionStore()
	guard := authclient.NewRouteGuard(store, nil, authclient.WithGuardLogger(quietLogger{}))

	guard.Close()
	guard.Close()

	store.SetLoading(false)
	assert.Equal(t, authclient.GuardChecking, guard.Current())
}
