package authclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	authclient "github.com/goliatone/go-authclient"
	"github.com/goliatone/go-authclient/transport"
)

type gatewayFixture struct {
	server  *httptest.Server
	gateway *authclient.HTTPGateway
	client  *transport.Client
	bus     *authclient.UnauthorizedBus
	signals *atomic.Int32
}

func newGatewayFixture(t *testing.T, handler http.Handler, opts ...authclient.GatewayOption) *gatewayFixture {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := authclient.NewDefaultConfig()
	cfg.BaseURL = server.URL

	bus := authclient.NewUnauthorizedBus()
	signals := &atomic.Int32{}
	bus.Subscribe(func() { signals.Add(1) })

	client, err := authclient.NewTransport(cfg, bus)
	require.NoError(t, err)

	opts = append([]authclient.GatewayOption{authclient.WithGatewayLogger(quietLogger{})}, opts...)

	return &gatewayFixture{
		server:  server,
		gateway: authclient.NewHTTPGateway(client, cfg, opts...),
		client:  client,
		bus:     bus,
		signals: signals,
	}
}

func writeProblem(w http.ResponseWriter, status int, errs map[string][]string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(transport.Problem{
		Title:  http.StatusText(status),
		Status: status,
		Errors: errs,
	})
}

func statusHandler(status int, errs map[string][]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, status, errs)
	}
}

func TestGatewayLoginThenIdentity(t *testing.T) {
	var loginBody map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("useCookies"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get(transport.HeaderRequestID))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&loginBody))

		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/", HttpOnly: true})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /manage/info", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err != nil || c.Value != "abc" {
			writeProblem(w, http.StatusUnauthorized, nil)
			return
		}
		_, _ = w.Write([]byte(`{"id":7,"email":"ann@example.com","displayName":"Ann","plan":"family"}`))
	})

	f := newGatewayFixture(t, mux)
	ctx := context.Background()

	assert.Nil(t, f.gateway.Identity(ctx))
	assert.Equal(t, int32(1), f.signals.Load())

	err := f.gateway.Login(ctx, authclient.LoginRequest{Email: "ann@example.com", Password: "Passw0rd!", RememberMe: true})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", loginBody["email"])
	assert.Equal(t, true, loginBody["rememberMe"])
	assert.Len(t, f.client.Cookies(), 1)

	first := f.gateway.Identity(ctx)
	second := f.gateway.Identity(ctx)
	require.NotNil(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, authclient.IdentityID("7"), first.ID)
	assert.Equal(t, "family", first.Extra["plan"])
	assert.Equal(t, int32(1), f.signals.Load())
}

func TestGatewayLoginErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		errs    map[string][]string
		check   func(error) bool
		signals int32
	}{
		{"rejected credentials", http.StatusUnauthorized, nil, authclient.IsInvalidCredentials, 1},
		{"remote validation", http.StatusBadRequest, map[string][]string{"Email": {"required"}}, authclient.IsValidationError, 0},
		{"server failure", http.StatusInternalServerError, nil, authclient.IsTransportError, 0},
		{"locked out", http.StatusTooManyRequests, nil, authclient.IsTransportError, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGatewayFixture(t, statusHandler(tt.status, tt.errs))

			err := f.gateway.Login(context.Background(), authclient.LoginRequest{Email: "ann@example.com", Password: "wrong"})
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
			assert.Equal(t, tt.status, transport.StatusOf(err))
			assert.Equal(t, tt.signals, f.signals.Load())
		})
	}
}

func TestGatewayLoginValidatesLocally(t *testing.T) {
	calls := atomic.Int32{}
	f := newGatewayFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	err := f.gateway.Login(context.Background(), authclient.LoginRequest{Email: "nope"})
	require.Error(t, err)
	assert.True(t, authclient.IsValidationError(err))
	assert.Zero(t, calls.Load())
}

func TestGatewayRegister(t *testing.T) {
	var body map[string]any
	f := newGatewayFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/register", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	}))

	err := f.gateway.Register(context.Background(), validRegister())
	require.NoError(t, err)

	assert.Equal(t, "+886912345678", body["phone"])
	assert.Equal(t, "Ann", body["displayName"])
	assert.NotContains(t, body, "confirmPassword")
}

func TestGatewayRegisterErrors(t *testing.T) {
	tests := []struct {
		name  string
		h     http.HandlerFunc
		check func(error) bool
	}{
		{"conflict status", statusHandler(http.StatusConflict, nil), authclient.IsConflictError},
		{"duplicate email", statusHandler(http.StatusBadRequest, map[string][]string{"DuplicateEmail": {"taken"}}), authclient.IsConflictError},
		{"duplicate user name", statusHandler(http.StatusBadRequest, map[string][]string{"DuplicateUserName": {"taken"}}), authclient.IsConflictError},
		{"field errors", statusHandler(http.StatusBadRequest, map[string][]string{"Phone": {"invalid"}}), authclient.IsValidationError},
		{"server failure", statusHandler(http.StatusInternalServerError, nil), authclient.IsTransportError},
		{"not found", statusHandler(http.StatusNotFound, nil), authclient.IsTransportError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGatewayFixture(t, tt.h)

			err := f.gateway.Register(context.Background(), validRegister())
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestGatewayRegisterRemoteFieldErrors(t *testing.T) {
	f := newGatewayFixture(t, statusHandler(http.StatusBadRequest, map[string][]string{"Phone": {"invalid", "format"}}))

	err := f.gateway.Register(context.Background(), validRegister())
	require.Error(t, err)
	assert.Equal(t, map[string]string{"Phone": "invalid format"}, authclient.FieldErrors(err))
}

func TestGatewayIdentityFailuresYieldNil(t *testing.T) {
	tests := []struct {
		name    string
		h       http.HandlerFunc
		signals int32
	}{
		{"unauthorized", statusHandler(http.StatusUnauthorized, nil), 1},
		{"server failure", statusHandler(http.StatusInternalServerError, nil), 0},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"id":`)) }, 0},
		{"empty body", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }, 0},
		{"anonymous record", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{}`)) }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGatewayFixture(t, tt.h)

			assert.Nil(t, f.gateway.Identity(context.Background()))
			assert.Equal(t, tt.signals, f.signals.Load())
		})
	}
}

func TestGatewayNetworkFailure(t *testing.T) {
	f := newGatewayFixture(t, statusHandler(http.StatusOK, nil))
	f.server.Close()

	ctx := context.Background()
	assert.Nil(t, f.gateway.Identity(ctx))

	err := f.gateway.Logout(ctx)
	require.Error(t, err)
	assert.True(t, authclient.IsTransportError(err))
	assert.Zero(t, transport.StatusOf(err))

	err = f.gateway.ForgotPassword(ctx, authclient.ForgotPasswordRequest{Email: "ann@example.com"})
	assert.True(t, authclient.IsTransportError(err))
	assert.Zero(t, f.signals.Load())
}

func TestGatewayResetPasswordErrors(t *testing.T) {
	tests := []struct {
		name  string
		h     http.HandlerFunc
		check func(error) bool
	}{
		{"invalid code", statusHandler(http.StatusBadRequest, map[string][]string{"InvalidToken": {"bad code"}}), authclient.IsInvalidCode},
		{"weak password", statusHandler(http.StatusBadRequest, map[string][]string{"PasswordRequiresDigit": {"digit"}}), authclient.IsWeakPassword},
		{"other field", statusHandler(http.StatusBadRequest, map[string][]string{"Email": {"bad"}}), authclient.IsValidationError},
		{"server failure", statusHandler(http.StatusBadGateway, nil), authclient.IsTransportError},
	}

	req := authclient.ResetPasswordRequest{Email: "ann@example.com", ResetCode: "123456", NewPassword: "weak"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGatewayFixture(t, tt.h)

			err := f.gateway.ResetPassword(context.Background(), req)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestGatewayWeakPasswordCarriesFields(t *testing.T) {
	f := newGatewayFixture(t, statusHandler(http.StatusBadRequest, map[string][]string{
		"PasswordTooShort": {"at least 8"},
	}))

	err := f.gateway.ResetPassword(context.Background(), authclient.ResetPasswordRequest{
		Email: "ann@example.com", ResetCode: "123456", NewPassword: "x",
	})
	require.Error(t, err)
	assert.Equal(t, map[string]string{"PasswordTooShort": "at least 8"}, authclient.FieldErrors(err))
}

func TestGatewaySuccessfulCallsWithoutBody(t *testing.T) {
	var paths []string
	f := newGatewayFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	ctx := context.Background()

	require.NoError(t, f.gateway.Logout(ctx))
	require.NoError(t, f.gateway.ForgotPassword(ctx, authclient.ForgotPasswordRequest{Email: "ann@example.com"}))
	require.NoError(t, f.gateway.ResetPassword(ctx, authclient.ResetPasswordRequest{
		Email: "ann@example.com", ResetCode: "123456", NewPassword: "Passw0rd!",
	}))

	assert.Equal(t, []string{"/api/auth/logout", "/forgotPassword", "/resetPassword"}, paths)
}

func TestGatewayRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	f := newGatewayFixture(t, statusHandler(http.StatusUnauthorized, nil),
		authclient.WithGatewayTracer(provider.Tracer("test")),
	)

	err := f.gateway.Login(context.Background(), authclient.LoginRequest{Email: "ann@example.com", Password: "x"})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "authclient.login", spans[0].Name())
	assert.NotEmpty(t, spans[0].Events())
}
