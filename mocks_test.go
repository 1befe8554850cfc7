package authclient_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	authclient "github.com/goliatone/go-authclient"
)

// MockGateway implements authclient.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Register(ctx context.Context, req authclient.RegisterRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockGateway) Login(ctx context.Context, req authclient.LoginRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockGateway) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockGateway) Identity(ctx context.Context) *authclient.Identity {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*authclient.Identity)
	}
	return nil
}

func (m *MockGateway) ForgotPassword(ctx context.Context, req authclient.ForgotPasswordRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockGateway) ResetPassword(ctx context.Context, req authclient.ResetPasswordRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// MockNavigator implements authclient.Navigator
type MockNavigator struct {
	mock.Mock
}

func (m *MockNavigator) Navigate(loc authclient.Location) {
	m.Called(loc)
}

// recordingSink collects activity events
type recordingSink struct {
	mu     sync.Mutex
	events []authclient.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event authclient.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []authclient.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []authclient.ActivityEventType{}
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func (s *recordingSink) count(t authclient.ActivityEventType) int {
	n := 0
	for _, et := range s.types() {
		if et == t {
			n++
		}
	}
	return n
}

// quietLogger drops every line
type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}

func testIdentity(id string) *authclient.Identity {
	return &authclient.Identity{ID: authclient.IdentityID(id), Email: "a@b.com", DisplayName: "Ann"}
}
