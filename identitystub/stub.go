package identitystub

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// Logger is the logging contract used by the stub
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type defLogger struct{}

func (defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY-STUB "+newline(format), args...)
}

func (defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY-STUB "+newline(format), args...)
}

func (defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY-STUB "+newline(format), args...)
}

func (defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY-STUB "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// User is a stored account
type User struct {
	ID             uuid.UUID
	Email          string
	DisplayName    string
	Phone          string
	PasswordHash   string
	EmailConfirmed bool
	Roles          []string
	CreatedAt      time.Time
}

type resetCode struct {
	code      string
	expiresAt time.Time
}

// Option customizes the stub
type Option func(*Stub)

// WithLogger overrides the logger
func WithLogger(logger Logger) Option {
	return func(s *Stub) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(s *Stub) {
		if clock != nil {
			s.now = clock
		}
	}
}

// Stub is an in-memory identity service speaking the same HTTP contract as
// the real one: cookie sessions, problem details errors.
type Stub struct {
	cfg      Config
	mu       sync.RWMutex
	users    map[string]*User
	resets   map[string]resetCode
	sessions *sessionStore
	limiter  *loginLimiter
	logger   Logger
	now      func() time.Time
	srv      router.Server[*fiber.App]
	app      *fiber.App
}

// New validates cfg and builds the server
func New(cfg Config, opts ...Option) (*Stub, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid identity stub config")
	}

	s := &Stub{
		cfg:    cfg,
		users:  map[string]*User{},
		resets: map[string]resetCode{},
		logger: defLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.sessions = newSessionStore(s.now)
	s.limiter = newLoginLimiter(cfg.LoginRate, cfg.LoginBurst, s.now)
	s.srv = s.newServer()

	return s, nil
}

// Server exposes the router adapter so callers can mount extra routes
func (s *Stub) Server() router.Server[*fiber.App] {
	return s.srv
}

// App exposes the fiber app, for app.Test in particular
func (s *Stub) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown
func (s *Stub) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Serve serves on an existing listener until Shutdown
func (s *Stub) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown stops the server
func (s *Stub) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// AddUser seeds an account
func (s *Stub) AddUser(email, password, displayName, phone string) (*User, error) {
	email = normalizeEmail(email)

	hash, err := HashPassword(password, s.cfg.HashCost)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Email:          email,
		DisplayName:    displayName,
		Phone:          phone,
		PasswordHash:   hash,
		EmailConfirmed: true,
		Roles:          []string{"member"},
		CreatedAt:      s.now(),
	}

	if id, err := hashid.NewUUID(email); err == nil {
		user.ID = id
	} else {
		user.ID = uuid.New()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[email]; exists {
		return nil, goerrors.New("account already exists", goerrors.CategoryConflict).
			WithCode(goerrors.CodeConflict).
			WithMetadata(map[string]any{"email": email})
	}

	s.users[email] = user
	return user, nil
}

// User returns a copy of the stored account
func (s *Stub) User(email string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[normalizeEmail(email)]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// ResetCode returns the outstanding reset code of email
func (s *Stub) ResetCode(email string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rc, ok := s.resets[normalizeEmail(email)]
	if !ok || s.now().After(rc.expiresAt) {
		return "", false
	}
	return rc.code, true
}

// ExpireSessions invalidates every session, as a server side expiry would
func (s *Stub) ExpireSessions() {
	s.sessions.clear()
}

// Sessions counts live sessions
func (s *Stub) Sessions() int {
	return s.sessions.len()
}

func (s *Stub) issueResetCode(email string) string {
	id := uuid.New()
	code := fmt.Sprintf("%06d", binary.BigEndian.Uint32(id[:4])%1000000)

	s.mu.Lock()
	s.resets[email] = resetCode{code: code, expiresAt: s.now().Add(s.cfg.ResetCodeTTL)}
	s.mu.Unlock()

	return code
}

func (s *Stub) validResetCode(email, code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rc, ok := s.resets[email]
	return ok && !s.now().After(rc.expiresAt) && rc.code == code
}

// consumeResetCode checks and drops the code in one step so it is single use
func (s *Stub) consumeResetCode(email, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc, ok := s.resets[email]
	if !ok || s.now().After(rc.expiresAt) || rc.code != code {
		return false
	}
	delete(s.resets, email)
	return true
}

func (s *Stub) setPassword(email, password string) error {
	hash, err := HashPassword(password, s.cfg.HashCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[email]
	if !ok {
		return goerrors.New("account not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound)
	}
	user.PasswordHash = hash
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
