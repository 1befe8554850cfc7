package authclient

import (
	"context"
	"fmt"
)

// Logger is the logging contract used across the package
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Gateway is the only component allowed to talk to the remote identity
// service. Each call issues exactly one request and never retries.
type Gateway interface {
	Register(ctx context.Context, req RegisterRequest) error
	Login(ctx context.Context, req LoginRequest) error
	Logout(ctx context.Context) error
	// Identity resolves the current identity. Any failure is reported as nil.
	Identity(ctx context.Context) *Identity
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

// Navigator issues navigation instructions to whatever renders pages
type Navigator interface {
	Navigate(loc Location)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(loc Location)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(loc Location) {
	if f != nil {
		f(loc)
	}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHCLIENT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
