package authclient

import (
	"net/url"
	"strings"
	"time"
)

// Config holds client options
type Config interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetUseCookies() bool
	GetRoutes() GatewayRoutes
	GetLoginPath() string
	GetDefaultRoute() string
	IsPublicPath(path string) bool
	GetPhoneRegion() string
	GetMinPasswordLength() int
}

// GatewayRoutes are the remote identity service endpoints
type GatewayRoutes struct {
	Register       string
	Login          string
	Logout         string
	Identity       string
	ForgotPassword string
	ResetPassword  string
}

// DefaultConfig is the stock Config implementation
type DefaultConfig struct {
	BaseURL           string
	RequestTimeout    time.Duration
	UseCookies        bool
	Routes            GatewayRoutes
	LoginPath         string
	DefaultRoute      string
	PublicPaths       []string
	PhoneRegion       string
	MinPasswordLength int
}

// NewDefaultConfig returns a config pointing at a local identity service
func NewDefaultConfig() *DefaultConfig {
	return &DefaultConfig{
		BaseURL:        "http://localhost:5224",
		RequestTimeout: 15 * time.Second,
		UseCookies:     true,
		Routes: GatewayRoutes{
			Register:       "/api/auth/register",
			Login:          "/api/auth/login",
			Logout:         "/api/auth/logout",
			Identity:       "/manage/info",
			ForgotPassword: "/forgotPassword",
			ResetPassword:  "/resetPassword",
		},
		LoginPath:    "/login",
		DefaultRoute: "/dashboard",
		PublicPaths: []string{
			"/login",
			"/register",
			"/forgot-password",
		},
		PhoneRegion:       "TW",
		MinPasswordLength: 8,
	}
}

func (c DefaultConfig) GetBaseURL() string {
	return c.BaseURL
}

func (c DefaultConfig) GetRequestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return 15 * time.Second
	}
	return c.RequestTimeout
}

func (c DefaultConfig) GetUseCookies() bool {
	return c.UseCookies
}

func (c DefaultConfig) GetRoutes() GatewayRoutes {
	return c.Routes
}

func (c DefaultConfig) GetLoginPath() string {
	if c.LoginPath == "" {
		return "/login"
	}
	return c.LoginPath
}

func (c DefaultConfig) GetDefaultRoute() string {
	if c.DefaultRoute == "" {
		return "/"
	}
	return c.DefaultRoute
}

// IsPublicPath reports whether path renders without a session. The login
// entry point is always public.
func (c DefaultConfig) IsPublicPath(path string) bool {
	p := cleanPath(path)
	if p == cleanPath(c.GetLoginPath()) {
		return true
	}
	for _, public := range c.PublicPaths {
		if p == cleanPath(public) {
			return true
		}
	}
	return false
}

func (c DefaultConfig) GetPhoneRegion() string {
	if c.PhoneRegion == "" {
		return "TW"
	}
	return c.PhoneRegion
}

func (c DefaultConfig) GetMinPasswordLength() int {
	if c.MinPasswordLength <= 0 {
		return 8
	}
	return c.MinPasswordLength
}

// cleanPath drops query and fragment and trailing slashes
func cleanPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if u, err := url.Parse(raw); err == nil {
		raw = u.Path
	}

	if len(raw) > 1 {
		raw = strings.TrimRight(raw, "/")
	}

	if raw == "" {
		return "/"
	}

	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}

	return raw
}
