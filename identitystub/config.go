package identitystub

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// Routes are the endpoints the stub serves
type Routes struct {
	Register       string
	Login          string
	Logout         string
	Identity       string
	ForgotPassword string
	ResetPassword  string
}

// Config configures the stub
type Config struct {
	Routes      Routes
	CookieName  string
	SessionTTL  time.Duration
	RememberTTL time.Duration
	// ResetCodeTTL bounds how long a reset code stays usable
	ResetCodeTTL time.Duration
	LoginRate    rate.Limit
	LoginBurst   int
	HashCost     int
	PhoneRegion  string
	MinPassword  int
}

// DefaultConfig matches the client defaults
func DefaultConfig() Config {
	return Config{
		Routes: Routes{
			Register:       "/api/auth/register",
			Login:          "/api/auth/login",
			Logout:         "/api/auth/logout",
			Identity:       "/manage/info",
			ForgotPassword: "/forgotPassword",
			ResetPassword:  "/resetPassword",
		},
		CookieName:   ".AspNetCore.Identity.Application",
		SessionTTL:   30 * time.Minute,
		RememberTTL:  14 * 24 * time.Hour,
		ResetCodeTTL: 15 * time.Minute,
		LoginRate:    rate.Limit(5),
		LoginBurst:   10,
		HashCost:     bcrypt.DefaultCost,
		PhoneRegion:  "TW",
		MinPassword:  8,
	}
}

// Validate will run validation rules
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Routes, validation.By(validateRoutes)),
		validation.Field(&c.CookieName, validation.Required),
		validation.Field(&c.SessionTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.RememberTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.ResetCodeTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.LoginRate, validation.Required),
		validation.Field(&c.LoginBurst, validation.Required, validation.Min(1)),
		validation.Field(&c.HashCost, validation.Min(bcrypt.MinCost), validation.Max(bcrypt.MaxCost)),
		validation.Field(&c.PhoneRegion, validation.Required, validation.Length(2, 2)),
		validation.Field(&c.MinPassword, validation.Required, validation.Min(1)),
	)
}

func validateRoutes(value any) error {
	r, _ := value.(Routes)
	return validation.ValidateStruct(&r,
		validation.Field(&r.Register, validation.Required),
		validation.Field(&r.Login, validation.Required),
		validation.Field(&r.Logout, validation.Required),
		validation.Field(&r.Identity, validation.Required),
		validation.Field(&r.ForgotPassword, validation.Required),
		validation.Field(&r.ResetPassword, validation.Required),
	)
}
