package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-authclient/identitystub"
)

// config is read from IDENTITY_STUB_* environment variables
type config struct {
	Addr         string
	SessionTTL   time.Duration
	CookieName   string
	LoginRate    float64
	LoginBurst   int
	SeedEmail    string
	SeedPassword string
}

func loadConfig() (*config, error) {
	defaults := identitystub.DefaultConfig()

	cfg := &config{
		Addr:         getEnv("IDENTITY_STUB_ADDR", ":5224"),
		SessionTTL:   defaults.SessionTTL,
		CookieName:   getEnv("IDENTITY_STUB_COOKIE_NAME", defaults.CookieName),
		LoginRate:    float64(defaults.LoginRate),
		LoginBurst:   defaults.LoginBurst,
		SeedEmail:    getEnv("IDENTITY_STUB_SEED_EMAIL", ""),
		SeedPassword: getEnv("IDENTITY_STUB_SEED_PASSWORD", ""),
	}

	if v := os.Getenv("IDENTITY_STUB_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid IDENTITY_STUB_SESSION_TTL format: %w", err)
		}
		cfg.SessionTTL = d
	}

	if v := os.Getenv("IDENTITY_STUB_LOGIN_RATE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid IDENTITY_STUB_LOGIN_RATE: %w", err)
		}
		cfg.LoginRate = r
	}

	if v := os.Getenv("IDENTITY_STUB_LOGIN_BURST"); v != "" {
		b, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid IDENTITY_STUB_LOGIN_BURST: %w", err)
		}
		cfg.LoginBurst = b
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate will run validation rules
func (c config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.SessionTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.CookieName, validation.Required),
		validation.Field(&c.LoginRate, validation.Required, validation.Min(0.0)),
		validation.Field(&c.LoginBurst, validation.Required, validation.Min(1)),
		validation.Field(&c.SeedEmail, is.Email),
		validation.Field(&c.SeedPassword, validation.By(requiredWith(c.SeedEmail))),
	)
}

// requiredWith makes a value mandatory once other is set
func requiredWith(other string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if other != "" && s == "" {
			return errors.New("cannot be blank")
		}
		return nil
	}
}

func (c config) stubConfig() identitystub.Config {
	cfg := identitystub.DefaultConfig()
	cfg.SessionTTL = c.SessionTTL
	cfg.CookieName = c.CookieName
	cfg.LoginRate = rate.Limit(c.LoginRate)
	cfg.LoginBurst = c.LoginBurst
	return cfg
}

func getEnv(key, fallback string) string {
	if fileValue := os.Getenv(key + "_FILE"); fileValue != "" {
		content, err := os.ReadFile(fileValue)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	stub, err := identitystub.New(cfg.stubConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create identity stub: %v\n", err)
		os.Exit(1)
	}

	if cfg.SeedEmail != "" {
		if _, err := stub.AddUser(cfg.SeedEmail, cfg.SeedPassword, "", ""); err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed %s: %v\n", cfg.SeedEmail, err)
			os.Exit(1)
		}
		fmt.Printf("[INF] IDENTITY-STUB seeded %s\n", cfg.SeedEmail)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := stub.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		}
	}()

	fmt.Printf("[INF] IDENTITY-STUB listening on %s\n", cfg.Addr)
	if err := stub.Listen(cfg.Addr); err != nil {
		fmt.Fprintf(os.Stderr, "listen: %v\n", err)
		os.Exit(1)
	}
}
