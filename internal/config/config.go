// Package config loads the per-service configuration once at startup.
// Every component receives the resulting struct by injection; nothing
// reads the environment after Load returns.
package config

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"
)

// Refresh token designs. Stateful is canonical: raw tokens are never
// stored, only their hashes, enabling single-use consumption and
// revocation. Stateless issues a signed refresh claim set instead and
// cannot revoke or detect reuse.
const (
	RefreshModeStateful  = "stateful"
	RefreshModeStateless = "stateless"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Config is shared by authd and schedulingd. Both services must agree on
// AuthSecret: tokens issued by one are validated by the other.
type Config struct {
	HTTPAddr    string
	DatabaseURL string

	// AuthSecret signs and verifies every token in the system. There is
	// deliberately a single variable for all services.
	AuthSecret string

	// InternalToken guards service-to-service endpoints (X-Internal-Token).
	InternalToken string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RefreshMode     string

	Mode string

	// SchedulingBaseURL is where authd reaches the scheduling service for
	// internal agency lookups.
	SchedulingBaseURL string
}

// Load reads configuration from the environment, applying defaults.
func Load() Config {
	return Config{
		HTTPAddr:          getenv("INNOTOUR_HTTP_ADDR", ":8080"),
		DatabaseURL:       getenv("INNOTOUR_PG_DSN", ""),
		AuthSecret:        getenv("INNOTOUR_AUTH_SECRET", ""),
		InternalToken:     getenv("INNOTOUR_INTERNAL_TOKEN", ""),
		AccessTokenTTL:    getenvDuration("INNOTOUR_ACCESS_TTL", 15*time.Minute),
		RefreshTokenTTL:   getenvDuration("INNOTOUR_REFRESH_TTL", 24*time.Hour),
		RefreshMode:       getenv("INNOTOUR_REFRESH_MODE", RefreshModeStateful),
		Mode:              getenv("INNOTOUR_MODE", ModeProduction),
		SchedulingBaseURL: getenv("INNOTOUR_SCHEDULING_URL", "http://127.0.0.1:8081"),
	}
}

// Validate reports configuration a service cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.AuthSecret) == "" {
		return errors.New("config: INNOTOUR_AUTH_SECRET is required")
	}
	switch c.RefreshMode {
	case RefreshModeStateful, RefreshModeStateless:
	default:
		return errors.New("config: INNOTOUR_REFRESH_MODE must be stateful or stateless")
	}
	return nil
}

// Development reports whether the service runs in development mode.
func (c Config) Development() bool {
	return c.Mode == ModeDevelopment
}

// CookieSecure derives the Secure flag for auth cookies from the mode.
// Secure by default; only development turns it off.
func (c Config) CookieSecure() bool {
	return !c.Development()
}

// CookieSameSite pairs with CookieSecure: browsers reject
// SameSite=None without Secure, so development falls back to Lax.
func (c Config) CookieSameSite() http.SameSite {
	if c.Development() {
		return http.SameSiteLaxMode
	}
	return http.SameSiteNoneMode
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
