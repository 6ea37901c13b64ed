package httpapi

import (
	"net/http"

	"innotour.org/internal/auth"
	"innotour.org/internal/config"
)

const (
	refreshCookieName = "refresh_token"
	csrfCookieName    = "csrf_token"

	// The refresh cookie is scoped to the one endpoint that consumes it.
	refreshCookiePath = "/auth/refresh"
)

// cookiePolicy carries the attributes shared by both auth cookies. Both
// are scoped to the refresh endpoint; the refresh cookie is HttpOnly,
// the CSRF cookie is not, so the frontend can echo it in the
// X-CSRF-Token header.
type cookiePolicy struct {
	secure   bool
	sameSite http.SameSite
	maxAge   int
}

func newCookiePolicy(cfg config.Config) cookiePolicy {
	return cookiePolicy{
		secure:   cfg.CookieSecure(),
		sameSite: cfg.CookieSameSite(),
		maxAge:   int(cfg.RefreshTokenTTL.Seconds()),
	}
}

func (p cookiePolicy) set(w http.ResponseWriter, bundle auth.TokenBundle) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    bundle.RefreshToken,
		Path:     refreshCookiePath,
		MaxAge:   p.maxAge,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: p.sameSite,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    bundle.CSRFToken,
		Path:     refreshCookiePath,
		MaxAge:   p.maxAge,
		HttpOnly: false,
		Secure:   p.secure,
		SameSite: p.sameSite,
	})
}

func (p cookiePolicy) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: p.sameSite,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		Secure:   p.secure,
		SameSite: p.sameSite,
	})
}
