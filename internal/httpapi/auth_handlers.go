package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"innotour.org/internal/audit"
	"innotour.org/internal/auth"
	"innotour.org/internal/config"
	"innotour.org/internal/obs"
	"innotour.org/internal/scheduling"
)

// AgencyDirectory resolves agency records. authd fulfils it with the
// remote scheduling client.
type AgencyDirectory interface {
	Agency(ctx context.Context, id int64) (*scheduling.Agency, error)
}

// AuthAPI is the HTTP surface of the auth service.
type AuthAPI struct {
	svc      *auth.Service
	gate     *Gate
	agencies AgencyDirectory
	cookies  cookiePolicy
	version  string
}

func NewAuthAPI(svc *auth.Service, gate *Gate, agencies AgencyDirectory, cfg config.Config, version string) *AuthAPI {
	return &AuthAPI{
		svc:      svc,
		gate:     gate,
		agencies: agencies,
		cookies:  newCookiePolicy(cfg),
		version:  version,
	}
}

// Router wires the auth endpoints. Global middleware (request ids,
// logging, metrics) is applied by the binary around this handler.
func (a *AuthAPI) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/register", a.handleRegister)
	r.Post("/auth/login", a.handleLogin)
	r.Post("/auth/refresh", a.handleRefresh)

	r.Group(func(pr chi.Router) {
		pr.Use(a.gate.Authenticate)
		pr.Post("/auth/logout", a.handleLogout)
		pr.Get("/auth/verify", a.handleVerify)
		pr.With(RequireRole(auth.RoleCenterAdmin)).Get("/auth/verify-admin", a.handleVerify)
		pr.With(RequireRole(auth.RoleCenterAdmin)).Post("/users/update", a.handleUpdateUser)
		pr.With(RequireRole(auth.RoleAgencyManager)).Get("/users/me/agency", a.handleMyAgency)
	})

	r.Get("/health", a.handleHealth)
	r.Handle("/metrics", obs.Handler())
	return r
}

// userView is the user shape returned to clients; the password hash
// never leaves the service.
type userView struct {
	ID       int64     `json:"id"`
	Email    string    `json:"email"`
	Role     auth.Role `json:"role"`
	AgencyID *int64    `json:"agency_id,omitempty"`
}

func viewOf(u *auth.User) userView {
	return userView{ID: u.ID, Email: u.Email, Role: u.Role, AgencyID: u.AgencyID}
}

// tokenResponse mirrors the OAuth2 password-grant response shape the
// frontends already consume.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (a *AuthAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string    `json:"email"`
		Password string    `json:"password"`
		Role     auth.Role `json:"role"`
		AgencyID *int64    `json:"agency_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "malformed request body")
		return
	}
	user, err := a.svc.Register(r.Context(), req.Email, req.Password, req.Role, req.AgencyID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.register", zap.Int64("new_user_id", user.ID))
	writeJSON(w, http.StatusCreated, viewOf(user))
}

func (a *AuthAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	email, password, ok := loginCredentials(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "missing credentials")
		return
	}
	bundle, user, err := a.svc.Login(r.Context(), email, password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	a.cookies.set(w, bundle)
	_ = audit.LogEvent(auth.ContextWithUser(r.Context(), user), "user.login")
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: bundle.AccessToken, TokenType: "bearer"})
}

// loginCredentials accepts both the OAuth2 form shape
// (username/password) and a JSON body (email/password).
func loginCredentials(r *http.Request) (string, string, bool) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			return "", "", false
		}
		return req.Email, req.Password, req.Email != "" && req.Password != ""
	}
	if err := r.ParseForm(); err != nil {
		return "", "", false
	}
	email := r.PostFormValue("username")
	password := r.PostFormValue("password")
	return email, password, email != "" && password != ""
}

func (a *AuthAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var rawRefresh, csrfCookie string
	if c, err := r.Cookie(refreshCookieName); err == nil {
		rawRefresh = c.Value
	}
	if c, err := r.Cookie(csrfCookieName); err == nil {
		csrfCookie = c.Value
	}

	bundle, user, err := a.svc.Refresh(r.Context(), rawRefresh, csrfCookie, r.Header.Get("X-CSRF-Token"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	a.cookies.set(w, bundle)
	_ = audit.LogEvent(auth.ContextWithUser(r.Context(), user), "token.refresh")
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: bundle.AccessToken, TokenType: "bearer"})
}

func (a *AuthAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "token_invalid", "authentication required")
		return
	}
	if err := a.svc.Logout(r.Context(), user.ID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	a.cookies.clear(w)
	_ = audit.LogEvent(r.Context(), "user.logout")
	w.WriteHeader(http.StatusNoContent)
}

func (a *AuthAPI) handleVerify(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "token_invalid", "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(user))
}

func (a *AuthAPI) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       int64     `json:"id"`
		Email    string    `json:"email"`
		Role     auth.Role `json:"role"`
		AgencyID *int64    `json:"agency_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "malformed request body")
		return
	}
	user, err := a.svc.UpdateUser(r.Context(), &auth.User{
		ID:       req.ID,
		Email:    req.Email,
		Role:     req.Role,
		AgencyID: req.AgencyID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.update", zap.Int64("target_user_id", user.ID))
	writeJSON(w, http.StatusOK, viewOf(user))
}

func (a *AuthAPI) handleMyAgency(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "token_invalid", "authentication required")
		return
	}
	if user.AgencyID == nil {
		writeDomainError(w, r, scheduling.ErrAgencyNotFound)
		return
	}
	if a.agencies == nil {
		writeError(w, r, http.StatusServiceUnavailable, "internal_error", "agency directory unavailable")
		return
	}
	agency, err := a.agencies.Agency(r.Context(), *user.AgencyID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agency)
}

func (a *AuthAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "authd",
		"version": a.version,
	})
}
