package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 24 * time.Hour
)

// TokenBundle is everything one issuance emits: the access token for the
// response body, the raw refresh value and CSRF token for cookies.
type TokenBundle struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	CSRFToken        string
}

// TokenVerifier validates an access token and resolves the identity it
// names. The authorization gate depends on this, not on Service, so a
// service without a user store (schedulingd) can verify from claims alone.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*User, error)
}

// Service orchestrates the token issuance and rotation protocol: login,
// refresh, verification and revocation.
type Service struct {
	store Store
	codec *Codec
	now   func() time.Time

	accessTTL  time.Duration
	refreshTTL time.Duration

	// statelessRefresh switches to the degraded JWT-only refresh design:
	// no persistence, no revocation, no reuse detection.
	statelessRefresh bool
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithStatelessRefresh selects the stateless refresh variant. Only for
// deployments without shared storage; the stateful design is canonical.
func WithStatelessRefresh(enabled bool) ServiceOption {
	return func(s *Service) { s.statelessRefresh = enabled }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the issuance protocol around a store and codec.
func NewService(store Store, codec *Codec, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if codec == nil {
		return nil, errors.New("auth: codec is required")
	}
	s := &Service{
		store:      store,
		codec:      codec,
		now:        time.Now,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RefreshTTL reports the configured refresh lifetime; cookies use it as
// max-age.
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

// Register creates a user after checking the role/agency invariant and
// email uniqueness. The password is bcrypt-hashed before it reaches the
// store.
func (s *Service) Register(ctx context.Context, email, password string, role Role, agencyID *int64) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}
	u := &User{Email: email, Role: role, AgencyID: agencyID}
	if err := u.ValidateRoleAgency(); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	if err := s.store.Users(ctx).Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login authenticates credentials and mints a fresh token bundle.
// Unknown email and wrong password collapse into one uniform
// ErrInvalidCredentials so the response never reveals which factor failed.
func (s *Service) Login(ctx context.Context, email, password string) (TokenBundle, *User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return TokenBundle{}, nil, ErrInvalidCredentials
	}
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenBundle{}, nil, ErrInvalidCredentials
		}
		return TokenBundle{}, nil, err
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return TokenBundle{}, nil, ErrInvalidCredentials
	}
	bundle, err := s.mintBundle(ctx, user)
	if err != nil {
		return TokenBundle{}, nil, err
	}
	return bundle, user, nil
}

// Refresh rotates the token pair. The CSRF double-submit check runs
// first and fails closed without touching the stored token, so a
// CSRF-rejected request can be retried with the same refresh cookie.
func (s *Service) Refresh(ctx context.Context, rawRefresh, csrfCookie, csrfHeader string) (TokenBundle, *User, error) {
	if !ValidCSRF(csrfCookie, csrfHeader) {
		return TokenBundle{}, nil, ErrCSRFInvalid
	}
	if rawRefresh == "" {
		return TokenBundle{}, nil, ErrTokenInvalid
	}

	var userID int64
	if s.statelessRefresh {
		claims, err := s.codec.Decode(rawRefresh, ScopeRefresh)
		if err != nil {
			return TokenBundle{}, nil, err
		}
		userID, err = claims.UserID()
		if err != nil {
			return TokenBundle{}, nil, err
		}
	} else {
		// Single conditional delete keyed by hash+validity: exactly one of
		// any set of concurrent rotations with the same raw token succeeds.
		rec, err := s.store.RefreshTokens(ctx).Consume(ctx, HashRefreshToken(rawRefresh), s.now().UTC())
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return TokenBundle{}, nil, ErrTokenInvalid
			}
			return TokenBundle{}, nil, err
		}
		userID = rec.UserID
	}

	user, err := s.store.Users(ctx).Find(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenBundle{}, nil, ErrTokenInvalid
		}
		return TokenBundle{}, nil, err
	}
	bundle, err := s.mintBundle(ctx, user)
	if err != nil {
		return TokenBundle{}, nil, err
	}
	return bundle, user, nil
}

// VerifyAccessToken decodes a bearer token requiring scope=access_token
// and resolves the subject against the user store.
func (s *Service) VerifyAccessToken(ctx context.Context, token string) (*User, error) {
	claims, err := s.codec.Decode(token, ScopeAccess)
	if err != nil {
		return nil, err
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	user, err := s.store.Users(ctx).Find(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	return user, nil
}

// Logout revokes every outstanding refresh token of the user. A no-op in
// stateless mode, where nothing can be revoked.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	if s.statelessRefresh {
		return nil
	}
	return s.store.RefreshTokens(ctx).DeleteByUser(ctx, userID)
}

// UpdateUser rewrites a user's email, role and agency binding, holding
// the same invariant as registration.
func (s *Service) UpdateUser(ctx context.Context, u *User) (*User, error) {
	if u == nil || u.ID == 0 {
		return nil, ErrInvalidInput
	}
	if err := u.ValidateRoleAgency(); err != nil {
		return nil, err
	}
	if err := s.store.Users(ctx).Update(ctx, u); err != nil {
		return nil, err
	}
	return s.store.Users(ctx).Find(ctx, u.ID)
}

func (s *Service) mintBundle(ctx context.Context, user *User) (TokenBundle, error) {
	access, accessExp, err := s.codec.Encode(user, ScopeAccess, s.accessTTL)
	if err != nil {
		return TokenBundle{}, err
	}
	csrf, err := NewCSRFToken()
	if err != nil {
		return TokenBundle{}, err
	}

	var (
		refresh    string
		refreshExp time.Time
	)
	if s.statelessRefresh {
		refresh, refreshExp, err = s.codec.Encode(user, ScopeRefresh, s.refreshTTL)
		if err != nil {
			return TokenBundle{}, err
		}
	} else {
		refresh, err = newRefreshValue()
		if err != nil {
			return TokenBundle{}, err
		}
		refreshExp = s.now().UTC().Add(s.refreshTTL)
		rec := &RefreshToken{
			UserID:    user.ID,
			TokenHash: HashRefreshToken(refresh),
			ExpiresAt: refreshExp,
		}
		if err := s.store.RefreshTokens(ctx).Create(ctx, rec); err != nil {
			return TokenBundle{}, err
		}
	}

	return TokenBundle{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		CSRFToken:        csrf,
	}, nil
}

// newRefreshValue mints the raw opaque refresh token. Only its hash is
// ever persisted.
func newRefreshValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashRefreshToken computes the one-way hash under which a refresh token
// is stored and looked up.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ClaimsVerifier validates access tokens from the claim set alone,
// without a user store. schedulingd uses it: the claims carry everything
// its role predicates need.
type ClaimsVerifier struct {
	codec *Codec
}

// NewClaimsVerifier wraps a codec into a TokenVerifier.
func NewClaimsVerifier(codec *Codec) ClaimsVerifier {
	return ClaimsVerifier{codec: codec}
}

func (v ClaimsVerifier) VerifyAccessToken(_ context.Context, token string) (*User, error) {
	claims, err := v.codec.Decode(token, ScopeAccess)
	if err != nil {
		return nil, err
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	return &User{
		ID:       id,
		Email:    claims.Email,
		Role:     claims.Role,
		AgencyID: claims.AgencyID,
	}, nil
}
