package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token scopes. The scope claim prevents an access token being replayed
// against the refresh flow and vice versa.
const (
	ScopeAccess  = "access_token"
	ScopeRefresh = "refresh_token"
)

// Claims is the signed claim set shared by every service. Both authd and
// schedulingd decode it with the same secret.
type Claims struct {
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role,omitempty"`
	AgencyID *int64 `json:"agency_id,omitempty"`
	Scope    string `json:"scope"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into the user id.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrTokenInvalid
	}
	return id, nil
}

// Codec signs and verifies claim sets with HS256 using the shared
// service secret. Decode is a pure function of (token, secret, now).
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithIssuer sets the issuer claim embedded into and required from tokens.
func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) { c.issuer = strings.TrimSpace(issuer) }
}

// WithCodecClock overrides the time source (useful for tests).
func WithCodecClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec. The secret must be configured; an empty
// secret would make every signature forgeable.
func NewCodec(secret string, opts ...CodecOption) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is not configured")
	}
	c := &Codec{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encode mints a signed token for the user with the given scope and
// lifetime. The exp and iat claims are always injected.
func (c *Codec) Encode(u *User, scope string, ttl time.Duration) (string, time.Time, error) {
	if u == nil || u.ID == 0 {
		return "", time.Time{}, errors.New("auth: user is required")
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("auth: ttl must be greater than zero")
	}
	now := c.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Email:    u.Email,
		Role:     u.Role,
		AgencyID: u.AgencyID,
		Scope:    scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Decode verifies the signature and required claims. requiredScope, when
// non-empty, must match the scope claim exactly.
//
// Failure taxonomy: ErrTokenExpired (valid signature, exp elapsed),
// ErrTokenWrongScope (valid token, wrong scope claim), ErrTokenInvalid
// (everything else: bad signature, malformed payload, missing claims).
func (c *Codec) Decode(token, requiredScope string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenInvalid
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenInvalid
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrTokenInvalid
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return nil, ErrTokenInvalid
	}
	if requiredScope != "" && claims.Scope != requiredScope {
		return nil, ErrTokenWrongScope
	}
	return claims, nil
}
