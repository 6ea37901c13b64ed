package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	RefreshTokens(ctx context.Context) RefreshTokenStore
}

// UserStore manages user records.
type UserStore interface {
	// Create inserts a user; a duplicate email yields ErrEmailTaken.
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error
}

// RefreshTokenStore manages the refresh-token lifecycle.
type RefreshTokenStore interface {
	Create(ctx context.Context, tok *RefreshToken) error

	// Consume atomically deletes the unexpired record matching tokenHash
	// and returns it. A single conditional delete enforces single-use:
	// when two rotations race on the same raw token, exactly one wins and
	// the loser observes ErrNotFound. ErrNotFound also covers
	// never-existed and expired records.
	Consume(ctx context.Context, tokenHash string, now time.Time) (*RefreshToken, error)

	// DeleteByUser revokes every outstanding refresh token of a user.
	DeleteByUser(ctx context.Context, userID int64) error
}
