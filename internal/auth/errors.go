package auth

import "errors"

var (
	ErrNotFound           = errors.New("auth: not found")
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenInvalid       = errors.New("auth: token invalid")
	ErrTokenWrongScope    = errors.New("auth: wrong token scope")
	ErrCSRFInvalid        = errors.New("auth: csrf validation failed")
	ErrPermissionRequired = errors.New("auth: permission required")
	ErrInvalidInput       = errors.New("auth: invalid input")
)
