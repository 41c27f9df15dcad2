package auth

import "errors"

// Token validation errors. The API maps all of them to 401.
var (
	ErrMissingToken     = errors.New("no bearer token supplied")
	ErrInvalidToken     = errors.New("bearer token is malformed or its signature does not verify")
	ErrExpiredToken     = errors.New("bearer token has expired")
	ErrTokenNotYetValid = errors.New("bearer token is not valid yet")
	ErrInvalidSubject   = errors.New("bearer token subject is not a user UUID")
)
