package auth

import "errors"

var (
	// ErrInvalidToken covers malformed tokens and bad signatures.
	ErrInvalidToken = errors.New("invalid authentication token")

	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid is returned while the nbf claim is in the future.
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	ErrMissingToken = errors.New("authentication token is missing")

	// ErrWrongTokenType is returned for a token not issued as an access token.
	ErrWrongTokenType = errors.New("wrong token type")

	ErrInvalidSecret = errors.New("jwt secret must be at least 32 characters")
)
