package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates a missing, expired or tampered bearer token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidCompany occurs when the company header is not a positive integer.
	ErrInvalidCompany = errors.New("invalid company id")
)
