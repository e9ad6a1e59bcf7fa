package auth

import "errors"

var (
	// ErrNotConfigured is returned when the credentials are incomplete.
	ErrNotConfigured = errors.New("infusionsoft credentials are not configured")

	// ErrEmptyCode is returned when an exchange is attempted without a code.
	ErrEmptyCode = errors.New("authorization code is empty")

	// ErrRemoteRejected is returned when the remote API rejects a code exchange.
	ErrRemoteRejected = errors.New("authorization code rejected")

	// ErrRemoteFailed is returned when a token refresh fails remotely.
	ErrRemoteFailed = errors.New("token refresh failed")

	// ErrNoToken is returned when a refresh is attempted with nothing stored.
	ErrNoToken = errors.New("no token stored")

	// ErrNotAuthorized is returned when a usable token cannot be produced.
	ErrNotAuthorized = errors.New("not authorized")
)
