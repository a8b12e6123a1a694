package errors

import (
	"errors"
	"fmt"
)

// Common error types for the storefront session layer
var (
	// Nonce errors
	ErrEntropyUnavailable = errors.New("entropy source unavailable")

	// Session errors
	ErrSessionExpired   = errors.New("session expired")
	ErrReauthRequired   = errors.New("recent re-authentication required")
	ErrNotAuthenticated = errors.New("not authenticated")

	// Identity errors
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrInvalidLink       = errors.New("invalid or expired login link")
	ErrLinkAlreadyUsed   = errors.New("login link already used")
	ErrInvalidAddress    = errors.New("invalid wallet address")
	ErrChallengeNotFound = errors.New("no pending challenge")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInvalidState      = errors.New("invalid state parameter")
	ErrProviderDisabled  = errors.New("identity provider not configured")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
