package auth

import (
	"context"
	"errors"
	"time"
)

// ErrMissingToken is returned when the Authorization header carries no bearer token.
var ErrMissingToken = errors.New("missing token")

// Identity is a verified caller. UID is the stable, unique user id that scopes
// every task path.
type Identity struct {
	UID       string         `json:"uid"`
	Claims    map[string]any `json:"claims,omitempty"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Verifier exchanges a bearer token for a verified identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// AuthenticationError wraps every failure of the authentication guard.
type AuthenticationError struct {
	Cause error
}

func (e *AuthenticationError) Error() string {
	if e.Cause == nil {
		return "authentication failed"
	}
	return "authentication failed: " + e.Cause.Error()
}

func (e *AuthenticationError) Unwrap() error { return e.Cause }
