package auth

import (
	"context"
	"errors"
	"strings"
)

const bearerScheme = "Bearer"

var errEmptyUID = errors.New("verifier returned identity without uid")

// Authenticate resolves the Authorization header value to a verified identity.
// An absent header or an empty token fails without calling the verifier.
func Authenticate(ctx context.Context, header string, verifier Verifier) (*Identity, error) {
	token := BearerToken(header)
	if token == "" {
		return nil, &AuthenticationError{Cause: ErrMissingToken}
	}

	identity, err := verifier.Verify(ctx, token)
	if err != nil {
		return nil, &AuthenticationError{Cause: err}
	}
	if identity == nil || identity.UID == "" {
		return nil, &AuthenticationError{Cause: errEmptyUID}
	}
	return identity, nil
}

// BearerToken strips the "Bearer " scheme from an Authorization header value.
// HTTP servers trim trailing whitespace, so a bare "Bearer" also yields "".
// A header without the scheme is returned as-is.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == bearerScheme {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, bearerScheme+" "))
}

// SafePrefix returns a safe-to-log prefix of a token (never the full token).
func SafePrefix(token string) string {
	if len(token) > 12 {
		return token[:12] + "..."
	}
	return "..."
}
