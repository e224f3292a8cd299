package auth

import (
	"context"
	"fmt"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
)

// IDTokenVerifier is the subset of *fbauth.Client used for verification.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier verifies Firebase ID tokens.
type FirebaseVerifier struct {
	client       IDTokenVerifier
	checkRevoked bool
}

func NewFirebaseVerifier(client IDTokenVerifier, checkRevoked bool) *FirebaseVerifier {
	return &FirebaseVerifier{client: client, checkRevoked: checkRevoked}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	var (
		tok *fbauth.Token
		err error
	)
	if v.checkRevoked {
		tok, err = v.client.VerifyIDTokenAndCheckRevoked(ctx, token)
	} else {
		tok, err = v.client.VerifyIDToken(ctx, token)
	}
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	identity := &Identity{
		UID:    tok.UID,
		Claims: tok.Claims,
	}
	if tok.Expires > 0 {
		identity.ExpiresAt = time.Unix(tok.Expires, 0)
	}
	return identity, nil
}
