package service

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

const googleIssuer = "https://accounts.google.com"

// GoogleClaims is the validated identity assertion extracted from a Google
// ID token.
type GoogleClaims struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier checks a raw ID token against Google's keys and the
// configured client ID.
type GoogleVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*GoogleClaims, error)
}

type oidcGoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewGoogleVerifier(ctx context.Context, clientID string) (GoogleVerifier, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: GOOGLE_CLIENT_ID is required", ErrMisconfigured)
	}

	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover google oidc provider: %w", err)
	}

	return &oidcGoogleVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (v *oidcGoogleVerifier) Verify(ctx context.Context, rawIDToken string) (*GoogleClaims, error) {
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	var claims struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	return &GoogleClaims{
		Subject: idToken.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}
