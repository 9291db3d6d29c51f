// Package identity integrates the delegated identity provider. The provider
// owns credentials and token issuance; this package only maps verified
// external identities onto local user accounts.
package identity

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/illustrious/cloud/pkg/config"
)

// Claims are the identity-provider fields the callback maps onto a local
// account.
type Claims struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// Provider wraps an OpenID Connect provider discovered from its issuer URL.
type Provider struct {
	name         string
	provider     *oidc.Provider
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
}

// NewProvider discovers the OIDC provider and prepares the verifier and
// OAuth2 client configuration.
func NewProvider(ctx context.Context, name string, cfg config.AuthConfig) (*Provider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
	}

	return &Provider{
		name:         name,
		provider:     provider,
		verifier:     verifier,
		oauth2Config: oauth2Config,
	}, nil
}

// Name returns the provider name used in the login route.
func (p *Provider) Name() string {
	return p.name
}

// AuthCodeURL returns the authorization endpoint URL for the given state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// InitiateLogin redirects to the provider's authorization endpoint.
func (p *Provider) InitiateLogin(w http.ResponseWriter, r *http.Request, state string) {
	http.Redirect(w, r, p.AuthCodeURL(state), http.StatusFound)
}

// Exchange trades an authorization code for tokens and returns the verified
// identity claims from the ID token.
func (p *Provider) Exchange(ctx context.Context, code string) (*Claims, error) {
	oauth2Token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("missing id_token in response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var raw struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	if idToken.Subject == "" {
		return nil, fmt.Errorf("missing subject in ID token")
	}

	return &Claims{
		Subject: idToken.Subject,
		Email:   raw.Email,
		Name:    raw.Name,
		Picture: raw.Picture,
	}, nil
}

// UserInfo validates a bearer access token against the provider's userinfo
// endpoint and returns the claims it asserts.
func (p *Provider) UserInfo(ctx context.Context, accessToken string) (*Claims, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	userInfo, err := p.provider.UserInfo(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}

	var raw struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := userInfo.Claims(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse userinfo claims: %w", err)
	}

	return &Claims{
		Subject: userInfo.Subject,
		Email:   raw.Email,
		Name:    raw.Name,
		Picture: raw.Picture,
	}, nil
}
