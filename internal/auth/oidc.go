package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/config"
	"github.com/genovault/genovault/internal/db/models"
)

// OIDCProvider handles OIDC authentication: the browser login flow and
// bearer-token verification for API clients.
type OIDCProvider struct {
	cfg      config.OIDC
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth2   oauth2.Config
	db       *gorm.DB
}

// NewOIDCProvider creates a new OIDC provider from the configuration.
func NewOIDCProvider(ctx context.Context, cfg config.OIDC, db *gorm.DB) (*OIDCProvider, error) {
	if !cfg.Enabled {
		return nil, ErrOIDCDisabled
	}

	provider, err := oidc.NewProvider(ctx, cfg.ProviderURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: cfg.ClientID,
	})

	oauth2Config := oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	return &OIDCProvider{
		cfg:      cfg,
		provider: provider,
		verifier: verifier,
		oauth2:   oauth2Config,
		db:       db,
	}, nil
}

// GenerateStateToken generates a random state token for CSRF protection.
func GenerateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

// GetAuthURL returns the OIDC authorization URL with state token.
func (p *OIDCProvider) GetAuthURL(state string) string {
	return p.oauth2.AuthCodeURL(state)
}

// HandleCallback completes the browser login flow: it exchanges the code,
// verifies the ID token and resolves the subject to a user record. Accounts
// are never created here; an administrator must have linked the subject
// beforehand.
func (p *OIDCProvider) HandleCallback(ctx context.Context, code string) (*models.User, error) {
	oauth2Token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, ErrNoIDToken
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	return p.resolveSubject(idToken.Issuer, idToken.Subject)
}

// VerifyBearer verifies a bearer token and resolves its subject to a user.
// A valid token whose subject is unknown is still unauthorized.
func (p *OIDCProvider) VerifyBearer(ctx context.Context, rawToken string) (*models.User, error) {
	idToken, err := p.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify bearer token: %w", err)
	}

	return p.resolveSubject(idToken.Issuer, idToken.Subject)
}

// resolveSubject matches a verified token to a user record by the subject
// claim only. Username and email in the token are never consulted, they are
// attacker-controlled at many providers.
func (p *OIDCProvider) resolveSubject(issuer, subject string) (*models.User, error) {
	var user models.User

	err := p.db.Where("subject = ?", subject).First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownSubject
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user by subject: %w", err)
	}

	if user.Issuer != nil && *user.Issuer != "" && *user.Issuer != issuer {
		return nil, ErrUnknownSubject
	}

	if user.Deactivated {
		return nil, ErrUserDeactivated
	}

	now := time.Now()
	user.LastLogin = &now

	if err := p.db.Model(&user).Update("last_login", now).Error; err != nil {
		return nil, fmt.Errorf("failed to stamp login time: %w", err)
	}

	return &user, nil
}
