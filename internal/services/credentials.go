package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidesweep/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const defaultTidalAuthURL = "https://auth.tidal.com/v1/oauth2/token"

// CredentialStore persists a rotated token pair to external configuration.
//
// Implementations write through to whatever backs the config surface (the
// TOML file in this tool; a secret store in a production deployment).
type CredentialStore interface {
	SaveTokens(accessToken, refreshToken string) error
}

// CredentialManager owns the current access/refresh token pair for a run.
//
// It is an explicit session object threaded through the fetch client; after a
// refresh, the in-memory copy is authoritative for the remainder of the run
// regardless of whether persistence succeeded.
type CredentialManager struct {
	clientID     string
	clientSecret string
	authURL      string
	accessToken  string
	refreshToken string
	store        CredentialStore
	httpClient   *http.Client
	logger       *log.Logger
}

// NewCredentialManager creates a credential manager seeded from configuration.
func NewCredentialManager(cfg shared.TidalConfig, store CredentialStore, client *http.Client, logger *log.Logger) *CredentialManager {
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = defaultTidalAuthURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &CredentialManager{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		authURL:      authURL,
		accessToken:  cfg.AccessToken,
		refreshToken: cfg.RefreshToken,
		store:        store,
		httpClient:   client,
		logger:       logger,
	}
}

// AccessToken returns the current bearer token.
func (m *CredentialManager) AccessToken() string {
	return m.accessToken
}

// Refresh obtains a new access token from the auth endpoint.
//
// Uses the refresh-token grant when a refresh token is configured, falling
// back to the client-credentials grant otherwise. On success the new pair is
// persisted through the [CredentialStore]; a persistence failure is logged
// but does not fail the refresh, since the in-memory pair is authoritative.
// A rejection by the auth endpoint is fatal for the caller: there is no
// further fallback.
func (m *CredentialManager) Refresh(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	var (
		token *oauth2.Token
		err   error
	)

	if m.refreshToken != "" {
		conf := &oauth2.Config{
			ClientID:     m.clientID,
			ClientSecret: m.clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: m.authURL},
		}
		token, err = conf.TokenSource(ctx, &oauth2.Token{RefreshToken: m.refreshToken}).Token()
	} else {
		conf := &clientcredentials.Config{
			ClientID:     m.clientID,
			ClientSecret: m.clientSecret,
			TokenURL:     m.authURL,
		}
		token, err = conf.Token(ctx)
	}

	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	m.accessToken = token.AccessToken
	if token.RefreshToken != "" {
		m.refreshToken = token.RefreshToken
	}

	if m.store != nil {
		if err := m.store.SaveTokens(m.accessToken, m.refreshToken); err != nil {
			m.logger.Warn("failed to persist refreshed tokens", "error", err)
		}
	}

	return m.accessToken, nil
}
