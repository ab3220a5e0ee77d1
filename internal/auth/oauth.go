package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/fivetwenty-io/logo-objects/internal/constants"
	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

// OAuth2Config configures an OAuth2TokenManager.
type OAuth2Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	// FirmNo is sent as the vendor "firmno" parameter of the password grant.
	FirmNo       string
	RefreshToken string
	AccessToken  string
	Scopes       []string
	HTTPClient   *http.Client
}

// OAuth2TokenManager obtains and refreshes tokens.
//
// A refresh token is tried first; password and client_credentials grants are
// used when there is none or it was rejected.
type OAuth2TokenManager struct {
	config *OAuth2Config
	store  *TokenStore
	mu     sync.Mutex
}

// NewOAuth2TokenManager creates a token manager. An AccessToken in config is
// used until it expires or the service rejects it.
func NewOAuth2TokenManager(config *OAuth2Config) *OAuth2TokenManager {
	manager := &OAuth2TokenManager{
		config: config,
		store:  NewTokenStore(),
	}

	if config.AccessToken != "" {
		manager.store.Set(&Token{
			AccessToken:  config.AccessToken,
			RefreshToken: config.RefreshToken,
			TokenType:    "bearer",
		})
	}

	return manager
}

// NewLogoTokenManager creates a client_credentials manager for an API endpoint.
func NewLogoTokenManager(apiEndpoint, clientID, clientSecret string) *OAuth2TokenManager {
	return NewOAuth2TokenManager(&OAuth2Config{
		TokenURL:     TokenURL(apiEndpoint),
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
}

// NewLogoTokenManagerWithPassword creates a password grant manager for an API endpoint.
func NewLogoTokenManagerWithPassword(apiEndpoint, clientID, clientSecret, username, password, firmNo string) *OAuth2TokenManager {
	return NewOAuth2TokenManager(&OAuth2Config{
		TokenURL:     TokenURL(apiEndpoint),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Username:     username,
		Password:     password,
		FirmNo:       firmNo,
	})
}

// TokenURL returns the default token endpoint of an API endpoint.
func TokenURL(apiEndpoint string) string {
	return strings.TrimSuffix(apiEndpoint, "/") + constants.TokenPath
}

// GetToken returns a valid access token, fetching one when needed.
func (m *OAuth2TokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token.Valid() {
		return token.AccessToken, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	token = m.store.Get()
	if token.Valid() {
		return token.AccessToken, nil
	}

	token, err := m.fetch(ctx, token)
	if err != nil {
		return "", err
	}

	return token.AccessToken, nil
}

// RefreshToken forces a new token.
func (m *OAuth2TokenManager) RefreshToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.fetch(ctx, m.store.Get())

	return err
}

// SetToken manually sets the access token.
func (m *OAuth2TokenManager) SetToken(token string, expiresAt time.Time) {
	refreshToken := m.config.RefreshToken
	if current := m.store.Get(); current != nil && current.RefreshToken != "" {
		refreshToken = current.RefreshToken
	}

	m.store.Set(&Token{
		AccessToken:  token,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresAt:    expiresAt,
	})
}

// CurrentToken returns the stored token, or nil.
func (m *OAuth2TokenManager) CurrentToken() *Token {
	return m.store.Get()
}

func (m *OAuth2TokenManager) fetch(ctx context.Context, current *Token) (*Token, error) {
	if m.config.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.config.HTTPClient)
	}

	refreshToken := m.config.RefreshToken
	if current != nil && current.RefreshToken != "" {
		refreshToken = current.RefreshToken
	}

	var (
		oauthToken *oauth2.Token
		err        error
	)

	switch {
	case refreshToken != "":
		oauthToken, err = m.refresh(ctx, refreshToken)
		if err != nil && m.hasGrant() {
			oauthToken, err = m.grant(ctx)
		}
	case m.hasGrant():
		oauthToken, err = m.grant(ctx)
	default:
		return nil, constants.ErrNoCredentials
	}

	if err != nil {
		return nil, m.tokenError(err)
	}

	if oauthToken.AccessToken == "" {
		return nil, constants.ErrEmptyAccessToken
	}

	token := &Token{
		AccessToken:  oauthToken.AccessToken,
		TokenType:    oauthToken.TokenType,
		RefreshToken: oauthToken.RefreshToken,
		ExpiresAt:    oauthToken.Expiry,
	}

	if !token.ExpiresAt.IsZero() {
		token.ExpiresIn = int(time.Until(token.ExpiresAt).Seconds())
	}

	m.store.Set(token)

	return token, nil
}

func (m *OAuth2TokenManager) hasGrant() bool {
	return m.config.Username != "" || m.config.ClientID != ""
}

func (m *OAuth2TokenManager) authStyle() oauth2.AuthStyle {
	if m.config.ClientID == "" {
		return oauth2.AuthStyleInParams
	}

	return oauth2.AuthStyleInHeader
}

func (m *OAuth2TokenManager) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	config := &oauth2.Config{
		ClientID:     m.config.ClientID,
		ClientSecret: m.config.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  m.config.TokenURL,
			AuthStyle: m.authStyle(),
		},
		Scopes: m.config.Scopes,
	}

	token, err := config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token grant: %w", err)
	}

	return token, nil
}

// grant runs the password grant when a username is configured and the
// client_credentials grant otherwise. The password grant goes through
// clientcredentials with an overridden grant_type so firmno can be sent.
func (m *OAuth2TokenManager) grant(ctx context.Context) (*oauth2.Token, error) {
	config := &clientcredentials.Config{
		ClientID:     m.config.ClientID,
		ClientSecret: m.config.ClientSecret,
		TokenURL:     m.config.TokenURL,
		Scopes:       m.config.Scopes,
		AuthStyle:    m.authStyle(),
	}

	grantType := "client_credentials"

	if m.config.Username != "" {
		grantType = "password"
		config.EndpointParams = url.Values{
			"grant_type": {grantType},
			"username":   {m.config.Username},
			"password":   {m.config.Password},
		}

		if m.config.FirmNo != "" {
			config.EndpointParams.Set(constants.FirmNoParam, m.config.FirmNo)
		}
	}

	token, err := config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s grant: %w", grantType, err)
	}

	return token, nil
}

// tokenError turns a rejected token request into a logo.APIError so callers
// can branch on the status code.
func (m *OAuth2TokenManager) tokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) || retrieveErr.Response == nil {
		return fmt.Errorf("%w: %w", constants.ErrFailedRetrieveToken, err)
	}

	apiErr := logo.NewAPIError(retrieveErr.Response.StatusCode, http.MethodPost, m.config.TokenURL, retrieveErr.Body)

	if retrieveErr.ErrorCode != "" {
		return fmt.Errorf("%w (%s)", apiErr, retrieveErr.ErrorCode)
	}

	return apiErr
}
