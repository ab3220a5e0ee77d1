package logoclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/logo-objects/internal/client"
	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

// New creates a new Logo Objects API client. The config is copied, so later
// changes to it have no effect on the client.
func New(ctx context.Context, config *logo.Config) (logo.Client, error) {
	if config == nil {
		return nil, logo.ErrConfigRequired
	}

	if strings.TrimSpace(config.APIEndpoint) == "" {
		return nil, logo.ErrAPIEndpointRequired
	}

	copied := *config
	copied.APIEndpoint = NormalizeEndpoint(config.APIEndpoint)

	if len(config.Headers) > 0 {
		copied.Headers = make(map[string]string, len(config.Headers))
		for key, value := range config.Headers {
			copied.Headers[key] = value
		}
	}

	copied.RequestInterceptors = append([]logo.RequestInterceptor(nil), config.RequestInterceptors...)
	copied.ResponseInterceptors = append([]logo.ResponseInterceptor(nil), config.ResponseInterceptors...)

	if config.Events != nil {
		events := *config.Events
		copied.Events = &events
	}

	c, err := client.New(ctx, &copied)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NormalizeEndpoint trims trailing slashes and defaults the scheme to https.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

// NewWithEndpoint creates a new client with just an API endpoint (no auth).
func NewWithEndpoint(ctx context.Context, endpoint string) (logo.Client, error) {
	return New(ctx, &logo.Config{
		APIEndpoint: endpoint,
	})
}

// NewWithToken creates a new client with an API endpoint and access token.
func NewWithToken(ctx context.Context, endpoint, token string) (logo.Client, error) {
	return New(ctx, &logo.Config{
		APIEndpoint: endpoint,
		AccessToken: token,
	})
}

// NewWithClientCredentials creates a new client using OAuth2 client credentials.
func NewWithClientCredentials(ctx context.Context, endpoint, clientID, clientSecret string) (logo.Client, error) {
	return New(ctx, &logo.Config{
		APIEndpoint:  endpoint,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
}

// NewWithPassword creates a new client using the password grant for firmNo.
func NewWithPassword(ctx context.Context, endpoint, username, password, firmNo string) (logo.Client, error) {
	return New(ctx, &logo.Config{
		APIEndpoint: endpoint,
		Username:    username,
		Password:    password,
		FirmNo:      firmNo,
	})
}
