// Package client implements logo.Client on top of the catalog, the
// dispatcher and the HTTP transport.
package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fivetwenty-io/logo-objects/internal/auth"
	"github.com/fivetwenty-io/logo-objects/internal/catalog"
	"github.com/fivetwenty-io/logo-objects/internal/constants"
	"github.com/fivetwenty-io/logo-objects/internal/events"
	"github.com/fivetwenty-io/logo-objects/internal/http"
	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

// Client implements the logo.Client interface.
type Client struct {
	httpClient   *http.Client
	tokenManager http.TokenManager
	dispatcher   *Dispatcher
	catalog      *catalog.Catalog
	entities     map[string]*EntityClient
	metrics      *logo.MetricsCollector
	publisher    *events.Publisher
	closed       atomic.Bool
	closeOnce    sync.Once
	closeErr     error
}

// createTokenManager creates appropriate token manager based on config.
func createTokenManager(config *logo.Config) http.TokenManager {
	hasGrant := config.Username != "" || config.ClientID != "" || config.RefreshToken != ""

	switch {
	case config.AccessToken != "" && !hasGrant:
		return auth.NewStaticTokenManager(config.AccessToken)
	case config.AccessToken != "" || hasGrant:
		return auth.NewOAuth2TokenManager(&auth.OAuth2Config{
			TokenURL:     getTokenURL(config),
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Username:     config.Username,
			Password:     config.Password,
			FirmNo:       config.FirmNo,
			RefreshToken: config.RefreshToken,
			AccessToken:  config.AccessToken,
		})
	default:
		return nil
	}
}

// getTokenURL returns token URL from config or the endpoint default.
func getTokenURL(config *logo.Config) string {
	if config.TokenURL != "" {
		return config.TokenURL
	}

	return auth.TokenURL(config.APIEndpoint)
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *logo.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.RequestTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.RequestTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// New creates a client from config, choosing a token manager from the
// credentials it carries.
func New(ctx context.Context, config *logo.Config) (*Client, error) {
	if config == nil {
		return nil, logo.ErrConfigRequired
	}

	return NewWithTokenManager(ctx, config, createTokenManager(config))
}

// NewWithTokenManager creates a client that authenticates through tokenManager.
// A nil tokenManager sends requests without authentication.
func NewWithTokenManager(ctx context.Context, config *logo.Config, tokenManager http.TokenManager) (*Client, error) {
	if config == nil {
		return nil, logo.ErrConfigRequired
	}

	if config.APIEndpoint == "" {
		return nil, logo.ErrAPIEndpointRequired
	}

	cat, err := loadCatalog(config)
	if err != nil {
		return nil, err
	}

	httpClient := http.NewClient(config.APIEndpoint, tokenManager, createHTTPClientOptions(config)...)

	client := &Client{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		catalog:      cat,
		metrics:      logo.NewMetricsCollector(),
	}

	chain, err := client.buildChain(ctx, config)
	if err != nil {
		return nil, err
	}

	client.dispatcher = NewDispatcher(httpClient, chain, config.Logger)
	client.initializeEntityClients()

	return client, nil
}

func loadCatalog(config *logo.Config) (*catalog.Catalog, error) {
	if len(config.Catalog) > 0 {
		cat, err := catalog.Load(config.Catalog)
		if err != nil {
			return nil, fmt.Errorf("loading custom catalog: %w", err)
		}

		return cat, nil
	}

	cat, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("loading default catalog: %w", err)
	}

	return cat, nil
}

// buildChain assembles the built-in interceptors followed by the ones in config.
func (c *Client) buildChain(ctx context.Context, config *logo.Config) (*logo.InterceptorChain, error) {
	chain := logo.NewInterceptorChain()

	chain.AddRequestInterceptor(logo.RequestIDInterceptor(constants.HeaderRequestID))
	chain.AddRequestInterceptor(logo.MetricsRequestInterceptor(c.metrics))

	if len(config.Headers) > 0 {
		headers := make(map[string]string, len(config.Headers))
		for key, value := range config.Headers {
			headers[key] = value
		}

		chain.AddRequestInterceptor(logo.HeaderInterceptor(headers))
	}

	if config.Logger != nil {
		chain.AddRequestInterceptor(logo.LoggingInterceptor(config.Logger))
		chain.AddResponseInterceptor(logo.LoggingResponseInterceptor(config.Logger))
	}

	chain.AddResponseInterceptor(logo.MetricsResponseInterceptor(c.metrics))

	if config.Events != nil {
		publisher, err := c.eventPublisher(ctx, config.Events)
		if err != nil {
			return nil, err
		}

		prefix := config.Events.SubjectPrefix
		if prefix == "" {
			prefix = constants.DefaultEventSubjectPrefix
		}

		chain.AddResponseInterceptor(logo.EventResponseInterceptor(publisher, prefix))
	}

	for _, interceptor := range config.RequestInterceptors {
		chain.AddRequestInterceptor(interceptor)
	}

	for _, interceptor := range config.ResponseInterceptors {
		chain.AddResponseInterceptor(interceptor)
	}

	return chain, nil
}

func (c *Client) eventPublisher(ctx context.Context, config *logo.EventsConfig) (logo.EventPublisher, error) {
	if config.Publisher != nil {
		return config.Publisher, nil
	}

	if config.NATSURL == "" {
		return nil, fmt.Errorf("%w: events need a NATS URL or a publisher", logo.ErrConfigRequired)
	}

	err := ctx.Err()
	if err != nil {
		return nil, fmt.Errorf("connecting event publisher: %w", err)
	}

	publisher, err := events.Connect(config.NATSURL)
	if err != nil {
		return nil, err
	}

	c.publisher = publisher

	return publisher, nil
}

func (c *Client) initializeEntityClients() {
	c.entities = make(map[string]*EntityClient)

	for _, name := range c.catalog.Entities() {
		entity, _ := c.catalog.Entity(name)
		c.entities[name] = NewEntityClient(c, entity)
	}
}

// Request implements logo.Requester.
func (c *Client) Request(ctx context.Context, method logo.Method, path string, body any) (*logo.Result, error) {
	if c.closed.Load() {
		return nil, logo.ErrClientClosed
	}

	return c.dispatcher.Request(ctx, method, path, body)
}

// Entity implements logo.Client.Entity.
func (c *Client) Entity(name string) (logo.EntityClient, error) {
	entity, ok := c.entities[name]
	if !ok {
		_, err := c.catalog.Entity(name)

		return nil, err
	}

	return entity, nil
}

// Entities implements logo.Client.Entities.
func (c *Client) Entities() []string {
	return c.catalog.Entities()
}

// Metrics returns the per-endpoint request metrics.
func (c *Client) Metrics() *logo.MetricsCollector {
	return c.metrics
}

// GetTokenManager returns the token manager for this client.
func (c *Client) GetTokenManager() http.TokenManager {
	return c.tokenManager
}

// Close releases the event publisher. Requests after Close fail with
// logo.ErrClientClosed.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		if c.publisher != nil {
			c.closeErr = c.publisher.Close()
		}
	})

	return c.closeErr
}
