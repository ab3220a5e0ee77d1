package logo

import (
	"context"
	"fmt"
	"time"
)

// Well-known entity names shipped in the default catalog.
const (
	EntityCountries     = "countries"
	EntityTowns         = "towns"
	EntityCities        = "cities"
	EntityProjects      = "projects"
	EntityGroupCodes    = "groupCodes"
	EntityFreeZones     = "freeZones"
	EntitySpecialCodes  = "specialCodes"
	EntityEmployeeCosts = "employeeCosts"
	EntitySalesExpenses = "salesExpenses"
	EntityUnits         = "units"
	EntityItems         = "items"
	EntityArps          = "arps"
)

// Requester dispatches a single request. It is the contract every entity
// client is built on.
type Requester interface {
	Request(ctx context.Context, method Method, path string, body any) (*Result, error)
}

// EntityClient exposes CRUD, search and vendor actions for one entity.
type EntityClient interface {
	Name() string
	Path() string

	GetAll(ctx context.Context, opts *QueryOptions) (*ListResponse[Record], error)
	GetByID(ctx context.Context, id string, opts *QueryOptions) (Record, error)
	Create(ctx context.Context, record any) (Record, error)
	Update(ctx context.Context, id string, record any) (Record, error)
	Patch(ctx context.Context, id string, changes any) (Record, error)
	Delete(ctx context.Context, id string) error

	Search(ctx context.Context, criteria SearchCriteria, opts *QueryOptions) (*ListResponse[Record], error)
	SearchBy(ctx context.Context, key string, value any, opts *QueryOptions) (*ListResponse[Record], error)
	SearchFields() []SearchField
	BuildQueryString(opts *QueryOptions) (string, error)
	BuildSearchQuery(criteria SearchCriteria) (string, bool, error)

	Actions() []ActionInfo
	Invoke(ctx context.Context, action string, method Method, params ActionParams) (*ActionResult, error)
}

// Client is the Logo Objects API client.
type Client interface {
	Requester

	Entity(name string) (EntityClient, error)
	Entities() []string
	Close() error
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// EventsConfig enables change-event publishing to NATS.
type EventsConfig struct {
	// NATSURL is the server to publish to, e.g. "nats://127.0.0.1:4222".
	NATSURL string
	// SubjectPrefix is prepended to "<entity>.<action>". Defaults to "logo.objects".
	SubjectPrefix string
	// Publisher overrides the NATS connection, mainly for tests.
	Publisher EventPublisher
}

// Config represents client configuration for building a Client.
//
// # Authentication precedence
//
//  1. AccessToken: used directly as a static Bearer token. If a RefreshToken
//     or Username/Password is also set, it is replaced once it is rejected.
//  2. Username/Password (+ FirmNo): OAuth2 password grant against TokenURL.
//  3. ClientID/ClientSecret: OAuth2 client_credentials grant.
//  4. No credentials: requests are sent without authentication.
//
// TokenURL defaults to APIEndpoint + "/token".
//
// The client copies Config on construction; later changes have no effect.
type Config struct {
	// APIEndpoint: base URL of the REST service including its base path,
	// e.g. "https://erp.example.com/api/v1".
	APIEndpoint string

	AccessToken  string
	RefreshToken string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	// FirmNo selects the company the token is issued for.
	FirmNo string

	// RequestTimeout bounds each HTTP round trip. Zero uses the default.
	// Per-call deadlines should be set on the context.
	RequestTimeout time.Duration
	// RetryMax enables transport retries for 5xx, 429 and connection errors.
	// Zero disables retries.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Debug enables request/response logging in the transport.
	Debug  bool
	Logger Logger
	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// Headers are sent with every request.
	Headers map[string]string

	// RequestInterceptors and ResponseInterceptors run around every request,
	// after the built-in ones.
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor

	// Catalog replaces the embedded entity/action catalog (YAML).
	Catalog []byte

	// Events enables change-event publishing.
	Events *EventsConfig
}

// List fetches a collection path and decodes it into T.
func List[T any](ctx context.Context, requester Requester, path string, opts *QueryOptions) (*ListResponse[T], error) {
	query, err := BuildQueryString(opts)
	if err != nil {
		return nil, err
	}

	result, err := requester.Request(ctx, MethodGet, AppendQuery(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", path, err)
	}

	list, err := DecodeList[T](result)
	if err != nil {
		return nil, &TransportError{Kind: TransportKindDecode, Method: string(MethodGet), Path: path, Err: err}
	}

	return list, nil
}

// Get fetches a single resource and decodes it into T.
func Get[T any](ctx context.Context, requester Requester, path string) (*T, error) {
	result, err := requester.Request(ctx, MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", path, err)
	}

	out, err := Decode[T](result)
	if err != nil {
		return nil, &TransportError{Kind: TransportKindDecode, Method: string(MethodGet), Path: path, Err: err}
	}

	return out, nil
}
