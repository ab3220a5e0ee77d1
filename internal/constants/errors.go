package constants

import "errors"

// Configuration errors.
var (
	ErrNoAPIConfigured     = errors.New("no API endpoint configured, use 'logo login --api <url>' or set LOGO_API")
	ErrNoRefreshToken      = errors.New("no refresh token available, please run 'logo login' again")
	ErrFailedRetrieveToken = errors.New("failed to retrieve refreshed token")
	ErrUnknownConfigKey    = errors.New("unknown configuration key")
	ErrAPIConfigNotFound   = errors.New("API configuration not found")
	ErrNoNATSURL           = errors.New("no NATS URL configured, use --nats-url or set LOGO_NATS_URL")
)

// Authentication errors.
var (
	ErrNotAuthenticated     = errors.New("not authenticated, use 'logo login' first")
	ErrNoCredentials        = errors.New("no credentials available for token request")
	ErrStaticTokenNoRefresh = errors.New("static token cannot be refreshed")
	ErrNoTokenManager       = errors.New("no token manager configured")
	ErrEmptyAccessToken     = errors.New("token response did not contain an access token")
)

// Catalog errors.
var (
	ErrCatalogInvalid    = errors.New("invalid catalog")
	ErrUnknownEntity     = errors.New("unknown entity")
	ErrUnknownAction     = errors.New("unknown action")
	ErrUnsupportedMethod = errors.New("method not supported for action")
	ErrUnknownActionSet  = errors.New("unknown action set")
	ErrDuplicateEntity   = errors.New("duplicate entity")
	ErrDuplicateAction   = errors.New("duplicate action")
)

// CLI errors.
var (
	ErrInvalidKeyValue    = errors.New("expected KEY=VALUE")
	ErrOutputFileRequired = errors.New("--output-file is required for xlsx output")
	ErrNoBatchOperations  = errors.New("batch file contains no operations")
	ErrBatchHadFailures   = errors.New("one or more batch operations failed")
	ErrDataRequired       = errors.New("--data or --data-file is required")
	ErrInvalidJSON        = errors.New("data is not valid JSON")
	ErrUnknownFormat      = errors.New("unknown output format")
)
