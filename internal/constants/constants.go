package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations such as token requests.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits used by the transport. Retries are off unless configured.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 0

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Concurrency and batching limits.
const (
	// DefaultConcurrencyLimit limits concurrent batch operations.
	DefaultConcurrencyLimit = 5

	// MaxConcurrencyLimit caps the batch executor concurrency.
	MaxConcurrencyLimit = 64
)

// Pagination limits.
const (
	// DefaultPageSize is the page size used by the pagination iterator.
	DefaultPageSize = 50

	// MaxPageSize is the largest page the iterator will request.
	MaxPageSize = 1000

	// DefaultMaxPages is the page limit of DefaultPaginationOptions; zero
	// fetches every page.
	DefaultMaxPages = 0
)

// Authentication.
const (
	// TokenExpirationBuffer is the buffer time before token expiration.
	TokenExpirationBuffer = 30 * time.Second

	// TokenPath is appended to the API endpoint when no token URL is configured.
	TokenPath = "/token"

	// FirmNoParam is the vendor specific token request parameter selecting the firm.
	FirmNoParam = "firmno"
)

// Headers.
const (
	// HeaderRequestID carries the per-call request identifier.
	HeaderRequestID = "X-Request-ID"

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "logo-objects-go/1.0"
)

// Events.
const (
	// DefaultEventSubjectPrefix is the NATS subject prefix for change events.
	DefaultEventSubjectPrefix = "logo.objects"

	// EventClientName is the NATS connection name.
	EventClientName = "logo-objects-client"
)

// Format constants.
const (
	// FormatTable for table output format.
	FormatTable = "table"

	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatXLSX for spreadsheet output format.
	FormatXLSX = "xlsx"

	// JSONIndentSize is the indent used for YAML and JSON output.
	JSONIndentSize = 2
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// CheckMarkSymbol is used to indicate current/active items.
	CheckMarkSymbol = "✓"

	// MaxCellWidth truncates long values in table output.
	MaxCellWidth = 60
)
