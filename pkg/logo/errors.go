package logo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Static errors for err113 compliance.
var (
	// ErrInvalidArgument is matched by every InvalidArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTransport is matched by every TransportError.
	ErrTransport = errors.New("transport error")
	// ErrAPI is matched by every APIError.
	ErrAPI = errors.New("api error")

	ErrConfigRequired      = errors.New("config is required")
	ErrAPIEndpointRequired = errors.New("API endpoint is required")
	ErrNoMoreItems         = errors.New("no more items")
	ErrMaxPagesReached     = errors.New("page limit reached before the end of the collection")
	ErrClientClosed        = errors.New("client is closed")
)

// InvalidArgumentError reports caller input rejected before any network call.
type InvalidArgumentError struct {
	Argument string
	Reason   string
}

// Error implements the error interface.
func (e *InvalidArgumentError) Error() string {
	if e.Argument == "" {
		return "invalid argument: " + e.Reason
	}

	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Reason)
}

// Is lets errors.Is match ErrInvalidArgument.
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// NewInvalidArgument builds an InvalidArgumentError with a formatted reason.
func NewInvalidArgument(argument, format string, args ...interface{}) *InvalidArgumentError {
	return &InvalidArgumentError{Argument: argument, Reason: fmt.Sprintf(format, args...)}
}

// VendorError is the error body returned by the Logo Objects service.
//
// The service is not consistent about casing or shape, so both the REST
// style ({"Message": ...}) and the OAuth style ({"error": ...,
// "error_description": ...}) bodies are accepted.
type VendorError struct {
	Message          string                 `json:"message,omitempty"           yaml:"message,omitempty"`
	Error            string                 `json:"error,omitempty"             yaml:"error,omitempty"`
	ErrorDescription string                 `json:"error_description,omitempty" yaml:"error_description,omitempty"`
	ModelState       map[string]interface{} `json:"modelState,omitempty"        yaml:"modelState,omitempty"`
}

// Text returns the most descriptive message the body carries.
func (v *VendorError) Text() string {
	switch {
	case v == nil:
		return ""
	case v.Message != "":
		return v.Message
	case v.ErrorDescription != "":
		return v.ErrorDescription
	default:
		return v.Error
	}
}

// APIError is returned when the service answered with a non-2xx status.
type APIError struct {
	StatusCode int             `json:"status_code"       yaml:"status_code"`
	Method     string          `json:"method"            yaml:"method"`
	Path       string          `json:"path"              yaml:"path"`
	Payload    json.RawMessage `json:"payload,omitempty" yaml:"-"`
	Vendor     *VendorError    `json:"vendor,omitempty"  yaml:"vendor,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Vendor.Text()
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}

	return fmt.Sprintf("%s %s: %s (status: %d)", e.Method, e.Path, msg, e.StatusCode)
}

// Is lets errors.Is match ErrAPI.
func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}

// NewAPIError builds an APIError and parses the vendor payload when it is JSON.
func NewAPIError(statusCode int, method, path string, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Method:     method,
		Path:       path,
	}

	if len(body) > 0 && json.Valid(body) {
		apiErr.Payload = json.RawMessage(body)

		vendor, err := ParseVendorError(body)
		if err == nil {
			apiErr.Vendor = vendor
		}
	}

	return apiErr
}

// ParseVendorError parses an error response from JSON.
func ParseVendorError(data []byte) (*VendorError, error) {
	var vendor VendorError

	err := json.Unmarshal(data, &vendor)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal vendor error: %w", err)
	}

	return &vendor, nil
}

// TransportErrorKind classifies a failed round trip.
type TransportErrorKind string

const (
	// TransportKindConnection covers DNS, refused connections and resets.
	TransportKindConnection TransportErrorKind = "connection"
	// TransportKindTimeout is a deadline or client timeout.
	TransportKindTimeout TransportErrorKind = "timeout"
	// TransportKindCancelled is a caller cancellation.
	TransportKindCancelled TransportErrorKind = "cancelled"
	// TransportKindDecode is a 2xx response whose body could not be parsed.
	TransportKindDecode TransportErrorKind = "decode"
	// TransportKindRejected is a request stopped by a request interceptor.
	TransportKindRejected TransportErrorKind = "rejected"
)

// TransportError is returned when a request could not complete.
type TransportError struct {
	Kind   TransportErrorKind
	Method string
	Path   string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// NewTransportError classifies err and wraps it.
func NewTransportError(ctx context.Context, method, path string, err error) *TransportError {
	return &TransportError{
		Kind:   classifyTransportError(ctx, err),
		Method: method,
		Path:   path,
		Err:    err,
	}
}

type timeoutError interface {
	Timeout() bool
}

func classifyTransportError(ctx context.Context, err error) TransportErrorKind {
	if errors.Is(err, context.Canceled) || (ctx != nil && errors.Is(ctx.Err(), context.Canceled)) {
		return TransportKindCancelled
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return TransportKindTimeout
	}

	var timeout timeoutError
	if errors.As(err, &timeout) && timeout.Timeout() {
		return TransportKindTimeout
	}

	return TransportKindConnection
}

// IsInvalidArgument reports whether err was caused by rejected input.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsCancelled reports whether err is a TransportError caused by cancellation.
func IsCancelled(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Kind == TransportKindCancelled
	}

	return false
}

// StatusCode returns the HTTP status of an APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}

	return 0
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}
