package logo_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

var errTestDial = errors.New("dial tcp: connection refused")

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestNewAPIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		message string
		vendor  bool
	}{
		{name: "rest style", status: http.StatusBadRequest, body: `{"Message":"Code already exists"}`, message: "Code already exists", vendor: true},
		{name: "oauth style", status: http.StatusUnauthorized, body: `{"error":"invalid_grant","error_description":"Bad password"}`, message: "Bad password", vendor: true},
		{name: "oauth code only", status: http.StatusUnauthorized, body: `{"error":"invalid_client"}`, message: "invalid_client", vendor: true},
		{name: "not json", status: http.StatusBadGateway, body: `<html>`, message: "Bad Gateway"},
		{name: "empty", status: http.StatusNotFound, body: ``, message: "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := logo.NewAPIError(tt.status, http.MethodGet, "/items/1", []byte(tt.body))
			assert.Equal(t, fmt.Sprintf("GET /items/1: %s (status: %d)", tt.message, tt.status), err.Error())
			assert.Equal(t, tt.status, logo.StatusCode(err))
			assert.ErrorIs(t, err, logo.ErrAPI)

			if !tt.vendor {
				assert.Nil(t, err.Vendor)
				assert.Empty(t, err.Payload)

				return
			}

			require.NotNil(t, err.Vendor)
			assert.Equal(t, tt.message, err.Vendor.Text())
			assert.JSONEq(t, tt.body, string(err.Payload))
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	t.Parallel()

	notFound := fmt.Errorf("wrapped: %w", logo.NewAPIError(http.StatusNotFound, "GET", "/x/1", nil))
	assert.True(t, logo.IsNotFound(notFound))
	assert.False(t, logo.IsUnauthorized(notFound))
	assert.False(t, logo.IsTransport(notFound))

	assert.True(t, logo.IsUnauthorized(logo.NewAPIError(http.StatusUnauthorized, "GET", "/x", nil)))
	assert.True(t, logo.IsForbidden(logo.NewAPIError(http.StatusForbidden, "GET", "/x", nil)))

	invalid := logo.NewInvalidArgument("limit", "must be a non-negative integer, got %d", -1)
	assert.True(t, logo.IsInvalidArgument(fmt.Errorf("listing: %w", invalid)))
	assert.Equal(t, "invalid argument limit: must be a non-negative integer, got -1", invalid.Error())
	assert.Equal(t, 0, logo.StatusCode(invalid))
}

func TestNewTransportError(t *testing.T) {
	t.Parallel()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context //nolint:containedctx // table input
		err  error
		kind logo.TransportErrorKind
	}{
		{name: "connection", ctx: context.Background(), err: errTestDial, kind: logo.TransportKindConnection},
		{name: "cancelled error", ctx: context.Background(), err: fmt.Errorf("request failed: %w", context.Canceled), kind: logo.TransportKindCancelled},
		{name: "cancelled context", ctx: cancelled, err: errTestDial, kind: logo.TransportKindCancelled},
		{name: "deadline", ctx: context.Background(), err: context.DeadlineExceeded, kind: logo.TransportKindTimeout},
		{name: "net timeout", ctx: context.Background(), err: fmt.Errorf("read: %w", timeoutErr{}), kind: logo.TransportKindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := logo.NewTransportError(tt.ctx, "GET", "/items", tt.err)
			assert.Equal(t, tt.kind, err.Kind)
			assert.True(t, logo.IsTransport(err))
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.kind == logo.TransportKindCancelled, logo.IsCancelled(err))
		})
	}
}
