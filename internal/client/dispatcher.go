package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	internalhttp "github.com/fivetwenty-io/logo-objects/internal/http"
	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

// Transport performs one HTTP round trip. *internalhttp.Client satisfies it.
type Transport interface {
	Do(ctx context.Context, req *internalhttp.Request) (*internalhttp.Response, error)
}

// Dispatcher executes requests and normalizes their results. It holds no
// mutable state and is safe for concurrent use.
type Dispatcher struct {
	transport Transport
	chain     *logo.InterceptorChain
	logger    logo.Logger
}

// NewDispatcher creates a dispatcher. chain and logger may be nil.
func NewDispatcher(transport Transport, chain *logo.InterceptorChain, logger logo.Logger) *Dispatcher {
	if chain == nil {
		chain = logo.NewInterceptorChain()
	}

	if logger == nil {
		logger = noopLogger{}
	}

	return &Dispatcher{
		transport: transport,
		chain:     chain,
		logger:    logger,
	}
}

// Request implements logo.Requester.
//
// path is relative to the API endpoint and carries any query string already
// encoded. Input errors are returned before the transport is called.
func (d *Dispatcher) Request(ctx context.Context, method logo.Method, path string, body any) (*logo.Result, error) {
	if !method.Valid() {
		return nil, logo.NewInvalidArgument("method", "unsupported HTTP method %q", method)
	}

	err := validatePath(path)
	if err != nil {
		return nil, err
	}

	payload, err := encodePayload(body)
	if err != nil {
		return nil, err
	}

	req := &logo.Request{
		Method:   string(method),
		Path:     path,
		Headers:  make(http.Header),
		Body:     payload,
		Metadata: map[string]interface{}{logo.MetadataStartTime: time.Now()},
	}

	if op, ok := logo.OperationFromContext(ctx); ok {
		req.Metadata[logo.MetadataEntity] = op.Entity
		req.Metadata[logo.MetadataAction] = op.Action
	}

	err = d.chain.ExecuteRequestInterceptors(ctx, req)
	if err != nil {
		return nil, &logo.TransportError{Kind: logo.TransportKindRejected, Method: req.Method, Path: req.Path, Err: err}
	}

	resp, err := d.transport.Do(ctx, &internalhttp.Request{
		Method:  req.Method,
		Path:    req.Path,
		Body:    bodyOrNil(req.Body),
		Headers: flattenHeaders(req.Headers),
	})
	if err != nil {
		failure := d.classify(ctx, req, err)
		d.afterResponse(ctx, req, &logo.Response{Error: failure})

		return nil, failure
	}

	d.afterResponse(ctx, req, &logo.Response{StatusCode: resp.StatusCode, Headers: resp.Headers, Body: resp.Body})

	d.logger.Debug("dispatched", map[string]interface{}{
		"method": req.Method,
		"path":   req.Path,
		"status": resp.StatusCode,
	})

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, logo.NewAPIError(resp.StatusCode, req.Method, req.Path, resp.Body)
	}

	return normalize(ctx, method, req.Path, resp)
}

func (d *Dispatcher) classify(ctx context.Context, req *logo.Request, err error) error {
	var apiErr *logo.APIError
	if errors.As(err, &apiErr) {
		return err
	}

	return logo.NewTransportError(ctx, req.Method, req.Path, err)
}

func (d *Dispatcher) afterResponse(ctx context.Context, req *logo.Request, resp *logo.Response) {
	err := d.chain.ExecuteResponseInterceptors(ctx, req, resp)
	if err != nil {
		d.logger.Warn("response interceptor failed", map[string]interface{}{
			"method": req.Method,
			"path":   req.Path,
			"error":  err.Error(),
		})
	}
}

func normalize(ctx context.Context, method logo.Method, path string, resp *internalhttp.Response) (*logo.Result, error) {
	result := &logo.Result{StatusCode: resp.StatusCode}

	trimmed := bytes.TrimSpace(resp.Body)
	if len(trimmed) == 0 {
		return result, nil
	}

	if !json.Valid(trimmed) {
		return nil, &logo.TransportError{
			Kind:   logo.TransportKindDecode,
			Method: string(method),
			Path:   path,
			Err:    fmt.Errorf("response is not JSON (status %d, %d bytes)", resp.StatusCode, len(trimmed)),
		}
	}

	result.Body = json.RawMessage(trimmed)

	if method == logo.MethodGet && !logo.IsSingleResource(ctx) && isCollectionPath(path) {
		list, ok := parseEnvelope(trimmed)
		if ok {
			result.List = list
		}
	}

	return result, nil
}

// isCollectionPath reports whether the last path segment is not a numeric id.
// Requests for string ids are marked with logo.WithSingleResource instead.
func isCollectionPath(path string) bool {
	path, _, _ = strings.Cut(path, "?")
	path = strings.TrimSuffix(path, "/")

	last := path[strings.LastIndex(path, "/")+1:]
	if last == "" {
		return false
	}

	_, err := strconv.ParseInt(last, 10, 64)

	return err != nil
}

// parseEnvelope recognizes {"data": [...], "totalCount": n}. The vendor also
// answers with "items" and "count"; keys are matched case-insensitively.
func parseEnvelope(body []byte) (*logo.ListResponse[json.RawMessage], bool) {
	if body[0] != '{' {
		return nil, false
	}

	var fields map[string]json.RawMessage

	err := json.Unmarshal(body, &fields)
	if err != nil {
		return nil, false
	}

	rawData, ok := lookupFold(fields, "data", "items")
	if !ok {
		return nil, false
	}

	list := &logo.ListResponse[json.RawMessage]{}

	err = json.Unmarshal(rawData, &list.Data)
	if err != nil {
		return nil, false
	}

	if list.Data == nil {
		list.Data = []json.RawMessage{}
	}

	if rawCount, found := lookupFold(fields, "totalCount", "count"); found {
		var count int

		err = json.Unmarshal(rawCount, &count)
		if err == nil && count >= 0 {
			list.TotalCount = &count
		}
	}

	return list, true
}

// lookupFold returns the first of names present in fields. An exact match
// wins; otherwise the case-insensitive match that sorts first is used.
func lookupFold(fields map[string]json.RawMessage, names ...string) (json.RawMessage, bool) {
	for _, name := range names {
		if value, ok := fields[name]; ok {
			return value, true
		}

		matches := make([]string, 0, 1)

		for key := range fields {
			if strings.EqualFold(key, name) {
				matches = append(matches, key)
			}
		}

		if len(matches) > 0 {
			sort.Strings(matches)

			return fields[matches[0]], true
		}
	}

	return nil, false
}

func validatePath(path string) error {
	switch {
	case path == "":
		return logo.NewInvalidArgument("path", "must not be empty")
	case !strings.HasPrefix(path, "/"):
		return logo.NewInvalidArgument("path", "%q must start with '/'", path)
	case strings.HasPrefix(path, "//"):
		return logo.NewInvalidArgument("path", "%q must be relative to the API endpoint", path)
	case strings.ContainsAny(path, " \t\r\n"):
		return logo.NewInvalidArgument("path", "%q contains whitespace", path)
	}

	return nil
}

func encodePayload(body any) ([]byte, error) {
	switch value := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return value, nil
	case json.RawMessage:
		return value, nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, logo.NewInvalidArgument("body", "cannot be encoded as JSON: %v", err)
		}

		return data, nil
	}
}

func bodyOrNil(body []byte) interface{} {
	if body == nil {
		return nil
	}

	return body
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}

	flat := make(map[string]string, len(headers))
	for key := range headers {
		flat[key] = headers.Get(key)
	}

	return flat
}

type noopLogger struct{}

func (noopLogger) Debug(string, map[string]interface{}) {}
func (noopLogger) Info(string, map[string]interface{})  {}
func (noopLogger) Warn(string, map[string]interface{})  {}
func (noopLogger) Error(string, map[string]interface{}) {}
