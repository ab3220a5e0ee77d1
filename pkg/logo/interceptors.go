package logo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Metadata keys set by the dispatcher.
const (
	MetadataEntity    = "entity"
	MetadataAction    = "action"
	MetadataRequestID = "request_id"
	MetadataStartTime = "start_time"
)

// Request represents an HTTP request that can be intercepted.
type Request struct {
	Method   string
	Path     string
	Headers  http.Header
	Body     []byte
	Metadata map[string]interface{}
}

// Response represents an HTTP response that can be intercepted.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Error      error
}

// RequestInterceptor is called before a request is sent.
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseInterceptor is called after a response is received.
type ResponseInterceptor func(ctx context.Context, req *Request, resp *Response) error

// InterceptorChain manages a chain of interceptors. It is built once and
// must not be modified while requests are in flight.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain creates a new interceptor chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{
		requestInterceptors:  make([]RequestInterceptor, 0),
		responseInterceptors: make([]ResponseInterceptor, 0),
	}
}

// AddRequestInterceptor adds a request interceptor to the chain.
func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, interceptor)
}

// AddResponseInterceptor adds a response interceptor to the chain.
func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, interceptor)
}

// ExecuteRequestInterceptors runs all request interceptors.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *Request) error {
	for _, interceptor := range c.requestInterceptors {
		err := interceptor(ctx, req)
		if err != nil {
			return fmt.Errorf("request interceptor failed: %w", err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors runs all response interceptors.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *Request, resp *Response) error {
	for _, interceptor := range c.responseInterceptors {
		err := interceptor(ctx, req, resp)
		if err != nil {
			return fmt.Errorf("response interceptor failed: %w", err)
		}
	}

	return nil
}

// Operation names the logical call behind a request.
type Operation struct {
	Entity string
	Action string
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const operationKey contextKey = "operation"

// WithOperation annotates ctx with the entity and action being called.
func WithOperation(ctx context.Context, entity, action string) context.Context {
	return context.WithValue(ctx, operationKey, Operation{Entity: entity, Action: action})
}

// OperationFromContext returns the operation set by WithOperation.
func OperationFromContext(ctx context.Context) (Operation, bool) {
	op, ok := ctx.Value(operationKey).(Operation)

	return op, ok
}

const singleResourceKey contextKey = "single_resource"

// WithSingleResource marks requests made with ctx as addressing one resource.
// Their body is returned as is and never read as a collection envelope, even
// when the resource id is not numeric.
func WithSingleResource(ctx context.Context) context.Context {
	return context.WithValue(ctx, singleResourceKey, true)
}

// IsSingleResource reports whether ctx was marked by WithSingleResource.
func IsSingleResource(ctx context.Context) bool {
	single, _ := ctx.Value(singleResourceKey).(bool)

	return single
}

// Common Interceptors

// LoggingInterceptor logs requests.
func LoggingInterceptor(logger Logger) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		logger.Debug("API Request", map[string]interface{}{
			"method":     req.Method,
			"path":       req.Path,
			"request_id": req.Metadata[MetadataRequestID],
		})

		return nil
	}
}

// LoggingResponseInterceptor logs responses.
func LoggingResponseInterceptor(logger Logger) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		fields := map[string]interface{}{
			"method":      req.Method,
			"path":        req.Path,
			"status_code": resp.StatusCode,
			"request_id":  req.Metadata[MetadataRequestID],
		}

		if start, ok := req.Metadata[MetadataStartTime].(time.Time); ok {
			fields["duration_ms"] = time.Since(start).Milliseconds()
		}

		if resp.Error != nil {
			fields["error"] = resp.Error.Error()
			logger.Error("API Response Error", fields)
		} else {
			logger.Debug("API Response", fields)
		}

		return nil
	}
}

// HeaderInterceptor adds custom headers to requests.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		for key, value := range headers {
			req.Headers.Set(key, value)
		}

		return nil
	}
}

// RequestIDInterceptor tags each request with a fresh UUID in header.
func RequestIDInterceptor(header string) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		id := req.Headers.Get(header)
		if id == "" {
			id = uuid.NewString()
			req.Headers.Set(header, id)
		}

		req.Metadata[MetadataRequestID] = id

		return nil
	}
}

// Metrics holds counters for one endpoint.
type Metrics struct {
	TotalRequests   int64
	TotalErrors     int64
	TotalLatency    time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time
}

// MetricsCollector collects API metrics keyed by "METHOD entity".
type MetricsCollector struct {
	mu       sync.Mutex
	metrics  map[string]*Metrics
	onChange func(endpoint string, metrics Metrics)
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics: make(map[string]*Metrics),
	}
}

// SetOnChange sets a callback for when metrics change.
func (m *MetricsCollector) SetOnChange(fn func(endpoint string, metrics Metrics)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onChange = fn
}

// GetMetrics returns a snapshot of the metrics for an endpoint.
func (m *MetricsCollector) GetMetrics(endpoint string) (Metrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if metrics, ok := m.metrics[endpoint]; ok {
		return *metrics, true
	}

	return Metrics{}, false
}

// Endpoints returns the endpoints seen so far.
func (m *MetricsCollector) Endpoints() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	endpoints := make([]string, 0, len(m.metrics))
	for endpoint := range m.metrics {
		endpoints = append(endpoints, endpoint)
	}

	return endpoints
}

func (m *MetricsCollector) record(endpoint string, latency time.Duration, failed bool) {
	m.mu.Lock()

	metrics, ok := m.metrics[endpoint]
	if !ok {
		metrics = &Metrics{}
		m.metrics[endpoint] = metrics
	}

	metrics.TotalRequests++
	metrics.LastRequestTime = time.Now()
	metrics.TotalLatency += latency
	metrics.AverageLatency = metrics.TotalLatency / time.Duration(metrics.TotalRequests)

	if failed {
		metrics.TotalErrors++
	}

	snapshot := *metrics
	onChange := m.onChange

	m.mu.Unlock()

	if onChange != nil {
		onChange(endpoint, snapshot)
	}
}

// MetricsRequestInterceptor records request start time.
func MetricsRequestInterceptor(collector *MetricsCollector) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		if _, ok := req.Metadata[MetadataStartTime]; !ok {
			req.Metadata[MetadataStartTime] = time.Now()
		}

		return nil
	}
}

// MetricsResponseInterceptor records response metrics.
func MetricsResponseInterceptor(collector *MetricsCollector) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		endpoint := fmt.Sprintf("%s %s", req.Method, entityOf(req))

		var latency time.Duration
		if start, ok := req.Metadata[MetadataStartTime].(time.Time); ok {
			latency = time.Since(start)
		}

		collector.record(endpoint, latency, resp.Error != nil || resp.StatusCode >= http.StatusBadRequest)

		return nil
	}
}

// EventPublisher publishes an encoded event on a subject.
type EventPublisher interface {
	Publish(subject string, data []byte) error
}

// ChangeEvent is published after a successful mutating call.
type ChangeEvent struct {
	Entity     string    `json:"entity"`
	Action     string    `json:"action"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	RequestID  string    `json:"request_id,omitempty"`
	Time       time.Time `json:"time"`
}

// Subject returns the subject the event is published on.
func (e ChangeEvent) Subject(prefix string) string {
	return strings.Join([]string{prefix, e.Entity, e.Action}, ".")
}

// EventResponseInterceptor publishes a ChangeEvent for every successful
// POST, PUT, PATCH or DELETE. Publish failures are returned to the caller
// of the chain, which logs them; they never fail the API call.
func EventResponseInterceptor(publisher EventPublisher, prefix string) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		if resp.Error != nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil
		}

		if !Method(req.Method).Mutating() {
			return nil
		}

		event := ChangeEvent{
			Entity:     entityOf(req),
			Action:     actionOf(req),
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Time:       time.Now().UTC(),
		}

		if id, ok := req.Metadata[MetadataRequestID].(string); ok {
			event.RequestID = id
		}

		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encoding change event: %w", err)
		}

		err = publisher.Publish(event.Subject(prefix), data)
		if err != nil {
			return fmt.Errorf("publishing change event: %w", err)
		}

		return nil
	}
}

func entityOf(req *Request) string {
	if entity, ok := req.Metadata[MetadataEntity].(string); ok && entity != "" {
		return entity
	}

	path, _, _ := strings.Cut(strings.TrimPrefix(req.Path, "/"), "?")
	entity, _, _ := strings.Cut(path, "/")

	if entity == "" {
		return "root"
	}

	return entity
}

func actionOf(req *Request) string {
	if action, ok := req.Metadata[MetadataAction].(string); ok && action != "" {
		return action
	}

	return strings.ToLower(req.Method)
}
