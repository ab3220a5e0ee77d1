package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fivetwenty-io/logo-objects/internal/catalog"
	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

// Operation names attached to requests for logging, metrics and events.
const (
	opGetAll  = "getAll"
	opGetByID = "getById"
	opCreate  = "create"
	opUpdate  = "update"
	opPatch   = "patch"
	opDelete  = "delete"
	opSearch  = "search"
)

// EntityClient implements logo.EntityClient for any catalog entity.
type EntityClient struct {
	requester logo.Requester
	entity    *catalog.Entity
}

// NewEntityClient creates a client for one catalog entity.
func NewEntityClient(requester logo.Requester, entity *catalog.Entity) *EntityClient {
	return &EntityClient{
		requester: requester,
		entity:    entity,
	}
}

// Name returns the entity name.
func (c *EntityClient) Name() string {
	return c.entity.Name
}

// Path returns the collection path.
func (c *EntityClient) Path() string {
	return c.entity.Path
}

func (c *EntityClient) withOperation(ctx context.Context, action string) context.Context {
	return logo.WithOperation(ctx, c.entity.Name, action)
}

// GetAll lists the collection.
func (c *EntityClient) GetAll(ctx context.Context, opts *logo.QueryOptions) (*logo.ListResponse[logo.Record], error) {
	return logo.List[logo.Record](c.withOperation(ctx, opGetAll), c.requester, c.entity.Path, opts)
}

// GetByID fetches one record. Only fields and expand of opts are meaningful.
func (c *EntityClient) GetByID(ctx context.Context, id string, opts *logo.QueryOptions) (logo.Record, error) {
	path, err := c.entity.ItemPath(id)
	if err != nil {
		return nil, err
	}

	query, err := logo.BuildQueryString(opts)
	if err != nil {
		return nil, err
	}

	ctx = logo.WithSingleResource(c.withOperation(ctx, opGetByID))

	record, err := logo.Get[logo.Record](ctx, c.requester, logo.AppendQuery(path, query))
	if err != nil {
		return nil, err
	}

	return *record, nil
}

// Create posts a new record.
func (c *EntityClient) Create(ctx context.Context, record any) (logo.Record, error) {
	if record == nil {
		return nil, logo.NewInvalidArgument("record", "must not be nil")
	}

	return c.send(c.withOperation(ctx, opCreate), logo.MethodPost, c.entity.Path, record)
}

// Update replaces a record.
func (c *EntityClient) Update(ctx context.Context, id string, record any) (logo.Record, error) {
	path, err := c.entity.ItemPath(id)
	if err != nil {
		return nil, err
	}

	if record == nil {
		return nil, logo.NewInvalidArgument("record", "must not be nil")
	}

	return c.send(c.withOperation(ctx, opUpdate), logo.MethodPut, path, record)
}

// Patch applies a partial update.
func (c *EntityClient) Patch(ctx context.Context, id string, changes any) (logo.Record, error) {
	path, err := c.entity.ItemPath(id)
	if err != nil {
		return nil, err
	}

	if changes == nil {
		return nil, logo.NewInvalidArgument("changes", "must not be nil")
	}

	return c.send(c.withOperation(ctx, opPatch), logo.MethodPatch, path, changes)
}

// Delete removes a record.
func (c *EntityClient) Delete(ctx context.Context, id string) error {
	path, err := c.entity.ItemPath(id)
	if err != nil {
		return err
	}

	_, err = c.requester.Request(c.withOperation(ctx, opDelete), logo.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", c.entity.Name, id, err)
	}

	return nil
}

func (c *EntityClient) send(ctx context.Context, method logo.Method, path string, body any) (logo.Record, error) {
	result, err := c.requester.Request(ctx, method, path, body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	record, err := logo.Decode[logo.Record](result)
	if err != nil {
		return nil, &logo.TransportError{Kind: logo.TransportKindDecode, Method: string(method), Path: path, Err: err}
	}

	return *record, nil
}

// Search lists records matching criteria. The generated expression is
// and-ed with any filter already in opts.
func (c *EntityClient) Search(ctx context.Context, criteria logo.SearchCriteria, opts *logo.QueryOptions) (*logo.ListResponse[logo.Record], error) {
	expr, ok, err := c.BuildSearchQuery(criteria)
	if err != nil {
		return nil, err
	}

	query := opts.Clone()

	if ok {
		if query.Q != "" {
			expr = "(" + query.Q + ") and " + expr
		}

		query.WithFilter(expr)
	}

	return logo.List[logo.Record](c.withOperation(ctx, opSearch), c.requester, c.entity.Path, query)
}

// SearchBy searches on a single key.
func (c *EntityClient) SearchBy(ctx context.Context, key string, value any, opts *logo.QueryOptions) (*logo.ListResponse[logo.Record], error) {
	return c.Search(ctx, logo.SearchCriteria{key: value}, opts)
}

// SearchFields returns the declared search keys in order.
func (c *EntityClient) SearchFields() []logo.SearchField {
	return append([]logo.SearchField(nil), c.entity.Search...)
}

// BuildQueryString encodes list options.
func (c *EntityClient) BuildQueryString(opts *logo.QueryOptions) (string, error) {
	return logo.BuildQueryString(opts)
}

// BuildSearchQuery builds the filter expression for this entity's search keys.
func (c *EntityClient) BuildSearchQuery(criteria logo.SearchCriteria) (string, bool, error) {
	return logo.BuildSearchQuery(c.entity.Search, criteria)
}

// Actions describes the vendor actions of the entity.
func (c *EntityClient) Actions() []logo.ActionInfo {
	return c.entity.ActionInfos()
}

// Invoke calls a vendor action. GET embeds params as path segments, POST
// sends them as the body.
func (c *EntityClient) Invoke(ctx context.Context, name string, method logo.Method, params logo.ActionParams) (*logo.ActionResult, error) {
	action, err := c.entity.Lookup(name, method)
	if err != nil {
		return nil, err
	}

	path, body, err := c.entity.Render(action, method, params)
	if err != nil {
		return nil, err
	}

	var payload any
	if body != nil {
		payload = body
	}

	result, err := c.requester.Request(c.withOperation(ctx, name), method, path, payload)
	if err != nil {
		return nil, fmt.Errorf("invoking %s %s: %w", c.entity.Name, name, err)
	}

	actionResult := &logo.ActionResult{
		StatusCode: result.StatusCode,
		Raw:        result.Body,
	}

	if action.Returns == catalog.ReturnsParameters {
		actionResult.Parameters = parseParameters(result.Body)
	}

	return actionResult, nil
}

// parseParameters accepts a [{key, value}] list or a flat object. Values that
// are not strings keep their JSON text. Lists whose elements lack a key, and
// anything else, yield nil.
func parseParameters(body json.RawMessage) []logo.KeyValueParameter {
	if len(body) == 0 {
		return nil
	}

	var list []map[string]json.RawMessage

	err := json.Unmarshal(body, &list)
	if err == nil {
		params := make([]logo.KeyValueParameter, 0, len(list))

		for _, item := range list {
			rawKey, ok := lookupFold(item, "key")
			if !ok {
				return nil
			}

			var key string

			err = json.Unmarshal(rawKey, &key)
			if err != nil {
				return nil
			}

			value, _ := lookupFold(item, "value")
			params = append(params, logo.KeyValueParameter{Key: key, Value: jsonText(value)})
		}

		return params
	}

	var object map[string]json.RawMessage

	err = json.Unmarshal(body, &object)
	if err != nil {
		return nil
	}

	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	params := make([]logo.KeyValueParameter, 0, len(keys))
	for _, key := range keys {
		params = append(params, logo.KeyValueParameter{Key: key, Value: jsonText(object[key])})
	}

	return params
}

func jsonText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var text string

	err := json.Unmarshal(raw, &text)
	if err == nil {
		return text
	}

	return string(raw)
}
