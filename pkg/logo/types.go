package logo

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Method is an HTTP method accepted by the dispatcher.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// ParseMethod normalizes a method name.
func ParseMethod(name string) (Method, error) {
	method := Method(strings.ToUpper(strings.TrimSpace(name)))
	if !method.Valid() {
		return "", NewInvalidArgument("method", "unsupported HTTP method %q", name)
	}

	return method, nil
}

// Valid reports whether m is one of the supported methods.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	default:
		return false
	}
}

// Mutating reports whether m changes server state.
func (m Method) Mutating() bool {
	return m.Valid() && m != MethodGet
}

// Record is an entity as returned by the service. Field definitions are
// owned by the vendor; use Decode or List for typed access.
type Record map[string]interface{}

// ListResponse is the envelope of a collection GET.
type ListResponse[T any] struct {
	Data       []T  `json:"data"                 yaml:"data"`
	TotalCount *int `json:"totalCount,omitempty" yaml:"totalCount,omitempty"`
}

// Total returns TotalCount, or the number of items when the service sent no count.
func (l *ListResponse[T]) Total() int {
	if l.TotalCount != nil {
		return *l.TotalCount
	}

	return len(l.Data)
}

// KeyValueParameter is the element returned by vendor actions that do not
// return entities.
type KeyValueParameter struct {
	Key   string `json:"key"   yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Result is the normalized outcome of one dispatched request.
//
// Body holds the JSON document as received (nil for empty responses). List is
// additionally set when a collection GET returned the paginated envelope.
type Result struct {
	StatusCode int
	Body       json.RawMessage
	List       *ListResponse[json.RawMessage]
}

// IsList reports whether the result carries a collection envelope.
func (r *Result) IsList() bool {
	return r != nil && r.List != nil
}

// Decode parses a bare result into T.
func Decode[T any](result *Result) (*T, error) {
	var out T

	if result == nil || len(result.Body) == 0 {
		return &out, nil
	}

	err := json.Unmarshal(result.Body, &out)
	if err != nil {
		return nil, fmt.Errorf("decoding %T: %w", out, err)
	}

	return &out, nil
}

// DecodeList parses a result into a typed envelope. A bare JSON array is
// accepted and reported without a total count.
func DecodeList[T any](result *Result) (*ListResponse[T], error) {
	list := &ListResponse[T]{Data: []T{}}

	if result == nil {
		return list, nil
	}

	if result.List == nil {
		if len(result.Body) == 0 {
			return list, nil
		}

		err := json.Unmarshal(result.Body, &list.Data)
		if err != nil {
			return nil, fmt.Errorf("decoding list: %w", err)
		}

		return list, nil
	}

	list.TotalCount = result.List.TotalCount
	list.Data = make([]T, 0, len(result.List.Data))

	for index, raw := range result.List.Data {
		var item T

		err := json.Unmarshal(raw, &item)
		if err != nil {
			return nil, fmt.Errorf("decoding list item %d: %w", index, err)
		}

		list.Data = append(list.Data, item)
	}

	return list, nil
}

// ActionParams are the named parameters of a vendor action.
type ActionParams map[string]interface{}

// ActionResult is the outcome of a vendor action.
type ActionResult struct {
	StatusCode int                 `json:"status_code"          yaml:"status_code"`
	Parameters []KeyValueParameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Raw        json.RawMessage     `json:"raw,omitempty"        yaml:"-"`
}

// Parameter returns the value of key from Parameters.
func (a *ActionResult) Parameter(key string) (string, bool) {
	for _, param := range a.Parameters {
		if param.Key == key {
			return param.Value, true
		}
	}

	return "", false
}

// ActionInfo describes a vendor action available on an entity.
type ActionInfo struct {
	Name    string   `json:"name"    yaml:"name"`
	Methods []Method `json:"methods" yaml:"methods"`
	Params  []string `json:"params"  yaml:"params"`
	Returns string   `json:"returns" yaml:"returns"`
}
