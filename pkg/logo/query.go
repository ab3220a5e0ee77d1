package logo

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Query string keys, emitted in this order.
const (
	QueryKeyLimit  = "limit"
	QueryKeyOffset = "offset"
	QueryKeyFields = "fields"
	QueryKeySort   = "sort"
	QueryKeyQ      = "q"
	QueryKeyCount  = "count"
	QueryKeyExpand = "expand"
)

// SortDirection is the direction of a sort.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// SortOptions orders results by Fields in Direction. An empty Direction is asc.
type SortOptions struct {
	Fields    []string      `json:"fields"              yaml:"fields"`
	Direction SortDirection `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// QueryOptions are the list options understood by every collection endpoint.
//
// A nil pointer or empty slice means the option is absent and is not sent.
type QueryOptions struct {
	Limit  *int         `json:"limit,omitempty"  yaml:"limit,omitempty"`
	Offset *int         `json:"offset,omitempty" yaml:"offset,omitempty"`
	Fields []string     `json:"fields,omitempty" yaml:"fields,omitempty"`
	Sort   *SortOptions `json:"sort,omitempty"   yaml:"sort,omitempty"`
	Q      string       `json:"q,omitempty"      yaml:"q,omitempty"`
	Count  *bool        `json:"count,omitempty"  yaml:"count,omitempty"`
	Expand []string     `json:"expand,omitempty" yaml:"expand,omitempty"`
}

// NewQueryOptions creates empty query options.
func NewQueryOptions() *QueryOptions {
	return &QueryOptions{}
}

// WithLimit sets the page size.
func (o *QueryOptions) WithLimit(limit int) *QueryOptions {
	o.Limit = &limit

	return o
}

// WithOffset sets the number of records to skip.
func (o *QueryOptions) WithOffset(offset int) *QueryOptions {
	o.Offset = &offset

	return o
}

// WithFields replaces the selected fields.
func (o *QueryOptions) WithFields(fields ...string) *QueryOptions {
	o.Fields = fields

	return o
}

// WithSort replaces the sort.
func (o *QueryOptions) WithSort(direction SortDirection, fields ...string) *QueryOptions {
	o.Sort = &SortOptions{Fields: fields, Direction: direction}

	return o
}

// WithFilter sets the free-form filter expression.
func (o *QueryOptions) WithFilter(q string) *QueryOptions {
	o.Q = q

	return o
}

// WithCount asks the service to include the total count.
func (o *QueryOptions) WithCount(count bool) *QueryOptions {
	o.Count = &count

	return o
}

// WithExpand appends relations to expand.
func (o *QueryOptions) WithExpand(relations ...string) *QueryOptions {
	o.Expand = append(o.Expand, relations...)

	return o
}

// Clone returns a deep copy so callers can derive options without sharing slices.
func (o *QueryOptions) Clone() *QueryOptions {
	if o == nil {
		return NewQueryOptions()
	}

	clone := &QueryOptions{
		Q:      o.Q,
		Fields: append([]string(nil), o.Fields...),
		Expand: append([]string(nil), o.Expand...),
	}

	if o.Limit != nil {
		clone.WithLimit(*o.Limit)
	}

	if o.Offset != nil {
		clone.WithOffset(*o.Offset)
	}

	if o.Count != nil {
		clone.WithCount(*o.Count)
	}

	if o.Sort != nil {
		clone.WithSort(o.Sort.Direction, append([]string(nil), o.Sort.Fields...)...)
	}

	if len(clone.Fields) == 0 {
		clone.Fields = nil
	}

	if len(clone.Expand) == 0 {
		clone.Expand = nil
	}

	return clone
}

// Validate checks the options without encoding them.
func (o *QueryOptions) Validate() error {
	if o == nil {
		return nil
	}

	if o.Limit != nil && *o.Limit < 0 {
		return NewInvalidArgument(QueryKeyLimit, "must be a non-negative integer, got %d", *o.Limit)
	}

	if o.Offset != nil && *o.Offset < 0 {
		return NewInvalidArgument(QueryKeyOffset, "must be a non-negative integer, got %d", *o.Offset)
	}

	err := validateIdentifiers(QueryKeyFields, o.Fields, true)
	if err != nil {
		return err
	}

	if o.Sort != nil {
		if len(o.Sort.Fields) == 0 {
			return NewInvalidArgument(QueryKeySort, "at least one field is required")
		}

		err = validateIdentifiers(QueryKeySort, o.Sort.Fields, true)
		if err != nil {
			return err
		}

		switch o.Sort.Direction {
		case "", SortAsc, SortDesc:
		default:
			return NewInvalidArgument(QueryKeySort, "unknown direction %q", o.Sort.Direction)
		}
	}

	return validateIdentifiers(QueryKeyExpand, o.Expand, false)
}

func validateIdentifiers(argument string, names []string, unique bool) error {
	seen := make(map[string]struct{}, len(names))

	for _, name := range names {
		if !identifierPattern.MatchString(name) {
			return NewInvalidArgument(argument, "%q is not a valid identifier", name)
		}

		if _, dup := seen[name]; dup && unique {
			return NewInvalidArgument(argument, "duplicate %q", name)
		}

		seen[name] = struct{}{}
	}

	return nil
}

// Encode returns the canonical query string, see BuildQueryString.
func (o *QueryOptions) Encode() (string, error) {
	return BuildQueryString(o)
}

// BuildQueryString encodes opts as a query string without the leading '?'.
//
// Keys always appear in the order limit, offset, fields, sort, q, count,
// expand, so equal options always produce byte-identical output. Sort is a
// single token of the comma separated fields, a space and the direction.
func BuildQueryString(opts *QueryOptions) (string, error) {
	if opts == nil {
		return "", nil
	}

	err := opts.Validate()
	if err != nil {
		return "", err
	}

	var pairs []string

	add := func(key, value string) {
		pairs = append(pairs, key+"="+url.QueryEscape(value))
	}

	if opts.Limit != nil {
		add(QueryKeyLimit, strconv.Itoa(*opts.Limit))
	}

	if opts.Offset != nil {
		add(QueryKeyOffset, strconv.Itoa(*opts.Offset))
	}

	if len(opts.Fields) > 0 {
		add(QueryKeyFields, strings.Join(opts.Fields, ","))
	}

	if opts.Sort != nil {
		direction := opts.Sort.Direction
		if direction == "" {
			direction = SortAsc
		}

		add(QueryKeySort, strings.Join(opts.Sort.Fields, ",")+" "+string(direction))
	}

	if opts.Q != "" {
		add(QueryKeyQ, opts.Q)
	}

	if opts.Count != nil {
		add(QueryKeyCount, strconv.FormatBool(*opts.Count))
	}

	if len(opts.Expand) > 0 {
		add(QueryKeyExpand, strings.Join(opts.Expand, ","))
	}

	return strings.Join(pairs, "&"), nil
}

// ParseQueryString is the inverse of BuildQueryString. Unknown keys are rejected.
func ParseQueryString(raw string) (*QueryOptions, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return nil, NewInvalidArgument("query", "%v", err)
	}

	opts := NewQueryOptions()

	for key, list := range values {
		value := list[len(list)-1]

		switch key {
		case QueryKeyLimit, QueryKeyOffset:
			number, convErr := strconv.Atoi(value)
			if convErr != nil {
				return nil, NewInvalidArgument(key, "%q is not an integer", value)
			}

			if key == QueryKeyLimit {
				opts.WithLimit(number)
			} else {
				opts.WithOffset(number)
			}
		case QueryKeyFields:
			opts.WithFields(splitList(value)...)
		case QueryKeySort:
			sortFields, direction, _ := strings.Cut(value, " ")
			opts.WithSort(SortDirection(direction), splitList(sortFields)...)
		case QueryKeyQ:
			opts.WithFilter(value)
		case QueryKeyCount:
			count, convErr := strconv.ParseBool(value)
			if convErr != nil {
				return nil, NewInvalidArgument(key, "%q is not a boolean", value)
			}

			opts.WithCount(count)
		case QueryKeyExpand:
			opts.WithExpand(splitList(value)...)
		default:
			return nil, NewInvalidArgument("query", "unknown key %q", key)
		}
	}

	err = opts.Validate()
	if err != nil {
		return nil, err
	}

	return opts, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}

	return strings.Split(value, ",")
}

// AppendQuery joins a path and an encoded query string.
func AppendQuery(path, query string) string {
	if query == "" {
		return path
	}

	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}

	return fmt.Sprintf("%s%s%s", path, separator, query)
}
