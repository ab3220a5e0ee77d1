package logo

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// SearchField maps a search key to the service column it filters on.
type SearchField struct {
	Key   string `json:"key"   yaml:"key"`
	Field string `json:"field" yaml:"field"`
}

// SearchCriteria holds search values keyed by SearchField.Key. Values must be
// strings, integers, floats or booleans; nil and "" mean the key is unset.
type SearchCriteria map[string]any

// EscapeLiteral doubles single quotes so value is safe inside '...'.
func EscapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// BuildSearchQuery builds the filter expression for criteria.
//
// Conditions follow the order of fields, not map order, and are joined with
// " and ". Every value becomes FIELD like 'value*', whatever its type. ok is
// false when no key is set, which callers treat as "no filter". Keys not
// declared in fields are rejected.
func BuildSearchQuery(fields []SearchField, criteria SearchCriteria) (string, bool, error) {
	known := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		known[field.Key] = struct{}{}
	}

	unknown := make([]string, 0)

	for key := range criteria {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)

		return "", false, NewInvalidArgument("criteria", "unknown search keys %s", strings.Join(unknown, ", "))
	}

	conditions := make([]string, 0, len(fields))

	for _, field := range fields {
		value, present := criteria[field.Key]
		if !present {
			continue
		}

		literal, set, err := searchLiteral(field.Key, value)
		if err != nil {
			return "", false, err
		}

		if !set {
			continue
		}

		conditions = append(conditions, field.Field+" like '"+EscapeLiteral(literal)+"*'")
	}

	if len(conditions) == 0 {
		return "", false, nil
	}

	return strings.Join(conditions, " and "), true, nil
}

func searchLiteral(key string, value any) (string, bool, error) {
	if value == nil {
		return "", false, nil
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false, nil
		}

		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String(), rv.Len() > 0, nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true, nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, rv.Type().Bits()), true, nil
	default:
		return "", false, NewInvalidArgument(key, "unsupported search value type %T", value)
	}
}
