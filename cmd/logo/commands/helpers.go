package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/logo-objects/internal/constants"
	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

// queryFlags are the list options shared by list and search.
type queryFlags struct {
	limit  int
	offset int
	fields []string
	sort   []string
	desc   bool
	filter string
	count  bool
	expand []string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum number of records")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "number of records to skip")
	cmd.Flags().StringSliceVar(&f.fields, "fields", nil, "fields to return")
	cmd.Flags().StringSliceVar(&f.sort, "sort", nil, "fields to sort by")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "sort descending")
	cmd.Flags().StringVar(&f.filter, "filter", "", "filter expression sent as q")
	cmd.Flags().BoolVar(&f.count, "count", false, "ask the service for the total count")
	cmd.Flags().StringSliceVar(&f.expand, "expand", nil, "relations to expand")
}

// options converts the flags that were set into QueryOptions.
func (f *queryFlags) options(cmd *cobra.Command) *logo.QueryOptions {
	opts := logo.NewQueryOptions()

	if cmd.Flags().Changed("limit") {
		opts.WithLimit(f.limit)
	}

	if cmd.Flags().Changed("offset") {
		opts.WithOffset(f.offset)
	}

	if len(f.fields) > 0 {
		opts.WithFields(f.fields...)
	}

	if len(f.sort) > 0 {
		direction := logo.SortAsc
		if f.desc {
			direction = logo.SortDesc
		}

		opts.WithSort(direction, f.sort...)
	}

	if f.filter != "" {
		opts.WithFilter(f.filter)
	}

	if cmd.Flags().Changed("count") {
		opts.WithCount(f.count)
	}

	if len(f.expand) > 0 {
		opts.WithExpand(f.expand...)
	}

	return opts
}

// parseKeyValues parses KEY=VALUE arguments. KEY:=JSON keeps the decoded
// JSON value, so numbers and booleans can be passed typed.
func parseKeyValues(args []string) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(args))

	for _, arg := range args {
		if key, raw, ok := strings.Cut(arg, ":="); ok && key != "" && !strings.Contains(key, "=") {
			var value interface{}

			err := json.Unmarshal([]byte(raw), &value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", constants.ErrInvalidJSON, key, err)
			}

			values[key] = value

			continue
		}

		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w, got '%s'", constants.ErrInvalidKeyValue, arg)
		}

		values[key] = value
	}

	return values, nil
}

// readData returns the request body given by --data or --data-file. A
// data file of "-" is read from stdin.
func readData(data, dataFile string, stdin io.Reader) (json.RawMessage, error) {
	var raw []byte

	switch {
	case data != "":
		raw = []byte(data)
	case dataFile == "-":
		content, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}

		raw = content
	case dataFile != "":
		// dataFile is an explicit command line argument
		// #nosec G304
		content, err := os.ReadFile(dataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read data file: %w", err)
		}

		raw = content
	default:
		return nil, constants.ErrDataRequired
	}

	if !json.Valid(raw) {
		return nil, constants.ErrInvalidJSON
	}

	return json.RawMessage(raw), nil
}

func addDataFlags(cmd *cobra.Command, data, dataFile *string) {
	cmd.Flags().StringVarP(data, "data", "d", "", "record as JSON")
	cmd.Flags().StringVar(dataFile, "data-file", "", "file containing the record as JSON, - for stdin")
}
