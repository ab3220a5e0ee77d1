package logo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

func TestBuildQueryString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts *logo.QueryOptions
		want string
	}{
		{name: "nil", opts: nil, want: ""},
		{name: "empty", opts: logo.NewQueryOptions(), want: ""},
		{name: "zero limit is sent", opts: logo.NewQueryOptions().WithLimit(0), want: "limit=0"},
		{
			name: "canonical order",
			opts: logo.NewQueryOptions().
				WithExpand("units", "prices").
				WithCount(false).
				WithFilter("CODE like 'A*'").
				WithSort(logo.SortDesc, "CODE", "NAME").
				WithFields("CODE", "NAME").
				WithOffset(20).
				WithLimit(10),
			want: "limit=10&offset=20&fields=CODE%2CNAME&sort=CODE%2CNAME+desc&q=CODE+like+%27A%2A%27&count=false&expand=units%2Cprices",
		},
		{name: "default direction", opts: logo.NewQueryOptions().WithSort("", "CODE"), want: "sort=CODE+asc"},
		{name: "expand repeats", opts: logo.NewQueryOptions().WithExpand("units", "units"), want: "expand=units%2Cunits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := logo.BuildQueryString(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildQueryString_Deterministic(t *testing.T) {
	t.Parallel()

	a := logo.NewQueryOptions().WithFilter("x eq 1").WithLimit(5).WithFields("A")
	b := logo.NewQueryOptions().WithFields("A").WithLimit(5).WithFilter("x eq 1")

	encodedA, err := a.Encode()
	require.NoError(t, err)

	encodedB, err := b.Encode()
	require.NoError(t, err)

	assert.Equal(t, encodedA, encodedB)
}

func TestQueryOptions_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     *logo.QueryOptions
		argument string
	}{
		{name: "negative limit", opts: logo.NewQueryOptions().WithLimit(-1), argument: logo.QueryKeyLimit},
		{name: "negative offset", opts: logo.NewQueryOptions().WithOffset(-5), argument: logo.QueryKeyOffset},
		{name: "bad field", opts: logo.NewQueryOptions().WithFields("CODE;DROP"), argument: logo.QueryKeyFields},
		{name: "duplicate field", opts: logo.NewQueryOptions().WithFields("CODE", "CODE"), argument: logo.QueryKeyFields},
		{name: "empty sort", opts: logo.NewQueryOptions().WithSort(logo.SortAsc), argument: logo.QueryKeySort},
		{name: "bad direction", opts: logo.NewQueryOptions().WithSort("up", "CODE"), argument: logo.QueryKeySort},
		{name: "bad expand", opts: logo.NewQueryOptions().WithExpand("a b"), argument: logo.QueryKeyExpand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := logo.BuildQueryString(tt.opts)
			require.Error(t, err)
			assert.True(t, logo.IsInvalidArgument(err))

			var invalid *logo.InvalidArgumentError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.argument, invalid.Argument)
		})
	}
}

func TestParseQueryString(t *testing.T) {
	t.Parallel()

	original := logo.NewQueryOptions().
		WithLimit(25).
		WithOffset(50).
		WithFields("CODE", "NAME").
		WithSort(logo.SortDesc, "CODE").
		WithFilter("NAME like 'A&B*'").
		WithCount(true).
		WithExpand("units")

	encoded, err := logo.BuildQueryString(original)
	require.NoError(t, err)

	parsed, err := logo.ParseQueryString("?" + encoded)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)

	_, err = logo.ParseQueryString("page=2")
	assert.True(t, logo.IsInvalidArgument(err))

	_, err = logo.ParseQueryString("limit=ten")
	assert.True(t, logo.IsInvalidArgument(err))

	_, err = logo.ParseQueryString("count=maybe")
	assert.True(t, logo.IsInvalidArgument(err))
}

func TestQueryOptions_Clone(t *testing.T) {
	t.Parallel()

	original := logo.NewQueryOptions().WithLimit(1).WithFields("A").WithSort(logo.SortAsc, "A")
	clone := original.Clone()

	clone.Fields[0] = "B"
	clone.Sort.Fields[0] = "B"
	*clone.Limit = 99

	assert.Equal(t, "A", original.Fields[0])
	assert.Equal(t, "A", original.Sort.Fields[0])
	assert.Equal(t, 1, *original.Limit)

	var nilOpts *logo.QueryOptions
	assert.Equal(t, logo.NewQueryOptions(), nilOpts.Clone())
}

func TestAppendQuery(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/items", logo.AppendQuery("/items", ""))
	assert.Equal(t, "/items?limit=1", logo.AppendQuery("/items", "limit=1"))
	assert.Equal(t, "/items?a=1&limit=1", logo.AppendQuery("/items?a=1", "limit=1"))
}
