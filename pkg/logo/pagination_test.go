package logo_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/logo-objects/pkg/logo"
)

var errTestPage = errors.New("page failed")

// sliceLister serves items in limit/offset pages and records every request.
type sliceLister struct {
	mu        sync.Mutex
	items     []int
	withCount bool
	failAt    int
	// maxLimit caps the page size the way services cap large limits.
	maxLimit int
	requests []*logo.QueryOptions
}

func (s *sliceLister) GetAll(_ context.Context, opts *logo.QueryOptions) (*logo.ListResponse[int], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, opts.Clone())

	offset := *opts.Offset
	if s.failAt > 0 && offset >= s.failAt {
		return nil, errTestPage
	}

	limit := *opts.Limit
	if s.maxLimit > 0 && limit > s.maxLimit {
		limit = s.maxLimit
	}

	end := offset + limit
	if end > len(s.items) {
		end = len(s.items)
	}

	page := &logo.ListResponse[int]{Data: []int{}}
	if offset < len(s.items) {
		page.Data = append(page.Data, s.items[offset:end]...)
	}

	if s.withCount {
		total := len(s.items)
		page.TotalCount = &total
	}

	return page, nil
}

func sequence(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}

	return items
}

func TestPaginationIterator_All(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		items     int
		withCount bool
		requests  int
	}{
		{name: "exact multiple with count", items: 6, withCount: true, requests: 2},
		{name: "exact multiple without count", items: 6, requests: 3},
		{name: "short last page", items: 7, requests: 3},
		{name: "empty", items: 0, withCount: true, requests: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lister := &sliceLister{items: sequence(tt.items), withCount: tt.withCount}
			iterator := logo.NewPaginationIterator[int](context.Background(), lister, nil, &logo.PaginationOptions{PageSize: 3})

			all, err := iterator.All()
			require.NoError(t, err)
			assert.Len(t, all, tt.items)
			assert.Len(t, lister.requests, tt.requests)

			for i, item := range all {
				assert.Equal(t, i, item)
			}
		})
	}
}

func TestPaginationIterator_Requests(t *testing.T) {
	t.Parallel()

	lister := &sliceLister{items: sequence(5), withCount: true}
	opts := logo.NewQueryOptions().WithFilter("CODE like 'A*'").WithOffset(1)

	iterator := logo.NewPaginationIterator[int](context.Background(), lister, opts, &logo.PaginationOptions{PageSize: 2})

	first, err := iterator.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	total, ok := iterator.TotalCount()
	require.True(t, ok)
	assert.Equal(t, 5, total)

	rest, err := iterator.All()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, rest)

	_, err = iterator.Next()
	require.ErrorIs(t, err, logo.ErrNoMoreItems)

	require.Len(t, lister.requests, 2)
	assert.Equal(t, 1, *lister.requests[0].Offset)
	assert.Equal(t, 2, *lister.requests[0].Limit)
	assert.True(t, *lister.requests[0].Count)
	assert.Nil(t, lister.requests[1].Count)
	assert.Equal(t, 3, *lister.requests[1].Offset)
	assert.Equal(t, "CODE like 'A*'", lister.requests[1].Q)
	assert.Equal(t, 1, *opts.Offset, "caller options are not modified")
}

func TestPaginationIterator_Error(t *testing.T) {
	t.Parallel()

	lister := &sliceLister{items: sequence(10), failAt: 4}
	iterator := logo.NewPaginationIterator[int](context.Background(), lister, nil, &logo.PaginationOptions{PageSize: 2})

	var seen []int

	err := iterator.ForEach(func(item int) error {
		seen = append(seen, item)

		return nil
	})
	require.ErrorIs(t, err, errTestPage)
	assert.Equal(t, []int{0, 1, 2, 3}, seen)
	require.ErrorIs(t, iterator.Err(), errTestPage)
	assert.False(t, iterator.HasNext())
}

func TestFetchAllPages_MaxPages(t *testing.T) {
	t.Parallel()

	t.Run("limit reached", func(t *testing.T) {
		t.Parallel()

		lister := &sliceLister{items: sequence(100)}

		items, err := logo.FetchAllPages[int](context.Background(), lister, nil, &logo.PaginationOptions{PageSize: 10, MaxPages: 3})
		require.ErrorIs(t, err, logo.ErrMaxPagesReached)
		assert.Len(t, items, 30)
		assert.Len(t, lister.requests, 3)
	})

	t.Run("collection ends within the limit", func(t *testing.T) {
		t.Parallel()

		lister := &sliceLister{items: sequence(30), withCount: true}

		items, err := logo.FetchAllPages[int](context.Background(), lister, nil, &logo.PaginationOptions{PageSize: 10, MaxPages: 3})
		require.NoError(t, err)
		assert.Len(t, items, 30)
	})

	t.Run("default options fetch every page", func(t *testing.T) {
		t.Parallel()

		lister := &sliceLister{items: sequence(6000), withCount: true}

		items, err := logo.FetchAllPages[int](context.Background(), lister, nil, nil)
		require.NoError(t, err)
		assert.Len(t, items, 6000)
	})
}

func TestFetchAllPages_ServerCapsPageSize(t *testing.T) {
	t.Parallel()

	lister := &sliceLister{items: sequence(250), withCount: true, maxLimit: 100}

	items, err := logo.FetchAllPages[int](context.Background(), lister, nil, &logo.PaginationOptions{PageSize: 200})
	require.NoError(t, err)
	require.Len(t, items, 250)
	assert.Equal(t, 249, items[249])

	require.Len(t, lister.requests, 3)
	assert.Equal(t, 100, *lister.requests[1].Offset)
	assert.Equal(t, 200, *lister.requests[2].Offset)
	assert.Equal(t, 200, *lister.requests[2].Limit)
}

func TestStreamPages(t *testing.T) {
	t.Parallel()

	lister := &sliceLister{items: sequence(7), withCount: true}

	var offsets []int

	count := 0

	for page := range logo.StreamPages[int](context.Background(), lister, nil, &logo.PaginationOptions{PageSize: 3}) {
		require.NoError(t, page.Err)
		offsets = append(offsets, page.Offset)
		count += len(page.Items)
	}

	assert.Equal(t, []int{0, 3, 6}, offsets)
	assert.Equal(t, 7, count)

	failing := &sliceLister{items: sequence(7), failAt: 3}

	var last logo.PageResult[int]
	for page := range logo.StreamPages[int](context.Background(), failing, nil, &logo.PaginationOptions{PageSize: 3}) {
		last = page
	}

	require.ErrorIs(t, last.Err, errTestPage)
	assert.Equal(t, 3, last.Offset)
}

func TestPathLister(t *testing.T) {
	t.Parallel()

	requester := &stubRequester{result: &logo.Result{
		StatusCode: 200,
		Body:       []byte(`{"data":[{"CODE":"A"}],"totalCount":1}`),
		List: &logo.ListResponse[json.RawMessage]{
			Data:       []json.RawMessage{json.RawMessage(`{"CODE":"A"}`)},
			TotalCount: intPtr(1),
		},
	}}

	items, err := logo.FetchAllPages[logo.Record](context.Background(), logo.NewPathLister[logo.Record](requester, "/items"), nil, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0]["CODE"])
	assert.Equal(t, "/items?limit=50&offset=0&count=true", requester.paths[0])
}
