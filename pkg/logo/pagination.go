package logo

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/logo-objects/internal/constants"
)

// PageLister fetches one page of a collection. EntityClient satisfies
// PageLister[Record].
type PageLister[T any] interface {
	GetAll(ctx context.Context, opts *QueryOptions) (*ListResponse[T], error)
}

// PathLister lists an arbitrary collection path through a Requester.
type PathLister[T any] struct {
	requester Requester
	path      string
}

// NewPathLister creates a PageLister for path.
func NewPathLister[T any](requester Requester, path string) *PathLister[T] {
	return &PathLister[T]{requester: requester, path: path}
}

// GetAll implements PageLister.
func (l *PathLister[T]) GetAll(ctx context.Context, opts *QueryOptions) (*ListResponse[T], error) {
	return List[T](ctx, l.requester, l.path, opts)
}

// PaginationOptions controls how pages are requested.
type PaginationOptions struct {
	// PageSize is sent as limit. Defaults to 50.
	PageSize int
	// MaxPages stops after this many pages with ErrMaxPagesReached. Zero
	// means no limit.
	MaxPages int
}

// DefaultPaginationOptions returns default pagination options.
func DefaultPaginationOptions() *PaginationOptions {
	return &PaginationOptions{
		PageSize: constants.DefaultPageSize,
		MaxPages: constants.DefaultMaxPages,
	}
}

func (o *PaginationOptions) pageSize() int {
	if o == nil || o.PageSize <= 0 {
		return constants.DefaultPageSize
	}

	if o.PageSize > constants.MaxPageSize {
		return constants.MaxPageSize
	}

	return o.PageSize
}

// PaginationIterator walks a collection with limit/offset paging, using
// totalCount to stop when the service sends it and a short page otherwise.
// Reaching MaxPages while items may remain ends the iteration with
// ErrMaxPagesReached.
type PaginationIterator[T any] struct {
	ctx     context.Context
	lister  PageLister[T]
	base    *QueryOptions
	options *PaginationOptions
	buffer  []T
	offset  int
	pages   int
	done    bool
	lastErr error
	total   *int
	fetched bool
}

// NewPaginationIterator creates an iterator. The limit and offset of opts are
// overwritten per page; every other option is sent unchanged.
func NewPaginationIterator[T any](ctx context.Context, lister PageLister[T], opts *QueryOptions, options *PaginationOptions) *PaginationIterator[T] {
	base := opts.Clone()

	start := 0
	if base.Offset != nil {
		start = *base.Offset
	}

	return &PaginationIterator[T]{
		ctx:     ctx,
		lister:  lister,
		base:    base,
		options: options,
		offset:  start,
	}
}

// HasNext reports whether Next will return an item. It fetches the next page
// when the buffer is empty.
func (it *PaginationIterator[T]) HasNext() bool {
	if len(it.buffer) > 0 {
		return true
	}

	if it.done || it.lastErr != nil {
		return false
	}

	it.lastErr = it.fetch()

	return len(it.buffer) > 0 || it.lastErr != nil
}

// Next returns the next item.
func (it *PaginationIterator[T]) Next() (T, error) {
	var zero T

	if !it.HasNext() {
		return zero, ErrNoMoreItems
	}

	if it.lastErr != nil && len(it.buffer) == 0 {
		return zero, it.lastErr
	}

	item := it.buffer[0]
	it.buffer = it.buffer[1:]

	return item, nil
}

// Err returns the error that stopped the iteration, if any.
func (it *PaginationIterator[T]) Err() error {
	return it.lastErr
}

// TotalCount returns the total reported by the service, once a page was fetched.
func (it *PaginationIterator[T]) TotalCount() (int, bool) {
	if it.total == nil {
		return 0, false
	}

	return *it.total, true
}

// All drains the iterator.
func (it *PaginationIterator[T]) All() ([]T, error) {
	var all []T

	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return all, err
		}

		all = append(all, item)
	}

	return all, nil
}

// ForEach calls fn for every item until fn or a page request fails.
func (it *PaginationIterator[T]) ForEach(fn func(T) error) error {
	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return nil
}

func (it *PaginationIterator[T]) fetch() error {
	maxPages := 0
	if it.options != nil {
		maxPages = it.options.MaxPages
	}

	if maxPages > 0 && it.pages >= maxPages {
		it.done = true

		return fmt.Errorf("%w after %d pages at offset %d", ErrMaxPagesReached, it.pages, it.offset)
	}

	pageSize := it.options.pageSize()

	opts := it.base.Clone().WithLimit(pageSize).WithOffset(it.offset)
	if !it.fetched && opts.Count == nil {
		opts.WithCount(true)
	}

	page, err := it.lister.GetAll(it.ctx, opts)
	if err != nil {
		it.done = true

		return fmt.Errorf("fetching page at offset %d: %w", it.offset, err)
	}

	it.fetched = true
	it.pages++

	if page.TotalCount != nil {
		total := *page.TotalCount
		it.total = &total
	}

	it.buffer = append(it.buffer, page.Data...)
	it.offset += len(page.Data)

	switch {
	case len(page.Data) == 0:
		it.done = true
	case it.total != nil:
		// Services may cap the page size below the requested limit.
		it.done = it.offset >= *it.total
	case len(page.Data) < pageSize:
		it.done = true
	}

	return nil
}

// FetchAllPages collects every item of a collection. When MaxPages stops
// the walk before the collection is exhausted, the items fetched so far are
// returned together with an error matching ErrMaxPagesReached.
func FetchAllPages[T any](ctx context.Context, lister PageLister[T], opts *QueryOptions, options *PaginationOptions) ([]T, error) {
	if options == nil {
		options = DefaultPaginationOptions()
	}

	return NewPaginationIterator(ctx, lister, opts, options).All()
}

// PageResult is one page delivered by StreamPages.
type PageResult[T any] struct {
	Items  []T
	Offset int
	Err    error
}

// StreamPages delivers pages on a channel until the collection is exhausted,
// a request fails or ctx is done. The channel is closed when it stops.
func StreamPages[T any](ctx context.Context, lister PageLister[T], opts *QueryOptions, options *PaginationOptions) <-chan PageResult[T] {
	results := make(chan PageResult[T])

	go func() {
		defer close(results)

		iterator := NewPaginationIterator(ctx, lister, opts, options)

		for !iterator.done {
			offset := iterator.offset

			err := iterator.fetch()
			page := PageResult[T]{Items: iterator.buffer, Offset: offset, Err: err}
			iterator.buffer = nil

			if err == nil && len(page.Items) == 0 {
				return
			}

			select {
			case results <- page:
			case <-ctx.Done():
				return
			}

			if err != nil {
				return
			}
		}
	}()

	return results
}
