package rushclient

import (
	"context"
	"errors"
)

// ErrPastLastPage is returned when a page after the last one is requested.
var ErrPastLastPage = errors.New("no more pages")

// PageFunc fetches the page starting at offset.
type PageFunc[T any] func(ctx context.Context, offset, pageSize int) (Page[T], error)

// Pager walks a paginated listing page by page.
type Pager[T any] struct {
	fetch    PageFunc[T]
	pageSize int
	offset   int
	done     bool
}

// NewPager returns a pager starting at the first page.
func NewPager[T any](fetch PageFunc[T], pageSize int) *Pager[T] {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Pager[T]{fetch: fetch, pageSize: pageSize}
}

// Next fetches the next page. Once a page reported IsEnd it returns ErrPastLastPage
// without calling the backend.
func (p *Pager[T]) Next(ctx context.Context) (Page[T], error) {
	if p.done {
		return Page[T]{}, ErrPastLastPage
	}
	page, err := p.fetch(ctx, p.offset, p.pageSize)
	if err != nil {
		return Page[T]{}, err
	}
	p.offset += len(page.Items)
	if page.IsEnd || len(page.Items) == 0 {
		p.done = true
	}
	return page, nil
}

// Done reports whether the last page was seen.
func (p *Pager[T]) Done() bool {
	return p.done
}

// CollectAll drains the pager.
func CollectAll[T any](ctx context.Context, p *Pager[T]) ([]T, error) {
	var all []T
	for !p.Done() {
		page, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
	}
	return all, nil
}

// PageOffset returns the offset of the zero-based page index.
func PageOffset(page, pageSize int) int {
	if page < 0 {
		page = 0
	}
	return page * pageSize
}

// HasNext reports whether a page after this one may be requested.
func (p Page[T]) HasNext() bool {
	return !p.IsEnd
}
