package client

import (
	"context"
	"errors"
	"iter"

	"github.com/tbourn/quote-broadcaster/internal/domain"
)

// PageFetcher serves one page of the listener collection.
type PageFetcher interface {
	ListPage(ctx context.Context, page, pageSize int) (*domain.PageResult, error)
}

// Cursor walks the listener collection page by page.
//
// The total page count is taken from the first response and never re-read,
// so records inserted mid-traversal may be missed or spill onto a page that
// is never requested. A cursor is single use.
type Cursor struct {
	src      PageFetcher
	pageSize int

	current int
	total   int
	known   bool
	done    bool
}

// NewCursor returns a cursor positioned at page 1.
func NewCursor(src PageFetcher, pageSize int) *Cursor {
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = DefaultPageSize
	}
	return &Cursor{src: src, pageSize: pageSize, current: 1}
}

// NextPage fetches the current page and advances. It returns ErrDone once
// the traversal is complete, including when the collection is empty, and a
// *TraversalError when the store fails; both end the traversal.
func (c *Cursor) NextPage(ctx context.Context) (*domain.PageResult, error) {
	if c.done {
		return nil, ErrDone
	}

	res, err := c.src.ListPage(ctx, c.current, c.pageSize)
	if err != nil {
		c.done = true
		return nil, &TraversalError{Page: c.current, Err: err}
	}
	if !c.known {
		c.total, c.known = res.TotalPages, true
	}
	if c.total <= 0 {
		c.done = true
		return nil, ErrDone
	}

	c.current++
	if c.current > c.total {
		c.done = true
	}
	return res, nil
}

// TotalPages reports the pinned page count and whether it is known yet.
func (c *Cursor) TotalPages() (int, bool) { return c.total, c.known }

// StreamListeners lazily yields every listener reachable through src. A
// traversal failure is yielded once as the final element.
func StreamListeners(ctx context.Context, src PageFetcher, pageSize int) iter.Seq2[domain.Listener, error] {
	return func(yield func(domain.Listener, error) bool) {
		cur := NewCursor(src, pageSize)
		for {
			page, err := cur.NextPage(ctx)
			if errors.Is(err, ErrDone) {
				return
			}
			if err != nil {
				yield(domain.Listener{}, err)
				return
			}
			for _, l := range page.Results {
				if !yield(l, nil) {
					return
				}
			}
		}
	}
}

// StreamListeners drives a fresh traversal from page 1.
func (c *Client) StreamListeners(ctx context.Context) iter.Seq2[domain.Listener, error] {
	return StreamListeners(ctx, c, c.pageSize)
}
