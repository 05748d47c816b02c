package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/quote-broadcaster/internal/domain"
)

// scriptedPages replays canned responses keyed by page number.
type scriptedPages struct {
	pages map[int]*domain.PageResult
	calls []int
}

func (s *scriptedPages) ListPage(_ context.Context, page, _ int) (*domain.PageResult, error) {
	s.calls = append(s.calls, page)
	if p, ok := s.pages[page]; ok {
		return p, nil
	}
	return nil, errors.New("no such page")
}

func listenerPage(page, totalPages int, ids ...uint) *domain.PageResult {
	res := &domain.PageResult{Page: page, PageSize: 2, TotalPages: totalPages}
	for _, id := range ids {
		res.Results = append(res.Results, domain.Listener{ID: id})
	}
	return res
}

func TestCursor_PinsTotalPagesFromFirstResponse(t *testing.T) {
	// The collection grows after page 1; later responses report 3 pages.
	src := &scriptedPages{pages: map[int]*domain.PageResult{
		1: listenerPage(1, 2, 1, 2),
		2: listenerPage(2, 3, 3, 4),
		3: listenerPage(3, 3, 5),
	}}
	cur := NewCursor(src, 2)

	p, err := cur.NextPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)

	p, err = cur.NextPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, p.Page)

	_, err = cur.NextPage(context.Background())
	assert.ErrorIs(t, err, ErrDone)
	assert.Equal(t, []int{1, 2}, src.calls)

	total, known := cur.TotalPages()
	assert.True(t, known)
	assert.Equal(t, 2, total)
}

func TestCursor_EmptyCollection(t *testing.T) {
	src := &scriptedPages{pages: map[int]*domain.PageResult{1: listenerPage(1, 0)}}
	cur := NewCursor(src, 2)

	_, err := cur.NextPage(context.Background())
	assert.ErrorIs(t, err, ErrDone)
	_, err = cur.NextPage(context.Background())
	assert.ErrorIs(t, err, ErrDone)
	assert.Equal(t, []int{1}, src.calls)
}

func TestCursor_ErrorEndsTraversal(t *testing.T) {
	src := &scriptedPages{pages: map[int]*domain.PageResult{1: listenerPage(1, 3, 1, 2)}}
	cur := NewCursor(src, 2)

	_, err := cur.NextPage(context.Background())
	require.NoError(t, err)

	_, err = cur.NextPage(context.Background())
	var te *TraversalError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 2, te.Page)
	assert.EqualError(t, errors.Unwrap(err), "no such page")

	_, err = cur.NextPage(context.Background())
	assert.ErrorIs(t, err, ErrDone)
	assert.Equal(t, []int{1, 2}, src.calls)
}

func TestCursor_PageCountMatchesCeiling(t *testing.T) {
	// 5 records, page size 2: ceil(5/2) = 3 pages.
	src := &scriptedPages{pages: map[int]*domain.PageResult{
		1: listenerPage(1, 3, 1, 2),
		2: listenerPage(2, 3, 3, 4),
		3: listenerPage(3, 3, 5),
	}}

	var ids []uint
	for l, err := range StreamListeners(context.Background(), src, 2) {
		require.NoError(t, err)
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []uint{1, 2, 3, 4, 5}, ids)
	assert.Equal(t, []int{1, 2, 3}, src.calls)
}
