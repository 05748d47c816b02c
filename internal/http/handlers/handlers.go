// Package handlers provides HTTP handler implementations for the store API.
//
// Handlers are transport-thin: they decode input, call the quote and listener
// services, and map service errors to status codes and the standard error
// envelope.
package handlers

import (
	"context"

	"github.com/tbourn/quote-broadcaster/internal/domain"
)

// QuoteService is the quote use-case surface consumed by the handlers.
type QuoteService interface {
	// Submit stores a quote keyed by the fingerprint of its normalized text.
	Submit(ctx context.Context, text, author, reference string) (*domain.Quote, error)
	// Random returns one stored quote, or services.ErrNotFound.
	Random(ctx context.Context) (*domain.Quote, error)
}

// ListenerService is the listener use-case surface consumed by the handlers.
type ListenerService interface {
	// Submit registers a phone number.
	Submit(ctx context.Context, phone string) (*domain.Listener, error)
	// ListPage returns one page of listeners ordered by ascending ID.
	ListPage(ctx context.Context, page, pageSize int) (*domain.PageResult, error)
	// Stats returns (count, maxID), used to derive listing ETags.
	Stats(ctx context.Context) (int64, uint, error)
}

// Handlers groups the store endpoints.
type Handlers struct {
	quoteSvc    QuoteService
	listenerSvc ListenerService
}

// New constructs a Handlers bound to the given services.
func New(quoteSvc QuoteService, listenerSvc ListenerService) *Handlers {
	return &Handlers{quoteSvc: quoteSvc, listenerSvc: listenerSvc}
}
