package client

import (
	"context"
	"iter"

	"github.com/tbourn/quote-broadcaster/internal/domain"
)

// ContentSource is what the broadcast loop needs from the store.
type ContentSource interface {
	FetchQuote(ctx context.Context) (*domain.Quote, error)
	StreamListeners(ctx context.Context) iter.Seq2[domain.Listener, error]
}

// Pair is one delivery target with the content it receives.
type Pair struct {
	Listener domain.Listener
	Quote    *domain.Quote
}

// PairQuoteWithListeners fetches one quote and pairs it with every listener.
// Every pair of one invocation shares the same *domain.Quote. A fetch or
// traversal failure is yielded once as the final element.
func PairQuoteWithListeners(ctx context.Context, src ContentSource) iter.Seq2[Pair, error] {
	return func(yield func(Pair, error) bool) {
		q, err := src.FetchQuote(ctx)
		if err != nil {
			yield(Pair{}, err)
			return
		}
		for l, err := range src.StreamListeners(ctx) {
			if err != nil {
				yield(Pair{}, err)
				return
			}
			if !yield(Pair{Listener: l, Quote: q}, nil) {
				return
			}
		}
	}
}
