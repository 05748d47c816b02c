// Package services – QuoteService
//
// This file implements the QuoteService, which owns the content-addressed quote
// store. Quote text is stored as submitted (surrounding whitespace trimmed) and
// fingerprinted in normalized form; a submission whose fingerprint is already
// stored is rejected with ErrAlreadyExists regardless of author or reference.
// Authors are created lazily on first reference and are matched by exact name.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/quote-broadcaster/internal/domain"
	"github.com/tbourn/quote-broadcaster/internal/fingerprint"
	"github.com/tbourn/quote-broadcaster/internal/repo"
)

// QuoteService implements quote submission and random selection.
type QuoteService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// mu serializes the check-then-insert in Submit within this process; the
	// unique index on hashed_text covers concurrent writers elsewhere.
	mu sync.Mutex
}

// NewQuoteService constructs a QuoteService.
func NewQuoteService(db *gorm.DB) *QuoteService {
	return &QuoteService{DB: db}
}

// Submit stores a new quote.
//
// Only surrounding whitespace is trimmed from text, author and reference; line
// breaks and inner spacing are kept. The fingerprint covers the normalized
// text (NFC, whitespace collapsed), so cosmetic variants collide. It is checked
// before the author lookup so a rejected duplicate never creates an author row.
//
// Errors: ErrEmptyText, ErrEmptyAuthor, ErrAlreadyExists, or the underlying DB
// error.
func (s *QuoteService) Submit(ctx context.Context, text, authorName, reference string) (*domain.Quote, error) {
	tr := otel.Tracer("services/QuoteService")
	ctx, span := tr.Start(ctx, "Submit")
	defer span.End()

	text = strings.TrimSpace(text)
	if fingerprint.Normalize(text) == "" {
		return nil, ErrEmptyText
	}
	authorName = strings.TrimSpace(authorName)
	if authorName == "" {
		return nil, ErrEmptyAuthor
	}
	reference = strings.TrimSpace(reference)
	hashed := fingerprint.Text(text)
	span.SetAttributes(attribute.String("quote.hash", hashed))

	s.mu.Lock()
	defer s.mu.Unlock()

	var out *domain.Quote
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetQuoteByHash(ctx, tx, hashed); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		author, err := findOrCreateAuthor(ctx, tx, authorName)
		if err != nil {
			return err
		}

		q := &domain.Quote{
			AuthorID:   author.ID,
			Text:       text,
			HashedText: hashed,
			Reference:  reference,
		}
		if err := repo.CreateQuote(ctx, tx, q); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrAlreadyExists
			}
			return err
		}
		q.Author = *author
		out = q
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrAlreadyExists) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "submit failed")
		}
		return nil, err
	}
	return out, nil
}

// Random returns one stored quote chosen uniformly at random, or ErrNotFound
// when the store is empty.
func (s *QuoteService) Random(ctx context.Context) (*domain.Quote, error) {
	tr := otel.Tracer("services/QuoteService")
	ctx, span := tr.Start(ctx, "Random", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	q, err := repo.RandomQuote(ctx, s.DB)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, err
	}
	return q, nil
}

// findOrCreateAuthor returns the author named name, inserting it if needed.
// A concurrent insert of the same name is resolved by re-reading the row.
func findOrCreateAuthor(ctx context.Context, tx *gorm.DB, name string) (*domain.Author, error) {
	a, err := repo.GetAuthorByName(ctx, tx, name)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	a, err = repo.CreateAuthor(ctx, tx, name)
	if errors.Is(err, repo.ErrDuplicate) {
		return repo.GetAuthorByName(ctx, tx, name)
	}
	return a, err
}
