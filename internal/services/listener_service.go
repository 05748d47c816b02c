// Package services – ListenerService
//
// This file implements the ListenerService, which registers listener contact
// numbers and serves them back as ordered pages. Numbers are validated against
// a digits-only pattern and deduplicated by the fingerprint of the exact value.
package services

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/quote-broadcaster/internal/domain"
	"github.com/tbourn/quote-broadcaster/internal/fingerprint"
	"github.com/tbourn/quote-broadcaster/internal/repo"
	"github.com/tbourn/quote-broadcaster/internal/utils"
)

const (
	// DefaultPageSize is used when a listing request omits page_size.
	DefaultPageSize = 10
	// MaxPageSize is the largest page a caller may request.
	MaxPageSize = 100
)

// phoneRE accepts 10 to 15 ASCII digits and nothing else.
var phoneRE = regexp.MustCompile(`^[0-9]{10,15}$`)

// ListenerService implements listener registration and paginated listing.
type ListenerService struct {
	DB *gorm.DB

	mu sync.Mutex
}

// NewListenerService constructs a ListenerService.
func NewListenerService(db *gorm.DB) *ListenerService {
	return &ListenerService{DB: db}
}

// ValidPhoneNumber reports whether s is an accepted listener contact value.
func ValidPhoneNumber(s string) bool {
	return phoneRE.MatchString(s)
}

// Submit registers phone. The value is stored exactly as given; it is not
// trimmed or reformatted.
//
// Errors: ErrInvalidFormat, ErrAlreadyExists, or the underlying DB error.
func (s *ListenerService) Submit(ctx context.Context, phone string) (*domain.Listener, error) {
	tr := otel.Tracer("services/ListenerService")
	ctx, span := tr.Start(ctx, "Submit")
	defer span.End()

	if !ValidPhoneNumber(phone) {
		return nil, ErrInvalidFormat
	}
	hashed := fingerprint.Raw(phone)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out *domain.Listener
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetListenerByHash(ctx, tx, hashed); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		l, err := repo.CreateListener(ctx, tx, phone, hashed)
		if err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrAlreadyExists
			}
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListPage returns the listeners on the given 1-based page, ordered by
// ascending ID.
//
// TotalPages is computed from the live record count at call time. A caller
// walking every page should keep the value from its first response; rows
// inserted mid-walk can shift later pages.
func (s *ListenerService) ListPage(ctx context.Context, page, pageSize int) (*domain.PageResult, error) {
	tr := otel.Tracer("services/ListenerService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 || pageSize < 1 || pageSize > MaxPageSize {
		return nil, ErrInvalidPage
	}

	total, err := repo.CountListeners(ctx, s.DB)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	res := &domain.PageResult{
		Page:         page,
		PageSize:     pageSize,
		TotalRecords: total,
		TotalPages:   utils.TotalPages(total, pageSize),
		Results:      []domain.Listener{},
	}
	if page > res.TotalPages {
		return res, nil
	}

	items, err := repo.ListListenersPage(ctx, s.DB, utils.Offset(page, pageSize), pageSize)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	res.Results = items
	return res, nil
}

// Stats returns (count, maxID) for listing ETags.
func (s *ListenerService) Stats(ctx context.Context) (int64, uint, error) {
	return repo.ListenersStats(ctx, s.DB)
}
