// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Author and
// Quote models.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - Inserts that hit a unique index return ErrDuplicate.
//   - On other DB errors (connectivity, constraints, etc.), the raw gorm
//     error is propagated.
//
// Functions:
//
//   - GetAuthorByName(ctx, db, name) -> *domain.Author, error
//   - CreateAuthor(ctx, db, name) -> *domain.Author, error
//   - GetQuoteByHash(ctx, db, hashed) -> *domain.Quote, error
//   - CreateQuote(ctx, db, q) -> error
//   - CountQuotes(ctx, db) -> (int64, error)
//   - RandomQuote(ctx, db) -> *domain.Quote, error
//
// Usage:
//
//	// Within a service layer
//	q, err := repo.RandomQuote(ctx, db)
//	if errors.Is(err, repo.ErrNotFound) {
//	    // empty store
//	} else if err != nil {
//	    // handle DB failure
//	}
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/quote-broadcaster/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that an insert collided with a unique index.
var ErrDuplicate = errors.New("duplicate")

// GetAuthorByName fetches an author by exact name, or ErrNotFound.
func GetAuthorByName(ctx context.Context, db *gorm.DB, name string) (*domain.Author, error) {
	var a domain.Author
	if err := db.WithContext(ctx).Where("name = ?", name).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAuthor inserts a new author. A concurrent insert of the same name
// surfaces as ErrDuplicate.
func CreateAuthor(ctx context.Context, db *gorm.DB, name string) (*domain.Author, error) {
	a := &domain.Author{Name: name, CreatedAt: time.Now().UTC()}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return a, nil
}

// GetQuoteByHash fetches a quote (with its author) by fingerprint, or ErrNotFound.
func GetQuoteByHash(ctx context.Context, db *gorm.DB, hashed string) (*domain.Quote, error) {
	var q domain.Quote
	err := db.WithContext(ctx).
		Preload("Author").
		Where("hashed_text = ?", hashed).
		First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateQuote inserts q. A fingerprint collision surfaces as ErrDuplicate.
func CreateQuote(ctx context.Context, db *gorm.DB, q *domain.Quote) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	// Omit the association so GORM does not try to upsert the author row.
	if err := db.WithContext(ctx).Omit("Author").Create(q).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// CountQuotes returns the number of stored quotes.
func CountQuotes(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Quote{}).Count(&total).Error
	return total, err
}

// RandomQuote returns one quote chosen uniformly at random, or ErrNotFound
// when the table is empty.
func RandomQuote(ctx context.Context, db *gorm.DB) (*domain.Quote, error) {
	var q domain.Quote
	err := db.WithContext(ctx).
		Preload("Author").
		Order("RANDOM()").
		Take(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// IsDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicate) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "constraint failed: unique") ||
		strings.Contains(msg, "duplicate key")
}
