// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Listener model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/quote-broadcaster/internal/domain"
)

// GetListenerByHash fetches a listener by fingerprint, or ErrNotFound.
func GetListenerByHash(ctx context.Context, db *gorm.DB, hashed string) (*domain.Listener, error) {
	var l domain.Listener
	err := db.WithContext(ctx).
		Where("hashed_phone_number = ?", hashed).
		First(&l).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateListener inserts a listener row. A fingerprint or phone number
// collision surfaces as ErrDuplicate.
func CreateListener(ctx context.Context, db *gorm.DB, phone, hashed string) (*domain.Listener, error) {
	l := &domain.Listener{
		PhoneNumber:       phone,
		HashedPhoneNumber: hashed,
		CreatedAt:         time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return l, nil
}

// CountListeners uses a raw COUNT so a missing table surfaces as an error.
func CountListeners(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM listeners").Scan(&total).Error
	return total, err
}

// ListListenersPage returns a slice of listeners ordered by ascending ID.
// The caller computes offset and limit (offset = (page-1)*pageSize).
func ListListenersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Listener, error) {
	out := []domain.Listener{}
	err := db.WithContext(ctx).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
