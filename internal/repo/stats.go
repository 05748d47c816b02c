// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/quote-broadcaster/internal/domain"
)

// ListenersStats returns the number of listener rows and the greatest ID.
//
// Listeners are append-only and IDs increase monotonically, so the pair
// (count, maxID) changes whenever the collection changes. When the table is
// empty both values are 0.
func ListenersStats(ctx context.Context, db *gorm.DB) (count int64, maxID uint, err error) {
	q := db.WithContext(ctx).Model(&domain.Listener{})

	if err = q.Count(&count).Error; err != nil {
		return 0, 0, err
	}
	if count == 0 {
		return 0, 0, nil
	}

	var row struct {
		ID uint
	}
	if err = db.WithContext(ctx).Model(&domain.Listener{}).Select("id").Order("id DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	return count, row.ID, nil
}
