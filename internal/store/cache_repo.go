// Package store – cached-entry repository.
//
// Cached entries hold opaque payload blobs for read-heavy remote data
// (player stats, game archives), keyed by subject + platform. Writes always
// overwrite; reads never mutate. Staleness policy lives in the fetchcache
// service, not here.
package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-goal-sync/internal/domain"
)

// GetCachedEntry fetches the cached payload for subject on platform.
// Returns ErrNotFound when nothing has been cached yet. No side effects.
func GetCachedEntry(ctx context.Context, db *gorm.DB, subject, platform string) (*domain.CachedEntry, error) {
	var e domain.CachedEntry
	err := db.WithContext(ctx).
		Where("subject = ? AND platform = ?", subject, platform).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// PutCachedEntry overwrites the cached payload for subject on platform and
// stamps LastUpdated with the current UTC time.
func PutCachedEntry(ctx context.Context, db *gorm.DB, subject, platform string, payload []byte) error {
	e := domain.CachedEntry{
		Subject:     subject,
		Platform:    platform,
		Payload:     payload,
		LastUpdated: time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject"}, {Name: "platform"}},
			UpdateAll: true,
		}).
		Create(&e).Error
}

// IsNotFound reports whether err means "no such record" (as opposed to a
// storage failure that must not be treated as a mere cache miss).
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
