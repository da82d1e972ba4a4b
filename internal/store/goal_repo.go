// Package store – goal-mirror repository.
//
// The mirror is a read cache for the UI: every optimistic local mutation is
// written here first so lists render instantly, while the operation queue
// guarantees eventual consistency with the server. All functions are
// context-aware and accept a *gorm.DB handle, following the "thin
// repository" approach: no business logic, only CRUD persistence.
//
// Error semantics:
//   - When a goal is not found, functions return ErrNotFound
//     (aliasing gorm.ErrRecordNotFound).
//   - On DB errors the raw gorm error is propagated.
package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-goal-sync/internal/domain"
)

// ListGoalsForUser returns every mirrored goal owned by userID, ordered by
// creation time descending (most recent first). Reflects all local writes
// immediately. Returns an empty slice when the user has no goals.
func ListGoalsForUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Goal, error) {
	var out []domain.Goal
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// ListUnsyncedGoalsForUser returns the user's goals that the server does not
// fully know about yet: local-only records and records whose sync status is
// pending or failed. These form the overlay in the merge policy.
func ListUnsyncedGoalsForUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Goal, error) {
	var out []domain.Goal
	err := db.WithContext(ctx).
		Where("user_id = ? AND (local_only = ? OR sync_status IN ?)",
			userID, true, []domain.SyncStatus{domain.SyncPending, domain.SyncFailed}).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// GetGoal fetches a single mirrored goal by id, or ErrNotFound.
func GetGoal(ctx context.Context, db *gorm.DB, id string) (*domain.Goal, error) {
	var g domain.Goal
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// PutGoal upserts a goal into the mirror, keyed by its identifier. Used both
// for optimistic local writes and for reconciling server-returned records.
func PutGoal(ctx context.Context, db *gorm.DB, g *domain.Goal) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(g).Error
}

// DeleteGoal removes a goal from the mirror entirely. Deleting a missing id
// is not an error: a purge that finds nothing to purge has succeeded.
func DeleteGoal(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Goal{}).Error
}

// MarkGoalSyncStatus flips the sync-status tag of a mirrored goal without
// touching its payload fields. Returns ErrNotFound when the row is gone.
func MarkGoalSyncStatus(ctx context.Context, db *gorm.DB, id string, status domain.SyncStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.Goal{}).
		Where("id = ?", id).
		Update("sync_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
