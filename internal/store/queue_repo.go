// Package store – operation-queue repository.
//
// The queue is the single source of truth for "what must still happen"
// against the server. Entries are append-only (EnqueueOperation never
// overwrites), replayed in insertion order to preserve causal ordering of
// mutations on the same entity, and removed only after a successful replay.
//
// Functions:
//
//   - EnqueueOperation(ctx, db, kind, targetID, payload) -> (*QueuedOperation, error)
//     Appends a new intent and returns it with its assigned sequence id.
//
//   - ListQueue(ctx, db) -> []QueuedOperation
//     Returns the whole queue in insertion (sequence id) order.
//
//   - RemoveFromQueue(ctx, db, id) -> error
//     Deletes a replayed entry.
//
//   - UpdateQueueRetry(ctx, db, id, retryCount, lastError) -> error
//     Records a failed attempt: new retry count, error text, attempt time.
//
//   - RewriteQueueTargetID(ctx, db, oldID, newID) -> error
//     Repoints queued entries from a temporary local identifier to the
//     server-assigned one after a create reconciles.
package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-goal-sync/internal/domain"
)

// EnqueueOperation appends a mutation intent to the durable queue and
// returns the stored row, including its auto-assigned sequence id.
func EnqueueOperation(ctx context.Context, db *gorm.DB, kind domain.OpKind, targetID string, payload []byte) (*domain.QueuedOperation, error) {
	op := &domain.QueuedOperation{
		Kind:       kind,
		TargetID:   targetID,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(op).Error; err != nil {
		return nil, err
	}
	return op, nil
}

// ListQueue returns all queued operations in insertion order.
func ListQueue(ctx context.Context, db *gorm.DB) ([]domain.QueuedOperation, error) {
	var out []domain.QueuedOperation
	err := db.WithContext(ctx).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// RemoveFromQueue deletes the queue entry with the given sequence id.
func RemoveFromQueue(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.QueuedOperation{}).Error
}

// UpdateQueueRetry records a failed replay attempt on a queue entry.
// Returns ErrNotFound when the entry no longer exists.
func UpdateQueueRetry(ctx context.Context, db *gorm.DB, id uint, retryCount int, lastError string) error {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.QueuedOperation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count":     retryCount,
			"last_error":      lastError,
			"last_attempt_at": &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RewriteQueueTargetID repoints every queued entry whose target is oldID to
// newID. Called after a create replay succeeds so that later updates or
// deletes recorded against the temporary local identifier replay against
// the server-assigned one. Matching zero rows is fine.
func RewriteQueueTargetID(ctx context.Context, db *gorm.DB, oldID, newID string) error {
	return db.WithContext(ctx).
		Model(&domain.QueuedOperation{}).
		Where("target_id = ?", oldID).
		Update("target_id", newID).Error
}
