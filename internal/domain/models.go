// Package domain defines the persistence models for the offline-first sync
// core: goal mirrors, cached read entries, and the durable operation queue.
// These types are mapped with GORM and form the local data layer that
// survives process restarts.
package domain

import "time"

// Goal represents a user's rating-improvement target, mirrored locally.
// A goal created offline carries a temporary identifier (see LocalIDPrefix)
// until the create operation round-trips; the mirror row is then replaced
// wholesale by the server-returned record.
//
// Fields:
//   - ID: server-assigned UUID once synced, or "local-"-prefixed temp id.
//   - UserID: identifier of the goal owner; indexed for per-user listing.
//   - GameMode: time-control category (bullet|blitz|rapid|daily).
//   - StartRating / TargetRating: rating bounds; target must exceed start.
//   - TargetDate: deadline; strictly future at creation.
//   - Status: lifecycle state (active|completed|abandoned).
//   - SyncStatus: synced|pending|failed, indexed so unsynced rows are cheap
//     to find for the merge overlay.
//   - LocalOnly: true until the server has a counterpart for this record.
//   - PendingDelete: local-only bookkeeping; set when a delete is queued so
//     rebuilt lists can keep hiding the record until the server confirms.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//
// Rows are hard-deleted: the mirror's delete semantics are "purge once the
// server confirmed", so a soft-deletion marker would only hide ghosts.
type Goal struct {
	ID            string     `json:"id"            gorm:"type:char(64);primaryKey"`
	UserID        string     `json:"userId"        gorm:"type:varchar(64);not null;index:idx_user_goals"`
	GameMode      GameMode   `json:"gameMode"      gorm:"type:varchar(16);not null;check:game_mode IN ('bullet','blitz','rapid','daily')"`
	StartRating   int        `json:"startRating"   gorm:"not null"`
	TargetRating  int        `json:"targetRating"  gorm:"not null"`
	TargetDate    time.Time  `json:"targetDate"    gorm:"not null"`
	Status        GoalStatus `json:"status"        gorm:"type:varchar(16);not null;default:'active';check:status IN ('active','completed','abandoned')"`
	SyncStatus    SyncStatus `json:"syncStatus"    gorm:"type:varchar(16);not null;default:'synced';index:idx_goal_sync"`
	LocalOnly     bool       `json:"localOnly"     gorm:"not null;default:false"`
	PendingDelete bool       `json:"pendingDelete" gorm:"not null;default:false"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TableName returns the database table name for Goal.
func (Goal) TableName() string { return "goals" }

// IsLocal reports whether the goal still carries a temporary local identifier.
func (g Goal) IsLocal() bool { return IsLocalID(g.ID) }

// CachedEntry holds one cached remote read (player stats, game archive),
// keyed by the composite of subject identifier and platform. Staleness is
// decided purely by elapsed time since LastUpdated against a caller-supplied
// max age; there is no versioning and there are no ETags.
type CachedEntry struct {
	Subject     string    `json:"subject"     gorm:"type:varchar(128);primaryKey"`
	Platform    string    `json:"platform"    gorm:"type:varchar(64);primaryKey"`
	Payload     []byte    `json:"payload"     gorm:"type:blob;not null"`
	LastUpdated time.Time `json:"lastUpdated" gorm:"not null"`
}

// TableName returns the database table name for CachedEntry.
func (CachedEntry) TableName() string { return "cached_entries" }

// QueuedOperation is one durably persisted mutation intent awaiting replay
// against the server. It is owned exclusively by the queue manager: created
// on enqueue, destroyed on successful replay, retained with an incremented
// retry count on failure, and frozen (never retried, never deleted) once the
// retry count reaches the manager's maximum.
//
// The auto-incrementing primary key doubles as the causal order of
// mutations: the drain always replays in ascending ID.
type QueuedOperation struct {
	ID            uint       `json:"id"            gorm:"primaryKey;autoIncrement"`
	Kind          OpKind     `json:"kind"          gorm:"type:varchar(16);not null;index:idx_queue_kind"`
	TargetID      string     `json:"targetId"      gorm:"type:char(64)"`
	Payload       []byte     `json:"payload"       gorm:"type:blob"`
	EnqueuedAt    time.Time  `json:"enqueuedAt"    gorm:"not null;index:idx_queue_enqueued"`
	RetryCount    int        `json:"retryCount"    gorm:"not null;default:0"`
	LastAttemptAt *time.Time `json:"lastAttemptAt"`
	LastError     string     `json:"lastError"     gorm:"type:text"`
}

// TableName returns the database table name for QueuedOperation.
func (QueuedOperation) TableName() string { return "operation_queue" }
