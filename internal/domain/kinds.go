package domain

import "strings"

// GameMode is the time-control category a rating goal tracks.
type GameMode string

// Supported game modes.
const (
	ModeBullet GameMode = "bullet"
	ModeBlitz  GameMode = "blitz"
	ModeRapid  GameMode = "rapid"
	ModeDaily  GameMode = "daily"
)

// Valid reports whether m is one of the supported game modes.
func (m GameMode) Valid() bool {
	switch m {
	case ModeBullet, ModeBlitz, ModeRapid, ModeDaily:
		return true
	}
	return false
}

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

// Goal lifecycle states.
const (
	StatusActive    GoalStatus = "active"
	StatusCompleted GoalStatus = "completed"
	StatusAbandoned GoalStatus = "abandoned"
)

// Valid reports whether s is a known lifecycle state.
func (s GoalStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusAbandoned:
		return true
	}
	return false
}

// SyncStatus tags a local goal record with its relationship to server state.
type SyncStatus string

// Sync states. A record is "synced" when it matches server truth, "pending"
// while a queued mutation has not yet round-tripped, and "failed" once that
// mutation exhausted its retries.
const (
	SyncSynced  SyncStatus = "synced"
	SyncPending SyncStatus = "pending"
	SyncFailed  SyncStatus = "failed"
)

// OpKind identifies the mutation a queued operation replays.
type OpKind string

// Queued operation kinds.
const (
	OpCreateGoal OpKind = "CREATE_GOAL"
	OpUpdateGoal OpKind = "UPDATE_GOAL"
	OpDeleteGoal OpKind = "DELETE_GOAL"
)

// LocalIDPrefix marks identifiers minted on-device for goals the server has
// not seen yet. The prefix is purged when the create operation reconciles.
const LocalIDPrefix = "local-"

// IsLocalID reports whether id is a temporary, locally minted identifier.
func IsLocalID(id string) bool { return strings.HasPrefix(id, LocalIDPrefix) }
