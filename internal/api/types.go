// Package api implements the HTTP client for the server-side goal endpoints
// and the generic byte-level GET used by the cached-fetch layer. This file
// defines the wire types shared with the server.
package api

import (
	"fmt"
	"time"

	"github.com/tbourn/go-goal-sync/internal/domain"
)

// GoalRecord is the server's representation of a goal. It never carries
// sync bookkeeping; that is purely local state.
type GoalRecord struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	GameMode     domain.GameMode   `json:"gameMode"`
	StartRating  int               `json:"startRating"`
	TargetRating int               `json:"targetRating"`
	TargetDate   time.Time         `json:"targetDate"`
	Status       domain.GoalStatus `json:"status"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// ToGoal converts a server record into a mirror row tagged with the given
// sync status. Server records are authoritative, so LocalOnly is false.
func (r GoalRecord) ToGoal(status domain.SyncStatus) domain.Goal {
	return domain.Goal{
		ID:           r.ID,
		UserID:       r.UserID,
		GameMode:     r.GameMode,
		StartRating:  r.StartRating,
		TargetRating: r.TargetRating,
		TargetDate:   r.TargetDate,
		Status:       r.Status,
		SyncStatus:   status,
		LocalOnly:    false,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// CreateGoalRequest is the body of POST /goals.
type CreateGoalRequest struct {
	GameMode     domain.GameMode `json:"gameMode"`
	StartRating  int             `json:"startRating"`
	TargetRating int             `json:"targetRating"`
	TargetDate   time.Time       `json:"targetDate"`
}

// UpdateGoalRequest is the body of PATCH /goals/{id}. Nil fields are left
// untouched by the server.
type UpdateGoalRequest struct {
	GameMode     *domain.GameMode   `json:"gameMode,omitempty"`
	StartRating  *int               `json:"startRating,omitempty"`
	TargetRating *int               `json:"targetRating,omitempty"`
	TargetDate   *time.Time         `json:"targetDate,omitempty"`
	Status       *domain.GoalStatus `json:"status,omitempty"`
}

// Error is the failure envelope returned by the goal endpoints on 4xx/5xx.
type Error struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether the server answered 404.
func (e *Error) IsNotFound() bool { return e.StatusCode == 404 }
