// Package goals defines the goal view-model service. This file centralizes
// service-level error values so they can be consistently returned by
// service methods and checked by callers with errors.Is. Translation into
// user-facing messages belongs to the presentation layer.
package goals

import "errors"

var (
	// ErrGoalNotFound indicates that the requested goal exists neither in
	// the local mirror nor, as far as the client knows, on the server.
	ErrGoalNotFound = errors.New("goal not found")

	// ErrInvalidGameMode is returned when the game mode is outside the
	// supported set (bullet, blitz, rapid, daily).
	ErrInvalidGameMode = errors.New("invalid game mode")

	// ErrInvalidRatingRange is returned when the target rating does not
	// exceed the starting rating.
	ErrInvalidRatingRange = errors.New("target rating must exceed start rating")

	// ErrPastTargetDate is returned when a goal's target date is not
	// strictly in the future at creation.
	ErrPastTargetDate = errors.New("target date must be in the future")

	// ErrInvalidStatus is returned when a lifecycle status is outside the
	// allowed set (active, completed, abandoned).
	ErrInvalidStatus = errors.New("invalid goal status")
)
