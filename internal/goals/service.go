// Package goals – view-model service.
//
// The service is the mutation entry point for the UI. Every mutation does
// three things, in order: a synchronous optimistic write to the local
// mirror, a durable enqueue of the mutation intent, and an asynchronous
// sync kick. It never calls the goal mutation endpoints directly; the queue
// manager is the sole writer against the server.
//
// Reads merge the server's authoritative list with the mirror's unsynced
// overlay (see Merge); when the server is unreachable the last-known mirror
// state renders alone, which is the whole point of the offline-first core.
package goals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-goal-sync/internal/api"
	"github.com/tbourn/go-goal-sync/internal/domain"
	"github.com/tbourn/go-goal-sync/internal/store"
)

// SyncQueue is the slice of the queue manager the service depends on.
type SyncQueue interface {
	// Enqueue durably records a mutation intent.
	Enqueue(ctx context.Context, kind domain.OpKind, targetID string, payload []byte) (*domain.QueuedOperation, error)

	// Kick triggers an asynchronous drain pass.
	Kick()
}

// ServerReader is the read-only slice of the API client the service uses.
type ServerReader interface {
	// ListGoals fetches the authoritative goal list for the principal.
	ListGoals(ctx context.Context) ([]api.GoalRecord, error)
}

// Service merges local and server goal state and routes mutations through
// the offline queue.
type Service struct {
	db     *gorm.DB
	queue  SyncQueue
	server ServerReader
	log    zerolog.Logger
	userID string

	// now is injectable for deterministic validation tests.
	now func() time.Time
}

// NewService constructs a goal view-model service for one user.
func NewService(db *gorm.DB, q SyncQueue, server ServerReader, log zerolog.Logger, userID string) *Service {
	return &Service{
		db:     db,
		queue:  q,
		server: server,
		log:    log.With().Str("component", "goals").Logger(),
		userID: userID,
		now:    time.Now,
	}
}

// List returns the merged goal list for the user.
//
// The server list is fetched fresh and reconciled into the mirror (rows the
// server owns and the client has no unsynced edits for are overwritten as
// synced). When the fetch fails the mirror renders alone. Either way a sync
// kick follows, covering the "reconcile on session start" trigger point.
func (s *Service) List(ctx context.Context) ([]domain.Goal, error) {
	var serverGoals []domain.Goal

	recs, err := s.server.ListGoals(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("server list unavailable, rendering from mirror")
	} else {
		serverGoals = make([]domain.Goal, 0, len(recs))
		for _, r := range recs {
			serverGoals = append(serverGoals, r.ToGoal(domain.SyncSynced))
		}
		if err := s.reconcileMirror(ctx, serverGoals); err != nil {
			return nil, err
		}
	}

	local, err := store.ListGoalsForUser(ctx, s.db, s.userID)
	if err != nil {
		return nil, fmt.Errorf("list mirror: %w", err)
	}

	merged := Merge(serverGoals, local)
	s.queue.Kick()
	return merged, nil
}

// Create validates and optimistically creates a goal under a temporary
// local identifier, then queues the server create.
func (s *Service) Create(ctx context.Context, req api.CreateGoalRequest) (*domain.Goal, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	g := &domain.Goal{
		ID:           domain.LocalIDPrefix + uuid.NewString(),
		UserID:       s.userID,
		GameMode:     req.GameMode,
		StartRating:  req.StartRating,
		TargetRating: req.TargetRating,
		TargetDate:   req.TargetDate,
		Status:       domain.StatusActive,
		SyncStatus:   domain.SyncPending,
		LocalOnly:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.PutGoal(ctx, s.db, g); err != nil {
		return nil, fmt.Errorf("store goal: %w", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode create payload: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, domain.OpCreateGoal, g.ID, payload); err != nil {
		return nil, err
	}
	return g, nil
}

// Update applies a partial update optimistically to the mirror and queues
// the server patch. The record flips to pending until the server confirms.
func (s *Service) Update(ctx context.Context, id string, req api.UpdateGoalRequest) (*domain.Goal, error) {
	g, err := store.GetGoal(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, fmt.Errorf("load goal: %w", err)
	}

	applyPatch(g, req)
	if err := s.validateGoal(g); err != nil {
		return nil, err
	}
	g.SyncStatus = domain.SyncPending
	g.UpdatedAt = s.now().UTC()

	if err := store.PutGoal(ctx, s.db, g); err != nil {
		return nil, fmt.Errorf("store goal: %w", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode update payload: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, domain.OpUpdateGoal, id, payload); err != nil {
		return nil, err
	}
	return g, nil
}

// Delete removes a goal from the rendered list immediately and queues the
// server delete. The mirror row survives, flagged pending-delete, until the
// queued operation succeeds; it is purged then, not before.
func (s *Service) Delete(ctx context.Context, id string) error {
	g, err := store.GetGoal(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrGoalNotFound
		}
		return fmt.Errorf("load goal: %w", err)
	}

	g.PendingDelete = true
	g.SyncStatus = domain.SyncPending
	g.UpdatedAt = s.now().UTC()
	if err := store.PutGoal(ctx, s.db, g); err != nil {
		return fmt.Errorf("store goal: %w", err)
	}

	if _, err := s.queue.Enqueue(ctx, domain.OpDeleteGoal, id, nil); err != nil {
		return err
	}
	return nil
}

// reconcileMirror writes server records into the mirror as synced, leaving
// rows with unsynced local edits alone (the overlay owns those until their
// queued operations round-trip).
func (s *Service) reconcileMirror(ctx context.Context, serverGoals []domain.Goal) error {
	for i := range serverGoals {
		g := serverGoals[i]
		existing, err := store.GetGoal(ctx, s.db, g.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("reconcile mirror: %w", err)
		}
		if existing != nil && (existing.SyncStatus != domain.SyncSynced || existing.PendingDelete) {
			continue
		}
		if err := store.PutGoal(ctx, s.db, &g); err != nil {
			return fmt.Errorf("reconcile mirror: %w", err)
		}
	}
	return nil
}

// validateCreate mirrors the server-side rules so obviously invalid goals
// never enter the queue just to be bounced later.
func (s *Service) validateCreate(req api.CreateGoalRequest) error {
	if !req.GameMode.Valid() {
		return ErrInvalidGameMode
	}
	if req.TargetRating <= req.StartRating {
		return ErrInvalidRatingRange
	}
	if !req.TargetDate.After(s.now()) {
		return ErrPastTargetDate
	}
	return nil
}

// validateGoal checks a patched goal's cross-field invariants.
func (s *Service) validateGoal(g *domain.Goal) error {
	if !g.GameMode.Valid() {
		return ErrInvalidGameMode
	}
	if g.TargetRating <= g.StartRating {
		return ErrInvalidRatingRange
	}
	if !g.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// applyPatch copies the non-nil fields of a partial update onto g.
func applyPatch(g *domain.Goal, req api.UpdateGoalRequest) {
	if req.GameMode != nil {
		g.GameMode = *req.GameMode
	}
	if req.StartRating != nil {
		g.StartRating = *req.StartRating
	}
	if req.TargetRating != nil {
		g.TargetRating = *req.TargetRating
	}
	if req.TargetDate != nil {
		g.TargetDate = *req.TargetDate
	}
	if req.Status != nil {
		g.Status = *req.Status
	}
}
