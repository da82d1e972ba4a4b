// Package queue implements the offline queue manager: the sole writer of
// goal mutations against the server. Mutation intents are persisted in the
// durable local store, replayed in strict enqueue order when connectivity
// allows, and retried up to a bounded maximum before being frozen for
// inspection.
//
// State machine per queued operation:
//
//	queued -> (drain attempt) -> success:               removed
//	                          -> failure, retries left: requeued, count+1
//	                          -> failure, cap reached:  frozen with terminal error
//
// The manager is an explicitly constructed service, injected where needed;
// its lifecycle belongs to application wiring, not to a package-level
// singleton.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/tbourn/go-goal-sync/internal/api"
	"github.com/tbourn/go-goal-sync/internal/domain"
	"github.com/tbourn/go-goal-sync/internal/store"
)

// DefaultMaxRetries is the retry cap applied when a Manager is built with
// a non-positive maximum.
const DefaultMaxRetries = 3

// terminalErrPrefix stamps a frozen operation's last error so repeated
// drain passes can tell it has already been finalized.
const terminalErrPrefix = "retry limit reached: "

// GoalAPI is the slice of the server client the manager replays against.
type GoalAPI interface {
	CreateGoal(ctx context.Context, req api.CreateGoalRequest) (*api.GoalRecord, error)
	UpdateGoal(ctx context.Context, id string, req api.UpdateGoalRequest) (*api.GoalRecord, error)
	DeleteGoal(ctx context.Context, id string) error
}

// Manager coordinates the durable operation queue. Safe for concurrent use.
type Manager struct {
	db     *gorm.DB
	api    GoalAPI
	log    zerolog.Logger
	online func() bool

	maxRetries int

	// kick throttles opportunistic sync passes triggered by enqueues and
	// reconnect signals, so connectivity flapping cannot stampede the drain.
	// Explicit Sync calls bypass it.
	kick *rate.Limiter

	// mu guards the syncing latch and the rerun flag.
	mu      sync.Mutex
	syncing bool
	rerun   bool
}

// Options configures a Manager.
type Options struct {
	// MaxRetries caps replay attempts per operation; <=0 means DefaultMaxRetries.
	MaxRetries int
	// KickRPS / KickBurst shape the token bucket for opportunistic syncs.
	// KickRPS <= 0 disables throttling (every kick runs).
	KickRPS   float64
	KickBurst int
	// Online reports current network availability. nil means always online.
	Online func() bool
}

// NewManager constructs a queue manager over the given store handle and
// server client.
func NewManager(db *gorm.DB, goalAPI GoalAPI, log zerolog.Logger, opts Options) *Manager {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.Online == nil {
		opts.Online = func() bool { return true }
	}
	var kick *rate.Limiter
	if opts.KickRPS > 0 {
		burst := opts.KickBurst
		if burst <= 0 {
			burst = 1
		}
		kick = rate.NewLimiter(rate.Limit(opts.KickRPS), burst)
	}
	return &Manager{
		db:         db,
		api:        goalAPI,
		log:        log.With().Str("component", "queue").Logger(),
		online:     opts.Online,
		maxRetries: opts.MaxRetries,
		kick:       kick,
	}
}

// Enqueue durably records a mutation intent and, when the runtime reports
// network availability, fires an asynchronous drain pass. The caller is
// never blocked on the network.
//
// Store failures are fatal to the caller: an intent that could not be
// persisted must not be silently dropped.
func (m *Manager) Enqueue(ctx context.Context, kind domain.OpKind, targetID string, payload []byte) (*domain.QueuedOperation, error) {
	op, err := store.EnqueueOperation(ctx, m.db, kind, targetID, payload)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", kind, err)
	}
	queueDepth.Inc()
	m.log.Debug().Uint("op", op.ID).Str("kind", string(kind)).Str("target", targetID).Msg("operation queued")

	if m.online() {
		m.Kick()
	}
	return op, nil
}

// Kick triggers an asynchronous, rate-limited drain pass. Used after
// enqueues and on reconnect signals; a kick denied by the limiter is
// dropped, the periodic trigger will cover it.
func (m *Manager) Kick() {
	if m.kick != nil && !m.kick.Allow() {
		return
	}
	go func() {
		if err := m.Sync(context.Background()); err != nil {
			m.log.Warn().Err(err).Msg("background sync pass failed")
		}
	}()
}

// Sync drains the queue once, in strict enqueue order. It is idempotent and
// reentrant-safe: overlapping triggers collapse into the in-flight pass,
// which reruns once after finishing so work enqueued mid-pass is not missed.
func (m *Manager) Sync(ctx context.Context) error {
	m.mu.Lock()
	if m.syncing {
		m.rerun = true
		m.mu.Unlock()
		return nil
	}
	m.syncing = true
	m.mu.Unlock()

	for {
		err := m.drain(ctx)

		m.mu.Lock()
		again := m.rerun && err == nil && ctx.Err() == nil
		m.rerun = false
		if !again {
			m.syncing = false
		}
		m.mu.Unlock()

		if !again {
			if err != nil {
				syncPasses.WithLabelValues("error").Inc()
			} else {
				syncPasses.WithLabelValues("ok").Inc()
			}
			return err
		}
	}
}

// drain performs a single pass over the queue. Individual replay failures
// update retry bookkeeping and continue to the next item; store failures
// abort the pass (the affected operation simply stays queued).
func (m *Manager) drain(ctx context.Context) error {
	ops, err := store.ListQueue(ctx, m.db)
	if err != nil {
		return fmt.Errorf("list queue: %w", err)
	}
	queueDepth.Set(float64(len(ops)))

	for i := range ops {
		op := &ops[i]
		if err := ctx.Err(); err != nil {
			return err
		}

		if op.RetryCount >= m.maxRetries {
			if err := m.freeze(ctx, op); err != nil {
				return err
			}
			continue
		}

		serverID, err := m.replay(ctx, op)
		if err != nil {
			replayAttempts.WithLabelValues(string(op.Kind), "error").Inc()
			if ferr := m.recordFailure(ctx, op, err); ferr != nil {
				return ferr
			}
			continue
		}

		// A reconciled create renames the entity; later snapshot entries
		// still holding the temp id must replay against the server id
		// (their durable rows were already rewritten).
		if serverID != "" && domain.IsLocalID(op.TargetID) {
			for j := i + 1; j < len(ops); j++ {
				if ops[j].TargetID == op.TargetID {
					ops[j].TargetID = serverID
				}
			}
		}

		replayAttempts.WithLabelValues(string(op.Kind), "ok").Inc()
		if err := store.RemoveFromQueue(ctx, m.db, op.ID); err != nil {
			return fmt.Errorf("remove op %d: %w", op.ID, err)
		}
		queueDepth.Dec()
		m.log.Info().Uint("op", op.ID).Str("kind", string(op.Kind)).Msg("operation replayed")
	}
	return nil
}

// replay dispatches one operation to its kind-specific routine. For creates
// the returned string is the server-assigned identifier.
func (m *Manager) replay(ctx context.Context, op *domain.QueuedOperation) (string, error) {
	switch op.Kind {
	case domain.OpCreateGoal:
		return m.replayCreate(ctx, op)
	case domain.OpUpdateGoal:
		return "", m.replayUpdate(ctx, op)
	case domain.OpDeleteGoal:
		return "", m.replayDelete(ctx, op)
	default:
		return "", fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

// replayCreate issues the server create. On success the server-returned
// record replaces the optimistic local one: the temporary mirror row is
// purged, and any later queued operations recorded against the temporary
// identifier are repointed at the server-assigned id so causal ordering
// stays meaningful.
func (m *Manager) replayCreate(ctx context.Context, op *domain.QueuedOperation) (string, error) {
	var req api.CreateGoalRequest
	if err := json.Unmarshal(op.Payload, &req); err != nil {
		return "", fmt.Errorf("decode create payload: %w", err)
	}

	rec, err := m.api.CreateGoal(ctx, req)
	if err != nil {
		return "", err
	}

	g := rec.ToGoal(domain.SyncSynced)
	if err := store.PutGoal(ctx, m.db, &g); err != nil {
		return "", fmt.Errorf("reconcile created goal: %w", err)
	}
	if domain.IsLocalID(op.TargetID) {
		if err := store.DeleteGoal(ctx, m.db, op.TargetID); err != nil {
			return "", fmt.Errorf("purge temp goal %s: %w", op.TargetID, err)
		}
		if err := store.RewriteQueueTargetID(ctx, m.db, op.TargetID, rec.ID); err != nil {
			return "", fmt.Errorf("rewrite queue targets: %w", err)
		}
	}
	return rec.ID, nil
}

// replayUpdate issues the server update and overwrites the local mirror
// with the server response, marked synced.
func (m *Manager) replayUpdate(ctx context.Context, op *domain.QueuedOperation) error {
	var req api.UpdateGoalRequest
	if err := json.Unmarshal(op.Payload, &req); err != nil {
		return fmt.Errorf("decode update payload: %w", err)
	}

	rec, err := m.api.UpdateGoal(ctx, op.TargetID, req)
	if err != nil {
		return err
	}

	g := rec.ToGoal(domain.SyncSynced)
	if err := store.PutGoal(ctx, m.db, &g); err != nil {
		return fmt.Errorf("reconcile updated goal: %w", err)
	}
	return nil
}

// replayDelete issues the server delete and purges the local mirror. A 404
// counts as already-applied: the record is gone either way.
func (m *Manager) replayDelete(ctx context.Context, op *domain.QueuedOperation) error {
	err := m.api.DeleteGoal(ctx, op.TargetID)
	if err != nil {
		var apiErr *api.Error
		if !(errors.As(err, &apiErr) && apiErr.IsNotFound()) {
			return err
		}
	}
	if err := store.DeleteGoal(ctx, m.db, op.TargetID); err != nil {
		return fmt.Errorf("purge mirror %s: %w", op.TargetID, err)
	}
	return nil
}

// recordFailure increments retry bookkeeping after a failed replay and, when
// the cap is hit, freezes the operation and re-marks the mirror as failed.
func (m *Manager) recordFailure(ctx context.Context, op *domain.QueuedOperation, cause error) error {
	op.RetryCount++
	msg := cause.Error()
	if op.RetryCount >= m.maxRetries {
		msg = terminalErrPrefix + msg
	}
	if err := store.UpdateQueueRetry(ctx, m.db, op.ID, op.RetryCount, msg); err != nil {
		return fmt.Errorf("record retry for op %d: %w", op.ID, err)
	}

	if op.RetryCount >= m.maxRetries {
		replayAttempts.WithLabelValues(string(op.Kind), "frozen").Inc()
		m.log.Error().Uint("op", op.ID).Str("kind", string(op.Kind)).Err(cause).
			Int("retries", op.RetryCount).Msg("operation frozen after retry limit")
		return m.markMirrorFailed(ctx, op)
	}

	m.log.Warn().Uint("op", op.ID).Str("kind", string(op.Kind)).Err(cause).
		Int("retries", op.RetryCount).Msg("operation replay failed, will retry")
	return nil
}

// freeze stamps an at-cap operation with a terminal error if a previous
// pass has not already done so. Frozen operations are skipped, never
// deleted; they await manual intervention.
func (m *Manager) freeze(ctx context.Context, op *domain.QueuedOperation) error {
	if strings.HasPrefix(op.LastError, terminalErrPrefix) {
		return nil
	}
	msg := terminalErrPrefix + op.LastError
	if op.LastError == "" {
		msg = strings.TrimSuffix(terminalErrPrefix, ": ")
	}
	if err := store.UpdateQueueRetry(ctx, m.db, op.ID, op.RetryCount, msg); err != nil {
		return fmt.Errorf("freeze op %d: %w", op.ID, err)
	}
	return m.markMirrorFailed(ctx, op)
}

// markMirrorFailed tags the operation's mirror record as failed so the UI
// can surface it. For deletes this deliberately resurrects the record in
// the merged list: a delete the server will never apply should be visible
// again rather than lingering as an invisible ghost.
func (m *Manager) markMirrorFailed(ctx context.Context, op *domain.QueuedOperation) error {
	if op.TargetID == "" {
		return nil
	}
	err := store.MarkGoalSyncStatus(ctx, m.db, op.TargetID, domain.SyncFailed)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("mark mirror failed %s: %w", op.TargetID, err)
	}
	return nil
}
