// Package goals – merge policy.
//
// Merge reconciles the server's authoritative goal list with the local
// mirror's unsynced overlay into the single list the UI renders.
package goals

import (
	"sort"

	"github.com/tbourn/go-goal-sync/internal/domain"
)

// Merge combines server goals with the local overlay, keyed by identifier.
//
// Server entries are authoritative and enter the result marked synced. Any
// local goal that is local-only or carries a pending/failed sync status
// represents state the server does not know about yet: it replaces the
// server's version of the same identifier, or is added alongside when the
// server has no counterpart. Local goals already marked synced are ignored;
// the server copy wins for those.
//
// The result is ordered by creation time descending (ties broken by id so
// the ordering is deterministic). Merging is idempotent: re-merging a
// merged list against the same server list yields the same result, because
// everything is keyed by identifier and the "most local" version is always
// preferred for unsynced items.
// Goals with a pending (not yet terminally failed) queued delete are hidden
// from both sides: the optimistic removal must hold even though the server
// still lists the record and the mirror still holds it. A delete frozen at
// the retry cap flips the mirror row to failed, which resurfaces it here.
func Merge(server, local []domain.Goal) []domain.Goal {
	hidden := make(map[string]bool)
	for _, g := range local {
		if g.PendingDelete && g.SyncStatus != domain.SyncFailed {
			hidden[g.ID] = true
		}
	}

	byID := make(map[string]domain.Goal, len(server)+len(local))

	for _, g := range server {
		if hidden[g.ID] {
			continue
		}
		g.SyncStatus = domain.SyncSynced
		g.LocalOnly = false
		byID[g.ID] = g
	}
	for _, g := range local {
		if hidden[g.ID] {
			continue
		}
		if g.LocalOnly || g.SyncStatus == domain.SyncPending || g.SyncStatus == domain.SyncFailed {
			byID[g.ID] = g
		}
	}

	out := make([]domain.Goal, 0, len(byID))
	for _, g := range byID {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
