package goals

import (
	"reflect"
	"testing"
	"time"

	"github.com/tbourn/go-goal-sync/internal/domain"
)

func mkGoal(id string, created time.Time, status domain.SyncStatus, localOnly bool) domain.Goal {
	return domain.Goal{
		ID: id, UserID: "u1", GameMode: domain.ModeBlitz,
		StartRating: 1200, TargetRating: 1400,
		Status: domain.StatusActive, SyncStatus: status, LocalOnly: localOnly,
		CreatedAt: created, UpdatedAt: created,
	}
}

func ids(list []domain.Goal) []string {
	out := make([]string, len(list))
	for i, g := range list {
		out[i] = g.ID
	}
	return out
}

func TestMerge_ServerIsAuthoritativeForSyncedRecords(t *testing.T) {
	base := time.Now().UTC()
	server := []domain.Goal{mkGoal("a", base, domain.SyncSynced, false)}
	server[0].TargetRating = 1600 // server truth differs from stale local copy

	local := []domain.Goal{mkGoal("a", base, domain.SyncSynced, false)}

	merged := Merge(server, local)
	if len(merged) != 1 || merged[0].TargetRating != 1600 {
		t.Fatalf("merged = %+v, want server version of a", merged)
	}
}

func TestMerge_UnsyncedLocalTakesPrecedence(t *testing.T) {
	base := time.Now().UTC()
	server := []domain.Goal{mkGoal("a", base, domain.SyncSynced, false)}

	local := []domain.Goal{mkGoal("a", base, domain.SyncPending, false)}
	local[0].TargetRating = 1777 // optimistic edit the server has not seen

	merged := Merge(server, local)
	if len(merged) != 1 {
		t.Fatalf("merged length = %d, want 1", len(merged))
	}
	if merged[0].TargetRating != 1777 || merged[0].SyncStatus != domain.SyncPending {
		t.Fatalf("merged[0] = %+v, want pending local version", merged[0])
	}
}

func TestMerge_LocalOnlyGoalsAppearAlongsideServer(t *testing.T) {
	base := time.Now().UTC()
	server := []domain.Goal{mkGoal("srv-1", base.Add(-time.Hour), domain.SyncSynced, false)}
	local := []domain.Goal{mkGoal("local-1", base, domain.SyncPending, true)}

	merged := Merge(server, local)
	if got, want := ids(merged), []string{"local-1", "srv-1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ids = %v, want %v (creation desc)", got, want)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	base := time.Now().UTC()
	server := []domain.Goal{
		mkGoal("srv-1", base.Add(-2*time.Hour), domain.SyncSynced, false),
		mkGoal("srv-2", base.Add(-time.Hour), domain.SyncSynced, false),
	}
	local := []domain.Goal{
		mkGoal("local-1", base, domain.SyncPending, true),
		mkGoal("srv-2", base.Add(-time.Hour), domain.SyncFailed, false),
	}

	once := Merge(server, local)
	twice := Merge(server, once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("re-merge changed the result:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMerge_OrderedByCreationDesc(t *testing.T) {
	base := time.Now().UTC()
	server := []domain.Goal{
		mkGoal("old", base.Add(-3*time.Hour), domain.SyncSynced, false),
		mkGoal("new", base, domain.SyncSynced, false),
	}
	local := []domain.Goal{mkGoal("mid", base.Add(-time.Hour), domain.SyncPending, true)}

	merged := Merge(server, local)
	if got, want := ids(merged), []string{"new", "mid", "old"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
}

func TestMerge_PendingDeleteHidesRecordFromBothSides(t *testing.T) {
	base := time.Now().UTC()
	server := []domain.Goal{
		mkGoal("srv-1", base, domain.SyncSynced, false),
		mkGoal("srv-2", base.Add(-time.Hour), domain.SyncSynced, false),
	}

	doomed := mkGoal("srv-1", base, domain.SyncPending, false)
	doomed.PendingDelete = true
	local := []domain.Goal{doomed}

	merged := Merge(server, local)
	if got, want := ids(merged), []string{"srv-2"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ids = %v, want %v (srv-1 optimistically deleted)", got, want)
	}
}

func TestMerge_TerminallyFailedDeleteResurfaces(t *testing.T) {
	base := time.Now().UTC()
	server := []domain.Goal{mkGoal("srv-1", base, domain.SyncSynced, false)}

	failed := mkGoal("srv-1", base, domain.SyncFailed, false)
	failed.PendingDelete = true
	local := []domain.Goal{failed}

	merged := Merge(server, local)
	if len(merged) != 1 || merged[0].SyncStatus != domain.SyncFailed {
		t.Fatalf("merged = %+v, want srv-1 resurfaced as failed", merged)
	}
}

func TestMerge_EmptyInputs(t *testing.T) {
	if got := Merge(nil, nil); len(got) != 0 {
		t.Fatalf("Merge(nil, nil) = %+v, want empty", got)
	}
	base := time.Now().UTC()
	local := []domain.Goal{mkGoal("local-1", base, domain.SyncPending, true)}
	if got := Merge(nil, local); len(got) != 1 || got[0].ID != "local-1" {
		t.Fatalf("offline merge = %+v, want the local goal alone", got)
	}
}
