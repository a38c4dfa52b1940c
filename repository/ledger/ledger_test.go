package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/fastygo/taskledger/domain"
	"github.com/fastygo/taskledger/internal/infrastructure/docstore"
	"github.com/fastygo/taskledger/repository"
)

func newTestRepo(t *testing.T, policy domain.RolloverPolicy) *Repository {
	t.Helper()
	store, err := docstore.OpenBolt(filepath.Join(t.TempDir(), "ledger.db"), "")
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return withDeterminism(New(store, policy))
}

func withDeterminism(repo *Repository) *Repository {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	ticks := 0
	repo.Now = func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Second)
	}
	ids := 0
	repo.NewID = func() string {
		ids++
		return fmt.Sprintf("task-%d", ids)
	}
	return repo
}

func titles(tasks []domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCreateTasksDeduplicatesWithinBatch(t *testing.T) {
	repo := newTestRepo(t, domain.PolicyCarry)
	ctx := context.Background()

	created, err := repo.CreateTasks(ctx, "admin", "u1", "2024-01-01", []string{"Call client", "call client", "Email report"})
	if err != nil {
		t.Fatalf("CreateTasks: %v", err)
	}
	if got := titles(created); !equalStrings(got, []string{"Call client", "Email report"}) {
		t.Fatalf("unexpected titles %v", got)
	}
	for _, task := range created {
		if task.Status != domain.StatusOpen || task.DoneAt != nil {
			t.Fatalf("expected open task without done_at, got %+v", task)
		}
		if task.CreatorID != "admin" || task.AssigneeID != "u1" || task.Date != "2024-01-01" {
			t.Fatalf("unexpected identity fields %+v", task)
		}
	}
}

func TestCreateTasksNeverDuplicatesWithinBucket(t *testing.T) {
	repo := newTestRepo(t, domain.PolicyCarry)
	ctx := context.Background()

	batches := [][]string{
		{"Sweep floor", "  Wash dishes "},
		{"SWEEP FLOOR", "wash dishes", "Water plants"},
		{"", "   ", "water plants "},
	}
	for _, batch := range batches {
		if _, err := repo.CreateTasks(ctx, "admin", "u1", "2024-01-01", batch); err != nil {
			t.Fatalf("CreateTasks(%v): %v", batch, err)
		}
	}

	bucket, err := repo.ListByAssigneeAndDate(ctx, "u1", "2024-01-01")
	if err != nil {
		t.Fatalf("ListByAssigneeAndDate: %v", err)
	}
	if got := titles(bucket); !equalStrings(got, []string{"Sweep floor", "Wash dishes", "Water plants"}) {
		t.Fatalf("unexpected bucket %v", got)
	}

	other, err := repo.CreateTasks(ctx, "admin", "u2", "2024-01-01", []string{"Sweep floor"})
	if err != nil || len(other) != 1 {
		t.Fatalf("another assignee must get its own bucket: %v %v", other, err)
	}
	nextDay, err := repo.CreateTasks(ctx, "admin", "u1", "2024-01-02", []string{"Sweep floor"})
	if err != nil || len(nextDay) != 1 {
		t.Fatalf("another date must get its own bucket: %v %v", nextDay, err)
	}
}

func TestCreateTasksValidation(t *testing.T) {
	repo := newTestRepo(t, domain.PolicyCarry)
	ctx := context.Background()

	created, err := repo.CreateTasks(ctx, "admin", "u1", "2024-01-01", nil)
	if err != nil || len(created) != 0 {
		t.Fatalf("empty titles must be a no-op, got %v %v", created, err)
	}
	if _, err := repo.CreateTasks(ctx, "admin", "u1", "01.01.2024", []string{"A"}); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected invalid date error, got %v", err)
	}
	if _, err := repo.CreateTasks(ctx, "admin", " ", "2024-01-01", []string{"A"}); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Fatalf("expected invalid payload error, got %v", err)
	}
}

func TestListByAssigneeAndDateOrdersByCreation(t *testing.T) {
	repo := newTestRepo(t, domain.PolicyCarry)
	ctx := context.Background()

	for _, title := range []string{"First", "Second", "Third"} {
		if _, err := repo.CreateTasks(ctx, "admin", "u1", "2024-01-01", []string{title}); err != nil {
			t.Fatalf("CreateTasks: %v", err)
		}
	}
	if _, err := repo.CreateTasks(ctx, "admin", "u1", "2024-01-01", []string{"Fourth", "Fifth"}); err != nil {
		t.Fatalf("CreateTasks: %v", err)
	}

	list, err := repo.ListByAssigneeAndDate(ctx, "u1", "2024-01-01")
	if err != nil {
		t.Fatalf("ListByAssigneeAndDate: %v", err)
	}
	if got := titles(list); !equalStrings(got, []string{"First", "Second", "Third", "Fourth", "Fifth"}) {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestToggleIsItsOwnInverse(t *testing.T) {
	repo := newTestRepo(t, domain.PolicyCarry)
	ctx := context.Background()

	created, _ := repo.CreateTasks(ctx, "admin", "u1", "2024-01-01", []string{"Sweep floor"})
	id := created[0].ID

	first, err := repo.Toggle(ctx, id)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if first.Task.Status != domain.StatusDone || first.Task.DoneAt == nil {
		t.Fatalf("expected done with done_at, got %+v", first.Task)
	}

	second, err := repo.Toggle(ctx, id)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if second.Task.Status != domain.StatusOpen || second.Task.DoneAt != nil {
		t.Fatalf("expected original open state, got %+v", second.Task)
	}
}

func TestToggleUnknownTask(t *testing.T) {
	repo := newTestRepo(t, domain.PolicyCarry)

	_, err := repo.Toggle(context.Background(), "missing")
	if !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestToggleCarryPolicyNeverPrunes(t *testing.T) {
	repo := newTestRepo(t, domain.PolicyCarry)
	ctx := context.Background()

	today, _ := repo.CreateTasks(ctx, "admin", "u1", "2024-01-01", []string{"Sweep floor"})
	repo.CreateTasks(ctx, "admin", "u1", "2024-01-03", []string{"Sweep floor"})

	result, err := repo.Toggle(ctx, today[0].ID)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if len(result.Pruned) != 0 {
		t.Fatalf("carry policy must not prune, pruned %v", result.Pruned)
	}
	later, _ := repo.ListByAssigneeAndDate(ctx, "u1", "2024-01-03")
	if len(later) != 1 {
		t.Fatalf("expected later copy to survive, got %v", later)
	}
}

func TestToggleSeriesPolicyPrunesLaterCopies(t *testing.T) {
	repo := newTestRepo(t, domain.PolicySeries)
	ctx := context.Background()

	earlier, _ := repo.CreateTasks(ctx, "admin", "u1", "2023-12-31", []string{"Sweep floor"})
	today, _ := repo.CreateTasks(ctx, "admin", "u1", "2024-01-01", []string{"Sweep floor"})
	repo.CreateTasks(ctx, "admin", "u1", "2024-01-02", []string{"sweep FLOOR"})
	repo.CreateTasks(ctx, "admin", "u1", "2024-01-03", []string{"Sweep floor"})
	repo.CreateTasks(ctx, "admin", "u1", "2024-01-03", []string{"Other chore"})
	repo.CreateTasks(ctx, "admin", "u2", "2024-01-03", []string{"Sweep floor"})

	result, err := repo.Toggle(ctx, today[0].ID)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if len(result.Pruned) != 2 {
		t.Fatalf("expected 2 pruned copies, got %+v", result.Pruned)
	}

	all, _ := repo.ListRange(ctx, repository.TaskRangeFilter{})
	var remaining []string
	for _, task := range all {
		remaining = append(remaining, fmt.Sprintf("%s/%s/%s", task.AssigneeID, task.Date, task.Title))
	}
	want := []string{
		"u1/2023-12-31/Sweep floor",
		"u1/2024-01-01/Sweep floor",
		"u1/2024-01-03/Other chore",
		"u2/2024-01-03/Sweep floor",
	}
	if !equalStrings(remaining, want) {
		t.Fatalf("unexpected ledger after prune:\n got %v\nwant %v", remaining, want)
	}

	// Reopening restores status but not the pruned copies.
	reopened, err := repo.Toggle(ctx, today[0].ID)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if reopened.Task.Status != domain.StatusOpen || reopened.Task.DoneAt != nil {
		t.Fatalf("expected reopened task, got %+v", reopened.Task)
	}
	after, _ := repo.ListRange(ctx, repository.TaskRangeFilter{})
	if len(after) != len(want) {
		t.Fatalf("pruned copies must stay deleted, got %d tasks", len(after))
	}

	if _, err := repo.GetByID(ctx, earlier[0].ID); err != nil {
		t.Fatalf("earlier copy must survive: %v", err)
	}
}

func TestStatsForDate(t *testing.T) {
	repo := newTestRepo(t, domain.PolicyCarry)
	ctx := context.Background()

	u1, _ := repo.CreateTasks(ctx, "admin", "u1", "2024-01-01", []string{"A", "B", "C"})
	repo.CreateTasks(ctx, "admin", "u2", "2024-01-01", []string{"A"})
	repo.CreateTasks(ctx, "admin", "u2", "2024-01-02", []string{"Z"})
	repo.Toggle(ctx, u1[0].ID)

	stats, err := repo.StatsForDate(ctx, "2024-01-01")
	if err != nil {
		t.Fatalf("StatsForDate: %v", err)
	}
	if stats["u1"] != (domain.AssigneeStats{Total: 3, Done: 1, Open: 2}) {
		t.Fatalf("unexpected u1 stats %+v", stats["u1"])
	}
	if stats["u2"] != (domain.AssigneeStats{Total: 1, Done: 0, Open: 1}) {
		t.Fatalf("unexpected u2 stats %+v", stats["u2"])
	}
	sum := stats.Sum()
	if sum.Done+sum.Open != sum.Total || sum.Total != 4 {
		t.Fatalf("stats do not add up: %+v", sum)
	}

	empty, err := repo.StatsForDate(ctx, "2030-01-01")
	if err != nil {
		t.Fatalf("StatsForDate: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil stats, got %v", empty)
	}
}

func TestListRange(t *testing.T) {
	repo := newTestRepo(t, domain.PolicyCarry)
	ctx := context.Background()

	repo.CreateTasks(ctx, "admin", "u1", "2024-01-03", []string{"C"})
	repo.CreateTasks(ctx, "admin", "u1", "2024-01-01", []string{"A"})
	repo.CreateTasks(ctx, "admin", "u2", "2024-01-02", []string{"B"})
	repo.CreateTasks(ctx, "admin", "u1", "2024-01-05", []string{"E"})

	tasks, err := repo.ListRange(ctx, repository.TaskRangeFilter{From: "2024-01-01", To: "2024-01-03"})
	if err != nil {
		t.Fatalf("ListRange: %v", err)
	}
	if got := titles(tasks); !equalStrings(got, []string{"A", "B", "C"}) {
		t.Fatalf("unexpected range %v", got)
	}

	mine, _ := repo.ListRange(ctx, repository.TaskRangeFilter{From: "2024-01-01", To: "2024-01-31", AssigneeID: "u1"})
	if got := titles(mine); !equalStrings(got, []string{"A", "C", "E"}) {
		t.Fatalf("unexpected assignee range %v", got)
	}
}

type failingSaves struct {
	docstore.Backend
}

func (f failingSaves) Save(ctx context.Context, doc *docstore.Document) error {
	return domain.WrapError(domain.ErrCodePersistence, "ledger write failed", errors.New("locked"))
}

func TestApplyPersistsAllOrNothing(t *testing.T) {
	store, err := docstore.OpenBolt(filepath.Join(t.TempDir(), "ledger.db"), "")
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	repo := withDeterminism(New(store, domain.PolicyCarry))
	plan := func(snapshot []domain.Task) []domain.Task {
		return []domain.Task{
			{Title: "A", Date: "2024-01-02", AssigneeID: "u1", CreatorID: domain.CreatorSystem},
			{Title: "B", Date: "2024-01-02", AssigneeID: "u1", CreatorID: domain.CreatorSystem},
		}
	}

	broken := withDeterminism(New(failingSaves{store}, domain.PolicyCarry))
	if _, err := broken.Apply(ctx, plan); !domain.IsDomainError(err, domain.ErrCodePersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	none, _ := repo.ListByAssigneeAndDate(ctx, "u1", "2024-01-02")
	if len(none) != 0 {
		t.Fatalf("failed apply must not persist anything, got %v", none)
	}

	created, err := repo.Apply(ctx, plan)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(created) != 2 || created[0].ID == "" || created[0].Status != domain.StatusOpen {
		t.Fatalf("unexpected created tasks %+v", created)
	}
	stored, _ := repo.ListByAssigneeAndDate(ctx, "u1", "2024-01-02")
	if len(stored) != 2 {
		t.Fatalf("expected both drafts persisted, got %v", stored)
	}
}

func TestUsersEnsure(t *testing.T) {
	repo := newTestRepo(t, domain.PolicyCarry)
	users := repo.Users()
	ctx := context.Background()

	created, err := users.Ensure(ctx, "42", "alice", "Alice A")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if created.CreatedAt.IsZero() || created.Handle != "alice" {
		t.Fatalf("unexpected user %+v", created)
	}

	updated, err := users.Ensure(ctx, "42", "", "Alice B")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if updated.Handle != "alice" || updated.DisplayName != "Alice B" {
		t.Fatalf("empty handle must not erase stored one, got %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at must not change")
	}

	list, _ := users.List(ctx)
	if len(list) != 1 {
		t.Fatalf("expected a single user, got %v", list)
	}
	if _, err := users.GetByID(ctx, "nobody"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	repo := newTestRepo(t, domain.PolicyCarry)
	ctx := context.Background()

	var ids []string
	found, err := repo.GetSetting(ctx, "adminIds", &ids)
	if err != nil || found {
		t.Fatalf("expected missing setting, got found=%v err=%v", found, err)
	}

	if err := repo.PutSetting(ctx, "adminIds", []string{"1", "2"}); err != nil {
		t.Fatalf("PutSetting: %v", err)
	}
	found, err = repo.GetSetting(ctx, "adminIds", &ids)
	if err != nil || !found || !equalStrings(ids, []string{"1", "2"}) {
		t.Fatalf("unexpected setting %v found=%v err=%v", ids, found, err)
	}
}
