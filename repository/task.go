package repository

import (
	"context"

	"github.com/fastygo/taskledger/domain"
)

// TaskRangeFilter selects tasks dated within [From, To]; AssigneeID is optional.
type TaskRangeFilter struct {
	From       domain.Date
	To         domain.Date
	AssigneeID string
}

// ToggleResult reports the toggled task and any later copies removed with it.
type ToggleResult struct {
	Task   domain.Task   `json:"task"`
	Pruned []domain.Task `json:"pruned,omitempty"`
}

// Planner inspects a snapshot of the whole ledger and returns draft tasks to
// append. Drafts get their ID and CreatedAt from the repository.
type Planner func(snapshot []domain.Task) []domain.Task

type TaskRepository interface {
	CreateTasks(ctx context.Context, creatorID, assigneeID string, date domain.Date, titles []string) ([]domain.Task, error)
	ListByAssigneeAndDate(ctx context.Context, assigneeID string, date domain.Date) ([]domain.Task, error)
	ListRange(ctx context.Context, filter TaskRangeFilter) ([]domain.Task, error)
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	Toggle(ctx context.Context, id string) (*ToggleResult, error)
	StatsForDate(ctx context.Context, date domain.Date) (domain.DayStats, error)
	// Apply runs plan against the current ledger and persists every draft it
	// returns in a single write, or none of them.
	Apply(ctx context.Context, plan Planner) ([]domain.Task, error)
}
