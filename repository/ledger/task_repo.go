package ledger

import (
	"context"
	"sort"
	"strings"

	"github.com/fastygo/taskledger/domain"
	"github.com/fastygo/taskledger/internal/infrastructure/docstore"
	"github.com/fastygo/taskledger/repository"
)

func (r *Repository) CreateTasks(ctx context.Context, creatorID, assigneeID string, date domain.Date, titles []string) ([]domain.Task, error) {
	if strings.TrimSpace(assigneeID) == "" {
		return nil, domain.ErrInvalidPayload
	}
	if !date.Valid() {
		return nil, domain.ErrInvalidDate
	}
	if len(titles) == 0 {
		return []domain.Task{}, nil
	}

	created := []domain.Task{}
	err := r.update(ctx, func(doc *docstore.Document) (bool, error) {
		existing := make(map[string]struct{})
		for _, t := range doc.Tasks {
			if t.AssigneeID == assigneeID && t.Date == date {
				existing[domain.NormalizeTitle(t.Title)] = struct{}{}
			}
		}

		now := r.Now()
		for _, raw := range titles {
			title := strings.TrimSpace(raw)
			if title == "" {
				continue
			}
			key := domain.NormalizeTitle(title)
			if _, ok := existing[key]; ok {
				continue
			}
			task := domain.Task{
				ID:         r.NewID(),
				Title:      title,
				Date:       date,
				CreatorID:  creatorID,
				AssigneeID: assigneeID,
				Status:     domain.StatusOpen,
				CreatedAt:  now,
			}
			doc.Tasks = append(doc.Tasks, task)
			created = append(created, task)
			existing[key] = struct{}{}
		}
		return len(created) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *Repository) ListByAssigneeAndDate(ctx context.Context, assigneeID string, date domain.Date) ([]domain.Task, error) {
	tasks := []domain.Task{}
	err := r.view(ctx, func(doc *docstore.Document) error {
		for _, t := range doc.Tasks {
			if t.AssigneeID == assigneeID && t.Date == date {
				tasks = append(tasks, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (r *Repository) ListRange(ctx context.Context, filter repository.TaskRangeFilter) ([]domain.Task, error) {
	tasks := []domain.Task{}
	err := r.view(ctx, func(doc *docstore.Document) error {
		for _, t := range doc.Tasks {
			if filter.From != "" && t.Date.Before(filter.From) {
				continue
			}
			if filter.To != "" && t.Date.After(filter.To) {
				continue
			}
			if filter.AssigneeID != "" && t.AssigneeID != filter.AssigneeID {
				continue
			}
			tasks = append(tasks, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Date != tasks[j].Date {
			return tasks[i].Date.Before(tasks[j].Date)
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var found *domain.Task
	err := r.view(ctx, func(doc *docstore.Document) error {
		for i := range doc.Tasks {
			if doc.Tasks[i].ID == id {
				task := doc.Tasks[i]
				found = &task
				return nil
			}
		}
		return domain.ErrTaskNotFound
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Toggle flips a task between open and done. Under the series policy, marking
// a task done also deletes every other task of the same series dated strictly
// after it; reopening the task does not bring them back.
func (r *Repository) Toggle(ctx context.Context, id string) (*repository.ToggleResult, error) {
	result := &repository.ToggleResult{}
	err := r.update(ctx, func(doc *docstore.Document) (bool, error) {
		idx := -1
		for i := range doc.Tasks {
			if doc.Tasks[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return false, domain.ErrTaskNotFound
		}

		task := &doc.Tasks[idx]
		if task.IsCompleted() {
			task.SetStatus(domain.StatusOpen, r.Now())
		} else {
			task.SetStatus(domain.StatusDone, r.Now())
		}
		result.Task = *task

		if task.IsCompleted() && r.policy.PrunesOnDone() {
			series := task.Series()
			kept := doc.Tasks[:0:0]
			for _, t := range doc.Tasks {
				if t.ID != task.ID && t.Series() == series && t.Date.After(task.Date) {
					result.Pruned = append(result.Pruned, t)
					continue
				}
				kept = append(kept, t)
			}
			doc.Tasks = kept
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Repository) StatsForDate(ctx context.Context, date domain.Date) (domain.DayStats, error) {
	stats := domain.DayStats{}
	err := r.view(ctx, func(doc *docstore.Document) error {
		for _, t := range doc.Tasks {
			if t.Date != date {
				continue
			}
			st := stats[t.AssigneeID]
			st.Total++
			if t.IsCompleted() {
				st.Done++
			} else {
				st.Open++
			}
			stats[t.AssigneeID] = st
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *Repository) Apply(ctx context.Context, plan repository.Planner) ([]domain.Task, error) {
	if plan == nil {
		return []domain.Task{}, nil
	}
	created := []domain.Task{}
	err := r.update(ctx, func(doc *docstore.Document) (bool, error) {
		snapshot := make([]domain.Task, len(doc.Tasks))
		copy(snapshot, doc.Tasks)

		now := r.Now()
		for _, draft := range plan(snapshot) {
			draft.ID = r.NewID()
			draft.CreatedAt = now
			if draft.Status == "" {
				draft.Status = domain.StatusOpen
			}
			doc.Tasks = append(doc.Tasks, draft)
			created = append(created, draft)
		}
		return len(created) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
