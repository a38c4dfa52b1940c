package materialize

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/taskledger/domain"
	"github.com/fastygo/taskledger/repository"
)

// TemplateSource resolves the recurring titles configured for an assignee.
type TemplateSource interface {
	TitlesFor(assigneeID string, weekday domain.Weekday) []string
	AssigneeIDs() []string
}

// Result is the outcome of materializing one assignee's day.
type Result struct {
	AssigneeID string
	// Created is nil when nothing is configured and empty when everything already existed.
	Created []domain.Task
	Err     error
}

// Configured reports whether the assignee had any titles for the day.
func (r Result) Configured() bool {
	return r.Created != nil
}

type UseCase struct {
	tasks     repository.TaskRepository
	templates TemplateSource
	logger    *zap.Logger
}

func New(tasks repository.TaskRepository, templates TemplateSource, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:     tasks,
		templates: templates,
		logger:    logger,
	}
}

// EnsureDailyTemplates creates whichever configured titles for weekday are
// still missing from assigneeID's bucket on date. It returns nil when no
// titles are configured and an empty slice when all of them already exist,
// so calling it repeatedly never creates anything twice.
func (uc *UseCase) EnsureDailyTemplates(ctx context.Context, assigneeID string, date domain.Date, weekday domain.Weekday) ([]domain.Task, error) {
	titles := domain.UniqueTitles(uc.templates.TitlesFor(assigneeID, weekday))
	if len(titles) == 0 {
		return nil, nil
	}

	existing, err := uc.tasks.ListByAssigneeAndDate(ctx, assigneeID, date)
	if err != nil {
		return nil, err
	}
	have := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		have[domain.NormalizeTitle(t.Title)] = struct{}{}
	}

	missing := make([]string, 0, len(titles))
	for _, title := range titles {
		if _, ok := have[domain.NormalizeTitle(title)]; !ok {
			missing = append(missing, title)
		}
	}
	if len(missing) == 0 {
		return []domain.Task{}, nil
	}

	return uc.tasks.CreateTasks(ctx, domain.CreatorSystem, assigneeID, date, missing)
}

// RunAll materializes date for every configured assignee. A failure for one
// assignee is logged and recorded in its Result; the others still run.
func (uc *UseCase) RunAll(ctx context.Context, date domain.Date) []Result {
	weekday := date.Weekday()
	ids := uc.templates.AssigneeIDs()
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		created, err := uc.EnsureDailyTemplates(ctx, id, date, weekday)
		if err != nil {
			uc.logger.Error("daily templates failed",
				zap.String("assignee_id", id),
				zap.String("date", date.String()),
				zap.Error(err))
		} else if len(created) > 0 {
			uc.logger.Info("daily templates materialized",
				zap.String("assignee_id", id),
				zap.String("date", date.String()),
				zap.Int("created", len(created)))
		}
		results = append(results, Result{AssigneeID: id, Created: created, Err: err})
	}
	return results
}
