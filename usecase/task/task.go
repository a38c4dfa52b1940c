package task

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskledger/domain"
	"github.com/fastygo/taskledger/repository"
)

// UseCase covers explicit assignment, the inbox view and completion toggling.
type UseCase struct {
	tasks  repository.TaskRepository
	loc    *time.Location
	logger *zap.Logger

	Now func() time.Time
}

func New(tasks repository.TaskRepository, loc *time.Location, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &UseCase{
		tasks:  tasks,
		loc:    loc,
		logger: logger,
		Now:    time.Now,
	}
}

// Today is the current calendar day in the configured timezone.
func (uc *UseCase) Today() domain.Date {
	return domain.Today(uc.Now(), uc.loc)
}

// Assign creates titles for assigneeID on date. Titles already present in
// that bucket are dropped silently; only the created tasks are returned.
func (uc *UseCase) Assign(ctx context.Context, creatorID, assigneeID string, date domain.Date, titles []string) ([]domain.Task, error) {
	if date == "" {
		date = uc.Today()
	}
	created, err := uc.tasks.CreateTasks(ctx, creatorID, assigneeID, date, titles)
	if err != nil {
		uc.logger.Error("task assignment failed",
			zap.String("assignee_id", assigneeID),
			zap.String("date", date.String()),
			zap.Error(err))
		return nil, err
	}
	uc.logger.Info("tasks assigned",
		zap.String("creator_id", creatorID),
		zap.String("assignee_id", assigneeID),
		zap.String("date", date.String()),
		zap.Int("requested", len(titles)),
		zap.Int("created", len(created)))
	return created, nil
}

// AssignText splits a free-text message into one title per line.
func (uc *UseCase) AssignText(ctx context.Context, creatorID, assigneeID string, date domain.Date, text string) ([]domain.Task, error) {
	return uc.Assign(ctx, creatorID, assigneeID, date, ParseLines(text))
}

// Inbox lists assigneeID's tasks for date, defaulting to today.
func (uc *UseCase) Inbox(ctx context.Context, assigneeID string, date domain.Date) ([]domain.Task, error) {
	if date == "" {
		date = uc.Today()
	}
	return uc.tasks.ListByAssigneeAndDate(ctx, assigneeID, date)
}

func (uc *UseCase) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return uc.tasks.GetByID(ctx, id)
}

// Toggle flips a task between open and done.
func (uc *UseCase) Toggle(ctx context.Context, id string) (*repository.ToggleResult, error) {
	result, err := uc.tasks.Toggle(ctx, id)
	if err != nil {
		if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			uc.logger.Error("task toggle failed", zap.String("task_id", id), zap.Error(err))
		}
		return nil, err
	}
	if len(result.Pruned) > 0 {
		uc.logger.Info("completed series pruned later copies",
			zap.String("task_id", id),
			zap.Int("pruned", len(result.Pruned)))
	}
	return result, nil
}

var bulletPrefix = regexp.MustCompile(`^[-\x{2212}\x{2013}\x{2014}\x{2022}*\s]+`)

// ParseLines turns a multi-line message into titles: leading list bullets are
// stripped and blank lines dropped.
func ParseLines(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
