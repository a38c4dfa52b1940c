package rollover

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/taskledger/domain"
	"github.com/fastygo/taskledger/repository"
)

type UseCase struct {
	tasks  repository.TaskRepository
	policy domain.RolloverPolicy
	logger *zap.Logger
}

func New(tasks repository.TaskRepository, policy domain.RolloverPolicy, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == "" {
		policy = domain.PolicyCarry
	}
	return &UseCase{
		tasks:  tasks,
		policy: policy,
		logger: logger,
	}
}

func (uc *UseCase) Policy() domain.RolloverPolicy {
	return uc.policy
}

// RollOver carries the open tasks of from onto to and returns the created
// copies. The whole batch is persisted in a single write, so a failed run
// leaves the ledger untouched and a repeated run creates nothing.
func (uc *UseCase) RollOver(ctx context.Context, from, to domain.Date) ([]domain.Task, error) {
	if !from.Valid() || !to.Valid() || !to.After(from) {
		return nil, domain.ErrInvalidDate
	}

	created, err := uc.tasks.Apply(ctx, func(snapshot []domain.Task) []domain.Task {
		return Plan(snapshot, from, to, uc.policy)
	})
	if err != nil {
		uc.logger.Error("rollover failed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.String("policy", string(uc.policy)),
			zap.Error(err))
		return nil, err
	}

	uc.logger.Info("rollover finished",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("policy", string(uc.policy)),
		zap.Int("carried", len(created)))
	return created, nil
}

// Plan computes the drafts a rollover from one day to the next would create.
// It never mutates snapshot. Under the series policy an open task whose
// series has a done instance anywhere in the ledger is not carried.
func Plan(snapshot []domain.Task, from, to domain.Date, policy domain.RolloverPolicy) []domain.Task {
	present := make(map[domain.SeriesKey]struct{})
	finished := make(map[domain.SeriesKey]struct{})
	for i := range snapshot {
		t := &snapshot[i]
		if t.Date == to {
			present[t.Series()] = struct{}{}
		}
		if policy == domain.PolicySeries && t.IsCompleted() {
			finished[t.Series()] = struct{}{}
		}
	}

	drafts := []domain.Task{}
	for i := range snapshot {
		t := &snapshot[i]
		if t.Date != from || t.IsCompleted() {
			continue
		}
		key := t.Series()
		if _, ok := present[key]; ok {
			continue
		}
		if _, ok := finished[key]; ok {
			continue
		}
		drafts = append(drafts, domain.Task{
			Title:      t.Title,
			Date:       to,
			CreatorID:  carriedCreator(t, policy),
			AssigneeID: t.AssigneeID,
			Status:     domain.StatusOpen,
		})
		present[key] = struct{}{}
	}
	return drafts
}

func carriedCreator(t *domain.Task, policy domain.RolloverPolicy) string {
	if policy == domain.PolicySeries {
		return domain.CreatorRollover
	}
	if t.CreatorID == "" {
		return domain.CreatorSystem
	}
	return t.CreatorID
}
