package stats

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskledger/domain"
	"github.com/fastygo/taskledger/repository"
)

// Directory names assignees for human-facing output.
type Directory interface {
	Label(id string) string
	AssigneeIDs() []string
}

// SummaryLine is one assignee's progress on a day.
type SummaryLine struct {
	AssigneeID string               `json:"assignee_id"`
	Label      string               `json:"label"`
	Stats      domain.AssigneeStats `json:"stats"`
}

// ExportRow is a flattened task for reports.
type ExportRow struct {
	Date       domain.Date       `json:"date"`
	AssigneeID string            `json:"assignee_id"`
	Assignee   string            `json:"assignee"`
	Title      string            `json:"title"`
	Status     domain.TaskStatus `json:"status"`
	CreatorID  string            `json:"creator_id"`
	DoneAt     *time.Time        `json:"done_at,omitempty"`
}

// Period names accepted by PeriodRange.
const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

type UseCase struct {
	tasks     repository.TaskRepository
	directory Directory
	logger    *zap.Logger
}

func New(tasks repository.TaskRepository, directory Directory, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:     tasks,
		directory: directory,
		logger:    logger,
	}
}

// StatsForDate returns per-assignee counts for date. Days without tasks
// produce an empty map.
func (uc *UseCase) StatsForDate(ctx context.Context, date domain.Date) (domain.DayStats, error) {
	if !date.Valid() {
		return nil, domain.ErrInvalidDate
	}
	return uc.tasks.StatsForDate(ctx, date)
}

// Summary lists every configured assignee plus anyone else holding tasks on
// date, ordered by label.
func (uc *UseCase) Summary(ctx context.Context, date domain.Date) ([]SummaryLine, error) {
	day, err := uc.StatsForDate(ctx, date)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(day))
	lines := make([]SummaryLine, 0, len(day))
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		lines = append(lines, SummaryLine{AssigneeID: id, Label: uc.label(id), Stats: day[id]})
	}
	if uc.directory != nil {
		for _, id := range uc.directory.AssigneeIDs() {
			add(id)
		}
	}
	for id := range day {
		add(id)
	}

	sort.Slice(lines, func(i, j int) bool {
		li, lj := strings.ToLower(lines[i].Label), strings.ToLower(lines[j].Label)
		if li != lj {
			return li < lj
		}
		return lines[i].AssigneeID < lines[j].AssigneeID
	})
	return lines, nil
}

// Export flattens every task dated within [from, to].
func (uc *UseCase) Export(ctx context.Context, from, to domain.Date) ([]ExportRow, error) {
	if !from.Valid() || !to.Valid() || to.Before(from) {
		return nil, domain.ErrInvalidDate
	}
	tasks, err := uc.tasks.ListRange(ctx, repository.TaskRangeFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}

	rows := make([]ExportRow, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, ExportRow{
			Date:       t.Date,
			AssigneeID: t.AssigneeID,
			Assignee:   uc.label(t.AssigneeID),
			Title:      t.Title,
			Status:     t.Status,
			CreatorID:  t.CreatorID,
			DoneAt:     t.DoneAt,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date.Before(rows[j].Date)
		}
		li, lj := strings.ToLower(rows[i].Assignee), strings.ToLower(rows[j].Assignee)
		if li != lj {
			return li < lj
		}
		return strings.ToLower(rows[i].Title) < strings.ToLower(rows[j].Title)
	})

	uc.logger.Debug("export built",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Int("rows", len(rows)))
	return rows, nil
}

func (uc *UseCase) label(id string) string {
	if uc.directory == nil {
		return id
	}
	return uc.directory.Label(id)
}

// PeriodRange resolves a named period relative to today. Weeks run Monday
// to Sunday.
func PeriodRange(period string, today domain.Date) (domain.Date, domain.Date, error) {
	if !today.Valid() {
		return "", "", domain.ErrInvalidDate
	}
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "", PeriodToday:
		return today, today, nil
	case PeriodWeek:
		start := today.AddDays(1 - int(today.Weekday()))
		return start, start.AddDays(6), nil
	case PeriodMonth:
		t := today.Time()
		first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, -1)
		return domain.DateOf(first), domain.DateOf(last), nil
	default:
		return "", "", domain.NewError(domain.ErrCodeInvalid, "unknown period "+period)
	}
}

// FormatSummary renders per-assignee progress as "label: done/total" lines.
func FormatSummary(date domain.Date, lines []SummaryLine) string {
	var b strings.Builder
	b.WriteString("Status for " + date.String() + ":")
	if len(lines) == 0 {
		b.WriteString("\nno tasks")
	}
	for _, line := range lines {
		fmt.Fprintf(&b, "\n%s: %d/%d", line.Label, line.Stats.Done, line.Stats.Total)
	}
	return b.String()
}

var csvHeader = []string{"date", "assignee_id", "assignee", "title", "status", "creator_id", "done_at"}

// WriteCSV renders rows with a header line.
func WriteCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		doneAt := ""
		if r.DoneAt != nil {
			doneAt = r.DoneAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			r.Date.String(),
			r.AssigneeID,
			r.Assignee,
			r.Title,
			string(r.Status),
			r.CreatorID,
			doneAt,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
