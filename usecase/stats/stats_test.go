package stats

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fastygo/taskledger/domain"
	"github.com/fastygo/taskledger/repository"
)

type fakeTasks struct {
	repository.TaskRepository
	tasks []domain.Task
}

func (f *fakeTasks) StatsForDate(_ context.Context, date domain.Date) (domain.DayStats, error) {
	out := domain.DayStats{}
	for _, t := range f.tasks {
		if t.Date != date {
			continue
		}
		st := out[t.AssigneeID]
		st.Total++
		if t.IsCompleted() {
			st.Done++
		} else {
			st.Open++
		}
		out[t.AssigneeID] = st
	}
	return out, nil
}

func (f *fakeTasks) ListRange(_ context.Context, filter repository.TaskRangeFilter) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range f.tasks {
		if t.Date.Before(filter.From) || t.Date.After(filter.To) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

type fakeDirectory map[string]string

func (d fakeDirectory) Label(id string) string {
	if name, ok := d[id]; ok {
		return name
	}
	return id
}

func (d fakeDirectory) AssigneeIDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	return ids
}

func TestStatsForDateEmptyDay(t *testing.T) {
	uc := New(&fakeTasks{}, nil, nil)
	got, err := uc.StatsForDate(context.Background(), "2024-01-01")
	if err != nil {
		t.Fatalf("StatsForDate: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty map, got %#v", got)
	}
	if _, err := uc.StatsForDate(context.Background(), "yesterday"); !errors.Is(err, domain.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestSummaryIncludesConfiguredAssignees(t *testing.T) {
	tasks := &fakeTasks{tasks: []domain.Task{
		{Title: "A", Date: "2024-01-01", AssigneeID: "u2", Status: domain.StatusDone},
		{Title: "B", Date: "2024-01-01", AssigneeID: "u2", Status: domain.StatusOpen},
		{Title: "C", Date: "2024-01-01", AssigneeID: "guest", Status: domain.StatusOpen},
	}}
	uc := New(tasks, fakeDirectory{"u1": "Zoe", "u2": "Adam"}, nil)

	lines, err := uc.Summary(context.Background(), "2024-01-01")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %+v", lines)
	}
	want := []string{"Adam", "guest", "Zoe"}
	for i, line := range lines {
		if line.Label != want[i] {
			t.Fatalf("line %d: expected %s, got %s", i, want[i], line.Label)
		}
	}
	if lines[0].Stats != (domain.AssigneeStats{Total: 2, Done: 1, Open: 1}) {
		t.Fatalf("unexpected stats for Adam: %+v", lines[0].Stats)
	}
	if lines[2].Stats.Total != 0 {
		t.Fatalf("expected zero stats for idle assignee, got %+v", lines[2].Stats)
	}
}

func TestExportSortsRows(t *testing.T) {
	done := time.Date(2024, 1, 2, 18, 0, 0, 0, time.UTC)
	tasks := &fakeTasks{tasks: []domain.Task{
		{Title: "zeta", Date: "2024-01-02", AssigneeID: "u1", Status: domain.StatusDone, DoneAt: &done},
		{Title: "alpha", Date: "2024-01-02", AssigneeID: "u1", Status: domain.StatusOpen},
		{Title: "beta", Date: "2024-01-02", AssigneeID: "u2", Status: domain.StatusOpen},
		{Title: "first", Date: "2024-01-01", AssigneeID: "u1", Status: domain.StatusOpen},
		{Title: "outside", Date: "2024-01-09", AssigneeID: "u1", Status: domain.StatusOpen},
	}}
	uc := New(tasks, fakeDirectory{"u1": "Bob", "u2": "Anna"}, nil)

	rows, err := uc.Export(context.Background(), "2024-01-01", "2024-01-07")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	var got []string
	for _, r := range rows {
		got = append(got, r.Date.String()+"/"+r.Assignee+"/"+r.Title)
	}
	want := []string{
		"2024-01-01/Bob/first",
		"2024-01-02/Anna/beta",
		"2024-01-02/Bob/alpha",
		"2024-01-02/Bob/zeta",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if _, err := uc.Export(context.Background(), "2024-01-07", "2024-01-01"); !errors.Is(err, domain.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate for reversed range, got %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header plus 4 rows, got %d lines", len(lines))
	}
	if lines[4] != "2024-01-02,u1,Bob,zeta,done,,2024-01-02T18:00:00Z" {
		t.Fatalf("unexpected csv row %q", lines[4])
	}
}

func TestPeriodRange(t *testing.T) {
	cases := []struct {
		period   string
		today    domain.Date
		from, to domain.Date
		wantErr  bool
	}{
		{period: "today", today: "2024-01-03", from: "2024-01-03", to: "2024-01-03"},
		{period: "", today: "2024-01-03", from: "2024-01-03", to: "2024-01-03"},
		{period: "week", today: "2024-01-03", from: "2024-01-01", to: "2024-01-07"},
		{period: "week", today: "2024-01-07", from: "2024-01-01", to: "2024-01-07"},
		{period: "month", today: "2024-02-10", from: "2024-02-01", to: "2024-02-29"},
		{period: "year", today: "2024-02-10", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.period+"@"+tc.today.String(), func(t *testing.T) {
			from, to, err := PeriodRange(tc.period, tc.today)
			if tc.wantErr {
				if !domain.IsDomainError(err, domain.ErrCodeInvalid) {
					t.Fatalf("expected invalid error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("PeriodRange: %v", err)
			}
			if from != tc.from || to != tc.to {
				t.Fatalf("expected %s..%s, got %s..%s", tc.from, tc.to, from, to)
			}
		})
	}
}

func TestFormatSummary(t *testing.T) {
	got := FormatSummary("2024-01-01", []SummaryLine{
		{AssigneeID: "u1", Label: "Adam (u1)", Stats: domain.AssigneeStats{Total: 3, Done: 1, Open: 2}},
	})
	if got != "Status for 2024-01-01:\nAdam (u1): 1/3" {
		t.Fatalf("unexpected summary %q", got)
	}
	if got := FormatSummary("2024-01-01", nil); got != "Status for 2024-01-01:\nno tasks" {
		t.Fatalf("unexpected empty summary %q", got)
	}
}
