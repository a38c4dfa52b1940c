package domain

import (
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusOpen TaskStatus = "open"
	StatusDone TaskStatus = "done"
)

// Sentinel creator ids for machine-generated tasks.
const (
	CreatorSystem   = "system"
	CreatorRollover = "system:rollover"
)

// Task is one unit of work assigned to an actor for a single calendar day.
// ID, Title, Date and AssigneeID never change after creation.
type Task struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Date       Date       `json:"date"`
	CreatorID  string     `json:"creator_id"`
	AssigneeID string     `json:"assignee_id"`
	Status     TaskStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	DoneAt     *time.Time `json:"done_at"`
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Status == StatusDone
}

// SetStatus moves the task to status, keeping DoneAt consistent with it.
func (t *Task) SetStatus(status TaskStatus, now time.Time) {
	if status == StatusDone {
		t.Status = StatusDone
		done := now
		t.DoneAt = &done
		return
	}
	t.Status = StatusOpen
	t.DoneAt = nil
}

// Series returns the identity of the recurring series this task belongs to.
func (t *Task) Series() SeriesKey {
	return SeriesKey{AssigneeID: t.AssigneeID, Title: NormalizeTitle(t.Title)}
}

// SeriesKey identifies tasks sharing an assignee and a normalized title across dates.
type SeriesKey struct {
	AssigneeID string
	Title      string
}

// NormalizeTitle returns the comparison form of a title. It is never displayed.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// UniqueTitles trims titles, drops blanks and drops later duplicates by
// normalized form, keeping the first-seen spelling.
func UniqueTitles(titles []string) []string {
	seen := make(map[string]struct{}, len(titles))
	out := make([]string, 0, len(titles))
	for _, raw := range titles {
		title := strings.TrimSpace(raw)
		if title == "" {
			continue
		}
		key := NormalizeTitle(title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, title)
	}
	return out
}

// RolloverPolicy selects how unfinished work is carried to the next day.
type RolloverPolicy string

const (
	// PolicyCarry carries every open task that is not already present on the target day.
	PolicyCarry RolloverPolicy = "carry"
	// PolicySeries additionally stops a series once any of its tasks is done,
	// and prunes later copies of a series when a task is marked done.
	PolicySeries RolloverPolicy = "series"
)

// ParseRolloverPolicy accepts "carry"/"a" and "series"/"b".
func ParseRolloverPolicy(value string) (RolloverPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "carry", "a":
		return PolicyCarry, nil
	case "series", "b":
		return PolicySeries, nil
	default:
		return "", NewError(ErrCodeInvalid, "unknown rollover policy "+value)
	}
}

// PrunesOnDone reports whether completing a task deletes its later copies.
func (p RolloverPolicy) PrunesOnDone() bool {
	return p == PolicySeries
}
