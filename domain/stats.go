package domain

// AssigneeStats counts one assignee's tasks for a single day.
type AssigneeStats struct {
	Total int `json:"total"`
	Done  int `json:"done"`
	Open  int `json:"open"`
}

// DayStats maps assignee id to that assignee's counts.
type DayStats map[string]AssigneeStats

// Sum folds all assignees into one total.
func (s DayStats) Sum() AssigneeStats {
	var total AssigneeStats
	for _, st := range s {
		total.Total += st.Total
		total.Done += st.Done
		total.Open += st.Open
	}
	return total
}
