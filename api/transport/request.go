package transport

// AssignRequest creates tasks for one assignee and day. Titles and Text may be
// combined; Text is split one title per line.
type AssignRequest struct {
	AssigneeID string   `json:"assignee_id"`
	Date       string   `json:"date"`
	Titles     []string `json:"titles"`
	Text       string   `json:"text"`
}

// ChatRequest is an inbound chat update forwarded by the gateway. ActorID
// defaults to the authenticated user.
type ChatRequest struct {
	ActorID  string `json:"actor_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Text     string `json:"text"`
}

type AdminRequest struct {
	ID string `json:"id"`
}
