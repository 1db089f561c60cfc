package audit

import "time"

// Log is an immutable security/activity event. Rows are append-only: there
// is no update or delete path anywhere in the app.
type Log struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type QueryFilter struct {
	UserID string    `query:"user_id"`
	Action string    `query:"action"`
	From   time.Time `query:"from"`
	To     time.Time `query:"to"`
}
