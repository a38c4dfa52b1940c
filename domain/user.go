package domain

import "time"

// User is an external chat participant known to the ledger.
type User struct {
	ID          string    `json:"id"`
	Handle      string    `json:"handle,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Merge applies non-empty contact details from other. Empty values never erase.
func (u *User) Merge(handle, displayName string) {
	if u == nil {
		return
	}
	if handle != "" {
		u.Handle = handle
	}
	if displayName != "" {
		u.DisplayName = displayName
	}
}
