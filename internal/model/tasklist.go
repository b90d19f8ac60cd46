package model

import "time"

// TaskList is a named collection of tasks owned by exactly one user.
type TaskList struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOwnedBy reports whether userID owns the list.
func (l *TaskList) IsOwnedBy(userID string) bool {
	return l != nil && userID != "" && l.OwnerID == userID
}

// Share grants a non-owner access to a list. CanEdit=false is view-only.
// (TaskListID, UserID) is unique.
type Share struct {
	ID         string    `json:"id"`
	TaskListID string    `json:"task_list_id"`
	UserID     string    `json:"user_id"`
	CanEdit    bool      `json:"is_edit"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SharedTaskList is a list as seen by a grantee.
type SharedTaskList struct {
	TaskList
	CanEdit bool        `json:"is_edit"`
	Owner   *PublicUser `json:"user,omitempty"`
}

// Grantee is a user a list has been shared with.
type Grantee struct {
	User    *PublicUser `json:"user"`
	CanEdit bool        `json:"is_edit"`
}
