package models

import "time"

// Task represents a persisted todo item owned by a single user.
type Task struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	OwnerID       string    `json:"-"`
	Completed     bool      `json:"completed"`
	AttachmentURL *string   `json:"attachmentUrl"`
	CreatedAt     time.Time `json:"-"`
}

// DraftTask is a task that has not been persisted yet and has no ID.
type DraftTask struct {
	Text          string
	OwnerID       string
	Completed     bool
	AttachmentURL *string
}

// TaskUpdate holds the mutable fields of a task. Nil fields are left unchanged.
type TaskUpdate struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}

// Empty reports whether the update changes nothing.
func (u TaskUpdate) Empty() bool {
	return u.Text == nil && u.Completed == nil
}
