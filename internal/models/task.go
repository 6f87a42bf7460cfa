package models

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "Pending"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusDone       TaskStatus = "Done"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}

type Task struct {
	ID             string     `gorm:"type:varchar(64);primarykey" json:"id"`
	Title          string     `gorm:"not null" json:"title"`
	Description    string     `gorm:"type:text;not null" json:"description"`
	Deadline       time.Time  `gorm:"not null;index" json:"deadline"`
	AssignedUserID string     `gorm:"type:varchar(64);not null;index" json:"assignedUserId"`
	Status         TaskStatus `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TaskFields are the editable fields of a task. Status is not among them;
// it changes only through a status update.
type TaskFields struct {
	Title          string
	Description    string
	Deadline       time.Time
	AssignedUserID string
}

// TaskInput is the unvalidated task form submitted by a client. Deadline is
// an RFC 3339 timestamp or a YYYY-MM-DD date. Status is accepted for
// compatibility and always ignored.
type TaskInput struct {
	Title          string `json:"title" validate:"min=3"`
	Description    string `json:"description" validate:"min=10"`
	AssignedUserID string `json:"assignedUserId" validate:"required"`
	Deadline       string `json:"deadline" validate:"required"`
	Status         string `json:"status,omitempty"`
}
