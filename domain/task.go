package domain

import (
	"fmt"
	"time"
)

// Status is the persisted lifecycle state of a task.
type Status string

const (
	StatusNew        Status = "new"         // Assigned, not started
	StatusInProgress Status = "in_progress" // Employee is working on it
	StatusOnReview   Status = "on_review"   // Submitted, waiting for the admin
	StatusDone       Status = "done"        // Accepted by the admin
	StatusCanceled   Status = "canceled"    // Canceled by the admin
)

// ActiveStatuses are the statuses an open task may occupy.
var ActiveStatuses = []Status{StatusNew, StatusInProgress, StatusOnReview}

var statusLabels = map[Status]string{
	StatusNew:        "Новая",
	StatusInProgress: "В процессе",
	StatusOnReview:   "На проверке",
	StatusDone:       "Готово",
	StatusCanceled:   "Отменено",
}

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human readable status name.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsActive reports whether s is New, InProgress or OnReview.
func (s Status) IsActive() bool {
	for _, active := range ActiveStatuses {
		if s == active {
			return true
		}
	}
	return false
}

// DeadlineLayout is the textual deadline format used in cards and audit details.
const DeadlineLayout = "2006-01-02T15:04:05"

// Task is an assignment owned by exactly one employee.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Deadline    time.Time `json:"deadline"`
	OwnerID     int64     `json:"owner_id"`
	Department  string    `json:"department"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsOverdue is computed on read: an active task whose deadline has passed.
func (t *Task) IsOverdue(now time.Time) bool {
	return t != nil && t.Status.IsActive() && t.Deadline.Before(now)
}

// IsOwnedBy reports whether the task belongs to the given actor.
func (t *Task) IsOwnedBy(actorID int64) bool {
	return t != nil && t.OwnerID == actorID
}

// Input limits, counted in runes.
const (
	MaxTitleRunes       = 200
	MaxDescriptionRunes = 4000
)

// NewTask carries the validated input for task creation.
type NewTask struct {
	OwnerID     int64     `validate:"required"`
	Title       string    `validate:"required,max=200"`
	Description string    `validate:"required,max=4000"`
	Deadline    time.Time `validate:"required"`
}

// Comment is an append-only note attached to a task.
type Comment struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	AuthorID  int64     `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment references a file stored by the messenger; FileRef is opaque.
type Attachment struct {
	ID         int64     `json:"id"`
	TaskID     int64     `json:"task_id"`
	UploaderID int64     `json:"uploader_id"`
	FileRef    string    `json:"file_ref"`
	FileName   string    `json:"file_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TaskDetails bundles a task with its append-only children.
type TaskDetails struct {
	Task        Task         `json:"task"`
	Comments    []Comment    `json:"comments"`
	Attachments []Attachment `json:"attachments"`
	Audit       []AuditEntry `json:"audit"`
}

// FormatDeadline renders a deadline the way cards and audit details show it.
func FormatDeadline(t time.Time) string {
	return t.Format(DeadlineLayout)
}

// String is used in log fields.
func (t *Task) String() string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("task#%d(%s)", t.ID, t.Status)
}
