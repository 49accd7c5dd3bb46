package domain

import "time"

// Audit action tags.
const (
	AuditCreateTask     = "CREATE_TASK"
	AuditStatus         = "STATUS"
	AuditChangeDeadline = "CHANGE_DEADLINE"
	AuditComment        = "COMMENT"
	AuditAddFile        = "ADD_FILE"
	AuditAddUser        = "ADD_USER"
	AuditDeactivateUser = "DEACTIVATE_USER"
	AuditActivateUser   = "ACTIVATE_USER"
)

// AuditEntry is the permanent who-did-what-when record. TaskID is nil for user management entries.
type AuditEntry struct {
	ID        int64     `json:"id"`
	TaskID    *int64    `json:"task_id,omitempty"`
	ActorID   int64     `json:"actor_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskAudit builds an entry bound to a task.
func TaskAudit(taskID, actorID int64, action, details string, at time.Time) *AuditEntry {
	id := taskID
	return &AuditEntry{
		TaskID:    &id,
		ActorID:   actorID,
		Action:    action,
		Details:   details,
		CreatedAt: at,
	}
}
