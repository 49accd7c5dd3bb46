package domain

import "time"

// Step identifies where an actor is inside a multi-step dialogue.
type Step string

const (
	StepPickEmployee       Step = "pick-employee"
	StepCollectTitle       Step = "collect-title"
	StepCollectDesc        Step = "collect-description"
	StepCollectDeadline    Step = "collect-deadline"
	StepCollectComment     Step = "collect-comment"
	StepCollectFile        Step = "collect-file"
	StepCollectNewDeadline Step = "collect-new-deadline"
)

// AdminOnly reports whether the step belongs to an administrator dialogue.
func (s Step) AdminOnly() bool {
	switch s {
	case StepPickEmployee, StepCollectTitle, StepCollectDesc, StepCollectDeadline, StepCollectNewDeadline:
		return true
	}
	return false
}

// Conversation is the transient per-actor dialogue state. One per actor at a time.
type Conversation struct {
	ActorID     int64     `json:"actor_id"`
	Step        Step      `json:"step"`
	TargetID    int64     `json:"target_id,omitempty"`
	Department  string    `json:"department,omitempty"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	TaskID      int64     `json:"task_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}
