package domain

// TaskAction is a lifecycle move requested by an actor.
type TaskAction string

const (
	ActionStart  TaskAction = "start"
	ActionSubmit TaskAction = "submit"
	ActionAccept TaskAction = "accept"
	ActionReject TaskAction = "reject"
	ActionCancel TaskAction = "cancel"
)

type transitionRule struct {
	from []Status
	to   Status
	by   Role
}

// transitions is the complete table. Any (status, action) pair not listed leaves the task unchanged.
var transitions = map[TaskAction]transitionRule{
	ActionStart:  {from: []Status{StatusNew}, to: StatusInProgress, by: RoleEmployee},
	ActionSubmit: {from: []Status{StatusInProgress}, to: StatusOnReview, by: RoleEmployee},
	ActionAccept: {from: []Status{StatusOnReview}, to: StatusDone, by: RoleAdmin},
	ActionReject: {from: []Status{StatusOnReview}, to: StatusInProgress, by: RoleAdmin},
	ActionCancel: {from: ActiveStatuses, to: StatusCanceled, by: RoleAdmin},
}

// Valid reports whether a is a known action.
func (a TaskAction) Valid() bool {
	_, ok := transitions[a]
	return ok
}

// PerformedBy returns the role allowed to request the action.
func (a TaskAction) PerformedBy() Role {
	return transitions[a].by
}

// NextStatus resolves the target status for an action requested by role from the current status.
// The boolean is false when the move is not part of the table.
func NextStatus(from Status, action TaskAction, role Role) (Status, bool) {
	rule, ok := transitions[action]
	if !ok || rule.by != role {
		return from, false
	}
	for _, s := range rule.from {
		if s == from {
			return rule.to, true
		}
	}
	return from, false
}

// DeadlineChangeAllowed reports whether the admin may move the deadline of a task in status s.
// Done and Canceled tasks keep their deadline.
func DeadlineChangeAllowed(s Status) bool {
	return s.IsActive()
}

// TransitionDetail renders the audit detail for a status move, e.g. "Новая→В процессе".
func TransitionDetail(from, to Status) string {
	return from.Label() + "→" + to.Label()
}
