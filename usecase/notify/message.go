package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fastygo/taskdesk/domain"
)

// Sender is the outbound side of the messaging gateway.
type Sender interface {
	Send(ctx context.Context, chatID int64, msg Message) error
}

// Control is one opaque action button. Tag is returned verbatim on press.
type Control struct {
	Text string `json:"text"`
	Tag  string `json:"tag"`
}

// Message is a plain text message with optional control rows.
type Message struct {
	Text     string      `json:"text"`
	Controls [][]Control `json:"controls,omitempty"`
	Silent   bool        `json:"silent,omitempty"`
}

// Text builds a message without controls.
func Text(format string, args ...any) Message {
	if len(args) == 0 {
		return Message{Text: format}
	}
	return Message{Text: fmt.Sprintf(format, args...)}
}

// Result is the outcome of one best-effort delivery. A zero Result means nothing was sent.
type Result struct {
	Target    int64
	Delivered bool
	Err       error
}

// Failed reports whether a delivery was attempted and did not go through.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Menu and navigation tags.
const (
	TagAdminNewTask    = "ad:newtask"
	TagAdminActive     = "ad:active"
	TagAdminReview     = "ad:review"
	TagAdminDone       = "ad:done"
	TagAdminOverdue    = "ad:overdue"
	TagAdminUsers      = "ad:users"
	TagAdminBackMain   = "ad:back_main"
	TagAdminPickCancel = "ad:pickcancel"

	PrefixAdminPick       = "ad:pick:"
	PrefixAdminUser       = "ad:user:"
	PrefixAdminDeactivate = "ad:deact:"
	PrefixAdminActivate   = "ad:act:"

	TagEmployeeActive = "em:my"
	TagEmployeeReview = "em:myreview"
	TagEmployeeDone   = "em:done"

	PrefixTask = "t:"
)

// TaskOp is the last segment of a task control tag.
type TaskOp string

const (
	OpStart          TaskOp = "inprog"
	OpSubmit         TaskOp = "review"
	OpAccept         TaskOp = "done"
	OpReject         TaskOp = "back"
	OpChangeDeadline TaskOp = "chgdl"
	OpCancel         TaskOp = "cancel"
	OpComment        TaskOp = "comment"
	OpFile           TaskOp = "file"
)

var opActions = map[TaskOp]domain.TaskAction{
	OpStart:  domain.ActionStart,
	OpSubmit: domain.ActionSubmit,
	OpAccept: domain.ActionAccept,
	OpReject: domain.ActionReject,
	OpCancel: domain.ActionCancel,
}

// Action maps a lifecycle control to its action. Dialogue controls return false.
func (op TaskOp) Action() (domain.TaskAction, bool) {
	action, ok := opActions[op]
	return action, ok
}

// TaskTag renders "t:<id>:<op>".
func TaskTag(taskID int64, op TaskOp) string {
	return PrefixTask + strconv.FormatInt(taskID, 10) + ":" + string(op)
}

// ParseTaskTag splits a task control tag.
func ParseTaskTag(tag string) (int64, TaskOp, bool) {
	rest, ok := strings.CutPrefix(tag, PrefixTask)
	if !ok {
		return 0, "", false
	}
	idPart, op, ok := strings.Cut(rest, ":")
	if !ok || op == "" {
		return 0, "", false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, TaskOp(op), true
}

// ParseIDTag extracts the trailing actor id of tags such as "ad:pick:<id>".
func ParseIDTag(tag, prefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(tag, prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
