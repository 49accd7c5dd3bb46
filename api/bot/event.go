package bot

import (
	"context"

	"github.com/fastygo/taskdesk/usecase/conversation"
	"github.com/fastygo/taskdesk/usecase/notify"
)

// Kind classifies an inbound event.
type Kind string

const (
	KindCommand Kind = "command"
	KindButton  Kind = "button"
	KindText    Kind = "text"
	KindFile    Kind = "file"
)

// Event is one inbound gateway event, already stripped of transport details.
type Event struct {
	// ID correlates log lines of one event.
	ID      string
	Kind    Kind
	ActorID int64
	// ChatID is where replies go. Zero means the actor's private chat.
	ChatID int64
	// Command is the command name without the slash; Text then holds its arguments.
	Command string
	Text    string
	Tag     string
	// CallbackID and MessageID identify a pressed button and the message it belongs to.
	CallbackID string
	MessageID  int64
	File       conversation.File
}

func (e Event) chat() int64 {
	if e.ChatID != 0 {
		return e.ChatID
	}
	return e.ActorID
}

// Responder delivers replies back through the gateway.
type Responder interface {
	notify.Sender
	Edit(ctx context.Context, chatID, messageID int64, msg notify.Message) error
	AnswerCallback(ctx context.Context, callbackID string) error
}

// Reply is one answer to the actor.
type Reply struct {
	notify.Message
	// Replace rewrites the message whose button was pressed instead of sending a new one.
	Replace bool
}

func text(format string, args ...any) []Reply {
	return []Reply{{Message: notify.Text(format, args...)}}
}

func fromOutcome(out conversation.Outcome, err error) ([]Reply, error) {
	if err != nil {
		return nil, err
	}
	replies := make([]Reply, 0, len(out.Replies))
	for _, msg := range out.Replies {
		replies = append(replies, Reply{Message: msg})
	}
	return replies, nil
}
