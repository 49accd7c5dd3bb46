package telegram

import (
	"strconv"
	"strings"

	"github.com/fastygo/taskdesk/api/bot"
	"github.com/fastygo/taskdesk/usecase/conversation"
)

const photoFileName = "photo.jpg"

// Decode turns an update into a bot event. Updates from bots, group chats and
// unsupported payloads are dropped.
func Decode(u Update) (bot.Event, bool) {
	ev := bot.Event{ID: strconv.FormatInt(u.UpdateID, 10)}

	if cb := u.CallbackQuery; cb != nil {
		if cb.From.IsBot || cb.Data == "" {
			return bot.Event{}, false
		}
		ev.Kind = bot.KindButton
		ev.ActorID = cb.From.ID
		ev.Tag = cb.Data
		ev.CallbackID = cb.ID
		if cb.Message != nil {
			ev.ChatID = cb.Message.Chat.ID
			ev.MessageID = cb.Message.MessageID
		}
		return ev, true
	}

	msg := u.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return bot.Event{}, false
	}
	if msg.Chat.Type != "" && msg.Chat.Type != "private" {
		return bot.Event{}, false
	}
	ev.ActorID = msg.From.ID
	ev.ChatID = msg.Chat.ID

	switch {
	case msg.Document != nil:
		ev.Kind = bot.KindFile
		ev.File = conversation.File{Ref: msg.Document.FileID, Name: msg.Document.FileName}
	case len(msg.Photo) > 0:
		ev.Kind = bot.KindFile
		ev.File = conversation.File{Ref: largestPhoto(msg.Photo).FileID, Name: photoFileName}
	case strings.HasPrefix(msg.Text, "/"):
		ev.Kind = bot.KindCommand
		ev.Command, ev.Text = splitCommand(msg.Text)
	case msg.Text != "":
		ev.Kind = bot.KindText
		ev.Text = msg.Text
	default:
		return bot.Event{}, false
	}
	return ev, true
}

// splitCommand parses "/name@bot args" into name and args.
func splitCommand(text string) (string, string) {
	head, args, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	name, _, _ := strings.Cut(head, "@")
	return name, strings.TrimSpace(args)
}

func largestPhoto(sizes []PhotoSize) PhotoSize {
	best := sizes[0]
	for _, p := range sizes[1:] {
		if p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return best
}
