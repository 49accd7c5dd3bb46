// Package notifytest provides an in-memory notify.Sender for tests.
package notifytest

import (
	"context"
	"errors"
	"sync"

	"github.com/fastygo/taskdesk/usecase/notify"
)

// ErrUnreachable is returned for chats marked with Block.
var ErrUnreachable = errors.New("chat unreachable")

// Sent is one recorded delivery.
type Sent struct {
	ChatID  int64
	Message notify.Message
}

// Recorder records every message and fails deliveries to blocked chats.
type Recorder struct {
	mu      sync.Mutex
	sent    []Sent
	blocked map[int64]bool
}

func NewRecorder() *Recorder {
	return &Recorder{blocked: make(map[int64]bool)}
}

func (r *Recorder) Send(_ context.Context, chatID int64, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.blocked[chatID] {
		return ErrUnreachable
	}
	r.sent = append(r.sent, Sent{ChatID: chatID, Message: msg})
	return nil
}

// Block makes every later delivery to chatID fail.
func (r *Recorder) Block(chatID int64) {
	r.mu.Lock()
	r.blocked[chatID] = true
	r.mu.Unlock()
}

// To returns the messages delivered to chatID in order.
func (r *Recorder) To(chatID int64) []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Message
	for _, s := range r.sent {
		if s.ChatID == chatID {
			out = append(out, s.Message)
		}
	}
	return out
}

func (r *Recorder) All() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.sent = nil
	r.mu.Unlock()
}
