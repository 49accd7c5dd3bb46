// Package memory holds process-local repository implementations.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/repository"
)

type conversationRepository struct {
	mu     sync.RWMutex
	states map[int64]domain.Conversation
}

// NewConversationRepository returns an in-process dialogue state store.
// States do not survive a restart.
func NewConversationRepository() repository.ConversationRepository {
	return &conversationRepository{states: make(map[int64]domain.Conversation)}
}

func (r *conversationRepository) Get(_ context.Context, actorID int64) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[actorID]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return &state, nil
}

func (r *conversationRepository) Save(_ context.Context, state *domain.Conversation) error {
	if state == nil || state.ActorID == 0 || state.Step == "" {
		return domain.ErrInvalidPayload
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now()
	}

	r.mu.Lock()
	r.states[state.ActorID] = *state
	r.mu.Unlock()
	return nil
}

func (r *conversationRepository) Delete(_ context.Context, actorID int64) error {
	r.mu.Lock()
	delete(r.states, actorID)
	r.mu.Unlock()
	return nil
}
