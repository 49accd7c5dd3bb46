package repository

import (
	"context"

	"github.com/fastygo/taskdesk/domain"
)

// ConversationRepository keeps one dialogue state per actor.
type ConversationRepository interface {
	Get(ctx context.Context, actorID int64) (*domain.Conversation, error)
	Save(ctx context.Context, state *domain.Conversation) error
	Delete(ctx context.Context, actorID int64) error
}
