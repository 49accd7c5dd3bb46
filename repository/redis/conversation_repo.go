package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/taskdesk/domain"
	"github.com/fastygo/taskdesk/repository"
)

const defaultPrefix = "taskdesk:conversation:"

type conversationRepository struct {
	client redislib.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewConversationRepository keeps dialogue states as JSON values. A zero ttl keeps
// a state until the dialogue completes or is canceled.
func NewConversationRepository(client redislib.UniversalClient, prefix string, ttl time.Duration) repository.ConversationRepository {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if ttl < 0 {
		ttl = 0
	}
	return &conversationRepository{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *conversationRepository) Get(ctx context.Context, actorID int64) (*domain.Conversation, error) {
	result, err := r.client.Get(ctx, r.key(actorID)).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}

	var state domain.Conversation
	if err := json.Unmarshal(result, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *conversationRepository) Save(ctx context.Context, state *domain.Conversation) error {
	if state == nil || state.ActorID == 0 || state.Step == "" {
		return domain.ErrInvalidPayload
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now()
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(state.ActorID), payload, r.ttl).Err()
}

func (r *conversationRepository) Delete(ctx context.Context, actorID int64) error {
	return r.client.Del(ctx, r.key(actorID)).Err()
}

func (r *conversationRepository) key(actorID int64) string {
	return r.prefix + strconv.FormatInt(actorID, 10)
}
