package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskdesk/domain"
)

func TestConversationRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewConversationRepository()

	_, err := repo.Get(ctx, 7)
	require.ErrorIs(t, err, domain.ErrConversationNotFound)

	state := &domain.Conversation{ActorID: 7, Step: domain.StepCollectTitle, TargetID: 42}
	require.NoError(t, repo.Save(ctx, state))
	assert.False(t, state.UpdatedAt.IsZero(), "Save stamps UpdatedAt")

	got, err := repo.Get(ctx, 7)
	require.NoError(t, err)
	got.Title = "mutated"

	again, err := repo.Get(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, again.Title, "Get returns a copy")

	require.NoError(t, repo.Delete(ctx, 7))
	_, err = repo.Get(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)

	assert.ErrorIs(t, repo.Save(ctx, &domain.Conversation{ActorID: 7}), domain.ErrInvalidPayload)
}
