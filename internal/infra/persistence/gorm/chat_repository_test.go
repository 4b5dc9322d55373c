package gormpersistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushanand27/xhire/internal/domain"
	gormpersistence "github.com/ayushanand27/xhire/internal/infra/persistence/gorm"
	"github.com/ayushanand27/xhire/internal/repository"
)

func TestGormChatRepository(t *testing.T) {
	repo := gormpersistence.NewGormChatRepository(newTestDB(t))
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)
	for i, text := range []string{"hello there", "run the tests", "hello again"} {
		msg := &domain.ChatMessage{
			RoomID: 1, SenderID: 1, Message: text, MessageType: domain.MessageTypeText,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Create(ctx, msg))
	}

	msgs, total, err := repo.ListByRoom(ctx, 1, repository.Page{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello again", msgs[0].Message)

	found, err := repo.Search(ctx, 1, "hello", 20)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	msg := msgs[0]
	msg.Message = "hello, edited"
	msg.IsEdited = true
	now := time.Now()
	msg.EditedAt = &now
	require.NoError(t, repo.UpdateText(ctx, &msg))
	reloaded, err := repo.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsEdited)
	assert.Equal(t, "hello, edited", reloaded.Message)

	added, err := repo.ToggleReaction(ctx, &domain.Reaction{MessageID: msg.ID, UserID: 2, Emoji: "👍"})
	require.NoError(t, err)
	assert.True(t, added)
	reloaded, err = repo.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Reactions, 1)

	added, err = repo.ToggleReaction(ctx, &domain.Reaction{MessageID: msg.ID, UserID: 2, Emoji: "👍"})
	require.NoError(t, err)
	assert.False(t, added)

	require.NoError(t, repo.Delete(ctx, msg.ID))
	_, err = repo.FindByID(ctx, msg.ID)
	assert.ErrorIs(t, err, repository.ErrMessageNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, msg.ID), repository.ErrMessageNotFound)
}
