package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filingchat/internal/auth"
	"filingchat/internal/model"
	"filingchat/internal/repository"
)

func TestVoteService(t *testing.T) {
	db := openTestDB(t)
	chats := repository.NewChatRepository(db)
	svc := NewVoteService(chats, repository.NewVoteRepository(db))
	ctx := context.Background()
	require.NoError(t, chats.Create(ctx, &model.Chat{ID: "c1", UserID: alice.UserID, Title: "x", CreatedAt: time.Now()}))

	require.NoError(t, svc.Vote(ctx, alice, VoteInput{ChatID: "c1", MessageID: "m1", Type: VoteUp}))
	require.NoError(t, svc.Vote(ctx, alice, VoteInput{ChatID: "c1", MessageID: "m1", Type: VoteDown}))
	require.NoError(t, svc.Vote(ctx, alice, VoteInput{ChatID: "c1", MessageID: "m2", Type: VoteUp}))

	votes, err := svc.List(ctx, alice, "c1")
	require.NoError(t, err)
	require.Len(t, votes, 2)
	byMessage := map[string]bool{}
	for _, v := range votes {
		byMessage[v.MessageID] = v.IsUpvoted
	}
	assert.Equal(t, map[string]bool{"m1": false, "m2": true}, byMessage)
}

func TestVoteService_Errors(t *testing.T) {
	db := openTestDB(t)
	chats := repository.NewChatRepository(db)
	svc := NewVoteService(chats, repository.NewVoteRepository(db))
	ctx := context.Background()
	require.NoError(t, chats.Create(ctx, &model.Chat{ID: "c1", UserID: alice.UserID, Title: "x", CreatedAt: time.Now()}))

	assert.ErrorIs(t, svc.Vote(ctx, alice, VoteInput{ChatID: "c1", MessageID: "m1", Type: "sideways"}), ErrInvalidInput)
	assert.ErrorIs(t, svc.Vote(ctx, alice, VoteInput{ChatID: "nope", MessageID: "m1", Type: VoteUp}), ErrChatNotFound)
	assert.ErrorIs(t, svc.Vote(ctx, &auth.Session{UserID: "bob"}, VoteInput{ChatID: "c1", MessageID: "m1", Type: VoteUp}), ErrUnauthorized)

	_, err := svc.List(ctx, nil, "c1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVoteService_SessionCheckedBeforeInput(t *testing.T) {
	db := openTestDB(t)
	svc := NewVoteService(repository.NewChatRepository(db), repository.NewVoteRepository(db))
	ctx := context.Background()

	assert.ErrorIs(t, svc.Vote(ctx, nil, VoteInput{ChatID: "c1", Type: "sideways"}), ErrUnauthorized)
	assert.ErrorIs(t, svc.Vote(ctx, &auth.Session{}, VoteInput{}), ErrUnauthorized)
}
