package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filingchat/internal/model"
)

func TestVoteRepository_UpsertKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	repo := NewVoteRepository(openTestDB(t))

	require.NoError(t, repo.Upsert(ctx, &model.Vote{ChatID: "c1", MessageID: "m1", IsUpvoted: true}))
	require.NoError(t, repo.Upsert(ctx, &model.Vote{ChatID: "c1", MessageID: "m1", IsUpvoted: false}))
	require.NoError(t, repo.Upsert(ctx, &model.Vote{ChatID: "c1", MessageID: "m2", IsUpvoted: true}))

	votes, err := repo.ListByChatID(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, votes, 2)

	byMessage := map[string]bool{}
	for _, v := range votes {
		byMessage[v.MessageID] = v.IsUpvoted
	}
	assert.False(t, byMessage["m1"])
	assert.True(t, byMessage["m2"])
}
