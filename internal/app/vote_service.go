package app

import (
	"context"

	"filingchat/internal/auth"
	"filingchat/internal/model"
	"filingchat/internal/repository"
)

const (
	VoteUp   = "up"
	VoteDown = "down"
)

type VoteService struct {
	chats *repository.ChatRepository
	votes *repository.VoteRepository
}

func NewVoteService(chats *repository.ChatRepository, votes *repository.VoteRepository) *VoteService {
	return &VoteService{chats: chats, votes: votes}
}

type VoteInput struct {
	ChatID    string
	MessageID string
	Type      string
}

func (s *VoteService) List(ctx context.Context, sess *auth.Session, chatID string) ([]model.Vote, error) {
	if _, err := ownedChat(ctx, s.chats, sess, chatID); err != nil {
		return nil, err
	}
	return s.votes.ListByChatID(ctx, chatID)
}

// Vote records or replaces the caller's verdict on one message.
func (s *VoteService) Vote(ctx context.Context, sess *auth.Session, in VoteInput) error {
	if sess == nil || sess.UserID == "" {
		return ErrUnauthorized
	}
	if in.MessageID == "" || (in.Type != VoteUp && in.Type != VoteDown) {
		return ErrInvalidInput
	}
	if _, err := ownedChat(ctx, s.chats, sess, in.ChatID); err != nil {
		return err
	}
	return s.votes.Upsert(ctx, &model.Vote{
		ChatID:    in.ChatID,
		MessageID: in.MessageID,
		IsUpvoted: in.Type == VoteUp,
	})
}
