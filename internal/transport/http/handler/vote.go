package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"filingchat/internal/app"
	"filingchat/internal/transport/http/middleware"
	"filingchat/internal/transport/http/response"
)

type VoteHandler struct {
	voteService *app.VoteService
	log         *zap.Logger
}

type VoteRequest struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	Type      string `json:"type"`
}

func NewVoteHandler(voteService *app.VoteService, log *zap.Logger) *VoteHandler {
	return &VoteHandler{
		voteService: voteService,
		log:         log.With(zap.String("component", "vote_handler")),
	}
}

func (h *VoteHandler) List(c *gin.Context) {
	if middleware.CurrentSession(c) == nil {
		response.Text(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	chatID := c.Query("chatId")
	if chatID == "" {
		response.Text(c, http.StatusBadRequest, "chatId is required")
		return
	}

	votes, err := h.voteService.List(c.Request.Context(), middleware.CurrentSession(c), chatID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, votes)
}

func (h *VoteHandler) Vote(c *gin.Context) {
	if middleware.CurrentSession(c) == nil {
		response.Text(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatID == "" || req.MessageID == "" || req.Type == "" {
		response.Text(c, http.StatusBadRequest, "messageId and type are required")
		return
	}

	err := h.voteService.Vote(c.Request.Context(), middleware.CurrentSession(c), app.VoteInput{
		ChatID:    req.ChatID,
		MessageID: req.MessageID,
		Type:      req.Type,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Text(c, http.StatusOK, "Message voted")
}

func (h *VoteHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrUnauthorized):
		response.Text(c, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, app.ErrChatNotFound):
		response.Text(c, http.StatusNotFound, "Chat not found")
	case errors.Is(err, app.ErrInvalidInput):
		response.Text(c, http.StatusBadRequest, "messageId and type are required")
	default:
		h.log.Error("vote request failed", zap.Error(err))
		response.Text(c, http.StatusInternalServerError, msgGenericError)
	}
}
