package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"filingchat/internal/ai"
	"filingchat/internal/app"
	"filingchat/internal/transport/http/datastream"
	"filingchat/internal/transport/http/middleware"
	"filingchat/internal/transport/http/response"
)

const (
	msgUnauthorized  = "Unauthorized"
	msgGenericError  = "An error occurred while processing your request"
	msgStreamFailure = "An error occurred."
)

type ChatHandler struct {
	chatService *app.ChatService
	log         *zap.Logger
}

type ChatRequest struct {
	ID       string         `json:"id"`
	Messages []ai.UIMessage `json:"messages"`
	ModelID  string         `json:"modelId"`
}

func NewChatHandler(chatService *app.ChatService, log *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log.With(zap.String("component", "chat_handler")),
	}
}

// Stream answers POST /api/chat with the data stream of one model turn.
func (h *ChatHandler) Stream(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Text(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	turn, err := h.chatService.StartTurn(c.Request.Context(), middleware.CurrentSession(c), app.ChatInput{
		ID:       req.ID,
		Messages: req.Messages,
		ModelID:  req.ModelID,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnauthorized):
			response.Text(c, http.StatusUnauthorized, msgUnauthorized)
		case errors.Is(err, app.ErrModelNotFound):
			response.Text(c, http.StatusNotFound, "Model not found")
		case errors.Is(err, app.ErrNoUserMessage):
			response.Text(c, http.StatusBadRequest, "No user message found")
		case errors.Is(err, app.ErrInvalidInput):
			response.Text(c, http.StatusBadRequest, "Invalid request body")
		default:
			h.log.Error("start chat turn failed", zap.Error(err))
			response.Text(c, http.StatusInternalServerError, msgGenericError)
		}
		return
	}

	datastream.SetHeaders(c.Writer.Header())
	c.Status(http.StatusOK)
	w := datastream.NewWriter(c.Writer)

	// Both channels are drained to the end even when the client is gone so
	// the producers can finish.
	events, data := turn.Events(), turn.Data()
	for events != nil || data != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			_ = w.Event(ev, msgStreamFailure)
		case item, ok := <-data:
			if !ok {
				data = nil
				continue
			}
			_ = w.Data(item)
		}
	}
	if err := w.Err(); err != nil {
		h.log.Debug("client stopped reading chat stream", zap.String("chat_id", turn.ChatID), zap.Error(err))
	}
}

// Delete answers DELETE /api/chat?id=.
func (h *ChatHandler) Delete(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		response.Text(c, http.StatusNotFound, "Not Found")
		return
	}

	if err := h.chatService.DeleteChat(c.Request.Context(), middleware.CurrentSession(c), id); err != nil {
		switch {
		case errors.Is(err, app.ErrUnauthorized):
			response.Text(c, http.StatusUnauthorized, msgUnauthorized)
		default:
			h.log.Error("delete chat failed", zap.String("chat_id", id), zap.Error(err))
			response.Text(c, http.StatusInternalServerError, msgGenericError)
		}
		return
	}
	response.Text(c, http.StatusOK, "Chat deleted")
}

func (h *ChatHandler) Get(c *gin.Context) {
	detail, err := h.chatService.GetChat(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnauthorized):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
		case errors.Is(err, app.ErrChatNotFound):
			response.Error(c, http.StatusNotFound, response.CodeChatNotFound, err.Error())
		default:
			h.log.Error("get chat failed", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get chat failed")
		}
		return
	}
	response.OK(c, detail)
}

func (h *ChatHandler) History(c *gin.Context) {
	chats, err := h.chatService.ListHistory(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnauthorized):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
		default:
			h.log.Error("list chat history failed", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list history failed")
		}
		return
	}
	response.OK(c, chats)
}
