package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"filingchat/internal/ai"
	"filingchat/internal/auth"
	"filingchat/internal/config"
	"filingchat/internal/metrics"
	"filingchat/internal/model"
	"filingchat/internal/repository"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrModelNotFound = errors.New("model not found")
	ErrNoUserMessage = errors.New("no user message found")
	ErrChatNotFound  = errors.New("chat not found")
)

const telemetryFunctionID = "stream-text"

type HistoryCache interface {
	GetHistory(ctx context.Context, chatID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, chatID string, messages []model.Message) error
	Invalidate(ctx context.Context, chatID string) error
	IsDirty(ctx context.Context, chatID string) (bool, error)
}

type TelemetryPublisher interface {
	Publish(ctx context.Context, event model.StreamTelemetry) error
}

type ReportContextLoader interface {
	Load(ctx context.Context, reportID string) (string, error)
}

// ChatDeps lists the collaborators of ChatService. History, Telemetry,
// Reports and Metrics are optional.
type ChatDeps struct {
	Chats     *repository.ChatRepository
	Messages  *repository.MessageRepository
	Gateway   ai.Gateway
	Tools     *ai.ToolSet
	Reports   ReportContextLoader
	History   HistoryCache
	Telemetry TelemetryPublisher
	Metrics   *metrics.Metrics
	LLM       config.LLMConfig
	Log       *zap.Logger
}

type ChatService struct {
	chats     *repository.ChatRepository
	messages  *repository.MessageRepository
	gateway   ai.Gateway
	tools     *ai.ToolSet
	reports   ReportContextLoader
	history   HistoryCache
	telemetry TelemetryPublisher
	metrics   *metrics.Metrics
	llm       config.LLMConfig
	log       *zap.Logger
	now       func() time.Time
}

func NewChatService(deps ChatDeps) *ChatService {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatService{
		chats:     deps.Chats,
		messages:  deps.Messages,
		gateway:   deps.Gateway,
		tools:     deps.Tools,
		reports:   deps.Reports,
		history:   deps.History,
		telemetry: deps.Telemetry,
		metrics:   deps.Metrics,
		llm:       deps.LLM,
		log:       log.With(zap.String("component", "chat_service")),
		now:       time.Now,
	}
}

type ChatInput struct {
	ID       string
	Messages []ai.UIMessage
	ModelID  string
}

// Turn is one running model response. The caller must drain Events and Data
// until both are closed. Data is closed only after the response has been
// stored.
type Turn struct {
	ChatID string

	stream *ai.Stream
	data   *ai.StreamData
	done   chan struct{}
	userAt time.Time
}

func (t *Turn) Events() <-chan ai.Event {
	return t.stream.Events()
}

func (t *Turn) Data() <-chan json.RawMessage {
	return t.data.C()
}

// Done is closed after the finish phase.
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

type ChatDetail struct {
	Chat     *model.Chat     `json:"chat"`
	Messages []model.Message `json:"messages"`
}

// StartTurn stores the latest user message and starts streaming the model's
// answer. The finish phase runs detached from ctx cancellation so steps that
// completed before a client disconnect are still stored.
func (s *ChatService) StartTurn(ctx context.Context, sess *auth.Session, in ChatInput) (*Turn, error) {
	if sess == nil || sess.UserID == "" {
		return nil, ErrUnauthorized
	}
	mdl, ok := s.llm.FindModel(in.ModelID)
	if !ok {
		return nil, ErrModelNotFound
	}

	messages, err := ai.ConvertUIMessages(in.Messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	userMessage, ok := ai.MostRecentUserMessage(messages)
	if !ok {
		return nil, ErrNoUserMessage
	}

	chat, err := s.ensureChat(ctx, sess, in.ID, userMessage.Text())
	if err != nil {
		return nil, err
	}

	s.invalidateHistory(ctx, chat.ID)
	userAt := s.now()
	if err := s.saveMessage(ctx, chat.ID, userMessage, userAt); err != nil {
		return nil, err
	}

	system := ai.SystemPrompt
	if text := s.reportContext(ctx, chat.ReportID); text != "" {
		system = ai.WithReportContext(system, ai.TruncateReport(text, s.llm.ReportContextChars))
	}

	data := ai.NewStreamData(4)
	if err := data.Append(map[string]string{"chatId": chat.ID}); err != nil {
		data.Close()
		return nil, err
	}

	started := time.Now()
	stream, err := s.gateway.Stream(ctx, ai.StreamRequest{
		Model:    mdl.APIIdentifier,
		System:   system,
		Messages: messages,
		MaxSteps: s.llm.MaxSteps,
		Tools:    s.tools,
	})
	if err != nil {
		data.Close()
		s.metrics.UpstreamFailed("llm")
		return nil, fmt.Errorf("start model stream failed: %w", err)
	}

	turn := &Turn{
		ChatID: chat.ID,
		stream: stream,
		data:   data,
		done:   make(chan struct{}),
		userAt: userAt,
	}
	go s.finish(context.WithoutCancel(ctx), turn, sess.UserID, mdl.ID, started)
	return turn, nil
}

func (s *ChatService) ensureChat(ctx context.Context, sess *auth.Session, id, userText string) (*model.Chat, error) {
	if id == "" {
		id = uuid.NewString()
	}
	chat, err := s.chats.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if chat != nil {
		if chat.UserID != sess.UserID {
			return nil, ErrUnauthorized
		}
		return chat, nil
	}

	chat = &model.Chat{
		ID:        id,
		UserID:    sess.UserID,
		Title:     s.generateTitle(ctx, userText),
		CreatedAt: s.now(),
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *ChatService) generateTitle(ctx context.Context, userText string) string {
	if strings.TrimSpace(userText) == "" {
		return ai.DefaultTitle
	}
	titleModel := s.llm.TitleModel
	if titleModel == "" {
		if m, ok := s.llm.FindModel(s.llm.DefaultModel); ok {
			titleModel = m.APIIdentifier
		}
	}
	generated, err := s.gateway.Complete(ctx, ai.CompleteRequest{
		Model:  titleModel,
		System: ai.TitlePrompt,
		Prompt: userText,
	})
	if err != nil {
		s.log.Warn("title generation failed", zap.Error(err))
		s.metrics.UpstreamFailed("llm")
		return ai.FallbackTitle(userText)
	}
	return ai.CleanTitle(generated, userText)
}

func (s *ChatService) reportContext(ctx context.Context, reportID string) string {
	if reportID == "" || s.reports == nil {
		return ""
	}
	text, err := s.reports.Load(ctx, reportID)
	if err != nil {
		s.log.Warn("load report context failed", zap.String("report_id", reportID), zap.Error(err))
		s.metrics.ReportContext("error")
		return ""
	}
	if text == "" {
		s.metrics.ReportContext("miss")
		return ""
	}
	s.metrics.ReportContext("hit")
	return text
}

func (s *ChatService) finish(ctx context.Context, turn *Turn, userID, modelID string, started time.Time) {
	defer close(turn.done)
	defer turn.data.Close()

	res, streamErr := turn.stream.Wait()
	outcome := "ok"
	switch {
	case streamErr == nil:
	case errors.Is(streamErr, context.Canceled):
		outcome = "cancelled"
	default:
		outcome = "error"
		s.metrics.UpstreamFailed("llm")
		s.log.Error("model stream failed", zap.String("chat_id", turn.ChatID), zap.Error(streamErr))
	}

	sanitized := ai.SanitizeResponseMessages(res.ResponseMessages)
	dropped := len(res.ResponseMessages) - len(sanitized)
	s.metrics.Dropped(dropped)

	persisted := 0
	last := turn.userAt
	for _, msg := range sanitized {
		at := s.now()
		if !at.After(last) {
			at = last.Add(time.Millisecond)
		}
		last = at
		if err := s.saveMessage(ctx, turn.ChatID, msg, at); err != nil {
			s.metrics.PersistFailed()
			s.log.Error("store response message failed",
				zap.String("chat_id", turn.ChatID),
				zap.String("role", string(msg.Role)),
				zap.Error(err),
			)
			continue
		}
		persisted++
	}
	if persisted > 0 {
		s.invalidateHistory(ctx, turn.ChatID)
	}

	elapsed := time.Since(started)
	s.metrics.ObserveTurn(modelID, outcome, elapsed.Seconds(), res.Usage.PromptTokens, res.Usage.CompletionTokens)

	if s.telemetry != nil {
		event := model.StreamTelemetry{
			FunctionID:        telemetryFunctionID,
			ChatID:            turn.ChatID,
			UserID:            userID,
			ModelID:           modelID,
			FinishReason:      res.FinishReason,
			Steps:             res.Steps,
			PromptTokens:      res.Usage.PromptTokens,
			CompletionTokens:  res.Usage.CompletionTokens,
			PersistedMessages: persisted,
			DroppedMessages:   dropped,
			DurationMs:        elapsed.Milliseconds(),
			Failed:            streamErr != nil,
			CreatedAt:         s.now(),
		}
		if err := s.telemetry.Publish(ctx, event); err != nil {
			s.log.Warn("publish telemetry failed", zap.String("chat_id", turn.ChatID), zap.Error(err))
		}
	}

	s.log.Info("chat turn finished",
		zap.String("chat_id", turn.ChatID),
		zap.String("model", modelID),
		zap.String("outcome", outcome),
		zap.Int("steps", res.Steps),
		zap.Int("persisted", persisted),
		zap.Int("dropped", dropped),
		zap.Duration("elapsed", elapsed),
	)
}

func (s *ChatService) saveMessage(ctx context.Context, chatID string, msg ai.Message, at time.Time) error {
	content, err := ai.EncodeParts(msg.Parts)
	if err != nil {
		return err
	}
	return s.messages.Create(ctx, &model.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      string(msg.Role),
		Content:   datatypes.JSON(content),
		CreatedAt: at,
	})
}

func (s *ChatService) invalidateHistory(ctx context.Context, chatID string) {
	if s.history == nil {
		return
	}
	if err := s.history.Invalidate(ctx, chatID); err != nil {
		s.log.Warn("invalidate history cache failed", zap.String("chat_id", chatID), zap.Error(err))
	}
}

// DeleteChat removes a chat owned by the caller together with its messages
// and votes. Unknown chats are reported as ErrUnauthorized.
func (s *ChatService) DeleteChat(ctx context.Context, sess *auth.Session, id string) error {
	if _, err := ownedChat(ctx, s.chats, sess, id); err != nil {
		if errors.Is(err, ErrChatNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if err := s.chats.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.invalidateHistory(ctx, id)
	return nil
}

func (s *ChatService) GetChat(ctx context.Context, sess *auth.Session, id string) (*ChatDetail, error) {
	chat, err := ownedChat(ctx, s.chats, sess, id)
	if err != nil {
		return nil, err
	}
	messages, err := s.chatMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ChatDetail{Chat: chat, Messages: messages}, nil
}

func (s *ChatService) ListHistory(ctx context.Context, sess *auth.Session) ([]model.Chat, error) {
	if sess == nil || sess.UserID == "" {
		return nil, ErrUnauthorized
	}
	return s.chats.ListByUserID(ctx, sess.UserID)
}

func (s *ChatService) chatMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	if s.history != nil {
		dirty, err := s.history.IsDirty(ctx, chatID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.history.GetHistory(ctx, chatID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	messages, err := s.messages.ListByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if s.history != nil {
		if dirty, dirtyErr := s.history.IsDirty(ctx, chatID); dirtyErr == nil && !dirty {
			if err := s.history.SetHistory(ctx, chatID, messages); err != nil {
				s.log.Warn("fill history cache failed", zap.String("chat_id", chatID), zap.Error(err))
			}
		}
	}
	return messages, nil
}

func ownedChat(ctx context.Context, chats *repository.ChatRepository, sess *auth.Session, id string) (*model.Chat, error) {
	if sess == nil || sess.UserID == "" {
		return nil, ErrUnauthorized
	}
	if id == "" {
		return nil, ErrChatNotFound
	}
	chat, err := chats.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if chat.UserID != sess.UserID {
		return nil, ErrUnauthorized
	}
	return chat, nil
}
