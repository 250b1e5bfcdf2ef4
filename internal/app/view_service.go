package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"filingchat/internal/auth"
	"filingchat/internal/filing"
	"filingchat/internal/metrics"
	"filingchat/internal/model"
	"filingchat/internal/repository"
)

type Converter interface {
	Convert(ctx context.Context, in filing.ViewRequest) (string, error)
}

// ViewService opens a filing: it has the converter produce a file for it and
// makes sure the caller has a chat about it.
type ViewService struct {
	converter Converter
	reports   *repository.ReportRepository
	chats     *repository.ChatRepository
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

func NewViewService(
	converter Converter,
	reports *repository.ReportRepository,
	chats *repository.ChatRepository,
	m *metrics.Metrics,
	log *zap.Logger,
) *ViewService {
	return &ViewService{
		converter: converter,
		reports:   reports,
		chats:     chats,
		metrics:   m,
		log:       log.With(zap.String("component", "view_service")),
		now:       time.Now,
	}
}

type ViewInput struct {
	ReportID    string
	FilingURL   string
	AccessionNo string
	CompanyName string
	FiledAt     string
	FormType    string
	Ticker      string
}

type ViewResult struct {
	FileURL string `json:"fileURL"`
	ChatID  string `json:"chatId"`
}

func (s *ViewService) Open(ctx context.Context, sess *auth.Session, in ViewInput) (*ViewResult, error) {
	if sess == nil || sess.UserID == "" {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(in.ReportID) == "" || strings.TrimSpace(in.FilingURL) == "" {
		return nil, ErrInvalidInput
	}

	fileURL, err := s.converter.Convert(ctx, filing.ViewRequest{
		FilingID:    in.ReportID,
		FilingURL:   in.FilingURL,
		AccessionNo: in.AccessionNo,
		CompanyName: in.CompanyName,
		FiledAt:     in.FiledAt,
		FormType:    in.FormType,
		Ticker:      in.Ticker,
	})
	if err != nil {
		s.metrics.UpstreamFailed("converter")
		return nil, err
	}

	// The report row only feeds model context; a failed write must not block
	// the viewer.
	if err := s.reports.Upsert(ctx, &model.Report{
		ID:          in.ReportID,
		Ticker:      in.Ticker,
		CompanyName: in.CompanyName,
		FormType:    in.FormType,
		AccessionNo: in.AccessionNo,
		FiledAt:     in.FiledAt,
		FilingURL:   in.FilingURL,
		FileURL:     fileURL,
	}); err != nil {
		s.log.Warn("store report failed", zap.String("report_id", in.ReportID), zap.Error(err))
	}

	chat, err := s.chats.GetByReportAndUser(ctx, in.ReportID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		chat = &model.Chat{
			ID:        uuid.NewString(),
			ReportID:  in.ReportID,
			UserID:    sess.UserID,
			Title:     fmt.Sprintf("%s - %s - %s", in.CompanyName, in.FormType, in.FiledAt),
			CreatedAt: s.now(),
		}
		if err := s.chats.Create(ctx, chat); err != nil {
			return nil, err
		}
	}

	return &ViewResult{FileURL: fileURL, ChatID: chat.ID}, nil
}
