package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"filingchat/internal/filing"
	"filingchat/internal/model"
	"filingchat/internal/repository"
)

type stubConverter struct {
	fileURL string
	err     error
	got     []filing.ViewRequest
}

func (c *stubConverter) Convert(_ context.Context, in filing.ViewRequest) (string, error) {
	c.got = append(c.got, in)
	return c.fileURL, c.err
}

func viewInput() ViewInput {
	return ViewInput{
		ReportID:    "r-1",
		FilingURL:   "https://www.sec.gov/Archives/edgar/data/320193/aapl-10k.htm",
		AccessionNo: "0000320193-24-000123",
		CompanyName: "Apple Inc.",
		FiledAt:     "2024-11-01",
		FormType:    "10-K",
		Ticker:      "AAPL",
	}
}

func TestViewService_OpenCreatesChatOnce(t *testing.T) {
	db := openTestDB(t)
	conv := &stubConverter{fileURL: "https://files.example.com/r-1.pdf"}
	chats := repository.NewChatRepository(db)
	reports := repository.NewReportRepository(db)
	svc := NewViewService(conv, reports, chats, nil, zap.NewNop())
	ctx := context.Background()

	first, err := svc.Open(ctx, alice, viewInput())
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/r-1.pdf", first.FileURL)
	require.NotEmpty(t, first.ChatID)

	second, err := svc.Open(ctx, alice, viewInput())
	require.NoError(t, err)
	assert.Equal(t, first.ChatID, second.ChatID)

	chat, err := chats.GetByID(ctx, first.ChatID)
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc. - 10-K - 2024-11-01", chat.Title)
	assert.Equal(t, "r-1", chat.ReportID)

	report, err := reports.GetByID(ctx, "r-1")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "https://files.example.com/r-1.pdf", report.FileURL)

	require.Len(t, conv.got, 2)
	assert.Equal(t, "r-1", conv.got[0].FilingID)
	assert.Equal(t, "AAPL", conv.got[0].Ticker)
}

func TestViewService_OpenPerUserChats(t *testing.T) {
	db := openTestDB(t)
	chats := repository.NewChatRepository(db)
	svc := NewViewService(&stubConverter{fileURL: "f"}, repository.NewReportRepository(db), chats, nil, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, chats.Create(ctx, &model.Chat{ID: "bobs", ReportID: "r-1", UserID: "bob", Title: "b", CreatedAt: time.Now()}))

	res, err := svc.Open(ctx, alice, viewInput())
	require.NoError(t, err)
	assert.NotEqual(t, "bobs", res.ChatID)
}

func TestViewService_OpenErrors(t *testing.T) {
	db := openTestDB(t)
	chats := repository.NewChatRepository(db)
	reports := repository.NewReportRepository(db)
	ctx := context.Background()

	svc := NewViewService(&stubConverter{fileURL: "f"}, reports, chats, nil, zap.NewNop())
	_, err := svc.Open(ctx, nil, viewInput())
	assert.ErrorIs(t, err, ErrUnauthorized)

	in := viewInput()
	in.FilingURL = ""
	_, err = svc.Open(ctx, alice, in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	upstream := &filing.UpstreamError{StatusCode: 502, Body: "bad gateway"}
	svc = NewViewService(&stubConverter{err: upstream}, reports, chats, nil, zap.NewNop())
	_, err = svc.Open(ctx, alice, viewInput())
	var ue *filing.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "bad gateway", ue.Body)

	svc = NewViewService(&stubConverter{err: filing.ErrNoFileURL}, reports, chats, nil, zap.NewNop())
	_, err = svc.Open(ctx, alice, viewInput())
	assert.ErrorIs(t, err, filing.ErrNoFileURL)

	list, err := chats.ListByUserID(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
