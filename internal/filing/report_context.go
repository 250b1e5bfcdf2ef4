package filing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"filingchat/internal/model"
	"filingchat/internal/pkg/pdfextract"
)

const maxReportBytes = 64 << 20

type ReportStore interface {
	GetByID(ctx context.Context, id string) (*model.Report, error)
}

type ReportTextCache interface {
	GetReportText(ctx context.Context, reportID string) (string, bool, error)
	SetReportText(ctx context.Context, reportID, text string) error
}

// ContextLoader produces the plain text of a report's converted file for use
// as model context. Concurrent loads of one report share a single download.
type ContextLoader struct {
	group      singleflight.Group
	reports    ReportStore
	cache      ReportTextCache
	httpClient *http.Client
	extract    func([]byte) (string, error)
	log        *zap.Logger
}

func NewContextLoader(reports ReportStore, cache ReportTextCache, httpClient *http.Client, log *zap.Logger) *ContextLoader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &ContextLoader{
		reports:    reports,
		cache:      cache,
		httpClient: httpClient,
		extract:    pdfextract.ExtractText,
		log:        log.With(zap.String("component", "report_context")),
	}
}

// Load returns "" without error when the report is unknown or has not been
// converted yet.
func (l *ContextLoader) Load(ctx context.Context, reportID string) (string, error) {
	if strings.TrimSpace(reportID) == "" {
		return "", nil
	}
	if l.cache != nil {
		text, hit, err := l.cache.GetReportText(ctx, reportID)
		if err != nil {
			l.log.Warn("report text cache read failed", zap.String("report_id", reportID), zap.Error(err))
		} else if hit {
			return text, nil
		}
	}

	text, err, _ := l.group.Do(reportID, func() (any, error) {
		return l.loadUncached(ctx, reportID)
	})
	if err != nil {
		return "", err
	}
	return text.(string), nil
}

func (l *ContextLoader) loadUncached(ctx context.Context, reportID string) (string, error) {
	report, err := l.reports.GetByID(ctx, reportID)
	if err != nil {
		return "", err
	}
	if report == nil || report.FileURL == "" {
		return "", nil
	}

	data, err := l.fetch(ctx, report.FileURL)
	if err != nil {
		return "", err
	}
	text, err := l.extract(data)
	if err != nil {
		return "", fmt.Errorf("extract report text failed: %w", err)
	}

	if l.cache != nil {
		if err := l.cache.SetReportText(ctx, reportID, text); err != nil {
			l.log.Warn("report text cache write failed", zap.String("report_id", reportID), zap.Error(err))
		}
	}
	return text, nil
}

func (l *ContextLoader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build report download request failed: %w", err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download report failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReportBytes))
	if err != nil {
		return nil, fmt.Errorf("read report body failed: %w", err)
	}
	return data, nil
}
