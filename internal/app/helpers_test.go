package app

import (
	"context"
	"fmt"
	"sync"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"filingchat/internal/ai"
	"filingchat/internal/model"
	"filingchat/internal/repository"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// scriptedGateway replays a fixed event list and result for every stream.
type scriptedGateway struct {
	mu        sync.Mutex
	title     string
	titleErr  error
	streamErr error
	events    []ai.Event
	result    ai.StreamResult
	resultErr error

	streams []ai.StreamRequest
	titles  []ai.CompleteRequest
}

func (g *scriptedGateway) Stream(ctx context.Context, req ai.StreamRequest) (*ai.Stream, error) {
	g.mu.Lock()
	g.streams = append(g.streams, req)
	g.mu.Unlock()
	if g.streamErr != nil {
		return nil, g.streamErr
	}
	return ai.NewStream(ctx, 8, func(emit ai.Emit) (ai.StreamResult, error) {
		for _, ev := range g.events {
			if !emit(ev) {
				break
			}
		}
		return g.result, g.resultErr
	}), nil
}

func (g *scriptedGateway) Complete(_ context.Context, req ai.CompleteRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.titles = append(g.titles, req)
	return g.title, g.titleErr
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.StreamTelemetry
}

func (p *recordingPublisher) Publish(_ context.Context, event model.StreamTelemetry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) all() []model.StreamTelemetry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.StreamTelemetry(nil), p.events...)
}

type staticReports map[string]string

func (r staticReports) Load(_ context.Context, reportID string) (string, error) {
	return r[reportID], nil
}
