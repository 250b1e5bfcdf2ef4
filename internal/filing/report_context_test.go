package filing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"filingchat/internal/model"
)

type memReports map[string]*model.Report

func (m memReports) GetByID(_ context.Context, id string) (*model.Report, error) {
	return m[id], nil
}

type memTextCache struct {
	items map[string]string
	sets  int
}

func (c *memTextCache) GetReportText(_ context.Context, id string) (string, bool, error) {
	v, ok := c.items[id]
	return v, ok, nil
}

func (c *memTextCache) SetReportText(_ context.Context, id, text string) error {
	c.items[id] = text
	c.sets++
	return nil
}

func TestContextLoader_LoadAndCache(t *testing.T) {
	downloads := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads++
		_, _ = w.Write([]byte("%PDF-fake"))
	}))
	defer srv.Close()

	cache := &memTextCache{items: map[string]string{}}
	loader := NewContextLoader(memReports{"R1": {ID: "R1", FileURL: srv.URL + "/R1.pdf"}}, cache, nil, zap.NewNop())
	loader.extract = func(b []byte) (string, error) { return "Revenue 391B (" + string(b) + ")", nil }

	text, err := loader.Load(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, "Revenue 391B (%PDF-fake)", text)

	again, err := loader.Load(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, text, again)
	assert.Equal(t, 1, downloads)
	assert.Equal(t, 1, cache.sets)
}

func TestContextLoader_NoReport(t *testing.T) {
	loader := NewContextLoader(memReports{"R2": {ID: "R2"}}, nil, nil, zap.NewNop())

	for _, id := range []string{"", "missing", "R2"} {
		text, err := loader.Load(context.Background(), id)
		require.NoError(t, err)
		assert.Empty(t, text)
	}
}

func TestContextLoader_DownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	loader := NewContextLoader(memReports{"R1": {ID: "R1", FileURL: srv.URL}}, nil, nil, zap.NewNop())
	_, err := loader.Load(context.Background(), "R1")
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusGone, upstream.StatusCode)
}

func TestContextLoader_ConcurrentLoadsShareDownload(t *testing.T) {
	var downloads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("%PDF-fake"))
	}))
	defer srv.Close()

	loader := NewContextLoader(memReports{"R1": {ID: "R1", FileURL: srv.URL}}, nil, nil, zap.NewNop())
	loader.extract = func(b []byte) (string, error) { return "text", nil }

	var wg sync.WaitGroup
	results := make([]string, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text, err := loader.Load(context.Background(), "R1")
			assert.NoError(t, err)
			results[i] = text
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), downloads.Load())
	assert.Equal(t, []string{"text", "text", "text", "text"}, results)
}
