package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"filingchat/internal/filing"
	"filingchat/internal/metrics"
	"filingchat/internal/transport/http/response"
)

type FilingSearcher interface {
	Search(ctx context.Context, p filing.SearchParams) (*filing.SearchResult, error)
}

type FilingHandler struct {
	searcher FilingSearcher
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewFilingHandler(searcher FilingSearcher, m *metrics.Metrics, log *zap.Logger) *FilingHandler {
	return &FilingHandler{
		searcher: searcher,
		metrics:  m,
		log:      log.With(zap.String("component", "filing_handler")),
	}
}

// Search answers GET /api/filings.
func (h *FilingHandler) Search(c *gin.Context) {
	page, err := intQuery(c, "page", 0)
	if err != nil || page < 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid page")
		return
	}
	pageSize, err := intQuery(c, "pageSize", filing.DefaultPageSize)
	if err != nil || pageSize <= 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid pageSize")
		return
	}

	var excluded []string
	if raw := c.Query("excludeFormTypes"); raw != "" {
		excluded = strings.Split(raw, ",")
	}

	result, err := h.searcher.Search(c.Request.Context(), filing.SearchParams{
		Ticker:           c.Query("ticker"),
		CompanyName:      c.Query("companyName"),
		StartDate:        c.Query("startDate"),
		EndDate:          c.Query("endDate"),
		FormType:         c.Query("formType"),
		ExcludeFormTypes: excluded,
		Page:             page,
		PageSize:         pageSize,
	})
	if err != nil {
		h.metrics.UpstreamFailed("filing_search")
		var upstream *filing.UpstreamError
		if errors.As(err, &upstream) {
			response.Error(c, http.StatusInternalServerError, response.CodeUpstream, "filing search failed: "+upstream.Body)
			return
		}
		h.log.Error("filing search failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "filing search failed")
		return
	}
	response.OK(c, result)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
