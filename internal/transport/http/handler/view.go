package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"filingchat/internal/app"
	"filingchat/internal/filing"
	"filingchat/internal/transport/http/middleware"
	"filingchat/internal/transport/http/response"
)

type ViewHandler struct {
	viewService *app.ViewService
	log         *zap.Logger
}

type ViewRequest struct {
	ReportID    string `json:"reportId"`
	FilingURL   string `json:"filingUrl"`
	AccessionNo string `json:"accessionNo"`
	CompanyName string `json:"companyName"`
	FiledAt     string `json:"filedAt"`
	FormType    string `json:"formType"`
	Ticker      string `json:"ticker"`
}

func NewViewHandler(viewService *app.ViewService, log *zap.Logger) *ViewHandler {
	return &ViewHandler{
		viewService: viewService,
		log:         log.With(zap.String("component", "view_handler")),
	}
}

// Open answers POST /api/view.
func (h *ViewHandler) Open(c *gin.Context) {
	var req ViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Missing reportId or filingUrl parameter")
		return
	}

	result, err := h.viewService.Open(c.Request.Context(), middleware.CurrentSession(c), app.ViewInput{
		ReportID:    req.ReportID,
		FilingURL:   req.FilingURL,
		AccessionNo: req.AccessionNo,
		CompanyName: req.CompanyName,
		FiledAt:     req.FiledAt,
		FormType:    req.FormType,
		Ticker:      req.Ticker,
	})
	if err != nil {
		var upstream *filing.UpstreamError
		switch {
		case errors.Is(err, app.ErrUnauthorized):
			response.ErrorJSON(c, http.StatusUnauthorized, msgUnauthorized)
		case errors.Is(err, app.ErrInvalidInput):
			response.ErrorJSON(c, http.StatusBadRequest, "Missing reportId or filingUrl parameter")
		case errors.As(err, &upstream):
			response.ErrorJSON(c, http.StatusInternalServerError, "Error from Go API: "+upstream.Body)
		case errors.Is(err, filing.ErrNoFileURL):
			response.ErrorJSON(c, http.StatusInternalServerError, "The Go API did not return a file URL")
		default:
			h.log.Error("open filing failed", zap.String("report_id", req.ReportID), zap.Error(err))
			response.ErrorJSON(c, http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Request processed successfully",
		"fileURL": result.FileURL,
		"chatId":  result.ChatID,
	})
}
