package handler

import (
	"github.com/gin-gonic/gin"

	"filingchat/internal/config"
	"filingchat/internal/transport/http/response"
)

type ModelHandler struct {
	llm config.LLMConfig
}

func NewModelHandler(llm config.LLMConfig) *ModelHandler {
	return &ModelHandler{llm: llm}
}

func (h *ModelHandler) List(c *gin.Context) {
	response.OK(c, gin.H{
		"models":         h.llm.Models,
		"defaultModelId": h.llm.DefaultModel,
	})
}
