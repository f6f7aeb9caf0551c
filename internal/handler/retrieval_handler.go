package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/supportrag/internal/model"
	"github.com/xxxsen/supportrag/internal/pkg/errcode"
	"github.com/xxxsen/supportrag/internal/pkg/response"
)

type Retriever interface {
	Retrieve(ctx context.Context, query, deviceType string) (*model.RetrievalResult, error)
}

type RetrievalHandler struct {
	retriever Retriever
}

func NewRetrievalHandler(retriever Retriever) *RetrievalHandler {
	return &RetrievalHandler{retriever: retriever}
}

type retrieveRequest struct {
	Query      string `json:"query"`
	DeviceType string `json:"device_type"`
}

func (h *RetrievalHandler) Retrieve(c *gin.Context) {
	var req retrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.retriever.Retrieve(c.Request.Context(), req.Query, req.DeviceType)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
