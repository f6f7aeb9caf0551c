package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/supportrag/internal/model"
	"github.com/xxxsen/supportrag/internal/pkg/errcode"
	"github.com/xxxsen/supportrag/internal/pkg/response"
)

type TicketIngester interface {
	AddTicket(ctx context.Context, in *model.TicketInput) (*model.TicketChunk, error)
}

type TicketProcessor interface {
	ProcessTicket(ctx context.Context, description, deviceType string) (*model.AssistResult, error)
}

type TicketHandler struct {
	ingester  TicketIngester
	processor TicketProcessor
}

func NewTicketHandler(ingester TicketIngester, processor TicketProcessor) *TicketHandler {
	return &TicketHandler{ingester: ingester, processor: processor}
}

type addTicketResponse struct {
	TicketID string `json:"ticket_id"`
	Summary  string `json:"summary"`
}

func (h *TicketHandler) Add(c *gin.Context) {
	var req model.TicketInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	row, err := h.ingester.AddTicket(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, addTicketResponse{TicketID: row.TicketID, Summary: row.Chunk})
}

type processTicketRequest struct {
	Description string `json:"description"`
	DeviceType  string `json:"device_type"`
}

func (h *TicketHandler) Process(c *gin.Context) {
	var req processTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.processor.ProcessTicket(c.Request.Context(), req.Description, req.DeviceType)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
