package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/supportrag/internal/middleware"
)

type RouterDeps struct {
	Retrieval *RetrievalHandler
	Tickets   *TicketHandler
	Manuals   *ManualHandler
	RateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.Use(middleware.RateLimit(deps.RateLimit))
	api.POST("/retrieve", deps.Retrieval.Retrieve)
	api.POST("/tickets", deps.Tickets.Add)
	api.POST("/tickets/process", deps.Tickets.Process)
	api.POST("/manuals", deps.Manuals.Upload)
}
