package http

import (
	"errors"
	"net/http"
	"strconv"

	"kayzen-ingest/domain/dto"
	"kayzen-ingest/infrastructure/logger"
	"kayzen-ingest/usecase"

	"github.com/gin-gonic/gin"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

type IIngestHandler interface {
	Ingest(c *gin.Context)
	Runs(c *gin.Context)
	Healthz(c *gin.Context)
}

type IngestHandler struct {
	IngestUsecase usecase.IIngestUsecase
}

func NewIngestHandler(ingestUsecase usecase.IIngestUsecase) IIngestHandler {
	return &IngestHandler{IngestUsecase: ingestUsecase}
}

// Ingest runs one ingestion synchronously and answers with the run's envelope,
// using its statusCode as the HTTP status.
func (h *IngestHandler) Ingest(c *gin.Context) {
	res := h.IngestUsecase.Run(c.Request.Context())
	c.JSON(res.StatusCode, res)
}

// Runs lists the most recent runs recorded in the run history.
func (h *IngestHandler) Runs(c *gin.Context) {
	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	runs, err := h.IngestUsecase.Runs(c.Request.Context(), limit)
	if errors.Is(err, usecase.ErrHistoryDisabled) {
		c.JSON(http.StatusNotFound, dto.Res{ResponseCode: "404", ResponseMessage: err.Error()})
		return
	}
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while listing runs")
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": runs})
}

// Healthz returns OK for health checks
func (h *IngestHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
