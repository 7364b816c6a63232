package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ad-tracker/performance-snapshots-go/internal/models"
	"github.com/ad-tracker/performance-snapshots-go/internal/service"
)

const maxChannelLimit = 200

// PerformanceHandler serves merged performance views.
type PerformanceHandler struct {
	performance *service.PerformanceService
}

// NewPerformanceHandler creates a new PerformanceHandler instance.
func NewPerformanceHandler(performance *service.PerformanceService) *PerformanceHandler {
	return &PerformanceHandler{performance: performance}
}

// Merge merges the posted video records with the latest snapshot.
func (h *PerformanceHandler) Merge(c *gin.Context) {
	var req models.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request payload: "+err.Error(), nil)
		return
	}

	result, err := h.performance.MergeVideos(c.Request.Context(), req.Videos, req.IncludeDeltas)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Channel fetches a channel's recent uploads and merges them with the latest snapshot.
func (h *PerformanceHandler) Channel(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(c, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = min(parsed, maxChannelLimit)
	}

	includeDeltas := false
	if raw := c.Query("includeDeltas"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid boolean value for includeDeltas", nil)
			return
		}
		includeDeltas = parsed
	}

	result, err := h.performance.ChannelPerformance(c.Request.Context(), c.Param("channelId"), limit, includeDeltas)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
