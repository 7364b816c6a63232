package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ad-tracker/performance-snapshots-go/internal/models"
	"github.com/ad-tracker/performance-snapshots-go/internal/service"
	"github.com/ad-tracker/performance-snapshots-go/pkg/logger"
)

// SnapshotHandler handles snapshot capture and management requests.
type SnapshotHandler struct {
	snapshots *service.SnapshotService
	log       *zap.Logger
}

// NewSnapshotHandler creates a new SnapshotHandler instance.
func NewSnapshotHandler(snapshots *service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{
		snapshots: snapshots,
		log:       logger.Named("http"),
	}
}

// Preview parses pasted text without saving it.
func (h *SnapshotHandler) Preview(c *gin.Context) {
	var req models.SnapshotPasteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request payload: "+err.Error(), nil)
		return
	}

	result := h.snapshots.Preview(req.Text, req.SnapshotDate)
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Save stores a snapshot from pasted text or from a structured body.
// The overwrite query parameter takes precedence over the body field.
func (h *SnapshotHandler) Save(c *gin.Context) {
	var req models.SaveSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request payload: "+err.Error(), nil)
		return
	}

	overwrite := req.Overwrite
	if raw := c.Query("overwrite"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid boolean value for overwrite", nil)
			return
		}
		overwrite = parsed
	}

	var result service.SaveResult
	switch {
	case req.Snapshot != nil:
		result = h.snapshots.Save(c.Request.Context(), req.Snapshot, overwrite)
	case req.Text != "":
		result = h.snapshots.Import(c.Request.Context(), req.Text, req.SnapshotDate, overwrite)
	default:
		respondError(c, http.StatusBadRequest, "either text or snapshot is required", nil)
		return
	}

	switch {
	case result.Success:
		c.JSON(http.StatusCreated, result)
	case result.Duplicate:
		c.JSON(http.StatusConflict, result)
	case result.Invalid:
		respondError(c, http.StatusBadRequest, result.Error, result.Details)
	default:
		respondError(c, http.StatusInternalServerError, result.Error, nil)
	}
}

// List returns all stored snapshot dates, newest first.
func (h *SnapshotHandler) List(c *gin.Context) {
	dates, err := h.snapshots.ListDates(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dates": dates,
		"count": len(dates),
	})
}

// Latest returns the most recently captured snapshot.
func (h *SnapshotHandler) Latest(c *gin.Context) {
	snapshot, err := h.snapshots.GetLatest(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// Stats returns storage statistics.
func (h *SnapshotHandler) Stats(c *gin.Context) {
	stats, err := h.snapshots.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Get returns the snapshot for the date path parameter.
func (h *SnapshotHandler) Get(c *gin.Context) {
	snapshot, err := h.snapshots.Get(c.Request.Context(), c.Param("date"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// Deltas returns day-over-day changes of a snapshot against the previous calendar day.
func (h *SnapshotHandler) Deltas(c *gin.Context) {
	report, err := h.snapshots.Deltas(c.Request.Context(), c.Param("date"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Delete removes the snapshot for the date path parameter.
func (h *SnapshotHandler) Delete(c *gin.Context) {
	date := c.Param("date")

	deleted, err := h.snapshots.Delete(c.Request.Context(), date)
	if err != nil {
		handleError(c, err)
		return
	}
	if !deleted {
		respondError(c, http.StatusNotFound, "snapshot not found", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted":      true,
		"snapshotDate": date,
	})
}

// DeleteAll removes every stored snapshot.
func (h *SnapshotHandler) DeleteAll(c *gin.Context) {
	if err := h.snapshots.ClearAll(c.Request.Context()); err != nil {
		handleError(c, err)
		return
	}

	h.log.Warn("All snapshots cleared via API", zap.String("clientIp", c.ClientIP()))
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
