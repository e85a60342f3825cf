package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/logger"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/services"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/types"
)

type SnapshotHandler struct {
	log             *logger.Logger
	snapshotService services.SnapshotService
}

func NewSnapshotHandler(log *logger.Logger, snapshotService services.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{
		log:             log.With("handler", "SnapshotHandler"),
		snapshotService: snapshotService,
	}
}

type createSnapshotRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func (h *SnapshotHandler) CreateSnapshot(c *gin.Context) {
	var req createSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	snapshot, err := h.snapshotService.CreateDirect(c.Request.Context(), nil, req.Name, req.Description, req.Tags)
	if err != nil {
		h.log.Error("CreateSnapshot failed", "error", err)
		RespondDomainError(c, err)
		return
	}
	RespondCreated(c, gin.H{"snapshot": snapshot})
}

type createFromCourseRequest struct {
	CourseID uuid.UUID `json:"course_id" binding:"required"`
}

func (h *SnapshotHandler) CreateSnapshotFromCourse(c *gin.Context) {
	var req createFromCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	snapshot, err := h.snapshotService.CreateFromCourse(c.Request.Context(), nil, req.CourseID)
	if err != nil {
		h.log.Error("CreateSnapshotFromCourse failed", "error", err, "course_id", req.CourseID)
		RespondDomainError(c, err)
		return
	}
	RespondCreated(c, gin.H{"snapshot": snapshot})
}

func (h *SnapshotHandler) ListSnapshots(c *gin.Context) {
	snapshots, err := h.snapshotService.ListSnapshots(c.Request.Context(), nil)
	if err != nil {
		h.log.Error("ListSnapshots failed", "error", err)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"snapshots": snapshots})
}

func (h *SnapshotHandler) GetSnapshot(c *gin.Context) {
	snapshotID, err := uuid.Parse(c.Param("snapshotId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_snapshot_id", err)
		return
	}

	snapshot, err := h.snapshotService.GetSnapshot(c.Request.Context(), nil, snapshotID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"snapshot": snapshot})
}

func (h *SnapshotHandler) UpdateSnapshot(c *gin.Context) {
	snapshotID, err := uuid.Parse(c.Param("snapshotId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_snapshot_id", err)
		return
	}

	var input services.UpdateSnapshotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	snapshot, err := h.snapshotService.UpdateSnapshot(c.Request.Context(), nil, snapshotID, input)
	if err != nil {
		h.log.Error("UpdateSnapshot failed", "error", err, "snapshot_id", snapshotID)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"snapshot": snapshot})
}

func (h *SnapshotHandler) Publish(c *gin.Context) {
	h.transition(c, "publish", h.snapshotService.Publish)
}

func (h *SnapshotHandler) Complete(c *gin.Context) {
	h.transition(c, "complete", h.snapshotService.Complete)
}

func (h *SnapshotHandler) Archive(c *gin.Context) {
	h.transition(c, "archive", h.snapshotService.Archive)
}

func (h *SnapshotHandler) transition(c *gin.Context, action string, fn func(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) (*types.Snapshot, error)) {
	snapshotID, err := uuid.Parse(c.Param("snapshotId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_snapshot_id", err)
		return
	}

	snapshot, err := fn(c.Request.Context(), nil, snapshotID)
	if err != nil {
		h.log.Warn("Snapshot transition refused", "error", err, "action", action, "snapshot_id", snapshotID)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"snapshot": snapshot})
}
