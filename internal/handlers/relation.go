package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/logger"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/services"
)

type RelationHandler struct {
	log             *logger.Logger
	relationService services.RelationService
}

func NewRelationHandler(log *logger.Logger, relationService services.RelationService) *RelationHandler {
	return &RelationHandler{
		log:             log.With("handler", "RelationHandler"),
		relationService: relationService,
	}
}

type createRelationRequest struct {
	FromItemID *uuid.UUID `json:"from_item_id"`
	ToItemID   uuid.UUID  `json:"to_item_id" binding:"required"`
}

func (h *RelationHandler) CreateRelation(c *gin.Context) {
	snapshotID, err := uuid.Parse(c.Param("snapshotId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_snapshot_id", err)
		return
	}

	var req createRelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	relation, err := h.relationService.CreateRelation(c.Request.Context(), nil, snapshotID, req.FromItemID, req.ToItemID)
	if err != nil {
		h.log.Warn("CreateRelation refused", "error", err, "snapshot_id", snapshotID)
		RespondDomainError(c, err)
		return
	}
	RespondCreated(c, gin.H{"relation": relation})
}

type setStartItemRequest struct {
	ItemID uuid.UUID `json:"item_id" binding:"required"`
}

func (h *RelationHandler) SetStartItem(c *gin.Context) {
	snapshotID, err := uuid.Parse(c.Param("snapshotId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_snapshot_id", err)
		return
	}

	var req setStartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	relation, err := h.relationService.SetStartItem(c.Request.Context(), nil, snapshotID, req.ItemID)
	if err != nil {
		h.log.Warn("SetStartItem refused", "error", err, "snapshot_id", snapshotID)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"relation": relation})
}

func (h *RelationHandler) DeleteRelation(c *gin.Context) {
	snapshotID, err := uuid.Parse(c.Param("snapshotId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_snapshot_id", err)
		return
	}
	relationID, err := uuid.Parse(c.Param("relationId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_relation_id", err)
		return
	}

	if err := h.relationService.DeleteRelation(c.Request.Context(), nil, snapshotID, relationID); err != nil {
		h.log.Warn("DeleteRelation refused", "error", err, "relation_id", relationID)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

func (h *RelationHandler) GetRelations(c *gin.Context) {
	snapshotID, err := uuid.Parse(c.Param("snapshotId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_snapshot_id", err)
		return
	}

	view, err := h.relationService.GetRelations(c.Request.Context(), nil, snapshotID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, view)
}

func (h *RelationHandler) GetOrderedItems(c *gin.Context) {
	snapshotID, err := uuid.Parse(c.Param("snapshotId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_snapshot_id", err)
		return
	}

	ordered, err := h.relationService.GetOrderedItems(c.Request.Context(), nil, snapshotID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"ordered_items": ordered})
}

func (h *RelationHandler) AutoRelate(c *gin.Context) {
	snapshotID, err := uuid.Parse(c.Param("snapshotId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_snapshot_id", err)
		return
	}

	relations, err := h.relationService.AutoRelate(c.Request.Context(), nil, snapshotID)
	if err != nil {
		h.log.Warn("AutoRelate refused", "error", err, "snapshot_id", snapshotID)
		RespondDomainError(c, err)
		return
	}
	RespondCreated(c, gin.H{"relations": relations})
}
