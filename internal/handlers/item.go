package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/logger"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/services"
)

type ItemHandler struct {
	log         *logger.Logger
	itemService services.ItemService
}

func NewItemHandler(log *logger.Logger, itemService services.ItemService) *ItemHandler {
	return &ItemHandler{
		log:         log.With("handler", "ItemHandler"),
		itemService: itemService,
	}
}

func (h *ItemHandler) CreateItem(c *gin.Context) {
	snapshotID, err := uuid.Parse(c.Param("snapshotId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_snapshot_id", err)
		return
	}

	var input services.CreateItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	item, err := h.itemService.CreateItem(c.Request.Context(), nil, snapshotID, input)
	if err != nil {
		h.log.Warn("CreateItem refused", "error", err, "snapshot_id", snapshotID)
		RespondDomainError(c, err)
		return
	}
	RespondCreated(c, gin.H{"item": item})
}

func (h *ItemHandler) GetHierarchy(c *gin.Context) {
	snapshotID, err := uuid.Parse(c.Param("snapshotId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_snapshot_id", err)
		return
	}

	roots, err := h.itemService.GetHierarchy(c.Request.Context(), nil, snapshotID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"items": roots})
}

func (h *ItemHandler) GetFlatItems(c *gin.Context) {
	snapshotID, err := uuid.Parse(c.Param("snapshotId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_snapshot_id", err)
		return
	}

	items, err := h.itemService.GetFlatItems(c.Request.Context(), nil, snapshotID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"items": items})
}

type renameItemRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *ItemHandler) UpdateItemName(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_item_id", err)
		return
	}

	var req renameItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	item, err := h.itemService.UpdateItemName(c.Request.Context(), nil, itemID, req.Name)
	if err != nil {
		h.log.Warn("UpdateItemName refused", "error", err, "item_id", itemID)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"item": item})
}

type moveItemRequest struct {
	NewParentID *uuid.UUID `json:"new_parent_id"`
}

func (h *ItemHandler) MoveItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_item_id", err)
		return
	}

	var req moveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	item, err := h.itemService.MoveItem(c.Request.Context(), nil, itemID, req.NewParentID)
	if err != nil {
		h.log.Warn("MoveItem refused", "error", err, "item_id", itemID)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"item": item})
}

func (h *ItemHandler) DeleteItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_item_id", err)
		return
	}

	if err := h.itemService.DeleteItem(c.Request.Context(), nil, itemID); err != nil {
		h.log.Warn("DeleteItem refused", "error", err, "item_id", itemID)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}
