package handlers

import (
	"net/http"
	"time"

	"github.com/gatherly/backend/internal/logger"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateReply creates a reply under a comment, another reply, or a
// review. The parent kind is never taken from the client; it is
// resolved from the id alone.
// POST /api/replies
func (h *Handlers) CreateReply(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var req struct {
		ParentID string `json:"parent_id" binding:"required"`
		Body     string `json:"body" binding:"required,min=1,max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	parent, handle, err := h.resolver.ResolveParent(req.ParentID)
	if err != nil {
		util.RespondServiceError(c, err)
		return
	}

	reply := models.Reply{
		Parent: parent,
		Author: actor,
		Body:   req.Body,
	}

	if err := h.db.Create(&reply).Error; err != nil {
		util.RespondInternalError(c, "Failed to create reply")
		return
	}

	h.incrementReplyCount(parent)

	if author, ok := authorOf(handle); ok {
		h.notifyAccount(actor, models.NotificationReply,
			models.Ref{ID: reply.ID, Kind: models.KindReply},
			"replied to you", author)
	}

	c.JSON(http.StatusCreated, gin.H{"reply": reply})
}

// incrementReplyCount bumps the counter on whichever table the parent
// lives in.
func (h *Handlers) incrementReplyCount(parent models.Ref) {
	expr := gorm.Expr("reply_count + 1")
	var err error
	switch parent.Kind {
	case models.KindComment:
		err = h.db.Model(&models.Comment{}).Where("id = ?", parent.ID).
			UpdateColumn("reply_count", expr).Error
	case models.KindReply:
		err = h.db.Model(&models.Reply{}).Where("id = ?", parent.ID).
			UpdateColumn("reply_count", expr).Error
	case models.KindReview:
		err = h.db.Model(&models.Review{}).Where("id = ?", parent.ID).
			UpdateColumn("reply_count", expr).Error
	}
	if err != nil {
		logger.Log.Warn("failed to increment reply count",
			zap.String("parent_id", parent.ID), zap.Error(err))
	}
}

// GetReply retrieves a single reply
// GET /api/replies/:id
func (h *Handlers) GetReply(c *gin.Context) {
	if _, ok := util.GetActorFromContext(c); !ok {
		return
	}

	var reply models.Reply
	if err := h.db.First(&reply, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "reply")
		return
	}

	reactionCount, err := h.ledger.Count(models.Ref{ID: reply.ID, Kind: models.KindReply})
	if err != nil {
		reactionCount = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"reply":          reply,
		"reaction_count": reactionCount,
	})
}

// ListReplies returns the direct children of a parent, oldest first.
// Child lists are derived from the parent reference on each reply, no
// child-id lists are stored anywhere.
// GET /api/replies?parent_id=...
func (h *Handlers) ListReplies(c *gin.Context) {
	if _, ok := util.GetActorFromContext(c); !ok {
		return
	}

	parentID := c.Query("parent_id")
	if parentID == "" {
		util.RespondBadRequest(c, "parent_id is required")
		return
	}

	if _, _, err := h.resolver.ResolveParent(parentID); err != nil {
		util.RespondServiceError(c, err)
		return
	}

	page := util.ParsePagination(c)

	var total int64
	if err := h.db.Model(&models.Reply{}).Where("parent_id = ?", parentID).Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to count replies")
		return
	}

	var replies []models.Reply
	err := h.db.
		Where("parent_id = ?", parentID).
		Order("created_at ASC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&replies).Error
	if err != nil {
		util.RespondInternalError(c, "Failed to get replies")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"replies": replies,
		"meta":    util.PageMeta(page, total),
	})
}

// UpdateReply edits a reply's body, keeping the prior body in the edit
// history.
// PUT /api/replies/:id
func (h *Handlers) UpdateReply(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Body string `json:"body" binding:"required,min=1,max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var reply models.Reply
	if err := h.db.First(&reply, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "reply")
		return
	}

	if reply.Author.ID != actor.ID {
		util.RespondForbidden(c, "You do not own this reply")
		return
	}

	history := append(reply.EditHistory, models.EditRevision{
		PreviousBody: reply.Body,
		EditedAt:     time.Now().UTC(),
	})

	err := h.db.Model(&reply).
		Select("body", "edited", "edit_history").
		Updates(models.Reply{Body: req.Body, Edited: true, EditHistory: history}).Error
	if err != nil {
		util.RespondInternalError(c, "Failed to update reply")
		return
	}

	reply.Body = req.Body
	reply.Edited = true
	reply.EditHistory = history

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// DeleteReply deletes a reply and every descendant under it, along
// with their reactions and notifications.
// DELETE /api/replies/:id
func (h *Handlers) DeleteReply(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var reply models.Reply
	if err := h.db.First(&reply, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "reply")
		return
	}

	if reply.Author.ID != actor.ID {
		util.RespondForbidden(c, "You do not own this reply")
		return
	}

	if err := h.cascade.DeleteReply(&reply); err != nil {
		util.RespondInternalError(c, "Failed to delete reply")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "reply_deleted"})
}
