package handlers

import (
	"net/http"
	"time"

	"github.com/gatherly/backend/internal/logger"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateComment creates a new comment on an event
// POST /api/events/:id/comments
func (h *Handlers) CreateComment(c *gin.Context) {
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

	var event models.Event
	if err := h.db.First(&event, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "event")
		return
	}
	if !h.canViewEvent(&event, actor) {
		util.RespondNotFound(c, "event")
		return
	}

	comment := models.Comment{
		EventID: event.ID,
		Author:  actor,
		Body:    req.Body,
	}

	if err := h.db.Create(&comment).Error; err != nil {
		util.RespondInternalError(c, "Failed to create comment")
		return
	}

	if err := h.db.Model(&event).UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error; err != nil {
		logger.Log.Warn("failed to increment comment count", logger.WithEventID(event.ID))
	}

	h.notifyAccount(actor, models.NotificationComment,
		models.Ref{ID: comment.ID, Kind: models.KindComment},
		"commented on your event", event.Owner)

	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// ListComments retrieves comments for an event with pagination
// GET /api/events/:id/comments
func (h *Handlers) ListComments(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var event models.Event
	if err := h.db.First(&event, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "event")
		return
	}
	if !h.canViewEvent(&event, actor) {
		util.RespondNotFound(c, "event")
		return
	}

	page := util.ParsePagination(c)

	var total int64
	if err := h.db.Model(&models.Comment{}).Where("event_id = ?", event.ID).Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to count comments")
		return
	}

	var comments []models.Comment
	err := h.db.
		Where("event_id = ?", event.ID).
		Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&comments).Error
	if err != nil {
		util.RespondInternalError(c, "Failed to get comments")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": comments,
		"meta":     util.PageMeta(page, total),
	})
}

// GetComment retrieves a single comment with its reaction count
// GET /api/comments/:id
func (h *Handlers) GetComment(c *gin.Context) {
	if _, ok := util.GetActorFromContext(c); !ok {
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}

	reactionCount, err := h.ledger.Count(models.Ref{ID: comment.ID, Kind: models.KindComment})
	if err != nil {
		reactionCount = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"comment":        comment,
		"reaction_count": reactionCount,
	})
}

// UpdateComment edits a comment's body, keeping the prior body in the
// edit history.
// PUT /api/comments/:id
func (h *Handlers) UpdateComment(c *gin.Context) {
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

	var comment models.Comment
	if err := h.db.First(&comment, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}

	if comment.Author.ID != actor.ID {
		util.RespondForbidden(c, "You do not own this comment")
		return
	}

	history := append(comment.EditHistory, models.EditRevision{
		PreviousBody: comment.Body,
		EditedAt:     time.Now().UTC(),
	})

	// Typed struct update so the serializer:json column is encoded;
	// a map value would be written as a raw Go literal.
	err := h.db.Model(&comment).
		Select("body", "edited", "edit_history").
		Updates(models.Comment{Body: req.Body, Edited: true, EditHistory: history}).Error
	if err != nil {
		util.RespondInternalError(c, "Failed to update comment")
		return
	}

	comment.Body = req.Body
	comment.Edited = true
	comment.EditHistory = history

	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

// DeleteComment deletes a comment, its entire reply tree, and every
// reaction and notification referencing any of them.
// DELETE /api/comments/:id
func (h *Handlers) DeleteComment(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}

	if comment.Author.ID != actor.ID {
		util.RespondForbidden(c, "You do not own this comment")
		return
	}

	if err := h.cascade.DeleteComment(&comment); err != nil {
		util.RespondInternalError(c, "Failed to delete comment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "comment_deleted"})
}
