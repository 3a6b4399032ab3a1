package handlers

import (
	"net/http"
	"time"

	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// CreateReview creates a review on an event. One review per author per
// event; the owner cannot review their own event.
// POST /api/events/:id/reviews
func (h *Handlers) CreateReview(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Body   string `json:"body" binding:"required,min=1,max=5000"`
		Rating int    `json:"rating" binding:"required,min=1,max=5"`
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

	if event.Owner.ID == actor.ID {
		util.RespondForbidden(c, "You cannot review your own event")
		return
	}

	var existing int64
	h.db.Model(&models.Review{}).
		Where("event_id = ? AND author_id = ?", event.ID, actor.ID).
		Count(&existing)
	if existing > 0 {
		util.RespondConflict(c, "review")
		return
	}

	review := models.Review{
		EventID: event.ID,
		Author:  actor,
		Body:    req.Body,
		Rating:  req.Rating,
	}

	if err := h.db.Create(&review).Error; err != nil {
		util.RespondInternalError(c, "Failed to create review")
		return
	}

	h.notifyAccount(actor, models.NotificationReview,
		models.Ref{ID: review.ID, Kind: models.KindReview},
		"reviewed your event", event.Owner)

	c.JSON(http.StatusCreated, gin.H{"review": review})
}

// ListReviews retrieves reviews for an event with the average rating
// GET /api/events/:id/reviews
func (h *Handlers) ListReviews(c *gin.Context) {
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
	if err := h.db.Model(&models.Review{}).Where("event_id = ?", event.ID).Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to count reviews")
		return
	}

	var reviews []models.Review
	err := h.db.
		Where("event_id = ?", event.ID).
		Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&reviews).Error
	if err != nil {
		util.RespondInternalError(c, "Failed to get reviews")
		return
	}

	var avgRating float64
	if total > 0 {
		h.db.Model(&models.Review{}).
			Where("event_id = ?", event.ID).
			Select("AVG(rating)").
			Scan(&avgRating)
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews":        reviews,
		"average_rating": avgRating,
		"meta":           util.PageMeta(page, total),
	})
}

// GetReview retrieves a single review
// GET /api/reviews/:id
func (h *Handlers) GetReview(c *gin.Context) {
	if _, ok := util.GetActorFromContext(c); !ok {
		return
	}

	var review models.Review
	if err := h.db.First(&review, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "review")
		return
	}

	reactionCount, err := h.ledger.Count(models.Ref{ID: review.ID, Kind: models.KindReview})
	if err != nil {
		reactionCount = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"review":         review,
		"reaction_count": reactionCount,
	})
}

// UpdateReview edits a review's body or rating, keeping the prior body
// in the edit history.
// PUT /api/reviews/:id
func (h *Handlers) UpdateReview(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Body   *string `json:"body,omitempty" binding:"omitempty,min=1,max=5000"`
		Rating *int    `json:"rating,omitempty" binding:"omitempty,min=1,max=5"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	if req.Body == nil && req.Rating == nil {
		util.RespondBadRequest(c, "no fields to update")
		return
	}

	var review models.Review
	if err := h.db.First(&review, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "review")
		return
	}

	if review.Author.ID != actor.ID {
		util.RespondForbidden(c, "You do not own this review")
		return
	}

	var fields []string
	patch := models.Review{}
	if req.Body != nil {
		history := append(review.EditHistory, models.EditRevision{
			PreviousBody: review.Body,
			EditedAt:     time.Now().UTC(),
		})
		patch.Body = *req.Body
		patch.Edited = true
		patch.EditHistory = history
		fields = append(fields, "body", "edited", "edit_history")
		review.Body = *req.Body
		review.Edited = true
		review.EditHistory = history
	}
	if req.Rating != nil {
		patch.Rating = *req.Rating
		fields = append(fields, "rating")
		review.Rating = *req.Rating
	}

	if err := h.db.Model(&review).Select(fields).Updates(patch).Error; err != nil {
		util.RespondInternalError(c, "Failed to update review")
		return
	}

	c.JSON(http.StatusOK, gin.H{"review": review})
}

// DeleteReview deletes a review and its reply tree
// DELETE /api/reviews/:id
func (h *Handlers) DeleteReview(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var review models.Review
	if err := h.db.First(&review, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "review")
		return
	}

	if review.Author.ID != actor.ID {
		util.RespondForbidden(c, "You do not own this review")
		return
	}

	if err := h.cascade.DeleteReview(&review); err != nil {
		util.RespondInternalError(c, "Failed to delete review")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "review_deleted"})
}
