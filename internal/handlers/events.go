package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gatherly/backend/internal/logger"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

const maxMediaUploadBytes = 50 << 20 // 50MB

// CreateEvent creates a new event owned by the caller
// POST /api/events
func (h *Handlers) CreateEvent(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Title        string     `json:"title" binding:"required,min=1,max=200"`
		Description  string     `json:"description" binding:"max=5000"`
		Location     string     `json:"location" binding:"max=500"`
		StartsAt     time.Time  `json:"starts_at" binding:"required"`
		EndsAt       *time.Time `json:"ends_at,omitempty"`
		Private      bool       `json:"private"`
		AccessOnlyTo []string   `json:"access_only_to,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if req.EndsAt != nil && req.EndsAt.Before(req.StartsAt) {
		util.RespondValidationError(c, "ends_at", "must not be before starts_at")
		return
	}

	event := models.Event{
		Owner:        actor,
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		Private:      req.Private,
		AccessOnlyTo: req.AccessOnlyTo,
	}

	if err := h.db.Create(&event).Error; err != nil {
		util.RespondInternalError(c, "Failed to create event")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"event": event})
}

// GetEvent retrieves a single event
// GET /api/events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var event models.Event
	if err := h.db.First(&event, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "event")
		return
	}

	// Private events respond not-found rather than forbidden so their
	// existence is not leaked to accounts off the access list.
	if !h.canViewEvent(&event, actor) {
		util.RespondNotFound(c, "event")
		return
	}

	c.JSON(http.StatusOK, gin.H{"event": event})
}

// canViewEvent checks the private-event access gate: owner, invited
// accounts, and joined participants can read it.
func (h *Handlers) canViewEvent(event *models.Event, actor models.Ref) bool {
	if !event.Private {
		return true
	}
	if event.Owner.ID == actor.ID {
		return true
	}
	if event.AccessOnlyTo.Contains(actor.ID) {
		return true
	}

	var count int64
	h.db.Model(&models.EventParticipant{}).
		Where("event_id = ? AND account_id = ?", event.ID, actor.ID).
		Count(&count)
	return count > 0
}

// ListEvents returns events visible to the caller, newest first
// GET /api/events
func (h *Handlers) ListEvents(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	page := util.ParsePagination(c)

	var total int64
	if err := h.db.Model(&models.Event{}).
		Where("private = ? OR owner_id = ?", false, actor.ID).
		Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to count events")
		return
	}

	var events []models.Event
	err := h.db.
		Where("private = ? OR owner_id = ?", false, actor.ID).
		Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&events).Error
	if err != nil {
		util.RespondInternalError(c, "Failed to get events")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"meta":   util.PageMeta(page, total),
	})
}

// UpdateEvent updates an event's details, owner only
// PUT /api/events/:id
func (h *Handlers) UpdateEvent(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var event models.Event
	if err := h.db.First(&event, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "event")
		return
	}

	if event.Owner.ID != actor.ID {
		util.RespondForbidden(c, "You do not own this event")
		return
	}

	var req struct {
		Title        *string    `json:"title,omitempty" binding:"omitempty,min=1,max=200"`
		Description  *string    `json:"description,omitempty" binding:"omitempty,max=5000"`
		Location     *string    `json:"location,omitempty" binding:"omitempty,max=500"`
		StartsAt     *time.Time `json:"starts_at,omitempty"`
		EndsAt       *time.Time `json:"ends_at,omitempty"`
		Private      *bool      `json:"private,omitempty"`
		AccessOnlyTo *[]string  `json:"access_only_to,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	// Typed struct update with an explicit column list: the access list
	// is a serializer:json column and map updates skip the serializer.
	var fields []string
	patch := models.Event{}
	if req.Title != nil {
		patch.Title = *req.Title
		fields = append(fields, "title")
	}
	if req.Description != nil {
		patch.Description = *req.Description
		fields = append(fields, "description")
	}
	if req.Location != nil {
		patch.Location = *req.Location
		fields = append(fields, "location")
	}
	if req.StartsAt != nil {
		patch.StartsAt = *req.StartsAt
		fields = append(fields, "starts_at")
	}
	if req.EndsAt != nil {
		patch.EndsAt = req.EndsAt
		fields = append(fields, "ends_at")
	}
	if req.Private != nil {
		patch.Private = *req.Private
		fields = append(fields, "private")
	}
	if req.AccessOnlyTo != nil {
		patch.AccessOnlyTo = models.AccessList(*req.AccessOnlyTo)
		fields = append(fields, "access_only_to")
	}
	if len(fields) == 0 {
		util.RespondBadRequest(c, "no fields to update")
		return
	}

	if err := h.db.Model(&event).Select(fields).Updates(patch).Error; err != nil {
		util.RespondInternalError(c, "Failed to update event")
		return
	}

	c.JSON(http.StatusOK, gin.H{"event": event})
}

// DeleteEvent deletes an event and everything hanging off it: comments
// with their reply trees, reviews, reactions, notifications,
// participants, and stored media.
// DELETE /api/events/:id
func (h *Handlers) DeleteEvent(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var event models.Event
	if err := h.db.First(&event, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "event")
		return
	}

	if event.Owner.ID != actor.ID {
		util.RespondForbidden(c, "You do not own this event")
		return
	}

	if err := h.cascade.DeleteEvent(c.Request.Context(), &event); err != nil {
		util.RespondInternalError(c, "Failed to delete event")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "event_deleted"})
}

// JoinEvent adds the caller as a participant. Joining twice conflicts;
// the unique index makes the insert itself the idempotency check.
// POST /api/events/:id/join
func (h *Handlers) JoinEvent(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var event models.Event
	if err := h.db.First(&event, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "event")
		return
	}

	if event.Private && event.Owner.ID != actor.ID && !event.AccessOnlyTo.Contains(actor.ID) {
		util.RespondNotFound(c, "event")
		return
	}

	participant := models.EventParticipant{
		EventID:     event.ID,
		AccountID:   actor.ID,
		AccountKind: actor.Kind,
	}

	result := h.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&participant)
	if result.Error != nil {
		util.RespondInternalError(c, "Failed to join event")
		return
	}
	if result.RowsAffected == 0 {
		util.RespondConflict(c, "participant")
		return
	}

	h.notifyAccount(actor, models.NotificationEventJoin,
		models.Ref{ID: event.ID, Kind: models.KindEvent},
		"joined your event", event.Owner)

	c.JSON(http.StatusCreated, gin.H{"message": "event_joined"})
}

// LeaveEvent removes the caller from an event's participants
// DELETE /api/events/:id/join
func (h *Handlers) LeaveEvent(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	result := h.db.
		Where("event_id = ? AND account_id = ?", c.Param("id"), actor.ID).
		Delete(&models.EventParticipant{})
	if result.Error != nil {
		util.RespondInternalError(c, "Failed to leave event")
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "participant")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "event_left"})
}

// ListParticipants returns an event's participants
// GET /api/events/:id/participants
func (h *Handlers) ListParticipants(c *gin.Context) {
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
	h.db.Model(&models.EventParticipant{}).Where("event_id = ?", event.ID).Count(&total)

	var participants []models.EventParticipant
	err := h.db.
		Where("event_id = ?", event.ID).
		Order("created_at ASC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&participants).Error
	if err != nil {
		util.RespondInternalError(c, "Failed to get participants")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"participants": participants,
		"meta":         util.PageMeta(page, total),
	})
}

// InviteToEvent adds accounts to a private event's access list and
// notifies them.
// POST /api/events/:id/invite
func (h *Handlers) InviteToEvent(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var req struct {
		AccountIDs []string `json:"account_ids" binding:"required,min=1,max=100"`
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

	if event.Owner.ID != actor.ID {
		util.RespondForbidden(c, "You do not own this event")
		return
	}

	reference := models.Ref{ID: event.ID, Kind: models.KindEvent}
	invited := make([]string, 0, len(req.AccountIDs))
	for _, id := range req.AccountIDs {
		recipient, err := h.resolver.ResolveActor(id)
		if err != nil || event.AccessOnlyTo.Contains(id) {
			continue
		}
		event.AccessOnlyTo = append(event.AccessOnlyTo, id)
		invited = append(invited, id)
		h.notifyAccount(actor, models.NotificationEventInvite, reference,
			"invited you to an event", recipient)
	}

	if len(invited) > 0 {
		err := h.db.Model(&event).
			Select("access_only_to").
			Updates(models.Event{AccessOnlyTo: event.AccessOnlyTo}).Error
		if err != nil {
			util.RespondInternalError(c, "Failed to update access list")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"invited": invited})
}

// UploadEventMedia uploads an image or video and attaches it to the
// event. Storage failures surface as upstream errors.
// POST /api/events/:id/media
func (h *Handlers) UploadEventMedia(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var event models.Event
	if err := h.db.First(&event, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "event")
		return
	}

	if event.Owner.ID != actor.ID {
		util.RespondForbidden(c, "You do not own this event")
		return
	}

	if h.media == nil {
		util.RespondInternalError(c, "Media storage is not configured")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		util.RespondBadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > maxMediaUploadBytes {
		util.RespondValidationError(c, "file", "file exceeds the 50MB limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.RespondInternalError(c, "Failed to read upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		util.RespondInternalError(c, "Failed to read upload")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	result, err := h.media.Upload(c.Request.Context(), data, contentType, actor.ID)
	if err != nil {
		util.RespondServiceError(c, err)
		return
	}

	media := models.MediaContent{URL: result.URL, Key: result.Key, Kind: result.Kind}
	event.Media = append(event.Media, media)
	if err := h.db.Model(&event).Select("media").Updates(models.Event{Media: event.Media}).Error; err != nil {
		// The object is orphaned in storage; clean it up best effort.
		if removeErr := h.media.Remove(c.Request.Context(), result.Key); removeErr != nil {
			logger.Log.Warn("failed to remove orphaned media object",
				zap.String("key", result.Key), zap.Error(removeErr))
		}
		util.RespondInternalError(c, "Failed to attach media")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"media": media})
}

// RemoveEventMedia detaches and deletes one media object. The key is a
// wildcard parameter because object keys contain slashes.
// DELETE /api/events/:id/media/*key
func (h *Handlers) RemoveEventMedia(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var event models.Event
	if err := h.db.First(&event, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "event")
		return
	}

	if event.Owner.ID != actor.ID {
		util.RespondForbidden(c, "You do not own this event")
		return
	}

	key := strings.TrimPrefix(c.Param("key"), "/")
	kept := make([]models.MediaContent, 0, len(event.Media))
	found := false
	for _, media := range event.Media {
		if media.Key == key {
			found = true
			continue
		}
		kept = append(kept, media)
	}
	if !found {
		util.RespondNotFound(c, "media")
		return
	}

	if err := h.db.Model(&event).Select("media").Updates(models.Event{Media: kept}).Error; err != nil {
		util.RespondInternalError(c, "Failed to detach media")
		return
	}

	if h.media != nil {
		if err := h.media.Remove(c.Request.Context(), key); err != nil {
			logger.Log.Warn("failed to remove media object",
				zap.String("key", key), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "media_removed"})
}
