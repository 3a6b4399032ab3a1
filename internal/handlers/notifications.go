package handlers

import (
	"net/http"

	"github.com/gatherly/backend/internal/logger"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/notify"
	"github.com/gatherly/backend/internal/util"
	"github.com/gatherly/backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateNotification creates a notification addressed to a set of
// accounts. The inbox rows are committed before any push is attempted;
// socket delivery is queued post-commit and never blocks the response.
// POST /api/notifications
func (h *Handlers) CreateNotification(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Type         string   `json:"type" binding:"required"`
		ReferenceID  string   `json:"reference_id" binding:"required"`
		Message      string   `json:"message" binding:"max=500"`
		RecipientIDs []string `json:"recipient_ids" binding:"required,min=1,max=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	reference, err := h.resolver.ResolveReference(req.ReferenceID)
	if err != nil {
		util.RespondServiceError(c, err)
		return
	}

	// Unknown recipient ids are skipped, not errors. A notification
	// addressed to nobody real is still a BadRequest.
	recipients := make([]models.Ref, 0, len(req.RecipientIDs))
	for _, id := range req.RecipientIDs {
		if id == actor.ID {
			continue
		}
		recipient, err := h.resolver.ResolveActor(id)
		if err != nil {
			continue
		}
		recipients = append(recipients, recipient)
	}
	if len(recipients) == 0 {
		util.RespondBadRequest(c, "no valid recipients")
		return
	}

	notification, err := h.createNotification(actor, models.NotificationType(req.Type), reference, req.Message, recipients)
	if err != nil {
		util.RespondInternalError(c, "Failed to create notification")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"notification": notification})
}

// createNotification writes the notification and its recipient rows in
// one transaction, then enqueues best-effort socket pushes.
func (h *Handlers) createNotification(actor models.Ref, ntype models.NotificationType, reference models.Ref, message string, recipients []models.Ref) (*models.Notification, error) {
	notification := models.Notification{
		Actor:     actor,
		Type:      ntype,
		Reference: reference,
		Message:   message,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&notification).Error; err != nil {
			return err
		}
		for _, recipient := range recipients {
			row := models.NotificationRecipient{
				NotificationID: notification.ID,
				AccountID:      recipient.ID,
				AccountKind:    recipient.Kind,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if h.dispatcher != nil {
		payload := websocket.NotificationPayload{
			ID:        notification.ID,
			Type:      string(notification.Type),
			Actor:     notification.Actor,
			Reference: notification.Reference,
			Message:   notification.Message,
			CreatedAt: notification.CreatedAt.UnixMilli(),
		}
		for _, recipient := range recipients {
			h.dispatcher.Enqueue(notify.Push{AccountID: recipient.ID, Payload: payload})
		}
	}

	return &notification, nil
}

// notifyAccount is the one-recipient convenience used by content
// handlers. Failures are logged, never surfaced to the request.
func (h *Handlers) notifyAccount(actor models.Ref, ntype models.NotificationType, reference models.Ref, message string, recipient models.Ref) {
	if recipient.ID == actor.ID {
		return
	}
	if _, err := h.createNotification(actor, ntype, reference, message, []models.Ref{recipient}); err != nil {
		logger.Log.Warn("failed to create notification",
			logger.WithAccountID(recipient.ID),
			zap.String("type", string(ntype)),
			zap.Error(err))
	}
}

// notificationInboxRow is a notification joined with the requesting
// recipient's delivery state.
type notificationInboxRow struct {
	models.Notification
	Seen bool `json:"seen"`
}

// ListNotifications returns the caller's inbox, newest first.
// GET /api/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}

	page := util.ParsePagination(c)

	inboxQuery := func() *gorm.DB {
		return h.db.Model(&models.Notification{}).
			Joins("JOIN notification_recipients ON notification_recipients.notification_id = notifications.id").
			Where("notification_recipients.account_id = ? AND notification_recipients.deleted = ?", actor.ID, false)
	}

	var total int64
	if err := inboxQuery().Count(&total).Error; err != nil {
		util.RespondInternalError(c, "Failed to count notifications")
		return
	}

	var rows []notificationInboxRow
	err := inboxQuery().
		Select("notifications.*, notification_recipients.seen AS seen").
		Order("notifications.created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&rows).Error
	if err != nil {
		util.RespondInternalError(c, "Failed to get notifications")
		return
	}
	if rows == nil {
		rows = []notificationInboxRow{}
	}

	var unseen int64
	if err := h.db.Model(&models.NotificationRecipient{}).
		Where("account_id = ? AND deleted = ? AND seen = ?", actor.ID, false, false).
		Count(&unseen).Error; err != nil {
		logger.Log.Warn("failed to count unseen notifications",
			logger.WithAccountID(actor.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": rows,
		"unseen_count":  unseen,
		"meta":          util.PageMeta(page, total),
	})
}

// MarkNotificationSeen flips the caller's seen flag on one notification.
// A single conditional update, no fetch-mutate-store.
// PATCH /api/notifications/:id/seen
func (h *Handlers) MarkNotificationSeen(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}
	notificationID := c.Param("id")

	result := h.db.Model(&models.NotificationRecipient{}).
		Where("notification_id = ? AND account_id = ? AND deleted = ?", notificationID, actor.ID, false).
		Update("seen", true)
	if result.Error != nil {
		util.RespondInternalError(c, "Failed to update notification")
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "notification")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notification_seen"})
}

// DeleteNotification hides a notification from the caller's inbox.
// Other recipients keep theirs; the notification row itself stays.
// DELETE /api/notifications/:id
func (h *Handlers) DeleteNotification(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		return
	}
	notificationID := c.Param("id")

	result := h.db.Model(&models.NotificationRecipient{}).
		Where("notification_id = ? AND account_id = ? AND deleted = ?", notificationID, actor.ID, false).
		Update("deleted", true)
	if result.Error != nil {
		util.RespondInternalError(c, "Failed to delete notification")
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "notification")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notification_deleted"})
}
