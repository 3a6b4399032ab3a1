package websocket

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gatherly/backend/internal/auth"
	"github.com/gatherly/backend/internal/logger"
	"github.com/gatherly/backend/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles WebSocket upgrade requests and account status queries.
type Handler struct {
	hub      *Hub
	auth     *auth.Service
	presence *PresenceTracker
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authService *auth.Service, presence *PresenceTracker) *Handler {
	return &Handler{
		hub:      hub,
		auth:     authService,
		presence: presence,
	}
}

// HandleWebSocket upgrades an HTTP connection to WebSocket.
// The token is read from the query string (browser WebSocket clients
// cannot set headers) or the Authorization header.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	actor, username, err := h.authenticateRequest(c)
	if err != nil {
		logger.Log.Warn("WebSocket auth failed",
			logger.WithIP(c.ClientIP()),
			zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		// CORS is enforced at the HTTP layer
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed",
			logger.WithAccountID(actor.ID),
			zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, actor, username)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.Request.UserAgent()

	h.hub.Register(client)
	h.presence.OnClientConnect(client)

	welcome := NewMessage(MessageTypeSystem, SystemPayload{
		Event:   "connected",
		Message: "connection established",
		Data: map[string]interface{}{
			"account_id":   actor.ID,
			"account_kind": actor.Kind,
		},
	})
	if err := client.Send(welcome); err != nil {
		logger.Log.Warn("failed to send welcome message",
			logger.WithAccountID(actor.ID),
			zap.Error(err))
	}

	go client.WritePump()

	// ReadPump blocks until the connection drops
	client.ReadPump()

	h.presence.OnClientDisconnect(client)
}

// authenticateRequest extracts and validates the token, returning the
// resolved actor reference and a display name for the connection.
func (h *Handler) authenticateRequest(c *gin.Context) (models.Ref, string, error) {
	tokenString := c.Query("token")
	if tokenString == "" {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			tokenString = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if tokenString == "" {
		return models.Ref{}, "", fmt.Errorf("no token provided")
	}

	actor, err := h.auth.ValidateToken(tokenString)
	if err != nil {
		return models.Ref{}, "", err
	}

	return actor, h.lookupUsername(actor), nil
}

// lookupUsername fetches a display name for the connected account.
// Best effort, an empty name never blocks the connection.
func (h *Handler) lookupUsername(actor models.Ref) string {
	account, err := h.auth.GetAccount(actor)
	if err != nil {
		return ""
	}
	switch a := account.(type) {
	case *models.User:
		return a.Username
	case *models.Professional:
		return a.Username
	}
	return ""
}

// OnlineStatusRequest is the body for bulk status queries
type OnlineStatusRequest struct {
	AccountIDs []string `json:"account_ids" binding:"required,min=1,max=100"`
}

// HandleOnlineStatus returns online status for a set of accounts
func (h *Handler) HandleOnlineStatus(c *gin.Context) {
	var req OnlineStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_ids is required (1-100 ids)"})
		return
	}

	statuses := make(map[string]bool, len(req.AccountIDs))
	for _, id := range req.AccountIDs {
		statuses[id] = h.presence.IsOnline(id)
	}

	c.JSON(http.StatusOK, gin.H{
		"statuses":   statuses,
		"checked_at": time.Now().UTC(),
	})
}

// HandleStats returns hub counters, for operational visibility
func (h *Handler) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.GetStats())
}

// SendNotification pushes a notification payload to one account.
// Returns whether the account had a live connection to deliver to.
func (h *Handler) SendNotification(accountID string, payload NotificationPayload) bool {
	if !h.hub.IsAccountOnline(accountID) {
		return false
	}
	h.hub.SendToAccount(accountID, NewMessage(MessageTypeNotification, payload))
	return true
}

// BroadcastToAccount pushes an arbitrary typed message to one account.
func (h *Handler) BroadcastToAccount(accountID string, msgType string, payload interface{}) {
	h.hub.SendToAccount(accountID, NewMessage(msgType, payload))
}

// GetHub returns the underlying hub
func (h *Handler) GetHub() *Hub {
	return h.hub
}

// GetPresence returns the presence tracker
func (h *Handler) GetPresence() *PresenceTracker {
	return h.presence
}

// Shutdown gracefully shuts down the handler and its hub
func (h *Handler) Shutdown(ctx context.Context) error {
	h.presence.Stop()
	return h.hub.Shutdown(ctx)
}
