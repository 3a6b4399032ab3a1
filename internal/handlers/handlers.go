package handlers

import (
	"gorm.io/gorm"

	"github.com/gatherly/backend/internal/cascade"
	"github.com/gatherly/backend/internal/notify"
	"github.com/gatherly/backend/internal/reactions"
	"github.com/gatherly/backend/internal/resolve"
	"github.com/gatherly/backend/internal/storage"
	"github.com/gatherly/backend/internal/websocket"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	db         *gorm.DB
	resolver   *resolve.Resolver
	ledger     *reactions.Ledger
	cascade    *cascade.Coordinator
	wsHandler  *websocket.Handler
	dispatcher *notify.Dispatcher
	media      storage.Store
}

// NewHandlers creates a new handlers instance
func NewHandlers(db *gorm.DB) *Handlers {
	return &Handlers{
		db:       db,
		resolver: resolve.NewResolver(db),
		ledger:   reactions.NewLedger(db),
		cascade:  cascade.NewCoordinator(db),
	}
}

// SetWebSocketHandler sets the WebSocket handler for real-time push
func (h *Handlers) SetWebSocketHandler(ws *websocket.Handler) {
	h.wsHandler = ws
}

// SetDispatcher sets the notification push dispatcher
func (h *Handlers) SetDispatcher(d *notify.Dispatcher) {
	h.dispatcher = d
}

// SetMediaStore sets the object storage client for event media
func (h *Handlers) SetMediaStore(media storage.Store) {
	h.media = media
	h.cascade.SetMediaRemover(media)
}

// Resolver exposes the reference resolver for route wiring
func (h *Handlers) Resolver() *resolve.Resolver {
	return h.resolver
}
