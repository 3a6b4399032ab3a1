// Presence tracking for real-time account status. The tracker is an
// explicit service object with a documented lifecycle: entries are
// created on connect and cleared on disconnect or timeout. State is
// process-local and lost on restart; it is a best-effort push hint,
// never a delivery guarantee.
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gatherly/backend/internal/logger"
	"github.com/gatherly/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PresenceStatus represents the current status of an account
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// Presence tracks a single account's presence state
type Presence struct {
	AccountID    string            `json:"account_id"`
	AccountKind  models.EntityKind `json:"account_kind"`
	Username     string            `json:"username"`
	Status       PresenceStatus    `json:"status"`
	LastActivity time.Time         `json:"last_activity"`
	ConnectedAt  time.Time         `json:"connected_at"`
}

// PresenceTracker tracks which accounts hold live connections. It is
// injected into whatever needs to query it rather than referenced as
// ambient global state.
type PresenceTracker struct {
	hub *Hub
	db  *gorm.DB

	presence map[string]*Presence
	mu       sync.RWMutex

	// How long without activity before an entry is considered stale
	timeoutDuration time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// PresenceConfig holds configuration for the presence tracker
type PresenceConfig struct {
	TimeoutDuration time.Duration // Default: 5 minutes
}

// DefaultPresenceConfig returns sensible defaults
func DefaultPresenceConfig() PresenceConfig {
	return PresenceConfig{
		TimeoutDuration: 5 * time.Minute,
	}
}

// NewPresenceTracker creates a new presence tracker. db may be nil in
// tests; account activity columns are then left untouched.
func NewPresenceTracker(hub *Hub, db *gorm.DB, config PresenceConfig) *PresenceTracker {
	ctx, cancel := context.WithCancel(context.Background())

	if config.TimeoutDuration == 0 {
		config.TimeoutDuration = 5 * time.Minute
	}

	return &PresenceTracker{
		hub:             hub,
		db:              db,
		presence:        make(map[string]*Presence),
		timeoutDuration: config.TimeoutDuration,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// Start begins the tracker's background timeout checker.
func (pt *PresenceTracker) Start() {
	go pt.runTimeoutChecker()
	logger.Log.Info("presence tracker started")
}

// Stop gracefully shuts down the tracker, marking everyone offline.
func (pt *PresenceTracker) Stop() {
	pt.cancel()

	pt.mu.Lock()
	for accountID := range pt.presence {
		pt.setOfflineLocked(accountID)
	}
	pt.mu.Unlock()

	logger.Log.Info("presence tracker stopped")
}

// OnClientConnect is called when a client connects
func (pt *PresenceTracker) OnClientConnect(client *Client) {
	now := time.Now()

	pt.mu.Lock()
	existing := pt.presence[client.AccountID]
	if existing == nil {
		pt.presence[client.AccountID] = &Presence{
			AccountID:    client.AccountID,
			AccountKind:  client.AccountKind,
			Username:     client.Username,
			Status:       StatusOnline,
			LastActivity: now,
			ConnectedAt:  now,
		}
	} else {
		existing.Status = StatusOnline
		existing.LastActivity = now
	}
	pt.mu.Unlock()

	go pt.updateStoredActivity(client.Actor(), true)
}

// OnClientDisconnect is called when a client disconnects
func (pt *PresenceTracker) OnClientDisconnect(client *Client) {
	// Other connections for the same account keep it online
	if pt.hub.HasOtherConnections(client) {
		return
	}

	pt.mu.Lock()
	pt.setOfflineLocked(client.AccountID)
	pt.mu.Unlock()

	go pt.updateStoredActivity(client.Actor(), false)
}

// setOfflineLocked marks an account as offline (must hold lock)
func (pt *PresenceTracker) setOfflineLocked(accountID string) {
	if presence, ok := pt.presence[accountID]; ok {
		presence.Status = StatusOffline
		presence.LastActivity = time.Now()
	}
}

// IsOnline reports whether an account currently has a live entry.
func (pt *PresenceTracker) IsOnline(accountID string) bool {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	presence, ok := pt.presence[accountID]
	return ok && presence.Status != StatusOffline
}

// GetPresence returns a copy of an account's current presence, or nil.
func (pt *PresenceTracker) GetPresence(accountID string) *Presence {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	if presence, ok := pt.presence[accountID]; ok {
		copied := *presence
		return &copied
	}
	return nil
}

// GetOnlinePresence returns presence for the given accounts, online only.
func (pt *PresenceTracker) GetOnlinePresence(accountIDs []string) map[string]*Presence {
	pt.mu.RLock()
	defer pt.mu.RUnlock()

	result := make(map[string]*Presence)
	for _, accountID := range accountIDs {
		if presence, ok := pt.presence[accountID]; ok && presence.Status != StatusOffline {
			copied := *presence
			result[accountID] = &copied
		}
	}
	return result
}

// Heartbeat updates the last activity time for an account
func (pt *PresenceTracker) Heartbeat(accountID string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if presence, ok := pt.presence[accountID]; ok {
		presence.LastActivity = time.Now()
	}
}

// runTimeoutChecker periodically expires stale entries
func (pt *PresenceTracker) runTimeoutChecker() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-pt.ctx.Done():
			return
		case <-ticker.C:
			pt.checkTimeouts()
		}
	}
}

// checkTimeouts marks accounts offline when activity stops without a
// clean disconnect.
func (pt *PresenceTracker) checkTimeouts() {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	cutoff := time.Now().Add(-pt.timeoutDuration)

	for accountID, presence := range pt.presence {
		if presence.Status != StatusOffline && presence.LastActivity.Before(cutoff) {
			if !pt.hub.IsAccountOnline(accountID) {
				logger.Log.Info("presence timeout",
					logger.WithAccountID(accountID),
					zap.Time("last_activity", presence.LastActivity))
				pt.setOfflineLocked(accountID)
			} else {
				// Live connection but no heartbeat, refresh activity
				presence.LastActivity = time.Now()
			}
		}
	}
}

// updateStoredActivity writes the account's online flag and last
// activity timestamp to its table.
func (pt *PresenceTracker) updateStoredActivity(actor models.Ref, isOnline bool) {
	if pt.db == nil {
		return
	}

	updates := map[string]interface{}{
		"is_online":      isOnline,
		"last_active_at": time.Now(),
	}

	var err error
	switch actor.Kind {
	case models.KindUser:
		err = pt.db.Model(&models.User{}).Where("id = ?", actor.ID).Updates(updates).Error
	case models.KindProfessional:
		err = pt.db.Model(&models.Professional{}).Where("id = ?", actor.ID).Updates(updates).Error
	}
	if err != nil {
		logger.Log.Warn("failed to update stored presence",
			logger.WithAccountID(actor.ID), zap.Error(err))
	}
}
