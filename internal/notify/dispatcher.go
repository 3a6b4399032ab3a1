// Package notify decouples durable notification writes from best-effort
// socket push. Handlers commit the inbox row first, then enqueue a push
// job; the dispatcher drains the queue in the background. A full queue
// drops jobs rather than blocking request handling, the inbox row is
// the source of truth either way.
package notify

import (
	"context"
	"sync"

	"github.com/gatherly/backend/internal/logger"
	"github.com/gatherly/backend/internal/metrics"
	"github.com/gatherly/backend/internal/websocket"
	"go.uber.org/zap"
)

// Sender delivers a notification payload to a connected account.
// Implemented by the WebSocket handler.
type Sender interface {
	SendNotification(accountID string, payload websocket.NotificationPayload) bool
}

// Push is one queued delivery for one recipient.
type Push struct {
	AccountID string
	Payload   websocket.NotificationPayload
}

const defaultQueueSize = 1024

// Dispatcher drains queued pushes on a background worker.
type Dispatcher struct {
	queue  chan Push
	sender Sender

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the default queue size.
func NewDispatcher(sender Sender) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		queue:  make(chan Push, defaultQueueSize),
		sender: sender,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker goroutine.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
	logger.Log.Info("notification dispatcher started")
}

// Stop drains nothing further and waits for the worker to exit.
// Queued pushes that were not delivered are dropped; the inbox rows
// remain and are picked up on next fetch.
func (d *Dispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
	logger.Log.Info("notification dispatcher stopped")
}

// Enqueue queues a push without blocking. Returns false if the queue
// is full and the push was dropped.
func (d *Dispatcher) Enqueue(push Push) bool {
	select {
	case d.queue <- push:
		return true
	case <-d.ctx.Done():
		return false
	default:
		logger.Log.Warn("notification push queue full, dropping",
			logger.WithAccountID(push.AccountID),
			zap.String("notification_id", push.Payload.ID))
		metrics.Get().NotificationFanout.WithLabelValues("dropped").Inc()
		return false
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case push := <-d.queue:
			d.deliver(push)
		}
	}
}

func (d *Dispatcher) deliver(push Push) {
	if d.sender.SendNotification(push.AccountID, push.Payload) {
		metrics.Get().NotificationFanout.WithLabelValues("delivered").Inc()
	} else {
		metrics.Get().NotificationFanout.WithLabelValues("offline").Inc()
	}
}
