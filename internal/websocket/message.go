package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gatherly/backend/internal/models"
)

// FlexibleTime handles both Unix millisecond timestamps and RFC3339 strings
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON implements custom unmarshaling for timestamps
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	// Try to unmarshal as Unix milliseconds (integer)
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms)
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}

	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON implements custom marshaling (always output as RFC3339)
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Message types for WebSocket communication
const (
	// System messages
	MessageTypeSystem = "system"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
	MessageTypeError  = "error"

	// Presence messages
	MessageTypePresence      = "presence"
	MessageTypeAccountOnline = "account_online"
	MessageTypeAccountAway   = "account_offline"

	// Notification messages
	MessageTypeNotification      = "notification"
	MessageTypeNotificationCount = "notification_count"

	// Content events
	MessageTypeNewComment    = "new_comment"
	MessageTypeNewReply      = "new_reply"
	MessageTypeNewReview     = "new_review"
	MessageTypeReaction      = "reaction"
	MessageTypeEventJoined   = "event_joined"
	MessageTypeEventLeft     = "event_left"
)

// Message represents a WebSocket message
type Message struct {
	// Type identifies the message type for routing
	Type string `json:"type"`

	// Payload contains the message-specific data
	Payload interface{} `json:"payload,omitempty"`

	// ID is a unique message identifier for acknowledgment
	ID string `json:"id,omitempty"`

	// ReplyTo references the original message ID for responses
	ReplyTo string `json:"reply_to,omitempty"`

	// Timestamp when the message was created (accepts Unix ms or RFC3339)
	Timestamp FlexibleTime `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(code string, message string) *Message {
	return &Message{
		Type: MessageTypeError,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// ErrorPayload represents an error message payload
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PingPayload represents a ping message payload
type PingPayload struct {
	ClientTime int64 `json:"client_time"`
}

// PongPayload represents a pong message payload
type PongPayload struct {
	ClientTime int64 `json:"client_time"`
	ServerTime int64 `json:"server_time"`
	Latency    int64 `json:"latency_ms"`
}

// PresencePayload represents a presence update payload
type PresencePayload struct {
	AccountID   string `json:"account_id"`
	AccountKind string `json:"account_kind,omitempty"`
	Status      string `json:"status"` // "online", "offline"
	Timestamp   int64  `json:"timestamp"`
}

// NotificationPayload carries a pushed notification
type NotificationPayload struct {
	ID        string     `json:"id"`
	Type      string     `json:"notification_type"`
	Actor     models.Ref `json:"actor"`
	Reference models.Ref `json:"reference"`
	Message   string     `json:"message,omitempty"`
	CreatedAt int64      `json:"created_at"`
}

// NotificationCountPayload indicates unseen notification count changed
type NotificationCountPayload struct {
	UnseenCount int64 `json:"unseen_count"`
	Timestamp   int64 `json:"timestamp"`
}

// ReactionPayload announces a reaction change on a target
type ReactionPayload struct {
	Target  models.Ref `json:"target"`
	Subject models.Ref `json:"subject"`
	Kind    string     `json:"kind,omitempty"` // empty when removed
	Count   int64      `json:"count"`
}

// SystemPayload represents system event payloads
type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// ParsePayload unmarshals the payload into a specific type
func (m *Message) ParsePayload(target interface{}) error {
	if m.Payload == nil {
		return nil
	}

	// Re-marshal and unmarshal to properly type the payload
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
