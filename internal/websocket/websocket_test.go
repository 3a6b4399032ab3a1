package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gatherly/backend/internal/logger"
	"github.com/gatherly/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	logger.Log = zap.NewNop()
}

func testActor(id string) models.Ref {
	return models.Ref{ID: id, Kind: models.KindUser}
}

func TestFlexibleTimeUnmarshalMilliseconds(t *testing.T) {
	var ft FlexibleTime
	require.NoError(t, json.Unmarshal([]byte("1700000000000"), &ft))
	assert.Equal(t, time.UnixMilli(1700000000000), ft.Time)
}

func TestFlexibleTimeUnmarshalRFC3339(t *testing.T) {
	var ft FlexibleTime
	require.NoError(t, json.Unmarshal([]byte(`"2026-08-29T12:00:00Z"`), &ft))
	assert.Equal(t, 2026, ft.Year())
}

func TestFlexibleTimeUnmarshalGarbage(t *testing.T) {
	var ft FlexibleTime
	assert.Error(t, json.Unmarshal([]byte(`{"not": "a time"}`), &ft))
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ft))
}

func TestMessageParsePayload(t *testing.T) {
	msg := NewMessage(MessageTypePing, PingPayload{ClientTime: 42})

	var ping PingPayload
	require.NoError(t, msg.ParsePayload(&ping))
	assert.Equal(t, int64(42), ping.ClientTime)
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("rate_limited", "slow down")
	assert.Equal(t, MessageTypeError, msg.Type)

	var payload ErrorPayload
	require.NoError(t, msg.ParsePayload(&payload))
	assert.Equal(t, "rate_limited", payload.Code)
	assert.Equal(t, "slow down", payload.Message)
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(), "burst request %d", i)
	}
	assert.False(t, rl.Allow())
}

func TestHubTracksConnections(t *testing.T) {
	hub := NewHub()

	a1 := NewClient(hub, nil, testActor("acct-a"), "ana")
	a2 := NewClient(hub, nil, testActor("acct-a"), "ana")
	b := NewClient(hub, nil, testActor("acct-b"), "bo")

	hub.registerClient(a1)
	hub.registerClient(a2)
	hub.registerClient(b)

	assert.True(t, hub.IsAccountOnline("acct-a"))
	assert.Equal(t, 2, hub.GetConnectionCount("acct-a"))
	assert.ElementsMatch(t, []string{"acct-a", "acct-b"}, hub.GetOnlineAccounts())

	hub.unregisterClient(a1)
	assert.True(t, hub.IsAccountOnline("acct-a"))

	hub.unregisterClient(a2)
	assert.False(t, hub.IsAccountOnline("acct-a"))
	assert.Equal(t, 0, hub.GetConnectionCount("acct-a"))
}

func TestHubUnicastReachesAllAccountConnections(t *testing.T) {
	hub := NewHub()

	a1 := NewClient(hub, nil, testActor("acct-a"), "ana")
	a2 := NewClient(hub, nil, testActor("acct-a"), "ana")
	b := NewClient(hub, nil, testActor("acct-b"), "bo")

	hub.registerClient(a1)
	hub.registerClient(a2)
	hub.registerClient(b)

	hub.sendToAccount("acct-a", NewMessage(MessageTypeSystem, SystemPayload{Event: "hello"}))

	assert.Len(t, a1.send, 1)
	assert.Len(t, a2.send, 1)
	assert.Len(t, b.send, 0)
}

func TestHubUnicastUnknownAccount(t *testing.T) {
	hub := NewHub()
	// Must not panic or block
	hub.sendToAccount("nobody", NewMessage(MessageTypeSystem, SystemPayload{Event: "hello"}))
}

func TestPresenceConnectDisconnect(t *testing.T) {
	hub := NewHub()
	tracker := NewPresenceTracker(hub, nil, DefaultPresenceConfig())

	client := NewClient(hub, nil, testActor("acct-a"), "ana")
	hub.registerClient(client)
	tracker.OnClientConnect(client)

	assert.True(t, tracker.IsOnline("acct-a"))
	p := tracker.GetPresence("acct-a")
	require.NotNil(t, p)
	assert.Equal(t, StatusOnline, p.Status)
	assert.Equal(t, "ana", p.Username)

	hub.unregisterClient(client)
	tracker.OnClientDisconnect(client)
	assert.False(t, tracker.IsOnline("acct-a"))
}

func TestPresenceSurvivesOneOfTwoDisconnects(t *testing.T) {
	hub := NewHub()
	tracker := NewPresenceTracker(hub, nil, DefaultPresenceConfig())

	c1 := NewClient(hub, nil, testActor("acct-a"), "ana")
	c2 := NewClient(hub, nil, testActor("acct-a"), "ana")
	hub.registerClient(c1)
	hub.registerClient(c2)
	tracker.OnClientConnect(c1)
	tracker.OnClientConnect(c2)

	// One tab closes, the other is still connected
	hub.unregisterClient(c1)
	tracker.OnClientDisconnect(c1)
	assert.True(t, tracker.IsOnline("acct-a"))
}

func TestPresenceHeartbeatRefreshesActivity(t *testing.T) {
	hub := NewHub()
	tracker := NewPresenceTracker(hub, nil, DefaultPresenceConfig())

	client := NewClient(hub, nil, testActor("acct-a"), "ana")
	hub.registerClient(client)
	tracker.OnClientConnect(client)

	before := tracker.GetPresence("acct-a").LastActivity
	time.Sleep(5 * time.Millisecond)
	tracker.Heartbeat("acct-a")
	after := tracker.GetPresence("acct-a").LastActivity

	assert.True(t, after.After(before))
}

func TestGetOnlinePresenceFiltersOffline(t *testing.T) {
	hub := NewHub()
	tracker := NewPresenceTracker(hub, nil, DefaultPresenceConfig())

	client := NewClient(hub, nil, testActor("acct-a"), "ana")
	hub.registerClient(client)
	tracker.OnClientConnect(client)

	result := tracker.GetOnlinePresence([]string{"acct-a", "acct-missing"})
	assert.Contains(t, result, "acct-a")
	assert.NotContains(t, result, "acct-missing")
}
