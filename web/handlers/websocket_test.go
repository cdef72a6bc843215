package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duetware/keepsake/internal/engine"
	"github.com/duetware/keepsake/pkg/types"
)

func TestHubBroadcastsEvents(t *testing.T) {
	hub := NewWebSocketHub(nil)
	go hub.Run()
	defer hub.Stop()

	client := &MockClient{SendChan: make(chan []byte, 4)}
	hub.Register(client)

	hub.Publish(engine.Event{
		Type:      engine.EventMemoryCreated,
		ScopeKind: types.ScopePersonal,
		ScopeID:   "u1",
		RecordID:  "mem-1",
	})

	select {
	case data := <-client.SendChan:
		var event engine.Event
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, engine.EventMemoryCreated, event.Type)
		assert.Equal(t, "mem-1", event.RecordID)
		assert.False(t, event.At.IsZero(), "hub should stamp missing timestamps")
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the client")
	}
}

func TestHubDropsSlowClients(t *testing.T) {
	hub := NewWebSocketHub(nil)
	go hub.Run()
	defer hub.Stop()

	// Zero-capacity channel: the first broadcast can't be delivered.
	slow := &MockClient{SendChan: make(chan []byte)}
	hub.Register(slow)

	hub.Publish(engine.Event{Type: engine.EventMemoryUpdated})

	// The send channel is closed when the client is dropped.
	select {
	case _, open := <-slow.SendChan:
		assert.False(t, open, "slow client's channel should be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("slow client was never dropped")
	}
}
