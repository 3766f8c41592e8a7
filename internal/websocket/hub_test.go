package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"atomics-registration-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHub_BroadcastReachesEveryAdmin(t *testing.T) {
	hub := startHub(t)
	a := &Client{Hub: hub, AdminID: "a", Send: make(chan []byte, 4)}
	b := &Client{Hub: hub, AdminID: "b", Send: make(chan []byte, 4)}
	hub.register <- a
	hub.register <- b
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(FeedMessage{Type: "PAYMENT_COMPLETED", Data: map[string]string{"registrationId": "r1"}})

	for _, c := range []*Client{a, b} {
		select {
		case raw := <-c.Send:
			var got FeedMessage
			require.NoError(t, json.Unmarshal(raw, &got))
			assert.Equal(t, "PAYMENT_COMPLETED", got.Type)
		case <-time.After(time.Second):
			t.Fatalf("admin %s got nothing", c.AdminID)
		}
	}
}

func TestHub_DropsSlowAdmin(t *testing.T) {
	hub := startHub(t)
	slow := &Client{Hub: hub, AdminID: "slow", Send: make(chan []byte, 1)}
	hub.register <- slow
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(FeedMessage{Type: "first"})
	hub.Broadcast(FeedMessage{Type: "second"})

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	<-slow.Send
	_, open := <-slow.Send
	assert.False(t, open)
}

func TestHub_StoppedHubReleasesCallers(t *testing.T) {
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	admin := &Client{Hub: hub, AdminID: "a", Send: make(chan []byte, 1)}
	require.True(t, hub.join(admin))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	_, open := <-admin.Send
	assert.False(t, open)

	returned := make(chan struct{})
	go func() {
		hub.leave(admin)
		assert.False(t, hub.join(&Client{Hub: hub, AdminID: "late", Send: make(chan []byte, 1)}))
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("leave or join blocked after shutdown")
	}
}
