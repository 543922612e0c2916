package websocket

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
}

func newTestClient(h *Hub) *Client {
	return &Client{
		hub:    h,
		send:   make(chan []byte, 64),
		id:     "test-client",
		logger: testLogger(),
	}
}

// TestHubRegisterAndBroadcast verifies the register/broadcast/unregister cycle.
func TestHubRegisterAndBroadcast(t *testing.T) {
	h := NewHub(testLogger())
	go h.Run()
	defer h.Stop()

	client := newTestClient(h)
	h.Register(client)

	require.Eventually(t, func() bool {
		return h.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	select {
	case payload := <-client.send:
		assert.Contains(t, string(payload), TypeConnection)
	case <-time.After(time.Second):
		t.Fatal("no connection ack received")
	}

	h.BroadcastProgress(0.5, "processed trips.csv (3 rows)")

	select {
	case payload := <-client.send:
		var msg ProgressMessage
		require.NoError(t, json.Unmarshal(payload, &msg))
		assert.Equal(t, TypeProgress, msg.Type)
		assert.Equal(t, 0.5, msg.Fraction)
		assert.Equal(t, "processed trips.csv (3 rows)", msg.Message)
		assert.NotEmpty(t, msg.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("no progress message received")
	}

	h.unregister <- client
	require.Eventually(t, func() bool {
		return h.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)

	// The hub closes the send channel on unregister.
	_, open := <-client.send
	assert.False(t, open)
}

// TestHubDropsSlowClient verifies a client with a full queue is dropped
// instead of blocking the broadcast loop.
func TestHubDropsSlowClient(t *testing.T) {
	h := NewHub(testLogger())
	go h.Run()
	defer h.Stop()

	slow := newTestClient(h)
	slow.send = make(chan []byte) // unbuffered and never read
	h.Register(slow)

	require.Eventually(t, func() bool {
		return h.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	h.BroadcastProgress(1.0, "done")

	require.Eventually(t, func() bool {
		return h.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)
}

// TestHubStop verifies shutdown disconnects everyone.
func TestHubStop(t *testing.T) {
	h := NewHub(testLogger())
	go h.Run()

	client := newTestClient(h)
	h.Register(client)
	require.Eventually(t, func() bool {
		return h.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	h.Stop()

	require.Eventually(t, func() bool {
		return h.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)

	// Drain the connection ack; the loop only ends once the hub has closed
	// the channel.
	for range client.send {
	}
}

// TestBroadcastWithoutClients verifies broadcasting into an empty hub is safe.
func TestBroadcastWithoutClients(t *testing.T) {
	h := NewHub(testLogger())
	go h.Run()
	defer h.Stop()

	assert.NotPanics(t, func() {
		h.BroadcastProgress(0.25, "still going")
	})
}
