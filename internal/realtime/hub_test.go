package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.Handle))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readDelta(t *testing.T, conn *websocket.Conn) Delta {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var d Delta
	require.NoError(t, conn.ReadJSON(&d))
	return d
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub, url := startHub(t)

	c1 := dial(t, url)
	c2 := dial(t, url)

	// Registration races the broadcast; give the hub loop a beat.
	time.Sleep(50 * time.Millisecond)

	voter := int64(5)
	hub.Broadcast(VoteDelta(42, 2, 7, &voter))

	for _, conn := range []*websocket.Conn{c1, c2} {
		d := readDelta(t, conn)
		assert.Equal(t, "vote-delta", d.Type)
		assert.Equal(t, int64(42), d.PollID)
		assert.Equal(t, 2, d.OptionOrder)
		assert.Equal(t, int64(7), d.VoteID)
		require.NotNil(t, d.VoterUserID)
		assert.Equal(t, int64(5), *d.VoterUserID)
	}
}

func TestHub_DeltaOrderPreserved(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	time.Sleep(50 * time.Millisecond)

	for i := 1; i <= 5; i++ {
		hub.Broadcast(PollDelta("poll-updated", int64(i)))
	}
	for i := 1; i <= 5; i++ {
		d := readDelta(t, conn)
		assert.Equal(t, int64(i), d.PollID)
	}
}

func TestHub_DisconnectedClientIsRemoved(t *testing.T) {
	hub, url := startHub(t)

	c1 := dial(t, url)
	c2 := dial(t, url)
	time.Sleep(50 * time.Millisecond)

	c1.Close()
	time.Sleep(50 * time.Millisecond)

	// Broadcast after the disconnect still reaches the remaining client.
	hub.Broadcast(PollDelta("poll-created", 1))
	d := readDelta(t, c2)
	assert.Equal(t, "poll-created", d.Type)
}

func TestHub_BroadcastNeverBlocksCaller(t *testing.T) {
	// No Run loop draining the queue: the caller must still return promptly.
	hub := NewHub(nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastQueue*2; i++ {
			hub.Broadcast(PollDelta("poll-updated", int64(i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a full queue")
	}
}
