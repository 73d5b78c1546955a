package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type receivedMessage struct {
	Title string         `json:"title"`
	Body  map[string]any `json:"arguments"`
	Type  int            `json:"type"`
}

// startHub runs a hub and an HTTP server upgrading requests onto it,
// tearing both down when the test completes.
func startHub(t *testing.T) (*SocketHub, string) {
	t.Helper()

	hub := New()
	ctx, cancel := context.WithCancel(context.Background())

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Start(ctx)
	}()

	// Wait for the hub select loop to come up before accepting clients
	require.Eventually(t, func() bool { return hub.running }, time.Second, 10*time.Millisecond)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.UpgradeToSocket(w, r)
	}))

	t.Cleanup(func() {
		srv.Close()
		cancel()
		wg.Wait()
	})

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialHub(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) receivedMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var message receivedMessage
	require.NoError(t, conn.ReadJSON(&message))

	return message
}

func Test_ClientReceivesWelcome(t *testing.T) {
	_, url := startHub(t)
	conn := dialHub(t, url)

	welcome := readMessage(t, conn)
	assert.Equal(t, "CONNECTION_ESTABLISHED", welcome.Title)
	assert.Equal(t, int(Welcome), welcome.Type)
	assert.NotEmpty(t, welcome.Body["client"])
}

func Test_BroadcastReachesAllClients(t *testing.T) {
	hub, url := startHub(t)

	first := dialHub(t, url)
	second := dialHub(t, url)
	readMessage(t, first)
	readMessage(t, second)

	hub.Send(&SocketMessage{
		Title: "EXTRACTION_STARTED",
		Body:  map[string]interface{}{"activity": map[string]any{"action": "search"}},
		Type:  Update,
	})

	for _, conn := range []*websocket.Conn{first, second} {
		message := readMessage(t, conn)
		assert.Equal(t, "EXTRACTION_STARTED", message.Title)
		assert.Equal(t, int(Update), message.Type)
	}
}

func Test_DisconnectedClientIsDeregistered(t *testing.T) {
	hub, url := startHub(t)

	conn := dialHub(t, url)
	readMessage(t, conn)
	conn.Close()

	require.Eventually(t, func() bool { return len(hub.clients) == 0 }, time.Second, 10*time.Millisecond)

	// Broadcasting with no clients connected must not wedge the hub
	hub.Send(&SocketMessage{Title: "EXTRACTION_COMPLETE", Type: Update})
}
