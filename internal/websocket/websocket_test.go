package websocket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/mautops/review-gin/internal/auth"
	"github.com/mautops/review-gin/internal/websocket"
	"github.com/mautops/review-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *websocket.Hub {
	t.Helper()
	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

// register 注册一个不带连接的客户端,只用于观察 Send
func register(t *testing.T, hub *websocket.Hub, id, userID string) *websocket.Client {
	t.Helper()
	c := websocket.NewClient(id, userID, hub, nil)
	hub.Register <- c
	require.Eventually(t, func() bool { return hub.HasClient(id) }, time.Second, time.Millisecond)
	return c
}

func received(c *websocket.Client) []websocket.Message {
	var out []websocket.Message
	for {
		select {
		case data := <-c.Send:
			var m websocket.Message
			if json.Unmarshal(data, &m) == nil {
				out = append(out, m)
			}
		default:
			return out
		}
	}
}

func TestBroadcastToUser(t *testing.T) {
	hub := startHub(t)
	a1 := register(t, hub, "c1", "alice")
	a2 := register(t, hub, "c2", "alice")
	b := register(t, hub, "c3", "bob")
	assert.Equal(t, 3, hub.GetClientCount())

	n := hub.BroadcastToUser("alice", []byte(`{}`))
	assert.Equal(t, 2, n)
	assert.Len(t, a1.Send, 1)
	assert.Len(t, a2.Send, 1)
	assert.Len(t, b.Send, 0)

	assert.Equal(t, 0, hub.BroadcastToUser("nobody", []byte(`{}`)))
}

func TestSendToClient(t *testing.T) {
	hub := startHub(t)
	c := register(t, hub, "c1", "alice")

	assert.True(t, hub.SendToClient(c, []byte(`{}`)))
	assert.Len(t, c.Send, 1)

	hub.Unregister <- c
	require.Eventually(t, func() bool { return !hub.HasClient("c1") }, time.Second, time.Millisecond)
	assert.False(t, hub.SendToClient(c, []byte(`{}`)), "unregistered client is skipped")
}

func TestUnregister(t *testing.T) {
	hub := startHub(t)
	c := register(t, hub, "c1", "alice")

	hub.Unregister <- c
	require.Eventually(t, func() bool { return !hub.HasClient("c1") }, time.Second, time.Millisecond)
	_, open := <-c.Send
	assert.False(t, open)
}

func TestNotifierTargetsOwnerAndAuthor(t *testing.T) {
	hub := startHub(t)
	author := register(t, hub, "c1", "alice")
	reviewer := register(t, hub, "c2", "R1")
	other := register(t, hub, "c3", "R2")
	n := websocket.NewNotifier(hub)
	assert.Equal(t, "websocket", n.Name())

	submitted := workflow.Event{
		Type:         workflow.EventSubmitted,
		SubmissionID: "s1",
		Actor:        "alice",
		Author:       "alice",
		To:           workflow.State{Status: workflow.StatusPendingFirstReview, Stage: workflow.StageFirstReviewer},
		Owner:        "R1",
		Submission:   &workflow.Submission{Title: "Essay"},
	}
	require.NoError(t, n.Notify(context.Background(), submitted))

	msgs := received(reviewer)
	require.Len(t, msgs, 1)
	assert.Equal(t, workflow.EventSubmitted, msgs[0].Type)
	assert.Equal(t, "Essay", msgs[0].Title)
	assert.Equal(t, workflow.StatusPendingFirstReview, msgs[0].Status)
	assert.Empty(t, received(author), "actor is not notified of their own action")
	assert.Empty(t, received(other))

	rejected := workflow.Event{
		Type:         workflow.EventFirstRejected,
		SubmissionID: "s1",
		Actor:        "R1",
		Author:       "alice",
		To:           workflow.State{Status: workflow.StatusRejected, Stage: workflow.StageAuthor},
		Remarks:      "incomplete",
	}
	require.NoError(t, n.Notify(context.Background(), rejected))
	msgs = received(author)
	require.Len(t, msgs, 1)
	assert.Equal(t, "incomplete", msgs[0].Remarks)
	assert.Empty(t, received(reviewer))
}

func TestWebSocketHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := startHub(t)

	r := gin.New()
	r.GET("/ws", auth.DevIdentityMiddleware(), websocket.WebSocketHandler(hub, websocket.NewUpgrader(nil), nil))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user_id=R1"
	conn, _, err := gorillaWS.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)

	n := websocket.NewNotifier(hub)
	require.NoError(t, n.Notify(context.Background(), workflow.Event{
		Type:         workflow.EventSubmitted,
		SubmissionID: "s1",
		Actor:        "alice",
		Author:       "alice",
		To:           workflow.State{Status: workflow.StatusPendingFirstReview, Stage: workflow.StageFirstReviewer},
		Owner:        "R1",
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg websocket.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "s1", msg.SubmissionID)
	assert.Equal(t, "R1", msg.Owner)
}

func TestUpgraderOrigins(t *testing.T) {
	up := websocket.NewUpgrader([]string{"https://school.example"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, up.CheckOrigin(req))

	req.Header.Set("Origin", "https://school.example")
	assert.True(t, up.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, up.CheckOrigin(req))
}

type countingInbox struct {
	pending atomic.Int64
	user    atomic.Value
}

func (c *countingInbox) PendingCount(_ context.Context, userID string) (int64, error) {
	c.user.Store(userID)
	return c.pending.Load(), nil
}

func readInbox(t *testing.T, conn *gorillaWS.Conn) websocket.InboxMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg websocket.InboxMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebSocketInboxSync(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := startHub(t)
	inbox := &countingInbox{}
	inbox.pending.Store(2)

	r := gin.New()
	r.GET("/ws", auth.DevIdentityMiddleware(), websocket.WebSocketHandler(hub, websocket.NewUpgrader(nil), inbox))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user_id=R1"
	conn, _, err := gorillaWS.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	msg := readInbox(t, conn)
	assert.Equal(t, "inbox", msg.Type)
	assert.Equal(t, int64(2), msg.Pending)
	assert.Equal(t, "R1", inbox.user.Load())

	inbox.pending.Store(0)
	require.NoError(t, conn.WriteMessage(gorillaWS.TextMessage, []byte(`{"type":"unknown"}`)))
	require.NoError(t, conn.WriteMessage(gorillaWS.TextMessage, []byte(`{"type":"sync"}`)))
	msg = readInbox(t, conn)
	assert.Equal(t, "inbox", msg.Type)
	assert.Equal(t, int64(0), msg.Pending)
}
