package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// 客户端只发送心跳和 sync 请求
	maxMessageSize = 4 * 1024

	sendBuffer  = 256
	syncTimeout = 5 * time.Second
)

// 客户端请求类型
const requestSync = "sync"

// InboxCounter 统计用户当前待处理的提交数
type InboxCounter interface {
	PendingCount(ctx context.Context, userID string) (int64, error)
}

// InboxMessage 待办数量推送
type InboxMessage struct {
	Type    string `json:"type"`
	Pending int64  `json:"pending"`
}

type request struct {
	Type string `json:"type"`
}

// Client 一个用户的一条 WebSocket 连接
type Client struct {
	ID     string
	UserID string
	Hub    *Hub
	Conn   *websocket.Conn

	// Send 由 Hub 关闭,其他地方只能经由 Hub 写入
	Send chan []byte

	// Inbox 为空时忽略 sync 请求
	Inbox InboxCounter
}

// NewClient 创建客户端
func NewClient(id string, userID string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
	}
}

// inboxMessage 查询当前待办数并编码为推送消息
func (c *Client) inboxMessage(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	n, err := c.Inbox.PendingCount(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(InboxMessage{Type: "inbox", Pending: n})
}

// handle 处理一条客户端消息,无法识别的消息直接忽略
func (c *Client) handle(data []byte) {
	var req request
	if err := json.Unmarshal(data, &req); err != nil || req.Type != requestSync || c.Inbox == nil {
		return
	}
	msg, err := c.inboxMessage(context.Background())
	if err != nil {
		logrus.WithError(err).WithField("user_id", c.UserID).Warn("failed to count inbox")
		return
	}
	c.Hub.SendToClient(c, msg)
}

// ReadPump 读取客户端消息直到连接断开,然后从 Hub 注销
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.stop:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).WithField("user_id", c.UserID).Warn("websocket closed unexpectedly")
			}
			return
		}
		if kind == websocket.TextMessage {
			c.handle(data)
		}
	}
}

// WritePump 每条推送单独成帧,定期发送 ping
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
