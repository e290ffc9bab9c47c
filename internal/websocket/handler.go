package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
)

// NewUpgrader 创建升级器,allowedOrigins 为空或包含 * 时不校验 Origin
func NewUpgrader(allowedOrigins []string) gorillaWS.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return gorillaWS.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
		},
	}
}

// WebSocketHandler WebSocket 处理器,身份由前置认证中间件写入 user_id。
// inbox 非空时连接建立后先推送一次待办数量,之后客户端可发送 {"type":"sync"} 刷新
func WebSocketHandler(hub *Hub, upgrader gorillaWS.Upgrader, inbox InboxCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "unauthorized"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade 已写入错误响应
			return
		}

		client := NewClient(uuid.New().String(), userID, hub, conn)
		client.Inbox = inbox
		if inbox != nil {
			// 注册前 Send 只属于本连接,可以直接写入
			if msg, err := client.inboxMessage(c.Request.Context()); err == nil {
				client.Send <- msg
			}
		}
		hub.Register <- client

		go client.ReadPump()
		go client.WritePump()
	}
}
