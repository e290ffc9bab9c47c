package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mautops/review-gin/internal/workflow"
)

// Message 推送给客户端的消息
type Message struct {
	Type         workflow.EventType `json:"type"`
	SubmissionID string             `json:"submission_id"`
	Title        string             `json:"title,omitempty"`
	Status       workflow.Status    `json:"status"`
	Stage        workflow.Stage     `json:"stage"`
	Owner        string             `json:"owner,omitempty"`
	Actor        string             `json:"actor"`
	Remarks      string             `json:"remarks,omitempty"`
}

// Notifier 将工作流事件推送给新的审批人和作者
type Notifier struct {
	hub *Hub
}

// NewNotifier 创建推送通知
func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

func (n *Notifier) Name() string { return "websocket" }

// Notify 用户不在线时直接忽略
func (n *Notifier) Notify(_ context.Context, evt workflow.Event) error {
	msg := Message{
		Type:         evt.Type,
		SubmissionID: evt.SubmissionID,
		Status:       evt.To.Status,
		Stage:        evt.To.Stage,
		Owner:        evt.Owner,
		Actor:        evt.Actor,
		Remarks:      evt.Remarks,
	}
	if evt.Submission != nil {
		msg.Title = evt.Submission.Title
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal websocket message: %w", err)
	}

	recipients := []string{evt.Owner}
	if evt.Author != evt.Owner {
		recipients = append(recipients, evt.Author)
	}
	for _, userID := range recipients {
		if userID == "" || userID == evt.Actor {
			continue
		}
		n.hub.BroadcastToUser(userID, data)
	}
	return nil
}
