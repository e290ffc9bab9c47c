package integration

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mautops/review-gin/internal/workflow"
	"github.com/nats-io/nats.go"
)

// NATSNotifier 将事件发布到 <prefix>.<event_type>
type NATSNotifier struct {
	nc     *nats.Conn
	prefix string
}

// ConnectNATS 连接 NATS
func ConnectNATS(url, prefix string) (*NATSNotifier, error) {
	nc, err := nats.Connect(url, nats.Name("review-gin"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return NewNATSNotifier(nc, prefix), nil
}

// NewNATSNotifier 基于已有连接创建通知
func NewNATSNotifier(nc *nats.Conn, prefix string) *NATSNotifier {
	if prefix == "" {
		prefix = "review"
	}
	return &NATSNotifier{nc: nc, prefix: prefix}
}

func (n *NATSNotifier) Name() string { return "nats" }

// Subject 事件对应的主题
func (n *NATSNotifier) Subject(t workflow.EventType) string {
	return n.prefix + "." + string(t)
}

// Notify 发布事件
func (n *NATSNotifier) Notify(_ context.Context, evt workflow.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := n.nc.Publish(n.Subject(evt.Type), data); err != nil {
		return fmt.Errorf("nats publish %s: %w", n.Subject(evt.Type), err)
	}
	return nil
}

// Close 刷新并关闭连接
func (n *NATSNotifier) Close() {
	if n.nc == nil {
		return
	}
	_ = n.nc.Drain()
}
