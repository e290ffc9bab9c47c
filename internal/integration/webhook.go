package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mautops/review-gin/internal/workflow"
)

// WebhookNotifier 将事件 POST 到配置的 URL
type WebhookNotifier struct {
	urls       []string
	token      string
	httpClient *http.Client
}

// NewWebhookNotifier 创建 Webhook 通知
func NewWebhookNotifier(urls []string, token string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{urls: urls, token: token, httpClient: &http.Client{Timeout: timeout}}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

// Notify 依次推送到所有 URL,任一失败返回错误
func (w *WebhookNotifier) Notify(ctx context.Context, evt workflow.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	for _, u := range w.urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Event-Type", string(evt.Type))
		if w.token != "" {
			req.Header.Set("Authorization", "Bearer "+w.token)
		}

		resp, err := w.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send webhook request: %w", err)
		}
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("webhook %s returned status code: %d", u, resp.StatusCode)
		}
	}
	return nil
}
