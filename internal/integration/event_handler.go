package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/review-gin/internal/model"
	"github.com/mautops/review-gin/internal/repository"
	"github.com/mautops/review-gin/internal/workflow"
	"github.com/sirupsen/logrus"
)

// Notifier 事件下游通知
type Notifier interface {
	Name() string
	Notify(ctx context.Context, evt workflow.Event) error
}

// EventHandlerConfig 事件处理器配置
type EventHandlerConfig struct {
	Workers    int
	QueueSize  int
	MaxRetries int
	Backoff    time.Duration
}

type queuedEvent struct {
	id  string
	evt workflow.Event
}

// EventHandler 基于数据库的事件处理器,先持久化再由 worker 异步投递
type EventHandler struct {
	eventRepo repository.EventRepository
	notifiers []Notifier
	logger    logrus.FieldLogger
	cfg       EventHandlerConfig
	queue     chan queuedEvent
	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewEventHandler 创建事件处理器并启动 worker
func NewEventHandler(eventRepo repository.EventRepository, logger logrus.FieldLogger, cfg EventHandlerConfig, notifiers ...Notifier) *EventHandler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	h := &EventHandler{
		eventRepo: eventRepo,
		notifiers: notifiers,
		logger:    logger,
		cfg:       cfg,
		queue:     make(chan queuedEvent, cfg.QueueSize),
		stop:      make(chan struct{}),
	}
	for i := 0; i < cfg.Workers; i++ {
		h.wg.Add(1)
		go h.worker()
	}
	return h
}

// Publish 持久化事件并入队,队列满时事件保持 pending
func (h *EventHandler) Publish(ctx context.Context, evt workflow.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	now := time.Now()
	em := &model.EventModel{
		ID:           uuid.NewString(),
		SubmissionID: evt.SubmissionID,
		Type:         string(evt.Type),
		Data:         string(data),
		Status:       model.EventStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// 已删除的记录不再持久化事件,只做通知
	if evt.Type != workflow.EventDeleted {
		if err := h.eventRepo.Save(context.WithoutCancel(ctx), em); err != nil {
			return fmt.Errorf("failed to save event: %w", err)
		}
	}

	h.enqueue(queuedEvent{id: em.ID, evt: evt})
	return nil
}

func (h *EventHandler) enqueue(q queuedEvent) bool {
	select {
	case h.queue <- q:
		return true
	default:
		h.logger.WithFields(logrus.Fields{
			"event_id":      q.id,
			"event":         q.evt.Type,
			"submission_id": q.evt.SubmissionID,
		}).Warn("event queue full, event left pending")
		return false
	}
}

// Replay 重新投递 pending 状态的事件,返回入队数量
func (h *EventHandler) Replay(ctx context.Context, limit int) (int, error) {
	pending, err := h.eventRepo.FindPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending events: %w", err)
	}
	n := 0
	for _, em := range pending {
		var evt workflow.Event
		if err := json.Unmarshal([]byte(em.Data), &evt); err != nil {
			h.logger.WithError(err).WithField("event_id", em.ID).Error("failed to decode pending event")
			_ = h.eventRepo.MarkStatus(ctx, em.ID, model.EventStatusFailed, err.Error())
			continue
		}
		if !h.enqueue(queuedEvent{id: em.ID, evt: evt}) {
			break
		}
		n++
	}
	return n, nil
}

func (h *EventHandler) worker() {
	defer h.wg.Done()
	for {
		select {
		case q := <-h.queue:
			h.deliver(q)
		case <-h.stop:
			return
		}
	}
}

// deliver 逐个通知下游,失败时指数退避重试
func (h *EventHandler) deliver(q queuedEvent) {
	ctx := context.Background()
	var lastErr error
	backoff := h.cfg.Backoff

	pending := h.notifiers
	for attempt := 0; attempt < h.cfg.MaxRetries && len(pending) > 0; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-h.stop:
				return
			}
			backoff *= 2
		}

		var failed []Notifier
		for _, n := range pending {
			if err := n.Notify(ctx, q.evt); err != nil {
				lastErr = err
				failed = append(failed, n)
				h.logger.WithError(err).WithFields(logrus.Fields{
					"notifier":      n.Name(),
					"event":         q.evt.Type,
					"submission_id": q.evt.SubmissionID,
					"attempt":       attempt + 1,
				}).Warn("event notification failed")
			}
		}
		pending = failed
	}

	if q.evt.Type == workflow.EventDeleted {
		return
	}
	if len(pending) == 0 {
		if err := h.eventRepo.MarkStatus(ctx, q.id, model.EventStatusSuccess, ""); err != nil {
			h.logger.WithError(err).WithField("event_id", q.id).Error("failed to mark event delivered")
		}
		return
	}
	h.logger.WithError(lastErr).WithFields(logrus.Fields{
		"event_id":      q.id,
		"event":         q.evt.Type,
		"submission_id": q.evt.SubmissionID,
	}).Error("event delivery failed")
	if err := h.eventRepo.MarkStatus(ctx, q.id, model.EventStatusFailed, lastErr.Error()); err != nil {
		h.logger.WithError(err).WithField("event_id", q.id).Error("failed to mark event failed")
	}
}

// Stop 停止 worker 并等待退出
func (h *EventHandler) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
	h.wg.Wait()
}
