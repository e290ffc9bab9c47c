package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mautops/review-gin/internal/workflow"
	"github.com/sirupsen/logrus"
)

// ErrCircuitOpen 熔断器打开时拒绝调用
var ErrCircuitOpen = errors.New("directory circuit breaker is open")

// Policy 目录调用的超时与重试策略
type Policy struct {
	Timeout       time.Duration
	MaxRetries    int
	RetryInterval time.Duration
	MaxFailures   int           // 连续失败多少次后熔断,0 表示不熔断
	OpenTimeout   time.Duration // 熔断持续时间
}

// DefaultPolicy 默认策略
func DefaultPolicy() Policy {
	return Policy{
		Timeout:       2 * time.Second,
		MaxRetries:    2,
		RetryInterval: 100 * time.Millisecond,
		MaxFailures:   5,
		OpenTimeout:   30 * time.Second,
	}
}

// resilientDirectory 在目录边界施加超时、重试和熔断
type resilientDirectory struct {
	next    workflow.Directory
	policy  Policy
	breaker *breaker
	logger  logrus.FieldLogger
}

// NewResilientDirectory 包装目录
func NewResilientDirectory(next workflow.Directory, policy Policy, logger logrus.FieldLogger) workflow.Directory {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	d := &resilientDirectory{next: next, policy: policy, logger: logger}
	if policy.MaxFailures > 0 {
		d.breaker = newBreaker(policy.MaxFailures, policy.OpenTimeout)
	}
	return d
}

func (d *resilientDirectory) ReviewersFor(ctx context.Context, orgUnit string, stage workflow.Stage) ([]string, error) {
	var result []string
	err := d.call(ctx, "reviewers_for", func(ctx context.Context) error {
		r, err := d.next.ReviewersFor(ctx, orgUnit, stage)
		result = r
		return err
	})
	return result, err
}

func (d *resilientDirectory) OrgUnitOf(ctx context.Context, identity string) (string, error) {
	var result string
	err := d.call(ctx, "org_unit_of", func(ctx context.Context) error {
		r, err := d.next.OrgUnitOf(ctx, identity)
		result = r
		return err
	})
	return result, err
}

// call 指数退避重试,调用方取消时立即返回
func (d *resilientDirectory) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	interval := d.policy.RetryInterval
	var lastErr error
	for attempt := 0; attempt <= d.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			d.logger.WithFields(logrus.Fields{
				"op":      op,
				"attempt": attempt,
				"error":   lastErr,
			}).Warn("retrying directory call")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
			interval *= 2
		}

		lastErr = d.attempt(ctx, fn)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrCircuitOpen) || ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("directory %s failed after %d attempts: %w", op, d.policy.MaxRetries+1, lastErr)
}

func (d *resilientDirectory) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	run := func() error {
		if d.policy.Timeout <= 0 {
			return fn(ctx)
		}
		callCtx, cancel := context.WithTimeout(ctx, d.policy.Timeout)
		defer cancel()
		return fn(callCtx)
	}
	if d.breaker == nil {
		return run()
	}
	return d.breaker.execute(run)
}

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// breaker 连续失败达到阈值后打开,超时后半开放行一次
type breaker struct {
	mu          sync.Mutex
	state       breakerState
	failures    int
	maxFailures int
	timeout     time.Duration
	openedAt    time.Time
	now         func() time.Time
}

func newBreaker(maxFailures int, timeout time.Duration) *breaker {
	return &breaker{maxFailures: maxFailures, timeout: timeout, now: time.Now}
}

func (b *breaker) execute(fn func() error) error {
	if !b.allow() {
		return ErrCircuitOpen
	}
	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		if b.state == breakerHalfOpen || b.failures >= b.maxFailures {
			b.state = breakerOpen
			b.openedAt = b.now()
		}
		return err
	}
	b.failures = 0
	b.state = breakerClosed
	return nil
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case breakerOpen:
		if b.now().Sub(b.openedAt) >= b.timeout {
			b.state = breakerHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}
