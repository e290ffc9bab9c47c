package blob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Policy 对象存储调用的超时与重试策略
type Policy struct {
	Timeout       time.Duration
	MaxRetries    int
	RetryInterval time.Duration
}

// DefaultPolicy 默认策略
func DefaultPolicy() Policy {
	return Policy{
		Timeout:       5 * time.Second,
		MaxRetries:    2,
		RetryInterval: 100 * time.Millisecond,
	}
}

// resilientStore 在存储边界施加超时与重试
type resilientStore struct {
	next   Store
	policy Policy
	logger logrus.FieldLogger
}

// NewResilientStore 包装对象存储。Store 只超时不重试,每次写入都会生成新的引用
func NewResilientStore(next Store, policy Policy, logger logrus.FieldLogger) Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &resilientStore{next: next, policy: policy, logger: logger}
}

func (s *resilientStore) Store(ctx context.Context, data []byte) (string, error) {
	var ref string
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		r, err := s.next.Store(ctx, data)
		ref = r
		return err
	})
	return ref, err
}

func (s *resilientStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	var data []byte
	err := s.call(ctx, "fetch", func(ctx context.Context) error {
		d, err := s.next.Fetch(ctx, ref)
		data = d
		return err
	})
	return data, err
}

func (s *resilientStore) Exists(ctx context.Context, ref string) (bool, error) {
	var exists bool
	err := s.call(ctx, "exists", func(ctx context.Context) error {
		ok, err := s.next.Exists(ctx, ref)
		exists = ok
		return err
	})
	return exists, err
}

func (s *resilientStore) Delete(ctx context.Context, ref string) error {
	return s.call(ctx, "delete", func(ctx context.Context) error {
		return s.next.Delete(ctx, ref)
	})
}

// permanent 不会因重试而改变结果的错误
func permanent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidRef) || errors.Is(err, ErrTooLarge)
}

// call 指数退避重试,调用方取消时立即返回
func (s *resilientStore) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	interval := s.policy.RetryInterval
	var lastErr error
	for attempt := 0; attempt <= s.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			s.logger.WithFields(logrus.Fields{
				"op":      op,
				"attempt": attempt,
				"error":   lastErr,
			}).Warn("retrying blob call")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
			interval *= 2
		}

		lastErr = s.withTimeout(ctx, fn)
		if lastErr == nil || permanent(lastErr) {
			return lastErr
		}
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("blob %s failed after %d attempts: %w", op, s.policy.MaxRetries+1, lastErr)
}

func (s *resilientStore) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.policy.Timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.policy.Timeout)
	defer cancel()
	return fn(callCtx)
}
