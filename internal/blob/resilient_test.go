package blob_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mautops/review-gin/internal/blob"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore 前 failures 次调用失败,block 为真时阻塞到 ctx 结束
type flakyStore struct {
	failures int32
	block    bool
	err      error
	calls    int32
}

func (s *flakyStore) do(ctx context.Context) error {
	n := atomic.AddInt32(&s.calls, 1)
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.err != nil {
		return s.err
	}
	if n <= s.failures {
		return errors.New("backend unavailable")
	}
	return nil
}

func (s *flakyStore) Store(ctx context.Context, _ []byte) (string, error) {
	if err := s.do(ctx); err != nil {
		return "", err
	}
	return "ref-1", nil
}

func (s *flakyStore) Fetch(ctx context.Context, _ string) ([]byte, error) {
	if err := s.do(ctx); err != nil {
		return nil, err
	}
	return []byte("data"), nil
}

func (s *flakyStore) Exists(ctx context.Context, _ string) (bool, error) {
	if err := s.do(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *flakyStore) Delete(ctx context.Context, _ string) error {
	return s.do(ctx)
}

func fastPolicy() blob.Policy {
	return blob.Policy{Timeout: 20 * time.Millisecond, MaxRetries: 2, RetryInterval: time.Millisecond}
}

func TestResilientStoreRetries(t *testing.T) {
	log, hook := test.NewNullLogger()
	next := &flakyStore{failures: 2}
	store := blob.NewResilientStore(next, fastPolicy(), log)

	exists, err := store.Exists(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.EqualValues(t, 3, atomic.LoadInt32(&next.calls))
	assert.Len(t, hook.AllEntries(), 2)
}

func TestResilientStoreTimesOut(t *testing.T) {
	next := &flakyStore{block: true}
	store := blob.NewResilientStore(next, fastPolicy(), nil)

	start := time.Now()
	_, err := store.Fetch(context.Background(), "ref-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 3, atomic.LoadInt32(&next.calls))
	assert.Less(t, time.Since(start), time.Second)

	// 写入只尝试一次
	atomic.StoreInt32(&next.calls, 0)
	_, err = store.Store(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 1, atomic.LoadInt32(&next.calls))
}

func TestResilientStoreDoesNotRetryPermanentErrors(t *testing.T) {
	for _, sentinel := range []error{blob.ErrNotFound, blob.ErrInvalidRef, blob.ErrTooLarge} {
		next := &flakyStore{err: sentinel}
		store := blob.NewResilientStore(next, fastPolicy(), nil)

		err := store.Delete(context.Background(), "ref-1")
		assert.ErrorIs(t, err, sentinel)
		assert.EqualValues(t, 1, atomic.LoadInt32(&next.calls), sentinel.Error())
	}
}

func TestResilientStoreStopsOnCancel(t *testing.T) {
	next := &flakyStore{failures: 10}
	store := blob.NewResilientStore(next, blob.Policy{MaxRetries: 5, RetryInterval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := store.Exists(ctx, "ref-1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, atomic.LoadInt32(&next.calls))
}

func TestResilientStoreWrapsFileStore(t *testing.T) {
	store := blob.NewResilientStore(newStore(t, 1024), blob.DefaultPolicy(), nil)
	ctx := context.Background()

	ref, err := store.Store(ctx, []byte("essay"))
	require.NoError(t, err)
	data, err := store.Fetch(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "essay", string(data))

	require.NoError(t, store.Delete(ctx, ref))
	_, err = store.Fetch(ctx, ref)
	assert.ErrorIs(t, err, blob.ErrNotFound)
}
