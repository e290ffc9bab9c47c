package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/mautops/review-gin/internal/workflow"
)

// CachedDirectory 带 TTL 的目录缓存,TTL 内的陈旧数据可接受
type CachedDirectory struct {
	next  workflow.Directory
	cache *ristretto.Cache[string, []byte]
	ttl   time.Duration
}

// NewCachedDirectory 创建目录缓存,maxCostBytes 为缓存值总字节上限
func NewCachedDirectory(next workflow.Directory, ttl time.Duration, maxCostBytes int64) (*CachedDirectory, error) {
	if maxCostBytes <= 0 {
		maxCostBytes = 1 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create directory cache: %w", err)
	}
	return &CachedDirectory{next: next, cache: c, ttl: ttl}, nil
}

func reviewersKey(orgUnit string, stage workflow.Stage) string {
	return "reviewers:" + orgUnit + ":" + string(stage)
}

func unitKey(identity string) string {
	return "unit:" + identity
}

// ReviewersFor 先查缓存,未命中时查询下游并写入
func (d *CachedDirectory) ReviewersFor(ctx context.Context, orgUnit string, stage workflow.Stage) ([]string, error) {
	key := reviewersKey(orgUnit, stage)
	if data, ok := d.cache.Get(key); ok {
		var ids []string
		if err := json.Unmarshal(data, &ids); err == nil {
			return ids, nil
		}
		d.cache.Del(key)
	}

	ids, err := d.next.ReviewersFor(ctx, orgUnit, stage)
	if err != nil {
		return nil, err
	}
	// 空结果不缓存,新登记的审批人立即可见
	if len(ids) > 0 {
		if data, err := json.Marshal(ids); err == nil {
			d.cache.SetWithTTL(key, data, int64(len(data)), d.ttl)
		}
	}
	return ids, nil
}

// OrgUnitOf 先查缓存,未命中时查询下游并写入
func (d *CachedDirectory) OrgUnitOf(ctx context.Context, identity string) (string, error) {
	key := unitKey(identity)
	if data, ok := d.cache.Get(key); ok {
		return string(data), nil
	}
	unit, err := d.next.OrgUnitOf(ctx, identity)
	if err != nil {
		return "", err
	}
	if unit != "" {
		d.cache.SetWithTTL(key, []byte(unit), int64(len(unit)), d.ttl)
	}
	return unit, nil
}

// Invalidate 清除某组织单元的审批人缓存
func (d *CachedDirectory) Invalidate(orgUnit string) {
	d.cache.Del(reviewersKey(orgUnit, workflow.StageFirstReviewer))
	d.cache.Del(reviewersKey(orgUnit, workflow.StageSecondReviewer))
}

// Wait 等待缓存写入缓冲区落盘
func (d *CachedDirectory) Wait() {
	d.cache.Wait()
}

// Close 释放缓存资源
func (d *CachedDirectory) Close() {
	d.cache.Close()
}
