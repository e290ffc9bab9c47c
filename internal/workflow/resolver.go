package workflow

import (
	"context"
	"fmt"
	"strings"
)

// Resolver 路由解析器,为某组织单元选出下一位审批人
type Resolver struct {
	directory    Directory
	strictSecond bool
}

// ResolverOption 解析器选项
type ResolverOption func(*Resolver)

// WithStrictSecondReviewer 二级审批人存在多个候选时返回 AmbiguousReviewer
func WithStrictSecondReviewer(strict bool) ResolverOption {
	return func(r *Resolver) {
		r.strictSecond = strict
	}
}

// NewResolver 创建路由解析器
func NewResolver(directory Directory, opts ...ResolverOption) *Resolver {
	r := &Resolver{directory: directory}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveFirstReviewer 选出一级审批人,取目录顺序第一个
func (r *Resolver) ResolveFirstReviewer(ctx context.Context, orgUnit string) (string, error) {
	return r.resolve(ctx, orgUnit, StageFirstReviewer, false)
}

// ResolveSecondReviewer 选出二级审批人
func (r *Resolver) ResolveSecondReviewer(ctx context.Context, orgUnit string) (string, error) {
	return r.resolve(ctx, orgUnit, StageSecondReviewer, r.strictSecond)
}

func (r *Resolver) resolve(ctx context.Context, orgUnit string, stage Stage, strict bool) (string, error) {
	if strings.TrimSpace(orgUnit) == "" {
		return "", Errorf(CodeValidation, "org unit is required to route to %s", stage)
	}
	candidates, err := r.directory.ReviewersFor(ctx, orgUnit, stage)
	if err != nil {
		return "", fmt.Errorf("failed to look up %s for %s: %w", stage, orgUnit, err)
	}

	var reviewers []string
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			reviewers = append(reviewers, c)
		}
	}

	switch {
	case len(reviewers) == 0:
		return "", Errorf(CodeNoReviewerAvailable, "no %s registered for org unit %s", stage, orgUnit)
	case strict && len(reviewers) > 1:
		return "", Errorf(CodeAmbiguousReviewer, "%d %s candidates registered for org unit %s", len(reviewers), stage, orgUnit)
	default:
		return reviewers[0], nil
	}
}
