package service

import (
	"context"
	"fmt"

	"github.com/mautops/review-gin/internal/workflow"
)

// PermissionChecker 外部权限判定,由 OpenFGA 客户端实现
type PermissionChecker interface {
	CheckPermission(ctx context.Context, userID, relation, objectType, objectID string) (bool, error)
}

// ObjectLister 可选: 列出用户具有某关系的对象,列表查询用它纳入 viewer 授权的记录
type ObjectLister interface {
	ListObjectIDs(ctx context.Context, userID, relation, objectType string) ([]string, error)
}

// access 提交的读取权限: 作者、当前处理人和已审批的人可读,其余用户交由 viewer 关系判定
type access struct {
	permissions PermissionChecker
}

func newAccess(permissions []PermissionChecker) access {
	if len(permissions) > 0 {
		return access{permissions: permissions[0]}
	}
	return access{}
}

func (a access) check(ctx context.Context, sub *workflow.Submission) error {
	userID := getUserIDFromContext(ctx)
	allowed, err := a.allowed(ctx, sub, userID)
	if err != nil {
		return err
	}
	if !allowed {
		return workflow.Errorf(workflow.CodeForbidden, "%s has no access to submission %s", userID, sub.ID)
	}
	return nil
}

func (a access) allowed(ctx context.Context, sub *workflow.Submission, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if userID == sub.AuthorIdentity || userID == sub.CurrentOwner {
		return true, nil
	}
	if sub.FirstReview != nil && sub.FirstReview.Reviewer == userID {
		return true, nil
	}
	if sub.SecondReview != nil && sub.SecondReview.Reviewer == userID {
		return true, nil
	}
	if a.permissions == nil {
		return false, nil
	}

	allowed, err := a.permissions.CheckPermission(ctx, userID, "viewer", "submission", sub.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return allowed, nil
}

// viewable 额外通过 viewer 关系可读的提交 ID,权限服务不支持列举时为空
func (a access) viewable(ctx context.Context, userID string) ([]string, error) {
	lister, ok := a.permissions.(ObjectLister)
	if !ok {
		return nil, nil
	}
	ids, err := lister.ListObjectIDs(ctx, userID, "viewer", "submission")
	if err != nil {
		return nil, fmt.Errorf("failed to list viewable submissions: %w", err)
	}
	return ids, nil
}
