package directory

import (
	"context"
	"fmt"

	"github.com/mautops/review-gin/internal/model"
	"github.com/mautops/review-gin/internal/repository"
	"github.com/mautops/review-gin/internal/workflow"
)

// RoleForStage 审批阶段对应的成员角色
func RoleForStage(stage workflow.Stage) (string, error) {
	switch stage {
	case workflow.StageFirstReviewer:
		return model.RoleFirstReviewer, nil
	case workflow.StageSecondReviewer:
		return model.RoleSecondReviewer, nil
	case workflow.StageAuthor, workflow.StageCompleted:
		return "", fmt.Errorf("stage %s has no reviewers", stage)
	default:
		return "", fmt.Errorf("unknown stage %q", stage)
	}
}

// memberDirectory 基于 members 表的审批人目录
type memberDirectory struct {
	members repository.MemberRepository
}

// NewMemberDirectory 创建基于成员表的目录
func NewMemberDirectory(members repository.MemberRepository) workflow.Directory {
	return &memberDirectory{members: members}
}

// ReviewersFor 按 (position, created_at, id) 返回审批人
func (d *memberDirectory) ReviewersFor(ctx context.Context, orgUnit string, stage workflow.Stage) ([]string, error) {
	role, err := RoleForStage(stage)
	if err != nil {
		return nil, err
	}
	rows, err := d.members.FindByUnitAndRole(ctx, orgUnit, role)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviewers: %w", err)
	}
	identities := make([]string, 0, len(rows))
	for _, m := range rows {
		identities = append(identities, m.Identity)
	}
	return identities, nil
}

// OrgUnitOf 返回作者所属组织单元
func (d *memberDirectory) OrgUnitOf(ctx context.Context, identity string) (string, error) {
	unit, err := d.members.FindAuthorUnit(ctx, identity)
	if err != nil {
		return "", fmt.Errorf("failed to query org unit: %w", err)
	}
	return unit, nil
}
