package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/review-gin/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MemberRepository 组织成员仓储接口
type MemberRepository interface {
	Upsert(ctx context.Context, member *model.MemberModel) error
	FindByUnitAndRole(ctx context.Context, orgUnit string, role string) ([]*model.MemberModel, error)
	FindAuthorUnit(ctx context.Context, identity string) (string, error)
}

// memberRepository 组织成员仓储实现
type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository 创建组织成员仓储
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

// Upsert 按 (identity, org_unit, role) 插入或更新成员
func (r *memberRepository) Upsert(ctx context.Context, member *model.MemberModel) error {
	now := time.Now()
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	if member.CreatedAt.IsZero() {
		member.CreatedAt = now
	}
	member.UpdatedAt = now
	if err := member.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}, {Name: "org_unit"}, {Name: "role"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "position", "updated_at"}),
	}).Create(member).Error
}

// FindByUnitAndRole 按目录顺序 (position, created_at, id) 查找成员
func (r *memberRepository) FindByUnitAndRole(ctx context.Context, orgUnit string, role string) ([]*model.MemberModel, error) {
	var members []*model.MemberModel
	err := r.db.WithContext(ctx).
		Where("org_unit = ? AND role = ?", orgUnit, role).
		Order("position ASC").Order("created_at ASC").Order("id ASC").
		Find(&members).Error
	return members, err
}

// FindAuthorUnit 查找作者所属组织单元,未登记时返回空字符串
func (r *memberRepository) FindAuthorUnit(ctx context.Context, identity string) (string, error) {
	var member model.MemberModel
	err := r.db.WithContext(ctx).
		Where("identity = ? AND role = ?", identity, model.RoleAuthor).
		Order("position ASC").Order("created_at ASC").
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return member.OrgUnit, nil
}
