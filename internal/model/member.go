package model

import (
	"errors"
	"time"
)

// 成员角色
const (
	RoleAuthor         = "author"
	RoleFirstReviewer  = "first_reviewer"
	RoleSecondReviewer = "second_reviewer"
)

// MemberModel 组织成员数据模型,审批人目录的数据来源
type MemberModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	Identity  string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_members_identity_unit_role"`
	Name      string    `gorm:"type:varchar(128)"`
	Email     string    `gorm:"type:varchar(255)"`
	OrgUnit   string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_members_identity_unit_role;index:idx_members_unit_role"`
	Role      string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_members_identity_unit_role;index:idx_members_unit_role"`
	Position  int       `gorm:"type:int;not null;default:0"` // 目录顺序
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (MemberModel) TableName() string {
	return "members"
}

// Validate 验证成员模型
func (mm *MemberModel) Validate() error {
	if mm.ID == "" {
		return errors.New("member ID is required")
	}
	if mm.Identity == "" {
		return errors.New("member identity is required")
	}
	if mm.OrgUnit == "" {
		return errors.New("org unit is required")
	}
	switch mm.Role {
	case RoleAuthor, RoleFirstReviewer, RoleSecondReviewer:
	default:
		return errors.New("member role must be author, first_reviewer or second_reviewer")
	}
	return nil
}
