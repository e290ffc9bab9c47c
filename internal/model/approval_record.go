package model

import (
	"errors"
	"time"
)

// ApprovalRecordModel 审批记录数据模型,只追加
type ApprovalRecordModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	SubmissionID string    `gorm:"type:varchar(64);not null;index"`
	Stage        string    `gorm:"type:varchar(32);not null"` // FirstReviewer/SecondReviewer
	Reviewer     string    `gorm:"type:varchar(64);not null;index"`
	Decision     string    `gorm:"type:varchar(16);not null"` // approve/reject
	Remarks      string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (ApprovalRecordModel) TableName() string {
	return "approval_records"
}

// Validate 验证审批记录模型
func (arm *ApprovalRecordModel) Validate() error {
	if arm.ID == "" {
		return errors.New("record ID is required")
	}
	if arm.SubmissionID == "" {
		return errors.New("submission ID is required")
	}
	if arm.Reviewer == "" {
		return errors.New("reviewer is required")
	}
	if arm.Decision == "" {
		return errors.New("decision is required")
	}
	return nil
}
