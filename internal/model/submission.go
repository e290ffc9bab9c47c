package model

import (
	"errors"
	"time"
)

// SubmissionModel 提交记录数据模型,审批轨迹的当前指针按列展开
type SubmissionModel struct {
	ID             string `gorm:"primaryKey;type:varchar(64)"`
	AuthorIdentity string `gorm:"type:varchar(64);not null;index"`
	OrgUnit        string `gorm:"type:varchar(64);index"`
	PayloadRef     string `gorm:"type:varchar(512);not null"`
	Title          string `gorm:"type:varchar(255);not null"`
	Description    string `gorm:"type:text"`
	Category       string `gorm:"type:varchar(64);not null"`
	FileName       string `gorm:"type:varchar(255)"`
	MimeType       string `gorm:"type:varchar(128)"`
	Status         string `gorm:"type:varchar(32);not null;index"`
	Stage          string `gorm:"type:varchar(32);not null"`
	CurrentOwner   string `gorm:"type:varchar(64);index"`
	Editable       bool   `gorm:"not null"`

	FirstReviewer    string `gorm:"type:varchar(64)"`
	FirstDecision    string `gorm:"type:varchar(16)"`
	FirstReviewedAt  *time.Time
	FirstRemarks     string `gorm:"type:text"`
	SecondReviewer   string `gorm:"type:varchar(64)"`
	SecondDecision   string `gorm:"type:varchar(16)"`
	SecondReviewedAt *time.Time
	SecondRemarks    string `gorm:"type:text"`
	RejectedAtStage  string `gorm:"type:varchar(32)"`
	RejectedBy       string `gorm:"type:varchar(64)"`
	RejectedAt       *time.Time
	RejectionRemarks string `gorm:"type:text"`

	CreatedAt   time.Time  `gorm:"not null;index"`
	UpdatedAt   time.Time  `gorm:"not null"`
	SubmittedAt *time.Time `gorm:"index"`
}

// TableName 指定表名
func (SubmissionModel) TableName() string {
	return "submissions"
}

// Validate 验证提交记录模型
func (sm *SubmissionModel) Validate() error {
	if sm.ID == "" {
		return errors.New("submission ID is required")
	}
	if sm.AuthorIdentity == "" {
		return errors.New("author identity is required")
	}
	if sm.Status == "" {
		return errors.New("submission status is required")
	}
	if sm.Stage == "" {
		return errors.New("submission stage is required")
	}
	return nil
}
