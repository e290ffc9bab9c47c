package model

import (
	"errors"
	"time"
)

// BlobModel 已上传文件的登记,记录上传者
type BlobModel struct {
	Ref       string    `gorm:"primaryKey;type:varchar(128)"`
	Uploader  string    `gorm:"type:varchar(64);not null;index"`
	Size      int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (BlobModel) TableName() string {
	return "blobs"
}

// Validate 验证文件登记
func (b *BlobModel) Validate() error {
	if b.Ref == "" {
		return errors.New("blob ref is required")
	}
	if b.Uploader == "" {
		return errors.New("uploader is required")
	}
	if b.Size < 0 {
		return errors.New("blob size must not be negative")
	}
	return nil
}
