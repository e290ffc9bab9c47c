package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mautops/review-gin/internal/model"
	"gorm.io/gorm"
)

// BlobRepository 文件登记仓储,记录上传者并统计提交对文件的引用
type BlobRepository interface {
	Record(ctx context.Context, ref, uploader string, size int64) error
	Uploader(ctx context.Context, ref string) (string, error)
	References(ctx context.Context, ref string) (int64, error)
	Forget(ctx context.Context, ref string) error
}

// blobRepository 文件登记仓储实现
type blobRepository struct {
	db *gorm.DB
}

// NewBlobRepository 创建文件登记仓储
func NewBlobRepository(db *gorm.DB) BlobRepository {
	return &blobRepository{db: db}
}

// Record 登记新上传的文件
func (r *blobRepository) Record(ctx context.Context, ref, uploader string, size int64) error {
	row := &model.BlobModel{Ref: ref, Uploader: uploader, Size: size, CreatedAt: time.Now()}
	if err := row.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to record blob %s: %w", ref, err)
	}
	return nil
}

// Uploader 查询上传者,未登记时返回空字符串
func (r *blobRepository) Uploader(ctx context.Context, ref string) (string, error) {
	var row model.BlobModel
	err := r.db.WithContext(ctx).Where("ref = ?", ref).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load blob %s: %w", ref, err)
	}
	return row.Uploader, nil
}

// References 统计仍引用该文件的提交数
func (r *blobRepository) References(ctx context.Context, ref string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.SubmissionModel{}).Where("payload_ref = ?", ref).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count references to %s: %w", ref, err)
	}
	return n, nil
}

// Forget 删除文件登记
func (r *blobRepository) Forget(ctx context.Context, ref string) error {
	if err := r.db.WithContext(ctx).Where("ref = ?", ref).Delete(&model.BlobModel{}).Error; err != nil {
		return fmt.Errorf("failed to forget blob %s: %w", ref, err)
	}
	return nil
}
