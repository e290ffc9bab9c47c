package repository

import (
	"context"
	"fmt"

	"github.com/mautops/review-gin/internal/model"
	"gorm.io/gorm"
)

// ApprovalRecordRepository 审批记录仓储接口,写入由提交记录仓储在事务中完成
type ApprovalRecordRepository interface {
	FindBySubmissionID(ctx context.Context, submissionID string) ([]*model.ApprovalRecordModel, error)
	FindByReviewer(ctx context.Context, reviewer string) ([]*model.ApprovalRecordModel, error)
	CountByReviewer(ctx context.Context, reviewer string) (map[string]int64, error)
}

// approvalRecordRepository 审批记录仓储实现
type approvalRecordRepository struct {
	db *gorm.DB
}

// NewApprovalRecordRepository 创建审批记录仓储
func NewApprovalRecordRepository(db *gorm.DB) ApprovalRecordRepository {
	return &approvalRecordRepository{db: db}
}

// FindBySubmissionID 根据提交 ID 查找审批记录
func (r *approvalRecordRepository) FindBySubmissionID(ctx context.Context, submissionID string) ([]*model.ApprovalRecordModel, error) {
	var records []*model.ApprovalRecordModel
	err := r.db.WithContext(ctx).Where("submission_id = ?", submissionID).Order("created_at ASC").Find(&records).Error
	return records, err
}

// FindByReviewer 根据审批人查找审批记录
func (r *approvalRecordRepository) FindByReviewer(ctx context.Context, reviewer string) ([]*model.ApprovalRecordModel, error) {
	var records []*model.ApprovalRecordModel
	err := r.db.WithContext(ctx).Where("reviewer = ?", reviewer).Order("created_at DESC").Find(&records).Error
	return records, err
}

// CountByReviewer 按审批决定统计某审批人的记录数
func (r *approvalRecordRepository) CountByReviewer(ctx context.Context, reviewer string) (map[string]int64, error) {
	type decisionCount struct {
		Decision string
		Count    int64
	}
	var counts []decisionCount
	err := r.db.WithContext(ctx).Model(&model.ApprovalRecordModel{}).
		Select("decision, COUNT(*) AS count").
		Where("reviewer = ?", reviewer).
		Group("decision").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count records of %s: %w", reviewer, err)
	}

	result := make(map[string]int64, len(counts))
	for _, c := range counts {
		result[c.Decision] = c.Count
	}
	return result, nil
}
