package repository

import (
	"context"

	"github.com/mautops/review-gin/internal/model"
	"gorm.io/gorm"
)

// StateHistoryRepository 状态历史仓储接口
type StateHistoryRepository interface {
	FindBySubmissionID(ctx context.Context, submissionID string) ([]*model.StateHistoryModel, error)
}

// stateHistoryRepository 状态历史仓储实现
type stateHistoryRepository struct {
	db *gorm.DB
}

// NewStateHistoryRepository 创建状态历史仓储
func NewStateHistoryRepository(db *gorm.DB) StateHistoryRepository {
	return &stateHistoryRepository{db: db}
}

// FindBySubmissionID 根据提交 ID 查找状态历史,按时间正序
func (r *stateHistoryRepository) FindBySubmissionID(ctx context.Context, submissionID string) ([]*model.StateHistoryModel, error) {
	var histories []*model.StateHistoryModel
	err := r.db.WithContext(ctx).Where("submission_id = ?", submissionID).Order("created_at ASC").Find(&histories).Error
	return histories, err
}
