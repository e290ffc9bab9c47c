package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mautops/review-gin/internal/model"
	"github.com/mautops/review-gin/internal/workflow"
	"gorm.io/gorm"
)

// SubmissionRepository 提交记录仓储接口
type SubmissionRepository interface {
	workflow.Registry
	CountByStatus(ctx context.Context, orgUnit string) (map[workflow.Status]int64, error)
}

// submissionRepository 提交记录仓储实现
type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository 创建提交记录仓储
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

// Load 根据 ID 加载提交记录
func (r *submissionRepository) Load(ctx context.Context, id string) (*workflow.Submission, error) {
	row, err := findSubmission(r.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return toSubmission(row), nil
}

// Create 保存新记录并写入第一条历史
func (r *submissionRepository) Create(ctx context.Context, s *workflow.Submission, entry workflow.TrailEntry) error {
	if err := workflow.CheckInvariants(s); err != nil {
		return fmt.Errorf("refusing to create submission %s: %w", s.ID, err)
	}
	row := fromSubmission(s)
	if err := row.Validate(); err != nil {
		return workflow.Wrap(workflow.CodeValidation, err, "invalid submission")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to create submission: %w", err)
		}
		return appendTrail(tx, s.ID, entry)
	})
}

// ConditionalUpdate 比较 (status, stage) 后在同一事务内更新记录并追加审计轨迹
func (r *submissionRepository) ConditionalUpdate(ctx context.Context, id string, expected workflow.State, mutate workflow.Mutator) (*workflow.Submission, error) {
	var result *workflow.Submission
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := findSubmission(tx, id)
		if err != nil {
			return err
		}
		cur := toSubmission(row)
		if cur.State() != expected {
			return workflow.Errorf(workflow.CodeConflict, "submission %s is %s, expected %s", id, cur.State(), expected)
		}

		entry, err := mutate(cur)
		if err != nil {
			return err
		}
		if cur.ID != row.ID || cur.AuthorIdentity != row.AuthorIdentity {
			return fmt.Errorf("submission %s: identity fields are immutable", id)
		}
		if row.OrgUnit != "" && cur.OrgUnit != row.OrgUnit {
			return fmt.Errorf("submission %s: org unit is immutable once set", id)
		}
		if err := workflow.CheckInvariants(cur); err != nil {
			return fmt.Errorf("submission %s: %w", id, err)
		}

		// payload_ref 一并比较: 草稿上的修改不改变 (status, stage)
		res := tx.Model(&model.SubmissionModel{}).
			Where("id = ? AND status = ? AND stage = ? AND payload_ref = ?",
				id, string(expected.Status), string(expected.Stage), row.PayloadRef).
			Updates(updateColumns(fromSubmission(cur)))
		if res.Error != nil {
			return fmt.Errorf("failed to update submission %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return workflow.Errorf(workflow.CodeConflict, "submission %s changed concurrently", id)
		}

		if err := appendTrail(tx, id, entry); err != nil {
			return err
		}
		result = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Remove 条件删除记录及其历史、审批记录和事件
func (r *submissionRepository) Remove(ctx context.Context, id string, expected workflow.State) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND status = ? AND stage = ?", id, string(expected.Status), string(expected.Stage)).
			Delete(&model.SubmissionModel{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete submission %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			if _, err := findSubmission(tx, id); err != nil {
				return err
			}
			return workflow.Errorf(workflow.CodeConflict, "submission %s changed concurrently", id)
		}

		for _, m := range []interface{}{&model.StateHistoryModel{}, &model.ApprovalRecordModel{}, &model.EventModel{}} {
			if err := tx.Where("submission_id = ?", id).Delete(m).Error; err != nil {
				return fmt.Errorf("failed to delete trail of submission %s: %w", id, err)
			}
		}
		return nil
	})
}

// List 按过滤条件分页查询,按创建时间倒序
func (r *submissionRepository) List(ctx context.Context, filter workflow.Filter) ([]*workflow.Submission, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.SubmissionModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.OwnedBy != "" {
		query = query.Where("current_owner = ?", filter.OwnedBy)
	}
	if filter.OrgUnit != "" {
		query = query.Where("org_unit = ?", filter.OrgUnit)
	}
	if filter.Author != "" {
		query = query.Where("author_identity = ?", filter.Author)
	}
	if filter.ReviewedBy != "" {
		query = query.Where("id IN (?)", r.reviewedBy(ctx, filter.ReviewedBy))
	}
	if filter.VisibleTo != "" {
		visible := r.db.Where("author_identity = ?", filter.VisibleTo).
			Or("current_owner = ?", filter.VisibleTo).
			Or("id IN (?)", r.reviewedBy(ctx, filter.VisibleTo))
		if len(filter.VisibleIDs) > 0 {
			visible = visible.Or("id IN ?", filter.VisibleIDs)
		}
		query = query.Where(visible)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var rows []*model.SubmissionModel
	if err := query.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}

	result := make([]*workflow.Submission, 0, len(rows))
	for _, row := range rows {
		result = append(result, toSubmission(row))
	}
	return result, total, nil
}

func (r *submissionRepository) reviewedBy(ctx context.Context, reviewer string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.ApprovalRecordModel{}).
		Select("submission_id").Where("reviewer = ?", reviewer)
}

// CountByStatus 统计各状态的提交数量,orgUnit 为空时统计全部
func (r *submissionRepository) CountByStatus(ctx context.Context, orgUnit string) (map[workflow.Status]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	query := r.db.WithContext(ctx).Model(&model.SubmissionModel{}).Select("status, COUNT(*) AS count")
	if orgUnit != "" {
		query = query.Where("org_unit = ?", orgUnit)
	}
	if err := query.Group("status").Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count submissions by status: %w", err)
	}

	result := make(map[workflow.Status]int64, len(workflow.Statuses()))
	for _, s := range workflow.Statuses() {
		result[s] = 0
	}
	for _, c := range counts {
		result[workflow.Status(c.Status)] = c.Count
	}
	return result, nil
}

func findSubmission(db *gorm.DB, id string) (*model.SubmissionModel, error) {
	var row model.SubmissionModel
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.Wrap(workflow.CodeNotFound, err, "submission %s not found", id)
		}
		return nil, fmt.Errorf("failed to load submission %s: %w", id, err)
	}
	return &row, nil
}

// appendTrail 追加状态历史,审批决定同时写入审批记录
func appendTrail(tx *gorm.DB, submissionID string, entry workflow.TrailEntry) error {
	history := &model.StateHistoryModel{
		ID:           uuid.NewString(),
		SubmissionID: submissionID,
		Event:        string(entry.Event),
		FromStatus:   string(entry.From.Status),
		FromStage:    string(entry.From.Stage),
		ToStatus:     string(entry.To.Status),
		ToStage:      string(entry.To.Stage),
		Owner:        entry.Owner,
		Remarks:      entry.Remarks,
		Operator:     entry.Actor,
		CreatedAt:    entry.At,
	}
	if err := history.Validate(); err != nil {
		return fmt.Errorf("invalid state history: %w", err)
	}
	if err := tx.Create(history).Error; err != nil {
		return fmt.Errorf("failed to append state history: %w", err)
	}

	if entry.Decision == "" {
		return nil
	}
	record := &model.ApprovalRecordModel{
		ID:           uuid.NewString(),
		SubmissionID: submissionID,
		Stage:        string(entry.Stage),
		Reviewer:     entry.Actor,
		Decision:     string(entry.Decision),
		Remarks:      entry.Remarks,
		CreatedAt:    entry.At,
	}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid approval record: %w", err)
	}
	if err := tx.Create(record).Error; err != nil {
		return fmt.Errorf("failed to append approval record: %w", err)
	}
	return nil
}

// updateColumns 可变列,空值也需写回
func updateColumns(m *model.SubmissionModel) map[string]interface{} {
	return map[string]interface{}{
		"org_unit":           m.OrgUnit,
		"payload_ref":        m.PayloadRef,
		"title":              m.Title,
		"description":        m.Description,
		"category":           m.Category,
		"file_name":          m.FileName,
		"mime_type":          m.MimeType,
		"status":             m.Status,
		"stage":              m.Stage,
		"current_owner":      m.CurrentOwner,
		"editable":           m.Editable,
		"first_reviewer":     m.FirstReviewer,
		"first_decision":     m.FirstDecision,
		"first_reviewed_at":  m.FirstReviewedAt,
		"first_remarks":      m.FirstRemarks,
		"second_reviewer":    m.SecondReviewer,
		"second_decision":    m.SecondDecision,
		"second_reviewed_at": m.SecondReviewedAt,
		"second_remarks":     m.SecondRemarks,
		"rejected_at_stage":  m.RejectedAtStage,
		"rejected_by":        m.RejectedBy,
		"rejected_at":        m.RejectedAt,
		"rejection_remarks":  m.RejectionRemarks,
		"updated_at":         m.UpdatedAt,
		"submitted_at":       m.SubmittedAt,
	}
}

func fromSubmission(s *workflow.Submission) *model.SubmissionModel {
	m := &model.SubmissionModel{
		ID:             s.ID,
		AuthorIdentity: s.AuthorIdentity,
		OrgUnit:        s.OrgUnit,
		PayloadRef:     s.PayloadRef,
		Title:          s.Title,
		Description:    s.Description,
		Category:       s.Category,
		FileName:       s.FileName,
		MimeType:       s.MimeType,
		Status:         string(s.Status),
		Stage:          string(s.Stage),
		CurrentOwner:   s.CurrentOwner,
		Editable:       s.Editable,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		SubmittedAt:    s.SubmittedAt,
	}
	if r := s.FirstReview; r != nil {
		at := r.Timestamp
		m.FirstReviewer, m.FirstDecision, m.FirstReviewedAt, m.FirstRemarks = r.Reviewer, string(r.Decision), &at, r.Remarks
	}
	if r := s.SecondReview; r != nil {
		at := r.Timestamp
		m.SecondReviewer, m.SecondDecision, m.SecondReviewedAt, m.SecondRemarks = r.Reviewer, string(r.Decision), &at, r.Remarks
	}
	if r := s.Rejection; r != nil {
		at := r.Timestamp
		m.RejectedAtStage, m.RejectedBy, m.RejectedAt, m.RejectionRemarks = string(r.RejectedAtStage), r.RejectedBy, &at, r.Remarks
	}
	return m
}

func toSubmission(m *model.SubmissionModel) *workflow.Submission {
	s := &workflow.Submission{
		ID:             m.ID,
		AuthorIdentity: m.AuthorIdentity,
		OrgUnit:        m.OrgUnit,
		PayloadRef:     m.PayloadRef,
		Title:          m.Title,
		Description:    m.Description,
		Category:       m.Category,
		FileName:       m.FileName,
		MimeType:       m.MimeType,
		Status:         workflow.Status(m.Status),
		Stage:          workflow.Stage(m.Stage),
		CurrentOwner:   m.CurrentOwner,
		Editable:       m.Editable,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		SubmittedAt:    m.SubmittedAt,
	}
	if m.FirstReviewer != "" {
		s.FirstReview = &workflow.Review{Reviewer: m.FirstReviewer, Decision: workflow.Decision(m.FirstDecision), Remarks: m.FirstRemarks}
		if m.FirstReviewedAt != nil {
			s.FirstReview.Timestamp = *m.FirstReviewedAt
		}
	}
	if m.SecondReviewer != "" {
		s.SecondReview = &workflow.Review{Reviewer: m.SecondReviewer, Decision: workflow.Decision(m.SecondDecision), Remarks: m.SecondRemarks}
		if m.SecondReviewedAt != nil {
			s.SecondReview.Timestamp = *m.SecondReviewedAt
		}
	}
	if m.RejectedBy != "" {
		s.Rejection = &workflow.Rejection{RejectedAtStage: workflow.Stage(m.RejectedAtStage), RejectedBy: m.RejectedBy, Remarks: m.RejectionRemarks}
		if m.RejectedAt != nil {
			s.Rejection.Timestamp = *m.RejectedAt
		}
	}
	return s
}
