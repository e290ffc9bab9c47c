package service

import (
	"context"
	"time"

	"github.com/mautops/review-gin/internal/repository"
	"github.com/mautops/review-gin/internal/workflow"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	dashboardRecent = 5
)

// QueryService 查询服务接口
type QueryService interface {
	ListSubmissions(ctx context.Context, filter *ListSubmissionsFilter) ([]*workflow.Submission, int64, error)
	Inbox(ctx context.Context, page, pageSize int) ([]*workflow.Submission, int64, error)
	PendingCount(ctx context.Context, userID string) (int64, error)
	Reviewed(ctx context.Context, page, pageSize int) ([]*workflow.Submission, int64, error)
	Dashboard(ctx context.Context) (*Dashboard, error)
	GetRecords(ctx context.Context, submissionID string) ([]*ApprovalRecord, error)
	GetHistory(ctx context.Context, submissionID string) ([]*StateHistory, error)
	Stats(ctx context.Context, orgUnit string) (map[workflow.Status]int64, error)
}

// ListSubmissionsFilter 提交列表查询过滤器
type ListSubmissionsFilter struct {
	Status     *workflow.Status
	OwnedBy    string
	OrgUnit    string
	Author     string
	ReviewedBy string
	Page       int
	PageSize   int
}

// Dashboard 审批人工作台统计
type Dashboard struct {
	Pending       int64                  `json:"pending"`
	Approved      int64                  `json:"approved"`
	Rejected      int64                  `json:"rejected"`
	TotalReviewed int64                  `json:"total_reviewed"`
	Recent        []*workflow.Submission `json:"recent"`
}

// ApprovalRecord 审批记录
type ApprovalRecord struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	Stage        string    `json:"stage"`
	Reviewer     string    `json:"reviewer"`
	Decision     string    `json:"decision"`
	Remarks      string    `json:"remarks"`
	CreatedAt    time.Time `json:"created_at"`
}

// StateHistory 状态历史
type StateHistory struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	Event        string    `json:"event"`
	FromStatus   string    `json:"from_status,omitempty"`
	FromStage    string    `json:"from_stage,omitempty"`
	ToStatus     string    `json:"to_status"`
	ToStage      string    `json:"to_stage"`
	Owner        string    `json:"owner,omitempty"`
	Remarks      string    `json:"remarks,omitempty"`
	Operator     string    `json:"operator"`
	CreatedAt    time.Time `json:"created_at"`
}

// queryService 查询服务实现
type queryService struct {
	submissions repository.SubmissionRepository
	recordRepo  repository.ApprovalRecordRepository
	historyRepo repository.StateHistoryRepository
	access      access
}

// NewQueryService 创建查询服务,permissions 可选
func NewQueryService(
	submissions repository.SubmissionRepository,
	recordRepo repository.ApprovalRecordRepository,
	historyRepo repository.StateHistoryRepository,
	permissions ...PermissionChecker,
) QueryService {
	return &queryService{
		submissions: submissions,
		recordRepo:  recordRepo,
		historyRepo: historyRepo,
		access:      newAccess(permissions),
	}
}

// ListSubmissions 列出调用者可读的提交,可见范围与单条读取一致
func (s *queryService) ListSubmissions(ctx context.Context, filter *ListSubmissionsFilter) ([]*workflow.Submission, int64, error) {
	userID := getUserIDFromContext(ctx)
	if userID == "" {
		return nil, 0, workflow.Errorf(workflow.CodeForbidden, "identity is required")
	}
	if filter == nil {
		filter = &ListSubmissionsFilter{}
	}
	viewable, err := s.access.viewable(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(filter.Page, filter.PageSize)
	return s.submissions.List(ctx, workflow.Filter{
		Status:     filter.Status,
		OwnedBy:    filter.OwnedBy,
		OrgUnit:    filter.OrgUnit,
		Author:     filter.Author,
		ReviewedBy: filter.ReviewedBy,
		VisibleTo:  userID,
		VisibleIDs: viewable,
		Offset:     offset,
		Limit:      limit,
	})
}

// Inbox 当前用户待处理的提交
func (s *queryService) Inbox(ctx context.Context, page, pageSize int) ([]*workflow.Submission, int64, error) {
	userID := getUserIDFromContext(ctx)
	if userID == "" {
		return nil, 0, workflow.Errorf(workflow.CodeForbidden, "identity is required")
	}
	offset, limit := paginate(page, pageSize)
	return s.submissions.List(ctx, workflow.Filter{OwnedBy: userID, Offset: offset, Limit: limit})
}

// PendingCount 指定用户当前待处理的提交数
func (s *queryService) PendingCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, workflow.Errorf(workflow.CodeForbidden, "identity is required")
	}
	_, total, err := s.submissions.List(ctx, workflow.Filter{OwnedBy: userID, Limit: 1})
	return total, err
}

// Reviewed 当前用户做出过审批决定的提交
func (s *queryService) Reviewed(ctx context.Context, page, pageSize int) ([]*workflow.Submission, int64, error) {
	userID := getUserIDFromContext(ctx)
	if userID == "" {
		return nil, 0, workflow.Errorf(workflow.CodeForbidden, "identity is required")
	}
	offset, limit := paginate(page, pageSize)
	return s.submissions.List(ctx, workflow.Filter{ReviewedBy: userID, Offset: offset, Limit: limit})
}

// Dashboard 当前用户的待办数与审批结果统计,附最近的待办
func (s *queryService) Dashboard(ctx context.Context) (*Dashboard, error) {
	userID := getUserIDFromContext(ctx)
	if userID == "" {
		return nil, workflow.Errorf(workflow.CodeForbidden, "identity is required")
	}

	recent, pending, err := s.submissions.List(ctx, workflow.Filter{OwnedBy: userID, Limit: dashboardRecent})
	if err != nil {
		return nil, err
	}
	counts, err := s.recordRepo.CountByReviewer(ctx, userID)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Pending:  pending,
		Approved: counts[string(workflow.DecisionApprove)],
		Rejected: counts[string(workflow.DecisionReject)],
		Recent:   recent,
	}
	d.TotalReviewed = d.Approved + d.Rejected
	return d, nil
}

// GetRecords 获取审批记录
func (s *queryService) GetRecords(ctx context.Context, submissionID string) ([]*ApprovalRecord, error) {
	if err := s.visible(ctx, submissionID); err != nil {
		return nil, err
	}
	rows, err := s.recordRepo.FindBySubmissionID(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	records := make([]*ApprovalRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, &ApprovalRecord{
			ID:           r.ID,
			SubmissionID: r.SubmissionID,
			Stage:        r.Stage,
			Reviewer:     r.Reviewer,
			Decision:     r.Decision,
			Remarks:      r.Remarks,
			CreatedAt:    r.CreatedAt,
		})
	}
	return records, nil
}

// GetHistory 获取状态历史
func (s *queryService) GetHistory(ctx context.Context, submissionID string) ([]*StateHistory, error) {
	if err := s.visible(ctx, submissionID); err != nil {
		return nil, err
	}
	rows, err := s.historyRepo.FindBySubmissionID(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	histories := make([]*StateHistory, 0, len(rows))
	for _, h := range rows {
		histories = append(histories, &StateHistory{
			ID:           h.ID,
			SubmissionID: h.SubmissionID,
			Event:        h.Event,
			FromStatus:   h.FromStatus,
			FromStage:    h.FromStage,
			ToStatus:     h.ToStatus,
			ToStage:      h.ToStage,
			Owner:        h.Owner,
			Remarks:      h.Remarks,
			Operator:     h.Operator,
			CreatedAt:    h.CreatedAt,
		})
	}
	return histories, nil
}

// Stats 按状态统计,orgUnit 为空时统计全部
func (s *queryService) Stats(ctx context.Context, orgUnit string) (map[workflow.Status]int64, error) {
	return s.submissions.CountByStatus(ctx, orgUnit)
}

func (s *queryService) visible(ctx context.Context, submissionID string) error {
	sub, err := s.submissions.Load(ctx, submissionID)
	if err != nil {
		return err
	}
	return s.access.check(ctx, sub)
}

func paginate(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return (page - 1) * pageSize, pageSize
}
