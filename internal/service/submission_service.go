package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/mautops/review-gin/internal/blob"
	"github.com/mautops/review-gin/internal/metrics"
	"github.com/mautops/review-gin/internal/utils"
	"github.com/mautops/review-gin/internal/workflow"
	"github.com/sirupsen/logrus"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 4000
	maxCategoryLength    = 64

	maxBulkFiles        = 20
	bulkDescription     = "Bulk uploaded assignment"
	defaultBulkCategory = "Other"
)

// SubmissionService 提交审批服务接口
type SubmissionService interface {
	Create(ctx context.Context, req *CreateSubmissionRequest) (*workflow.Submission, error)
	Upload(ctx context.Context, req *CreateSubmissionRequest, file *UploadedFile) (*workflow.Submission, error)
	BulkUpload(ctx context.Context, req *BulkUploadRequest, files []*UploadedFile) ([]*workflow.Submission, error)
	Get(ctx context.Context, id string) (*workflow.Submission, error)
	Update(ctx context.Context, id string, req *UpdateSubmissionRequest) (*workflow.Submission, error)
	Delete(ctx context.Context, id string) error
	Submit(ctx context.Context, id string, req *SubmitRequest) (*workflow.Submission, error)
	FirstReview(ctx context.Context, id string, req *ReviewRequest) (*workflow.Submission, error)
	SecondReview(ctx context.Context, id string, req *ReviewRequest) (*workflow.Submission, error)
	Payload(ctx context.Context, id string) (*workflow.Submission, []byte, error)
}

// CreateSubmissionRequest 创建提交请求
// @Description 创建提交请求,JSON 方式需要 payload_ref,multipart 方式上传 file
type CreateSubmissionRequest struct {
	Title       string `json:"title" form:"title" binding:"required"`
	Description string `json:"description" form:"description"`
	Category    string `json:"category" form:"category" binding:"required"`
	PayloadRef  string `json:"payload_ref" form:"payload_ref"`
	FileName    string `json:"file_name" form:"file_name"`
	MimeType    string `json:"mime_type" form:"mime_type"`
}

// BulkUploadRequest 批量上传请求,每个文件生成一份草稿,标题取文件名
// @Description 批量上传请求,category 为空时使用 Other
type BulkUploadRequest struct {
	Category string `json:"category" form:"category"`
}

// UploadedFile 上传的文件内容
type UploadedFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// UpdateSubmissionRequest 修改提交请求,未提供的字段保持不变
// @Description 修改提交请求
type UpdateSubmissionRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	PayloadRef  *string `json:"payload_ref,omitempty"`
	FileName    *string `json:"file_name,omitempty"`
	MimeType    *string `json:"mime_type,omitempty"`
}

// SubmitRequest 提交审批请求
// @Description 提交审批请求,org_unit 为空时使用作者所属组织
type SubmitRequest struct {
	OrgUnit string `json:"org_unit"`
}

// ReviewRequest 审批请求
// @Description 审批请求,驳回时 remarks 必填
type ReviewRequest struct {
	Decision string `json:"decision" binding:"required"`
	Remarks  string `json:"remarks"`
}

// PayloadLedger 文件登记: 上传者与仍引用文件的提交数
type PayloadLedger interface {
	Record(ctx context.Context, ref, uploader string, size int64) error
	Uploader(ctx context.Context, ref string) (string, error)
	References(ctx context.Context, ref string) (int64, error)
	Forget(ctx context.Context, ref string) error
}

// submissionService 提交审批服务实现
type submissionService struct {
	engine      *workflow.Engine
	blobs       blob.Store
	ledger      PayloadLedger
	auditLogSvc AuditLogService
	log         logrus.FieldLogger
	access      access
}

// NewSubmissionService 创建提交审批服务,permissions 可选
func NewSubmissionService(
	engine *workflow.Engine,
	blobs blob.Store,
	ledger PayloadLedger,
	auditLogSvc AuditLogService,
	log logrus.FieldLogger,
	permissions ...PermissionChecker,
) SubmissionService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &submissionService{
		engine:      engine,
		blobs:       blobs,
		ledger:      ledger,
		auditLogSvc: auditLogSvc,
		log:         log,
		access:      newAccess(permissions),
	}
}

// Create 使用已存在的 payload_ref 创建草稿
func (s *submissionService) Create(ctx context.Context, req *CreateSubmissionRequest) (*workflow.Submission, error) {
	if req == nil {
		return nil, workflow.Errorf(workflow.CodeValidation, "request body is required")
	}
	if err := s.checkPayload(ctx, req.PayloadRef, getUserIDFromContext(ctx)); err != nil {
		return nil, err
	}
	return s.create(ctx, req, req.PayloadRef, req.FileName, req.MimeType)
}

// Upload 上传文件到 blob 存储后创建草稿,创建失败时清理已上传文件
func (s *submissionService) Upload(ctx context.Context, req *CreateSubmissionRequest, file *UploadedFile) (*workflow.Submission, error) {
	if req == nil || file == nil {
		return nil, workflow.Errorf(workflow.CodeValidation, "file is required")
	}
	userID := getUserIDFromContext(ctx)
	if userID == "" {
		return nil, workflow.Errorf(workflow.CodeForbidden, "author identity is required")
	}
	ref, err := s.store(ctx, userID, file)
	if err != nil {
		return nil, err
	}

	sub, err := s.create(ctx, req, ref, file.Name, file.MimeType)
	if err != nil {
		s.removeBlob(ctx, ref)
		return nil, err
	}
	return sub, nil
}

// BulkUpload 批量创建草稿,任一文件失败时撤销已创建的草稿并清理全部已上传文件
func (s *submissionService) BulkUpload(ctx context.Context, req *BulkUploadRequest, files []*UploadedFile) ([]*workflow.Submission, error) {
	if len(files) == 0 {
		return nil, workflow.Errorf(workflow.CodeValidation, "at least one file is required")
	}
	if len(files) > maxBulkFiles {
		return nil, workflow.Errorf(workflow.CodeValidation, "at most %d files per upload, got %d", maxBulkFiles, len(files))
	}
	userID := getUserIDFromContext(ctx)
	if userID == "" {
		return nil, workflow.Errorf(workflow.CodeForbidden, "author identity is required")
	}

	category := defaultBulkCategory
	if req != nil && strings.TrimSpace(req.Category) != "" {
		category = req.Category
	}
	reqs := make([]*CreateSubmissionRequest, len(files))
	for i, file := range files {
		if file == nil {
			return nil, workflow.Errorf(workflow.CodeValidation, "file %d is empty", i)
		}
		reqs[i] = &CreateSubmissionRequest{
			Title:       titleFromFileName(file.Name),
			Description: bulkDescription,
			Category:    category,
		}
		if err := validateText(&reqs[i].Title, &reqs[i].Description, &reqs[i].Category); err != nil {
			return nil, err
		}
	}

	refs := make([]string, 0, len(files))
	created := make([]*workflow.Submission, 0, len(files))
	rollback := func() {
		cleanup := context.WithoutCancel(ctx)
		for _, sub := range created {
			if _, err := s.engine.Delete(cleanup, sub.ID, userID); err != nil {
				s.log.WithError(err).WithField("submission_id", sub.ID).Warn("failed to roll back bulk upload")
				continue
			}
			s.audit(cleanup, userID, "delete", sub.ID, map[string]interface{}{"reason": "bulk upload rolled back"})
		}
		for _, ref := range refs {
			s.removeBlob(cleanup, ref)
		}
	}

	for i, file := range files {
		ref, err := s.store(ctx, userID, file)
		if err != nil {
			rollback()
			return nil, err
		}
		refs = append(refs, ref)

		sub, err := s.create(ctx, reqs[i], ref, file.Name, file.MimeType)
		if err != nil {
			rollback()
			return nil, err
		}
		created = append(created, sub)
	}
	return created, nil
}

// store 上传文件并登记上传者,登记失败时删除已上传的文件
func (s *submissionService) store(ctx context.Context, uploader string, file *UploadedFile) (string, error) {
	ref, err := s.blobs.Store(ctx, file.Data)
	if err != nil {
		if errors.Is(err, blob.ErrTooLarge) {
			return "", workflow.Wrap(workflow.CodeValidation, err, "payload %s exceeds size limit", file.Name)
		}
		return "", err
	}
	if err := s.ledger.Record(ctx, ref, uploader, int64(len(file.Data))); err != nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), ref); derr != nil {
			s.log.WithError(derr).WithField("payload_ref", ref).Warn("failed to delete unrecorded payload")
		}
		return "", err
	}
	return ref, nil
}

// titleFromFileName 去掉目录与扩展名,结果为空时保留原文件名
func titleFromFileName(name string) string {
	base := filepath.Base(name)
	if title := strings.TrimSuffix(base, filepath.Ext(base)); strings.TrimSpace(title) != "" {
		return title
	}
	return name
}

func (s *submissionService) create(ctx context.Context, req *CreateSubmissionRequest, ref, fileName, mimeType string) (*workflow.Submission, error) {
	if err := validateText(&req.Title, &req.Description, &req.Category); err != nil {
		return nil, err
	}
	userID := getUserIDFromContext(ctx)
	sub, err := s.engine.Create(ctx, workflow.CreateInput{
		Author:      userID,
		PayloadRef:  ref,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		FileName:    fileName,
		MimeType:    mimeType,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSubmissionCreated()
	s.audit(ctx, userID, "create", sub.ID, map[string]interface{}{
		"title":       sub.Title,
		"category":    sub.Category,
		"payload_ref": sub.PayloadRef,
	})
	return sub, nil
}

// Get 获取提交,仅作者与参与审批的人可读
func (s *submissionService) Get(ctx context.Context, id string) (*workflow.Submission, error) {
	sub, err := s.engine.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.check(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Update 修改草稿或被驳回的提交,替换文件后尽力清理旧文件
func (s *submissionService) Update(ctx context.Context, id string, req *UpdateSubmissionRequest) (*workflow.Submission, error) {
	if req == nil {
		return nil, workflow.Errorf(workflow.CodeValidation, "request body is required")
	}

	userID := getUserIDFromContext(ctx)
	check := func(ctx context.Context, current *workflow.Submission) error {
		if err := validateText(req.Title, req.Description, req.Category); err != nil {
			return err
		}
		if req.PayloadRef != nil && *req.PayloadRef != current.PayloadRef {
			return s.checkPayload(ctx, *req.PayloadRef, userID)
		}
		return nil
	}

	sub, replaced, err := s.engine.EditTracked(ctx, id, userID, workflow.Fields{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		PayloadRef:  req.PayloadRef,
		FileName:    req.FileName,
		MimeType:    req.MimeType,
	}, check)
	if err != nil {
		s.observe(workflow.EventEdited, workflow.StageAuthor, err)
		return nil, err
	}

	s.observe(workflow.EventEdited, workflow.StageAuthor, nil)
	s.removeBlob(ctx, replaced)
	s.audit(ctx, userID, "update", id, req)
	return sub, nil
}

// Delete 删除草稿并尽力清理文件
func (s *submissionService) Delete(ctx context.Context, id string) error {
	userID := getUserIDFromContext(ctx)
	sub, err := s.engine.Delete(ctx, id, userID)
	if err != nil {
		s.observe(workflow.EventDeleted, workflow.StageAuthor, err)
		return err
	}

	s.observe(workflow.EventDeleted, workflow.StageAuthor, nil)
	s.removeBlob(ctx, sub.PayloadRef)
	s.audit(ctx, userID, "delete", id, map[string]interface{}{
		"title":       sub.Title,
		"payload_ref": sub.PayloadRef,
	})
	return nil
}

// Submit 提交进入一级审批
func (s *submissionService) Submit(ctx context.Context, id string, req *SubmitRequest) (*workflow.Submission, error) {
	orgUnit := ""
	if req != nil {
		orgUnit = strings.TrimSpace(req.OrgUnit)
	}

	userID := getUserIDFromContext(ctx)
	sub, err := s.engine.Submit(ctx, id, userID, orgUnit)
	s.observe(workflow.EventSubmitted, workflow.StageFirstReviewer, err)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, userID, "submit", id, map[string]interface{}{
		"org_unit": sub.OrgUnit,
		"owner":    sub.CurrentOwner,
	})
	return sub, nil
}

// FirstReview 一级审批
func (s *submissionService) FirstReview(ctx context.Context, id string, req *ReviewRequest) (*workflow.Submission, error) {
	decision, err := parseReview(req)
	if err != nil {
		return nil, err
	}

	userID := getUserIDFromContext(ctx)
	sub, err := s.engine.FirstReview(ctx, id, userID, decision, req.Remarks)
	event := workflow.EventFirstApproved
	if decision == workflow.DecisionReject {
		event = workflow.EventFirstRejected
	}
	s.observe(event, workflow.StageSecondReviewer, err)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, userID, "first_review", id, req)
	return sub, nil
}

// SecondReview 二级审批
func (s *submissionService) SecondReview(ctx context.Context, id string, req *ReviewRequest) (*workflow.Submission, error) {
	decision, err := parseReview(req)
	if err != nil {
		return nil, err
	}

	userID := getUserIDFromContext(ctx)
	sub, err := s.engine.SecondReview(ctx, id, userID, decision, req.Remarks)
	event := workflow.EventSecondApproved
	if decision == workflow.DecisionReject {
		event = workflow.EventSecondRejected
	}
	s.observe(event, workflow.StageCompleted, err)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, userID, "second_review", id, req)
	return sub, nil
}

// Payload 读取提交的文件内容,仅作者与参与审批的人可读
func (s *submissionService) Payload(ctx context.Context, id string) (*workflow.Submission, []byte, error) {
	sub, err := s.engine.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.access.check(ctx, sub); err != nil {
		return nil, nil, err
	}

	data, err := s.blobs.Fetch(ctx, sub.PayloadRef)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, nil, workflow.Wrap(workflow.CodeNotFound, err, "payload of %s not found", id)
		}
		return nil, nil, err
	}
	return sub, data, nil
}

// checkPayload 引用必须存在且由调用者上传
func (s *submissionService) checkPayload(ctx context.Context, ref, userID string) error {
	if strings.TrimSpace(ref) == "" {
		return workflow.Errorf(workflow.CodeValidation, "payload reference is required")
	}
	ok, err := s.blobs.Exists(ctx, ref)
	if err != nil {
		if errors.Is(err, blob.ErrInvalidRef) {
			return workflow.Wrap(workflow.CodeValidation, err, "invalid payload reference %q", ref)
		}
		return err
	}
	if !ok {
		return workflow.Errorf(workflow.CodeValidation, "payload %s does not exist", ref)
	}
	uploader, err := s.ledger.Uploader(ctx, ref)
	if err != nil {
		return err
	}
	if uploader == "" || uploader != userID {
		return workflow.Errorf(workflow.CodeForbidden, "payload %s was not uploaded by %s", ref, userID)
	}
	return nil
}

// observe 记录迁移结果指标,routingStage 为该操作需要路由的阶段
func (s *submissionService) observe(event workflow.EventType, routingStage workflow.Stage, err error) {
	if err == nil {
		metrics.RecordTransition(string(event))
		return
	}
	switch code := workflow.CodeOf(err); code {
	case workflow.CodeConflict:
		metrics.RecordConflict()
	case workflow.CodeNoReviewerAvailable, workflow.CodeAmbiguousReviewer:
		metrics.RecordRoutingFailure(string(routingStage), string(code))
	}
}

// removeBlob 尽力删除不再被任何提交引用的文件
func (s *submissionService) removeBlob(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	log := s.log.WithField("payload_ref", ref)

	n, err := s.ledger.References(ctx, ref)
	if err != nil {
		log.WithError(err).Warn("failed to count payload references")
		return
	}
	if n > 0 {
		log.WithField("references", n).Debug("payload still referenced, keeping it")
		return
	}
	if err := s.blobs.Delete(ctx, ref); err != nil && !errors.Is(err, blob.ErrNotFound) {
		log.WithError(err).Warn("failed to delete payload")
		return
	}
	if err := s.ledger.Forget(ctx, ref); err != nil {
		log.WithError(err).Warn("failed to forget payload")
	}
}

func (s *submissionService) audit(ctx context.Context, userID, action, id string, details interface{}) {
	if s.auditLogSvc == nil {
		return
	}
	if err := s.auditLogSvc.RecordAction(ctx, userID, action, "submission", id, details); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"action":        action,
			"submission_id": id,
		}).Warn("failed to record audit log")
	}
}

// validateText 校验标题、描述与分类的长度,nil 表示未提供
func validateText(title, description, category *string) error {
	limits := []struct {
		name  string
		value *string
		max   int
	}{
		{"title", title, maxTitleLength},
		{"description", description, maxDescriptionLength},
		{"category", category, maxCategoryLength},
	}
	for _, l := range limits {
		if l.value == nil {
			continue
		}
		if err := utils.ValidateText(*l.value, l.max); err != nil {
			return workflow.Wrap(workflow.CodeValidation, err, "invalid %s", l.name)
		}
	}
	return nil
}

func parseReview(req *ReviewRequest) (workflow.Decision, error) {
	if req == nil {
		return "", workflow.Errorf(workflow.CodeValidation, "request body is required")
	}
	return workflow.ParseDecision(req.Decision)
}
