package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mautops/review-gin/internal/service"
	"github.com/mautops/review-gin/internal/utils"
	"github.com/mautops/review-gin/internal/workflow"
)

// SubmissionController 提交审批控制器
type SubmissionController struct {
	submissionService service.SubmissionService
	maxUploadSize     int64
}

// NewSubmissionController 创建提交审批控制器
func NewSubmissionController(submissionService service.SubmissionService, maxUploadSize int64) *SubmissionController {
	return &SubmissionController{
		submissionService: submissionService,
		maxUploadSize:     maxUploadSize,
	}
}

// validateSubmissionID 验证提交 ID 并返回错误响应(如果无效)
func (c *SubmissionController) validateSubmissionID(ctx *gin.Context) (string, bool) {
	id := ctx.Param("id")
	if err := utils.ValidateID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid submission ID", err.Error())
		return "", false
	}
	return id, true
}

// Create 创建提交
// @Summary      创建提交
// @Description  JSON 方式引用已上传的 payload_ref,或 multipart 方式上传 file
// @Tags         提交管理
// @Accept       json,mpfd
// @Produce      json
// @Param        request body service.CreateSubmissionRequest true "提交信息"
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /submissions [post]
// @Security     BearerAuth
func (c *SubmissionController) Create(ctx *gin.Context) {
	var req service.CreateSubmissionRequest

	if strings.HasPrefix(ctx.ContentType(), "multipart/form-data") {
		if err := ctx.ShouldBind(&req); err != nil {
			Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
			return
		}
		file, err := c.readUpload(ctx)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid file", err.Error())
			return
		}
		sub, err := c.submissionService.Upload(ctx, &req, file)
		if !handleServiceError(ctx, err, "create submission") {
			return
		}
		Created(ctx, sub)
		return
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	sub, err := c.submissionService.Create(ctx, &req)
	if !handleServiceError(ctx, err, "create submission") {
		return
	}
	Created(ctx, sub)
}

// BulkUpload 批量上传
// @Summary      批量上传
// @Description  multipart 方式上传多个 files,每个文件生成一份草稿,任一失败则全部撤销
// @Tags         提交管理
// @Accept       mpfd
// @Produce      json
// @Param        files formData file true "文件,可重复"
// @Param        category formData string false "分类" default(Other)
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Router       /submissions/bulk [post]
// @Security     BearerAuth
func (c *SubmissionController) BulkUpload(ctx *gin.Context) {
	form, err := ctx.MultipartForm()
	if err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	var req service.BulkUploadRequest
	if err := ctx.ShouldBind(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	headers := append(form.File["files"], form.File["files[]"]...)
	files := make([]*service.UploadedFile, 0, len(headers))
	for _, header := range headers {
		file, err := c.readFile(header)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid file", fmt.Sprintf("%s: %v", header.Filename, err))
			return
		}
		files = append(files, file)
	}

	subs, err := c.submissionService.BulkUpload(ctx, &req, files)
	if !handleServiceError(ctx, err, "bulk upload") {
		return
	}
	Created(ctx, subs)
}

func (c *SubmissionController) readUpload(ctx *gin.Context) (*service.UploadedFile, error) {
	header, err := ctx.FormFile("file")
	if err != nil {
		return nil, err
	}
	return c.readFile(header)
}

func (c *SubmissionController) readFile(header *multipart.FileHeader) (*service.UploadedFile, error) {
	if c.maxUploadSize > 0 && header.Size > c.maxUploadSize {
		return nil, fmt.Errorf("file size %d exceeds limit %d", header.Size, c.maxUploadSize)
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if c.maxUploadSize > 0 {
		r = io.LimitReader(f, c.maxUploadSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return &service.UploadedFile{
		Name:     header.Filename,
		MimeType: mimeType,
		Data:     data,
	}, nil
}

// Get 获取提交
// @Summary      获取提交详情
// @Tags         提交管理
// @Produce      json
// @Param        id path string true "提交 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /submissions/{id} [get]
// @Security     BearerAuth
func (c *SubmissionController) Get(ctx *gin.Context) {
	id, ok := c.validateSubmissionID(ctx)
	if !ok {
		return
	}

	sub, err := c.submissionService.Get(ctx, id)
	if !handleServiceError(ctx, err, "get submission") {
		return
	}
	Success(ctx, sub)
}

// Update 修改提交
// @Summary      修改提交
// @Description  仅作者可在草稿或驳回状态下修改,驳回后修改回到草稿
// @Tags         提交管理
// @Accept       json
// @Produce      json
// @Param        id path string true "提交 ID"
// @Param        request body service.UpdateSubmissionRequest true "修改字段"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /submissions/{id} [put]
// @Security     BearerAuth
func (c *SubmissionController) Update(ctx *gin.Context) {
	id, ok := c.validateSubmissionID(ctx)
	if !ok {
		return
	}

	var req service.UpdateSubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	sub, err := c.submissionService.Update(ctx, id, &req)
	if !handleServiceError(ctx, err, "update submission") {
		return
	}
	Success(ctx, sub)
}

// Delete 删除草稿
// @Summary      删除草稿
// @Tags         提交管理
// @Param        id path string true "提交 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /submissions/{id} [delete]
// @Security     BearerAuth
func (c *SubmissionController) Delete(ctx *gin.Context) {
	id, ok := c.validateSubmissionID(ctx)
	if !ok {
		return
	}

	if !handleServiceError(ctx, c.submissionService.Delete(ctx, id), "delete submission") {
		return
	}
	Success(ctx, nil)
}

// Submit 提交审批
// @Summary      提交进入一级审批
// @Tags         审批流程
// @Accept       json
// @Produce      json
// @Param        id path string true "提交 ID"
// @Param        request body service.SubmitRequest false "组织单元"
// @Success      200  {object}  Response
// @Failure      409  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /submissions/{id}/submit [post]
// @Security     BearerAuth
func (c *SubmissionController) Submit(ctx *gin.Context) {
	id, ok := c.validateSubmissionID(ctx)
	if !ok {
		return
	}

	var req service.SubmitRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
			return
		}
	}

	sub, err := c.submissionService.Submit(ctx, id, &req)
	if !handleServiceError(ctx, err, "submit submission") {
		return
	}
	Success(ctx, sub)
}

// FirstReview 一级审批
// @Summary      一级审批
// @Tags         审批流程
// @Accept       json
// @Produce      json
// @Param        id path string true "提交 ID"
// @Param        request body service.ReviewRequest true "审批决定"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /submissions/{id}/first-review [post]
// @Security     BearerAuth
func (c *SubmissionController) FirstReview(ctx *gin.Context) {
	c.review(ctx, workflow.StageFirstReviewer)
}

// SecondReview 二级审批
// @Summary      二级审批
// @Tags         审批流程
// @Accept       json
// @Produce      json
// @Param        id path string true "提交 ID"
// @Param        request body service.ReviewRequest true "审批决定"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /submissions/{id}/second-review [post]
// @Security     BearerAuth
func (c *SubmissionController) SecondReview(ctx *gin.Context) {
	c.review(ctx, workflow.StageSecondReviewer)
}

func (c *SubmissionController) review(ctx *gin.Context, stage workflow.Stage) {
	id, ok := c.validateSubmissionID(ctx)
	if !ok {
		return
	}

	var req service.ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	var (
		sub *workflow.Submission
		err error
	)
	if stage == workflow.StageFirstReviewer {
		sub, err = c.submissionService.FirstReview(ctx, id, &req)
	} else {
		sub, err = c.submissionService.SecondReview(ctx, id, &req)
	}
	if !handleServiceError(ctx, err, "review submission") {
		return
	}
	Success(ctx, sub)
}

// Payload 下载提交文件
// @Summary      下载提交文件
// @Tags         提交管理
// @Produce      octet-stream
// @Param        id path string true "提交 ID"
// @Success      200  {file}  file
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /submissions/{id}/payload [get]
// @Security     BearerAuth
func (c *SubmissionController) Payload(ctx *gin.Context) {
	id, ok := c.validateSubmissionID(ctx)
	if !ok {
		return
	}

	sub, data, err := c.submissionService.Payload(ctx, id)
	if !handleServiceError(ctx, err, "fetch payload") {
		return
	}

	contentType := sub.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	fileName := sub.FileName
	if fileName == "" {
		fileName = sub.ID
	}
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	ctx.Data(http.StatusOK, contentType, data)
}
