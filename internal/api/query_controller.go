package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mautops/review-gin/internal/service"
	"github.com/mautops/review-gin/internal/utils"
	"github.com/mautops/review-gin/internal/workflow"
)

// QueryController 查询控制器
type QueryController struct {
	queryService service.QueryService
}

// NewQueryController 创建查询控制器
func NewQueryController(queryService service.QueryService) *QueryController {
	return &QueryController{
		queryService: queryService,
	}
}

// ListSubmissions 列出提交
// @Summary      获取提交列表
// @Description  分页获取提交列表,按创建时间倒序
// @Tags         查询统计
// @Produce      json
// @Param        status query string false "状态"
// @Param        owned_by query string false "当前处理人"
// @Param        org_unit query string false "组织单元"
// @Param        author query string false "作者"
// @Param        reviewed_by query string false "审批人"
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(20)
// @Success      200  {object}  PaginatedResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /submissions [get]
// @Security     BearerAuth
func (c *QueryController) ListSubmissions(ctx *gin.Context) {
	page, pageSize, ok := parsePage(ctx)
	if !ok {
		return
	}

	filter := service.ListSubmissionsFilter{
		OwnedBy:    ctx.Query("owned_by"),
		OrgUnit:    ctx.Query("org_unit"),
		Author:     ctx.Query("author"),
		ReviewedBy: ctx.Query("reviewed_by"),
		Page:       page,
		PageSize:   pageSize,
	}
	if raw := ctx.Query("status"); raw != "" {
		status, err := workflow.ParseStatus(raw)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid query parameters", err.Error())
			return
		}
		filter.Status = &status
	}

	subs, total, err := c.queryService.ListSubmissions(ctx, &filter)
	if !handleServiceError(ctx, err, "list submissions") {
		return
	}
	Paginated(ctx, subs, NewPaginationInfo(page, pageSize, total))
}

// Inbox 当前用户待处理列表
// @Summary      待我审批
// @Tags         查询统计
// @Produce      json
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(20)
// @Success      200  {object}  PaginatedResponse
// @Router       /inbox [get]
// @Security     BearerAuth
func (c *QueryController) Inbox(ctx *gin.Context) {
	page, pageSize, ok := parsePage(ctx)
	if !ok {
		return
	}

	subs, total, err := c.queryService.Inbox(ctx, page, pageSize)
	if !handleServiceError(ctx, err, "list inbox") {
		return
	}
	Paginated(ctx, subs, NewPaginationInfo(page, pageSize, total))
}

// Reviewed 当前用户审批过的列表
// @Summary      我审批过的
// @Tags         查询统计
// @Produce      json
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(20)
// @Success      200  {object}  PaginatedResponse
// @Router       /reviewed [get]
// @Security     BearerAuth
func (c *QueryController) Reviewed(ctx *gin.Context) {
	page, pageSize, ok := parsePage(ctx)
	if !ok {
		return
	}

	subs, total, err := c.queryService.Reviewed(ctx, page, pageSize)
	if !handleServiceError(ctx, err, "list reviewed") {
		return
	}
	Paginated(ctx, subs, NewPaginationInfo(page, pageSize, total))
}

// Dashboard 审批人工作台
// @Summary      工作台统计
// @Tags         查询统计
// @Produce      json
// @Success      200  {object}  Response{data=service.Dashboard}
// @Router       /dashboard [get]
// @Security     BearerAuth
func (c *QueryController) Dashboard(ctx *gin.Context) {
	d, err := c.queryService.Dashboard(ctx)
	if !handleServiceError(ctx, err, "load dashboard") {
		return
	}
	Success(ctx, d)
}

// GetRecords 获取审批记录
// @Summary      获取审批记录
// @Tags         查询统计
// @Produce      json
// @Param        id path string true "提交 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /submissions/{id}/records [get]
// @Security     BearerAuth
func (c *QueryController) GetRecords(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid submission ID", err.Error())
		return
	}

	records, err := c.queryService.GetRecords(ctx, id)
	if !handleServiceError(ctx, err, "get records") {
		return
	}
	Success(ctx, records)
}

// GetHistory 获取状态历史
// @Summary      获取状态变更历史
// @Tags         查询统计
// @Produce      json
// @Param        id path string true "提交 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /submissions/{id}/history [get]
// @Security     BearerAuth
func (c *QueryController) GetHistory(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid submission ID", err.Error())
		return
	}

	histories, err := c.queryService.GetHistory(ctx, id)
	if !handleServiceError(ctx, err, "get history") {
		return
	}
	Success(ctx, histories)
}

// Stats 按状态统计
// @Summary      按状态统计提交数量
// @Tags         查询统计
// @Produce      json
// @Param        org_unit query string false "组织单元"
// @Success      200  {object}  Response
// @Router       /stats [get]
// @Security     BearerAuth
func (c *QueryController) Stats(ctx *gin.Context) {
	counts, err := c.queryService.Stats(ctx, ctx.Query("org_unit"))
	if !handleServiceError(ctx, err, "count submissions") {
		return
	}
	Success(ctx, counts)
}

// parsePage 解析分页参数,参数非法时写入 400 响应
func parsePage(ctx *gin.Context) (page, pageSize int, ok bool) {
	page, pageSize = 1, 20
	if raw := ctx.Query("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			Error(ctx, http.StatusBadRequest, "invalid query parameters", "page must be a positive integer")
			return 0, 0, false
		}
		page = v
	}
	if raw := ctx.Query("page_size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 100 {
			Error(ctx, http.StatusBadRequest, "invalid query parameters", "page_size must be between 1 and 100")
			return 0, 0, false
		}
		pageSize = v
	}
	return page, pageSize, true
}
