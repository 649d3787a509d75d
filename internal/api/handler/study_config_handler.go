package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"studytime/backend/internal/dto"
	"studytime/backend/internal/model"
	"studytime/backend/internal/service"
	"studytime/backend/pkg/response"
)

// StudyConfigHandler 学时配置模块 HTTP 处理器
type StudyConfigHandler struct {
	configSvc service.StudyConfigService
}

// NewStudyConfigHandler 创建 StudyConfigHandler
func NewStudyConfigHandler(configSvc service.StudyConfigService) *StudyConfigHandler {
	return &StudyConfigHandler{configSvc: configSvc}
}

// GetEngineConfig 获取引擎参数
// GET /api/v1/study-config/engine
func (h *StudyConfigHandler) GetEngineConfig(c *gin.Context) {
	cfg, err := h.configSvc.GetEngineConfig(c.Request.Context())
	if err != nil {
		h.handleConfigError(c, err)
		return
	}

	response.OK(c, dto.EngineConfigResponse{
		DefaultDailyLimitSeconds:  cfg.DefaultDailyLimitSeconds,
		InteractionTimeoutSeconds: cfg.InteractionTimeoutSeconds,
		SegmentDiscountRate:       cfg.SegmentDiscountRate,
		QualityReviewThreshold:    cfg.QualityReviewThreshold,
		FocusReviewThreshold:      cfg.FocusReviewThreshold,
	})
}

// UpdateEngineConfig 更新引擎参数
// PUT /api/v1/study-config/engine
func (h *StudyConfigHandler) UpdateEngineConfig(c *gin.Context) {
	var req dto.UpdateEngineConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	cfg := &model.SystemConfig{
		DefaultDailyLimitSeconds:  req.DefaultDailyLimitSeconds,
		InteractionTimeoutSeconds: req.InteractionTimeoutSeconds,
		SegmentDiscountRate:       req.SegmentDiscountRate,
		QualityReviewThreshold:    req.QualityReviewThreshold,
		FocusReviewThreshold:      req.FocusReviewThreshold,
	}
	if err := h.configSvc.UpdateEngineConfig(c.Request.Context(), cfg); err != nil {
		h.handleConfigError(c, err)
		return
	}

	response.OK(c, nil)
}

// GetDailyLimit 查询用户日学时上限
// GET /api/v1/study-config/daily-limit/:userId
func (h *StudyConfigHandler) GetDailyLimit(c *gin.Context) {
	userID := c.Param("userId")

	limit, err := h.configSvc.GetUserDailyLimit(c.Request.Context(), userID)
	if err != nil {
		h.handleConfigError(c, err)
		return
	}

	response.OK(c, dto.DailyLimitResponse{UserID: userID, DailyLimitSeconds: limit})
}

// SetDailyLimit 设置用户日学时上限
// PUT /api/v1/study-config/daily-limit
func (h *StudyConfigHandler) SetDailyLimit(c *gin.Context) {
	var req dto.SetDailyLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.configSvc.SetUserDailyLimit(c.Request.Context(), req.UserID, req.DailyLimitSeconds); err != nil {
		h.handleConfigError(c, err)
		return
	}

	response.OK(c, dto.DailyLimitResponse{UserID: req.UserID, DailyLimitSeconds: req.DailyLimitSeconds})
}

// handleConfigError 统一处理学时配置模块业务错误
func (h *StudyConfigHandler) handleConfigError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSystemConfigNotFound):
		response.NotFound(c, 13001, "系统配置未初始化")
	case errors.Is(err, service.ErrInvalidDailyLimit):
		response.BadRequest(c, 13002, "日学时上限必须为正数")
	case errors.Is(err, service.ErrInvalidEngineConfig):
		response.BadRequest(c, 13003, "引擎参数取值非法")
	default:
		response.InternalError(c)
	}
}
