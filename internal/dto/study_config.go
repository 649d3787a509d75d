package dto

// ── 学时配置模块 ──

// SetDailyLimitRequest 设置用户日学时上限
type SetDailyLimitRequest struct {
	UserID            string `json:"user_id"             binding:"required,uuid"`
	DailyLimitSeconds int64  `json:"daily_limit_seconds" binding:"required,min=1"`
}

// UpdateEngineConfigRequest 更新引擎参数
type UpdateEngineConfigRequest struct {
	DefaultDailyLimitSeconds  int64   `json:"default_daily_limit_seconds" binding:"required,min=1"`
	InteractionTimeoutSeconds int64   `json:"interaction_timeout_seconds" binding:"required,min=1"`
	SegmentDiscountRate       float64 `json:"segment_discount_rate"       binding:"required,gt=0,lte=1"`
	QualityReviewThreshold    float64 `json:"quality_review_threshold"    binding:"min=0,max=10"`
	FocusReviewThreshold      float64 `json:"focus_review_threshold"      binding:"min=0,max=1"`
}

// EngineConfigResponse 引擎参数响应
type EngineConfigResponse struct {
	DefaultDailyLimitSeconds  int64   `json:"default_daily_limit_seconds"`
	InteractionTimeoutSeconds int64   `json:"interaction_timeout_seconds"`
	SegmentDiscountRate       float64 `json:"segment_discount_rate"`
	QualityReviewThreshold    float64 `json:"quality_review_threshold"`
	FocusReviewThreshold      float64 `json:"focus_review_threshold"`
}

// DailyLimitResponse 用户日上限响应
type DailyLimitResponse struct {
	UserID            string `json:"user_id"`
	DailyLimitSeconds int64  `json:"daily_limit_seconds"`
}
