package dto

import "studytime/backend/internal/model"

// ── 学时认定模块请求 ──

// ProcessSessionRequest 会话认定请求
type ProcessSessionRequest struct {
	SessionID string `json:"session_id" binding:"required,uuid"`
}

// BatchProcessRequest 批量认定请求
type BatchProcessRequest struct {
	SessionIDs []string `json:"session_ids" binding:"required,min=1,dive,uuid"`
}

// ReviewRequest 人工复核请求
type ReviewRequest struct {
	Status  string `json:"status"  binding:"required,oneof=valid invalid"` // 复核只能落到终态
	Comment string `json:"comment" binding:"max=500"`
}

// StudyRecordListRequest 学时记录列表查询
type StudyRecordListRequest struct {
	PaginationRequest
	UserID   string `form:"user_id"   binding:"omitempty,uuid"`
	Status   string `form:"status"    binding:"omitempty,oneof=valid invalid partial pending"`
	DateFrom string `form:"date_from" binding:"omitempty,datetime=2006-01-02"`
	DateTo   string `form:"date_to"   binding:"omitempty,datetime=2006-01-02"`
}

// DailySummaryRequest 当日学时汇总查询
type DailySummaryRequest struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"` // 缺省为今日
}

// ── 学时认定模块响应 ──

// StudyRecordResponse 学时记录响应
type StudyRecordResponse struct {
	RecordID          string  `json:"record_id"`
	UserID            string  `json:"user_id"`
	SessionID         string  `json:"session_id"`
	CourseID          string  `json:"course_id"`
	LessonID          string  `json:"lesson_id"`
	StudyDate         string  `json:"study_date"`
	StartTime         string  `json:"start_time"`
	EndTime           string  `json:"end_time"`
	TotalDuration     float64 `json:"total_duration"`
	EffectiveDuration float64 `json:"effective_duration"`
	InvalidDuration   float64 `json:"invalid_duration"`
	Status            string  `json:"status"`
	InvalidReason     *string `json:"invalid_reason,omitempty"`
	Description       string  `json:"description"`
	QualityScore      float64 `json:"quality_score"`
	FocusScore        float64 `json:"focus_score"`
	InteractionScore  float64 `json:"interaction_score"`
	ContinuityScore   float64 `json:"continuity_score"`
	ReviewComment     *string `json:"review_comment,omitempty"`
	ReviewedBy        *string `json:"reviewed_by,omitempty"`
	ReviewTime        *string `json:"review_time,omitempty"`
	StudentNotified   bool    `json:"student_notified"`
	CreatedAt         string  `json:"created_at"`
}

// BatchItemResult 批量认定单项结果
type BatchItemResult struct {
	SessionID string `json:"session_id"`
	Success   bool   `json:"success"`
	RecordID  string `json:"record_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BatchProcessResponse 批量认定响应
type BatchProcessResponse struct {
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []BatchItemResult `json:"results"`
}

// DailySummaryResponse 当日学时汇总响应
type DailySummaryResponse struct {
	Date              string  `json:"date"`
	EffectiveDuration float64 `json:"effective_duration"` // 当日计入上限的有效学时（秒）
	DailyLimit        int64   `json:"daily_limit"`        // 日上限（秒）
	Remaining         float64 `json:"remaining"`          // 剩余额度（秒）
	RecordCount       int     `json:"record_count"`
}

// ToStudyRecordResponse 模型转响应
func ToStudyRecordResponse(r *model.EffectiveStudyRecord) StudyRecordResponse {
	resp := StudyRecordResponse{
		RecordID:          r.RecordID,
		UserID:            r.UserID,
		SessionID:         r.SessionID,
		CourseID:          r.CourseID,
		LessonID:          r.LessonID,
		StudyDate:         r.StudyDate.Format("2006-01-02"),
		StartTime:         r.StartTime.Format("2006-01-02T15:04:05Z07:00"),
		EndTime:           r.EndTime.Format("2006-01-02T15:04:05Z07:00"),
		TotalDuration:     r.TotalDuration,
		EffectiveDuration: r.EffectiveDuration,
		InvalidDuration:   r.InvalidDuration,
		Status:            string(r.Status),
		Description:       r.Description,
		QualityScore:      r.QualityScore,
		FocusScore:        r.FocusScore,
		InteractionScore:  r.InteractionScore,
		ContinuityScore:   r.ContinuityScore,
		ReviewComment:     r.ReviewComment,
		ReviewedBy:        r.ReviewedBy,
		StudentNotified:   r.StudentNotified,
		CreatedAt:         r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if r.InvalidReason != nil {
		reason := string(*r.InvalidReason)
		resp.InvalidReason = &reason
	}
	if r.ReviewTime != nil {
		t := r.ReviewTime.Format("2006-01-02T15:04:05Z07:00")
		resp.ReviewTime = &t
	}
	return resp
}
