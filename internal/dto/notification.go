package dto

import "studytime/backend/internal/model"

// ── 通知模块 ──

// NotificationListRequest 通知列表查询
type NotificationListRequest struct {
	PaginationRequest
	UnreadOnly bool `form:"unread_only"`
}

// NotificationResponse 通知响应
type NotificationResponse struct {
	NotificationID string  `json:"notification_id"`
	Type           string  `json:"type"`
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	IsRead         bool    `json:"is_read"`
	RelatedType    *string `json:"related_type,omitempty"`
	RelatedID      *string `json:"related_id,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// UpdatePreferenceRequest 更新通知偏好
type UpdatePreferenceRequest struct {
	StudyResult  *bool `json:"study_result"  binding:"required"`
	ReviewResult *bool `json:"review_result" binding:"required"`
}

// PreferenceResponse 通知偏好响应
type PreferenceResponse struct {
	StudyResult  bool `json:"study_result"`
	ReviewResult bool `json:"review_result"`
}

// ToNotificationResponse 模型转响应
func ToNotificationResponse(n *model.Notification) NotificationResponse {
	return NotificationResponse{
		NotificationID: n.NotificationID,
		Type:           n.Type,
		Title:          n.Title,
		Content:        n.Content,
		IsRead:         n.IsRead,
		RelatedType:    n.RelatedType,
		RelatedID:      n.RelatedID,
		CreatedAt:      n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
