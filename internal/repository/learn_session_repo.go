package repository

import (
	"context"

	"gorm.io/gorm"

	"studytime/backend/internal/model"
)

// LearnSessionRepository 学习会话数据访问接口
type LearnSessionRepository interface {
	GetByID(ctx context.Context, id string) (*model.LearnSession, error)
	ListUnprocessed(ctx context.Context, limit int) ([]model.LearnSession, error)
	MarkProcessed(ctx context.Context, id string) error
}

type learnSessionRepo struct {
	db *gorm.DB
}

// NewLearnSessionRepo 创建 LearnSessionRepository 实例
func NewLearnSessionRepo(db *gorm.DB) LearnSessionRepository {
	return &learnSessionRepo{db: db}
}

func (r *learnSessionRepo) GetByID(ctx context.Context, id string) (*model.LearnSession, error) {
	var session model.LearnSession
	err := r.db.WithContext(ctx).
		Where("session_id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *learnSessionRepo) ListUnprocessed(ctx context.Context, limit int) ([]model.LearnSession, error) {
	var sessions []model.LearnSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND processed = ?", model.SessionStatusFinished, false).
		Order("end_time ASC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

func (r *learnSessionRepo) MarkProcessed(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.LearnSession{}).
		Where("session_id = ?", id).
		Update("processed", true).Error
}
