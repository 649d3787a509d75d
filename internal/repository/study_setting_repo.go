package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studytime/backend/internal/model"
)

// UserStudySettingRepository 用户学时设置数据访问接口
type UserStudySettingRepository interface {
	GetByUser(ctx context.Context, userID string) (*model.UserStudySetting, error)
	Upsert(ctx context.Context, setting *model.UserStudySetting) error
}

type userStudySettingRepo struct {
	db *gorm.DB
}

// NewUserStudySettingRepo 创建 UserStudySettingRepository 实例
func NewUserStudySettingRepo(db *gorm.DB) UserStudySettingRepository {
	return &userStudySettingRepo{db: db}
}

func (r *userStudySettingRepo) GetByUser(ctx context.Context, userID string) (*model.UserStudySetting, error) {
	var setting model.UserStudySetting
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *userStudySettingRepo) Upsert(ctx context.Context, setting *model.UserStudySetting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"daily_limit_seconds", "updated_at"}),
		}).
		Create(setting).Error
}
