package repository

import (
	"context"

	"gorm.io/gorm"

	"studytime/backend/internal/model"
)

// LessonRepository 课时数据访问接口
type LessonRepository interface {
	GetByID(ctx context.Context, id string) (*model.Lesson, error)
	ListByCourse(ctx context.Context, courseID string) ([]model.Lesson, error)
}

type lessonRepo struct {
	db *gorm.DB
}

// NewLessonRepo 创建 LessonRepository 实例
func NewLessonRepo(db *gorm.DB) LessonRepository {
	return &lessonRepo{db: db}
}

func (r *lessonRepo) GetByID(ctx context.Context, id string) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.db.WithContext(ctx).
		Where("lesson_id = ?", id).
		First(&lesson).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *lessonRepo) ListByCourse(ctx context.Context, courseID string) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("sort_order ASC").
		Find(&lessons).Error
	return lessons, err
}
