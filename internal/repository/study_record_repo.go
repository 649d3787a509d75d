package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"studytime/backend/internal/model"
	pkgerrors "studytime/backend/pkg/errors"
)

// StudyRecordFilter 学时记录列表查询条件
type StudyRecordFilter struct {
	UserID    string
	Status    string
	DateFrom  *time.Time
	DateTo    *time.Time
	Offset    int
	Limit     int
}

// StudyRecordRepository 有效学时记录数据访问接口
type StudyRecordRepository interface {
	Create(ctx context.Context, record *model.EffectiveStudyRecord) error
	GetByID(ctx context.Context, id string) (*model.EffectiveStudyRecord, error)
	GetBySessionID(ctx context.Context, sessionID string) (*model.EffectiveStudyRecord, error)
	Update(ctx context.Context, record *model.EffectiveStudyRecord) error
	List(ctx context.Context, filter *StudyRecordFilter) ([]model.EffectiveStudyRecord, int64, error)
	ListByUserAndDate(ctx context.Context, userID string, date time.Time) ([]model.EffectiveStudyRecord, error)
	// SumDailyEffective 汇总 (userID, date) 当日计入上限的有效学时（秒）
	// excludeRecordID 非空时排除该记录自身的历史贡献（重算场景）
	SumDailyEffective(ctx context.Context, userID string, date time.Time, excludeRecordID string) (float64, error)
}

type studyRecordRepo struct {
	db *gorm.DB
}

// NewStudyRecordRepo 创建 StudyRecordRepository 实例
func NewStudyRecordRepo(db *gorm.DB) StudyRecordRepository {
	return &studyRecordRepo{db: db}
}

func (r *studyRecordRepo) Create(ctx context.Context, record *model.EffectiveStudyRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *studyRecordRepo) GetByID(ctx context.Context, id string) (*model.EffectiveStudyRecord, error) {
	var record model.EffectiveStudyRecord
	err := r.db.WithContext(ctx).
		Where("record_id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *studyRecordRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.EffectiveStudyRecord, error) {
	var record model.EffectiveStudyRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *studyRecordRepo) Update(ctx context.Context, record *model.EffectiveStudyRecord) error {
	oldVersion := record.Version
	result := r.db.WithContext(ctx).
		Model(record).
		Where("record_id = ? AND version = ?", record.RecordID, oldVersion).
		Updates(map[string]interface{}{
			"effective_duration":     record.EffectiveDuration,
			"invalid_duration":       record.InvalidDuration,
			"status":                 record.Status,
			"invalid_reason":         record.InvalidReason,
			"description":            record.Description,
			"quality_score":          record.QualityScore,
			"focus_score":            record.FocusScore,
			"interaction_score":      record.InteractionScore,
			"continuity_score":       record.ContinuityScore,
			"evidence_data":          record.EvidenceData,
			"review_comment":         record.ReviewComment,
			"reviewed_by":            record.ReviewedBy,
			"review_time":            record.ReviewTime,
			"include_in_daily_total": record.IncludeInDailyTotal,
			"student_notified":       record.StudentNotified,
			"updated_by":             record.UpdatedBy,
			"version":                oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	record.Version = oldVersion + 1
	return nil
}

func (r *studyRecordRepo) List(ctx context.Context, filter *StudyRecordFilter) ([]model.EffectiveStudyRecord, int64, error) {
	var records []model.EffectiveStudyRecord
	var total int64

	db := r.db.WithContext(ctx).Model(&model.EffectiveStudyRecord{})
	if filter.UserID != "" {
		db = db.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.DateFrom != nil {
		db = db.Where("study_date >= ?", filter.DateFrom.Format("2006-01-02"))
	}
	if filter.DateTo != nil {
		db = db.Where("study_date <= ?", filter.DateTo.Format("2006-01-02"))
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(filter.Offset).Limit(filter.Limit).
		Order("created_at DESC").
		Find(&records).Error
	return records, total, err
}

func (r *studyRecordRepo) ListByUserAndDate(ctx context.Context, userID string, date time.Time) ([]model.EffectiveStudyRecord, error) {
	var records []model.EffectiveStudyRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND study_date = ?", userID, date.Format("2006-01-02")).
		Order("start_time ASC").
		Find(&records).Error
	return records, err
}

func (r *studyRecordRepo) SumDailyEffective(ctx context.Context, userID string, date time.Time, excludeRecordID string) (float64, error) {
	var total float64
	db := r.db.WithContext(ctx).
		Model(&model.EffectiveStudyRecord{}).
		Where("user_id = ? AND study_date = ? AND include_in_daily_total = ?", userID, date.Format("2006-01-02"), true)
	if excludeRecordID != "" {
		db = db.Where("record_id != ?", excludeRecordID)
	}
	err := db.Select("COALESCE(SUM(effective_duration), 0)").Scan(&total).Error
	return total, err
}
