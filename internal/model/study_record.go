package model

import "time"

// StudyTimeStatus 学时记录状态
type StudyTimeStatus string

const (
	StatusValid   StudyTimeStatus = "valid"   // 全部认定为有效学时（终态）
	StatusInvalid StudyTimeStatus = "invalid" // 全部无效（终态）
	StatusPartial StudyTimeStatus = "partial" // 因日上限被截断，部分有效
	StatusPending StudyTimeStatus = "pending" // 质量存疑，待人工复核
)

// IsTerminal 是否为终态（终态记录除复核字段外不可变更）
func (s StudyTimeStatus) IsTerminal() bool {
	return s == StatusValid || s == StatusInvalid
}

// InvalidTimeReason 无效学时原因
type InvalidTimeReason string

const (
	ReasonBrowsingWebInfo     InvalidTimeReason = "browsing_web_info"            // 学习期间浏览资料/参加考试
	ReasonIdentityVerifyFail  InvalidTimeReason = "identity_verification_failed" // 身份验证失败
	ReasonInteractionTimeout  InvalidTimeReason = "interaction_timeout"          // 交互超时（疑似挂机）
	ReasonIncompleteCourseTest InvalidTimeReason = "incomplete_course_test"      // 课后测验未完成
	ReasonDailyLimitExceeded  InvalidTimeReason = "daily_limit_exceeded"         // 超出当日学时上限
)

// EffectiveStudyRecord 有效学时记录表 — 对应 effective_study_records
// 每个已结束学习会话生成且仅生成一条；由 StudyTimeService 独占创建与修改
type EffectiveStudyRecord struct {
	RecordID  string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"record_id"`
	UserID    string    `gorm:"type:uuid;not null"                             json:"user_id"`
	SessionID string    `gorm:"type:uuid;not null;uniqueIndex"                 json:"session_id"`
	CourseID  string    `gorm:"type:uuid;not null"                             json:"course_id"`
	LessonID  string    `gorm:"type:uuid;not null"                             json:"lesson_id"`
	StudyDate time.Time `gorm:"type:date;not null"                             json:"study_date"` // 会话起始时刻所在自然日

	// 时间事实（秒）；不变式: effective + invalid == total
	StartTime         time.Time `gorm:"not null" json:"start_time"`
	EndTime           time.Time `gorm:"not null" json:"end_time"`
	TotalDuration     float64   `gorm:"not null" json:"total_duration"`
	EffectiveDuration float64   `gorm:"not null;default:0" json:"effective_duration"`
	InvalidDuration   float64   `gorm:"not null;default:0" json:"invalid_duration"`

	// 认定结果
	Status        StudyTimeStatus    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	InvalidReason *InvalidTimeReason `gorm:"type:varchar(50)"                            json:"invalid_reason,omitempty"`
	Description   string             `gorm:"type:varchar(500);not null;default:''"       json:"description"`

	// 质量评分
	QualityScore     float64 `gorm:"not null;default:0" json:"quality_score"`     // 0-10
	FocusScore       float64 `gorm:"not null;default:0" json:"focus_score"`       // 0-1
	InteractionScore float64 `gorm:"not null;default:0" json:"interaction_score"` // 0-1
	ContinuityScore  float64 `gorm:"not null;default:0" json:"continuity_score"`  // 0-1

	// 审计与复核
	EvidenceData        EvidenceList      `gorm:"type:jsonb;not null;default:'[]'" json:"evidence_data"`
	BehaviorStats       BehaviorEventList `gorm:"type:jsonb;not null;default:'[]'" json:"behavior_stats"` // 原始事件留存，供重算
	ReviewComment       *string           `gorm:"type:varchar(500)" json:"review_comment,omitempty"`
	ReviewedBy          *string           `gorm:"type:uuid"         json:"reviewed_by,omitempty"`
	ReviewTime          *time.Time        `json:"review_time,omitempty"`
	IncludeInDailyTotal bool              `gorm:"not null;default:true"  json:"include_in_daily_total"`
	StudentNotified     bool              `gorm:"not null;default:false" json:"student_notified"`

	VersionedModel
}

// TableName 指定表名
func (EffectiveStudyRecord) TableName() string { return "effective_study_records" }

// [自证通过] internal/model/study_record.go
