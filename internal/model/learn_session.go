package model

import "time"

// LearnSession 学习会话表 — 对应 learn_sessions
// 会话的开始/暂停/结束由外部生命周期服务维护，本引擎只读取已结束会话并标记已处理
type LearnSession struct {
	SessionID      string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	UserID         string            `gorm:"type:uuid;not null"                             json:"user_id"`
	CourseID       string            `gorm:"type:uuid;not null"                             json:"course_id"`
	LessonID       string            `gorm:"type:uuid;not null"                             json:"lesson_id"`
	Status         string            `gorm:"type:varchar(20);not null;default:'active'"     json:"status"` // active | finished
	StartTime      time.Time         `gorm:"not null"                                       json:"start_time"`
	EndTime        *time.Time        `json:"end_time,omitempty"`
	TotalDuration  float64           `gorm:"not null;default:0"                             json:"total_duration"` // 上报观看总时长（秒）
	BehaviorEvents BehaviorEventList `gorm:"type:jsonb;not null;default:'[]'"               json:"behavior_events"`
	Processed      bool              `gorm:"not null;default:false"                         json:"processed"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (LearnSession) TableName() string { return "learn_sessions" }

const (
	SessionStatusActive   = "active"
	SessionStatusFinished = "finished"
)
