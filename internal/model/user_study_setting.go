package model

// UserStudySetting 用户学时设置表 — 对应 user_study_settings（与 users 1:1）
// 未配置的用户使用 system_config.default_daily_limit_seconds
type UserStudySetting struct {
	UserID            string `gorm:"type:uuid;primaryKey"       json:"user_id"`
	DailyLimitSeconds int64  `gorm:"not null;default:28800"     json:"daily_limit_seconds"`
	BaseModel
}

// TableName 指定表名
func (UserStudySetting) TableName() string { return "user_study_settings" }
