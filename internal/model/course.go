package model

import "time"

// Course 课程表 — 对应 courses
type Course struct {
	CourseID  string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	Title     string    `gorm:"type:varchar(200);not null"                     json:"title"`
	Category  *string   `gorm:"type:varchar(50)"                               json:"category,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// Lesson 课时表 — 对应 lessons
type Lesson struct {
	LessonID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"lesson_id"`
	CourseID        string    `gorm:"type:uuid;not null"                             json:"course_id"`
	Title           string    `gorm:"type:varchar(200);not null"                     json:"title"`
	DurationSeconds float64   `gorm:"not null;default:0"                             json:"duration_seconds"`
	RequiresTest    bool      `gorm:"not null;default:false"                         json:"requires_test"` // 课后测验为学时认定前置条件
	SortOrder       int       `gorm:"not null;default:0"                             json:"sort_order"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`

	// 关联
	Course *Course `gorm:"foreignKey:CourseID;references:CourseID" json:"course,omitempty"`
}

// TableName 指定表名
func (Lesson) TableName() string { return "lessons" }
