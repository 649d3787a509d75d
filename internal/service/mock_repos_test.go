package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"studytime/backend/internal/model"
	"studytime/backend/internal/repository"
	pkgerrors "studytime/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Email
	}
	m.users[user.UserID] = user
	return nil
}

// ── Mock LessonRepository ──

type mockLessonRepo struct {
	lessons map[string]*model.Lesson
}

func newMockLessonRepo() *mockLessonRepo {
	return &mockLessonRepo{lessons: make(map[string]*model.Lesson)}
}

func (m *mockLessonRepo) GetByID(_ context.Context, id string) (*model.Lesson, error) {
	if l, ok := m.lessons[id]; ok {
		return l, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLessonRepo) ListByCourse(_ context.Context, courseID string) ([]model.Lesson, error) {
	var result []model.Lesson
	for _, l := range m.lessons {
		if l.CourseID == courseID {
			result = append(result, *l)
		}
	}
	return result, nil
}

// ── Mock LearnSessionRepository ──

type mockLearnSessionRepo struct {
	sessions map[string]*model.LearnSession
}

func newMockLearnSessionRepo() *mockLearnSessionRepo {
	return &mockLearnSessionRepo{sessions: make(map[string]*model.LearnSession)}
}

func (m *mockLearnSessionRepo) GetByID(_ context.Context, id string) (*model.LearnSession, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLearnSessionRepo) ListUnprocessed(_ context.Context, limit int) ([]model.LearnSession, error) {
	var result []model.LearnSession
	for _, s := range m.sessions {
		if s.Status == model.SessionStatusFinished && !s.Processed {
			result = append(result, *s)
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (m *mockLearnSessionRepo) MarkProcessed(_ context.Context, id string) error {
	if s, ok := m.sessions[id]; ok {
		s.Processed = true
		return nil
	}
	return gorm.ErrRecordNotFound
}

// ── Mock StudyRecordRepository ──
// 并发安全：日上限竞争测试会从多个 goroutine 访问

type mockStudyRecordRepo struct {
	mu      sync.Mutex
	seq     int
	records map[string]*model.EffectiveStudyRecord
}

func newMockStudyRecordRepo() *mockStudyRecordRepo {
	return &mockStudyRecordRepo{records: make(map[string]*model.EffectiveStudyRecord)}
}

func (m *mockStudyRecordRepo) Create(_ context.Context, record *model.EffectiveStudyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record.RecordID == "" {
		m.seq++
		record.RecordID = fmt.Sprintf("rec-%d", m.seq)
	}
	if record.Version == 0 {
		record.Version = 1
	}
	cp := *record
	m.records[record.RecordID] = &cp
	return nil
}

func (m *mockStudyRecordRepo) GetByID(_ context.Context, id string) (*model.EffectiveStudyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudyRecordRepo) GetBySessionID(_ context.Context, sessionID string) (*model.EffectiveStudyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.SessionID == sessionID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudyRecordRepo) Update(_ context.Context, record *model.EffectiveStudyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.records[record.RecordID]
	if !ok || existing.Version != record.Version {
		return pkgerrors.ErrOptimisticLock
	}
	record.Version++
	cp := *record
	m.records[record.RecordID] = &cp
	return nil
}

func (m *mockStudyRecordRepo) List(_ context.Context, filter *repository.StudyRecordFilter) ([]model.EffectiveStudyRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.EffectiveStudyRecord
	for _, r := range m.records {
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && string(r.Status) != filter.Status {
			continue
		}
		result = append(result, *r)
	}
	return result, int64(len(result)), nil
}

func (m *mockStudyRecordRepo) ListByUserAndDate(_ context.Context, userID string, date time.Time) ([]model.EffectiveStudyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.EffectiveStudyRecord
	day := date.Format("2006-01-02")
	for _, r := range m.records {
		if r.UserID == userID && r.StudyDate.Format("2006-01-02") == day {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockStudyRecordRepo) SumDailyEffective(_ context.Context, userID string, date time.Time, excludeRecordID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total float64
	day := date.Format("2006-01-02")
	for _, r := range m.records {
		if r.UserID != userID || !r.IncludeInDailyTotal {
			continue
		}
		if r.StudyDate.Format("2006-01-02") != day {
			continue
		}
		if excludeRecordID != "" && r.RecordID == excludeRecordID {
			continue
		}
		total += r.EffectiveDuration
	}
	return total, nil
}

// ── Mock UserStudySettingRepository ──

type mockUserStudySettingRepo struct {
	settings map[string]*model.UserStudySetting
}

func newMockUserStudySettingRepo() *mockUserStudySettingRepo {
	return &mockUserStudySettingRepo{settings: make(map[string]*model.UserStudySetting)}
}

func (m *mockUserStudySettingRepo) GetByUser(_ context.Context, userID string) (*model.UserStudySetting, error) {
	if s, ok := m.settings[userID]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserStudySettingRepo) Upsert(_ context.Context, setting *model.UserStudySetting) error {
	m.settings[setting.UserID] = setting
	return nil
}

// ── Mock SystemConfigRepository ──

type mockSystemConfigRepo struct {
	cfg *model.SystemConfig
}

func newMockSystemConfigRepo() *mockSystemConfigRepo {
	return &mockSystemConfigRepo{
		cfg: &model.SystemConfig{
			Singleton:                 true,
			DefaultDailyLimitSeconds:  28800,
			InteractionTimeoutSeconds: 300,
			SegmentDiscountRate:       0.8,
			QualityReviewThreshold:    6.0,
			FocusReviewThreshold:      0.7,
		},
	}
}

func (m *mockSystemConfigRepo) Get(_ context.Context) (*model.SystemConfig, error) {
	if m.cfg == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.cfg
	return &cp, nil
}

func (m *mockSystemConfigRepo) Update(_ context.Context, cfg *model.SystemConfig) error {
	cp := *cfg
	cp.Singleton = true
	m.cfg = &cp
	return nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	mu            sync.Mutex
	seq           int
	notifications map[string]*model.Notification
	preferences   map[string]*model.NotificationPreference
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{
		notifications: make(map[string]*model.Notification),
		preferences:   make(map[string]*model.NotificationPreference),
	}
}

func (m *mockNotificationRepo) Create(_ context.Context, notification *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if notification.NotificationID == "" {
		m.seq++
		notification.NotificationID = fmt.Sprintf("ntf-%d", m.seq)
	}
	m.notifications[notification.NotificationID] = notification
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, _, _ int) ([]model.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		result = append(result, *n)
	}
	return result, int64(len(result)), nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id string, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notifications[id]; ok && n.UserID == userID {
		n.IsRead = true
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) GetPreference(_ context.Context, userID string) (*model.NotificationPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.preferences[userID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) SavePreference(_ context.Context, pref *model.NotificationPreference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preferences[pref.UserID] = pref
	return nil
}
