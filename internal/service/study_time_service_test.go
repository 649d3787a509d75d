package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"studytime/backend/internal/dto"
	"studytime/backend/internal/model"
	"studytime/backend/internal/repository"
)

// ── 测试辅助 ──

type testStudyRepos struct {
	user        *mockUserRepo
	lesson      *mockLessonRepo
	session     *mockLearnSessionRepo
	studyRecord *mockStudyRecordRepo
	setting     *mockUserStudySettingRepo
	sysConfig   *mockSystemConfigRepo
	notify      *mockNotificationRepo
}

func newTestStudyRepos() *testStudyRepos {
	return &testStudyRepos{
		user:        newMockUserRepo(),
		lesson:      newMockLessonRepo(),
		session:     newMockLearnSessionRepo(),
		studyRecord: newMockStudyRecordRepo(),
		setting:     newMockUserStudySettingRepo(),
		sysConfig:   newMockSystemConfigRepo(),
		notify:      newMockNotificationRepo(),
	}
}

func (r *testStudyRepos) toRepository() *repository.Repository {
	return &repository.Repository{
		User:             r.user,
		Lesson:           r.lesson,
		LearnSession:     r.session,
		StudyRecord:      r.studyRecord,
		UserStudySetting: r.setting,
		SystemConfig:     r.sysConfig,
		Notification:     r.notify,
	}
}

func setupTestStudyService() (StudyTimeService, *testStudyRepos) {
	repos := newTestStudyRepos()
	repoAgg := repos.toRepository()
	logger := zap.NewNop()
	cfg := testConfig()

	processor := NewBehaviorProcessor()
	configSvc := NewStudyConfigService(cfg, repoAgg, nil, logger)
	notifySvc := NewNotificationService(repoAgg, logger)
	validator := NewStudyTimeValidator(processor, repoAgg, logger)
	calculator := NewEffectiveTimeCalculator(processor, repoAgg, configSvc, logger)
	assessor := NewQualityAssessor(processor)

	svc := NewStudyTimeService(cfg, repoAgg, processor, validator, calculator, assessor, configSvc, notifySvc, logger)
	return svc, repos
}

// seedSession 种子会话：已结束、未处理
func seedSession(repos *testStudyRepos, sessionID, userID string, totalDuration float64, events []model.BehaviorEvent) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	end := start.Add(time.Duration(totalDuration) * time.Second)
	repos.session.sessions[sessionID] = &model.LearnSession{
		SessionID:      sessionID,
		UserID:         userID,
		CourseID:       "course-1",
		LessonID:       "lesson-1",
		Status:         model.SessionStatusFinished,
		StartTime:      start,
		EndTime:        &end,
		TotalDuration:  totalDuration,
		BehaviorEvents: events,
	}
	if _, ok := repos.lesson.lessons["lesson-1"]; !ok {
		repos.lesson.lessons["lesson-1"] = &model.Lesson{
			LessonID: "lesson-1", CourseID: "course-1", Title: "安全生产基础", RequiresTest: false,
		}
	}
}

// ════════════════════════════════════════════════════════════
// ProcessSession
// ════════════════════════════════════════════════════════════

func TestProcessSession_Valid(t *testing.T) {
	svc, repos := setupTestStudyService()
	seedSession(repos, "sess-1", "user-1", 3600, perfectEvents(3600))

	record, err := svc.ProcessSession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("认定失败: %v", err)
	}

	// 3600 × 0.8 × 1 × 1 × 1 = 2880
	if !almostEqual(record.EffectiveDuration, 2880) {
		t.Errorf("期望有效时长 2880，实际=%v", record.EffectiveDuration)
	}
	if record.Status != string(model.StatusValid) {
		t.Errorf("期望状态 valid，实际=%v", record.Status)
	}
	if !almostEqual(record.EffectiveDuration+record.InvalidDuration, record.TotalDuration) {
		t.Errorf("不变式破坏: %v + %v != %v", record.EffectiveDuration, record.InvalidDuration, record.TotalDuration)
	}
	if record.InvalidReason != nil {
		t.Errorf("有效记录不应有无效原因: %v", *record.InvalidReason)
	}

	// 会话已标记处理
	if !repos.session.sessions["sess-1"].Processed {
		t.Error("会话应标记为已处理")
	}
	// 通知已发送且标记已通知
	stored, _ := repos.studyRecord.GetByID(context.Background(), record.RecordID)
	if !stored.StudentNotified {
		t.Error("期望已通知标记为 true")
	}
	if len(repos.notify.notifications) != 1 {
		t.Errorf("期望生成 1 条通知，实际=%d", len(repos.notify.notifications))
	}
}

func TestProcessSession_InvalidByBrowsing(t *testing.T) {
	svc, repos := setupTestStudyService()
	events := []model.BehaviorEvent{
		ev(model.ActionClick, 0, 1800),
		ev(model.ActionBrowseInfo, 100, 1800),
	}
	seedSession(repos, "sess-1", "user-1", 3600, events)

	record, err := svc.ProcessSession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("认定失败: %v", err)
	}
	if record.Status != string(model.StatusInvalid) {
		t.Errorf("期望状态 invalid，实际=%v", record.Status)
	}
	if record.EffectiveDuration != 0 {
		t.Errorf("期望有效时长 0，实际=%v", record.EffectiveDuration)
	}
	if record.InvalidReason == nil || *record.InvalidReason != string(model.ReasonBrowsingWebInfo) {
		t.Errorf("期望原因 browsing_web_info，实际=%v", record.InvalidReason)
	}

	// 无效记录不计入日合计
	stored, _ := repos.studyRecord.GetByID(context.Background(), record.RecordID)
	if stored.IncludeInDailyTotal {
		t.Error("无效记录不应计入日合计")
	}
}

func TestProcessSession_QualityReviewGate(t *testing.T) {
	svc, repos := setupTestStudyService()

	// 专注 0.7、交互 0、连续性 0.7 → 综合分 5.8，低于 6.0 转人工复核
	// 断点间隔 150s（>120s 记断点，<300s 不触发交互超时）
	timestamps := []int64{0, 60, 120, 270, 330, 480, 540, 690, 750, 810}
	events := []model.BehaviorEvent{ev("heartbeat", timestamps[0], 70)}
	for _, ts := range timestamps[1:9] {
		events = append(events, ev("heartbeat", ts, 0))
	}
	events = append(events, ev(model.ActionWindowBlur, timestamps[9], 30))

	seedSession(repos, "sess-1", "user-1", 3600, events)

	record, err := svc.ProcessSession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("认定失败: %v", err)
	}
	if record.Status != string(model.StatusPending) {
		t.Errorf("低质量会话期望状态 pending，实际=%v（综合分=%v 专注分=%v）",
			record.Status, record.QualityScore, record.FocusScore)
	}
}

func TestProcessSession_DailyLimitPartial(t *testing.T) {
	svc, repos := setupTestStudyService()

	// 当日已认定 7.5h
	repos.studyRecord.Create(context.Background(), &model.EffectiveStudyRecord{
		UserID:              "user-1",
		SessionID:           "sess-prev",
		StudyDate:           time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local),
		TotalDuration:       27000,
		EffectiveDuration:   27000,
		Status:              model.StatusValid,
		IncludeInDailyTotal: true,
	})

	// 新会话 4500s × 0.8 = 3600s 有效 → 超限截断到 1800s
	seedSession(repos, "sess-1", "user-1", 4500, perfectEvents(4500))

	record, err := svc.ProcessSession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("认定失败: %v", err)
	}
	if record.Status != string(model.StatusPartial) {
		t.Errorf("期望状态 partial，实际=%v", record.Status)
	}
	if !almostEqual(record.EffectiveDuration, 1800) {
		t.Errorf("期望有效时长 1800，实际=%v", record.EffectiveDuration)
	}
	if !almostEqual(record.EffectiveDuration+record.InvalidDuration, record.TotalDuration) {
		t.Errorf("不变式破坏: %v + %v != %v", record.EffectiveDuration, record.InvalidDuration, record.TotalDuration)
	}
}

func TestProcessSession_Guards(t *testing.T) {
	svc, repos := setupTestStudyService()

	// 会话不存在
	if _, err := svc.ProcessSession(context.Background(), "sess-none"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("期望 ErrSessionNotFound，实际=%v", err)
	}

	// 会话未结束
	seedSession(repos, "sess-active", "user-1", 3600, perfectEvents(3600))
	repos.session.sessions["sess-active"].Status = model.SessionStatusActive
	if _, err := svc.ProcessSession(context.Background(), "sess-active"); !errors.Is(err, ErrSessionNotFinished) {
		t.Errorf("期望 ErrSessionNotFinished，实际=%v", err)
	}

	// 重复认定
	seedSession(repos, "sess-1", "user-1", 3600, perfectEvents(3600))
	if _, err := svc.ProcessSession(context.Background(), "sess-1"); err != nil {
		t.Fatalf("首次认定失败: %v", err)
	}
	if _, err := svc.ProcessSession(context.Background(), "sess-1"); !errors.Is(err, ErrSessionAlreadyProcessed) {
		t.Errorf("期望 ErrSessionAlreadyProcessed，实际=%v", err)
	}
}

// ════════════════════════════════════════════════════════════
// 批量认定
// ════════════════════════════════════════════════════════════

func TestBatchProcess_IsolatesFailures(t *testing.T) {
	svc, repos := setupTestStudyService()
	seedSession(repos, "sess-1", "user-1", 3600, perfectEvents(3600))
	seedSession(repos, "sess-3", "user-2", 3600, perfectEvents(3600))

	result, err := svc.BatchProcess(context.Background(), []string{"sess-1", "sess-missing", "sess-3"})
	if err != nil {
		t.Fatalf("批量认定失败: %v", err)
	}
	if result.Succeeded != 2 || result.Failed != 1 {
		t.Errorf("期望成功 2 失败 1，实际成功=%d 失败=%d", result.Succeeded, result.Failed)
	}
	// 失败项带错误信息
	for _, item := range result.Results {
		if item.SessionID == "sess-missing" && item.Error == "" {
			t.Error("失败项应带错误信息")
		}
	}
}

func TestBatchProcess_ContextCancellation(t *testing.T) {
	svc, repos := setupTestStudyService()
	seedSession(repos, "sess-1", "user-1", 3600, perfectEvents(3600))
	seedSession(repos, "sess-2", "user-1", 3600, perfectEvents(3600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.BatchProcess(ctx, []string{"sess-1", "sess-2"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("期望 context.Canceled，实际=%v", err)
	}
}

func TestBatchProcess_TooLarge(t *testing.T) {
	svc, _ := setupTestStudyService()

	ids := make([]string, 101)
	for i := range ids {
		ids[i] = "sess"
	}
	if _, err := svc.BatchProcess(context.Background(), ids); !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("期望 ErrBatchTooLarge，实际=%v", err)
	}
}

func TestProcessBacklog(t *testing.T) {
	svc, repos := setupTestStudyService()
	seedSession(repos, "sess-1", "user-1", 3600, perfectEvents(3600))
	seedSession(repos, "sess-2", "user-2", 3600, perfectEvents(3600))
	// 已处理的不在积压范围
	seedSession(repos, "sess-3", "user-3", 3600, perfectEvents(3600))
	repos.session.sessions["sess-3"].Processed = true

	result, err := svc.ProcessBacklog(context.Background())
	if err != nil {
		t.Fatalf("积压处理失败: %v", err)
	}
	if result.Total != 2 || result.Succeeded != 2 {
		t.Errorf("期望处理 2 成功 2，实际总数=%d 成功=%d", result.Total, result.Succeeded)
	}
}

// ════════════════════════════════════════════════════════════
// 重算
// ════════════════════════════════════════════════════════════

func TestRecalculateRecord_Idempotent(t *testing.T) {
	svc, repos := setupTestStudyService()

	// 构造会进入 pending 的低专注会话
	events := []model.BehaviorEvent{
		ev(model.ActionClick, 0, 50),
		ev(model.ActionWindowBlur, 60, 50),
	}
	seedSession(repos, "sess-1", "user-1", 3600, events)

	first, err := svc.ProcessSession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("认定失败: %v", err)
	}
	if first.Status != string(model.StatusPending) {
		t.Fatalf("前置条件不满足：期望 pending，实际=%v", first.Status)
	}

	second, err := svc.RecalculateRecord(context.Background(), first.RecordID)
	if err != nil {
		t.Fatalf("首次重算失败: %v", err)
	}
	third, err := svc.RecalculateRecord(context.Background(), first.RecordID)
	if err != nil {
		t.Fatalf("二次重算失败: %v", err)
	}

	// 幂等：行为数据与日合计不变时结论一致
	if second.Status != third.Status || !almostEqual(second.EffectiveDuration, third.EffectiveDuration) {
		t.Errorf("重算不幂等: 第一次(%v, %v) 第二次(%v, %v)",
			second.Status, second.EffectiveDuration, third.Status, third.EffectiveDuration)
	}
	if !almostEqual(third.EffectiveDuration+third.InvalidDuration, third.TotalDuration) {
		t.Errorf("不变式破坏: %v + %v != %v", third.EffectiveDuration, third.InvalidDuration, third.TotalDuration)
	}
}

func TestRecalculateRecord_Guards(t *testing.T) {
	svc, repos := setupTestStudyService()
	seedSession(repos, "sess-1", "user-1", 3600, perfectEvents(3600))

	// valid 终态不可重算
	record, err := svc.ProcessSession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("认定失败: %v", err)
	}
	if record.Status != string(model.StatusValid) {
		t.Fatalf("前置条件不满足：期望 valid，实际=%v", record.Status)
	}
	if _, err := svc.RecalculateRecord(context.Background(), record.RecordID); !errors.Is(err, ErrRecordNotRecalculable) {
		t.Errorf("期望 ErrRecordNotRecalculable，实际=%v", err)
	}

	// 不存在的记录
	if _, err := svc.RecalculateRecord(context.Background(), "rec-none"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("期望 ErrRecordNotFound，实际=%v", err)
	}
}

func TestRecalculateRecord_RefusesReviewed(t *testing.T) {
	svc, repos := setupTestStudyService()

	// 直接种一条已复核的 partial 记录
	now := time.Now()
	reviewer := "admin-1"
	record := &model.EffectiveStudyRecord{
		UserID:              "user-1",
		SessionID:           "sess-1",
		StudyDate:           time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local),
		TotalDuration:       3600,
		EffectiveDuration:   1800,
		InvalidDuration:     1800,
		Status:              model.StatusPartial,
		ReviewedBy:          &reviewer,
		ReviewTime:          &now,
		IncludeInDailyTotal: true,
	}
	repos.studyRecord.Create(context.Background(), record)

	if _, err := svc.RecalculateRecord(context.Background(), record.RecordID); !errors.Is(err, ErrRecordAlreadyReviewed) {
		t.Errorf("期望 ErrRecordAlreadyReviewed，实际=%v", err)
	}
}

// ════════════════════════════════════════════════════════════
// 人工复核
// ════════════════════════════════════════════════════════════

func TestMarkAsReviewed(t *testing.T) {
	svc, repos := setupTestStudyService()

	record := &model.EffectiveStudyRecord{
		UserID:              "user-1",
		SessionID:           "sess-1",
		StudyDate:           time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local),
		TotalDuration:       3600,
		EffectiveDuration:   2000,
		InvalidDuration:     1600,
		Status:              model.StatusPending,
		IncludeInDailyTotal: true,
	}
	repos.studyRecord.Create(context.Background(), record)

	reviewed, err := svc.MarkAsReviewed(context.Background(), record.RecordID,
		&dto.ReviewRequest{Status: "valid", Comment: "人工确认无异常"}, "reviewer-1")
	if err != nil {
		t.Fatalf("复核失败: %v", err)
	}
	if reviewed.Status != string(model.StatusValid) {
		t.Errorf("期望状态 valid，实际=%v", reviewed.Status)
	}
	if reviewed.ReviewedBy == nil || *reviewed.ReviewedBy != "reviewer-1" {
		t.Error("复核人未记录")
	}
	if reviewed.ReviewTime == nil {
		t.Error("复核时间未记录")
	}
	// 有效终态保持机器认定的时长
	if !almostEqual(reviewed.EffectiveDuration, 2000) {
		t.Errorf("复核通过不应改写时长，实际=%v", reviewed.EffectiveDuration)
	}

	// 终态不可再次复核
	if _, err := svc.MarkAsReviewed(context.Background(), record.RecordID,
		&dto.ReviewRequest{Status: "invalid"}, "reviewer-1"); !errors.Is(err, ErrRecordTerminal) {
		t.Errorf("期望 ErrRecordTerminal，实际=%v", err)
	}
}

func TestMarkAsReviewed_Invalid(t *testing.T) {
	svc, repos := setupTestStudyService()

	record := &model.EffectiveStudyRecord{
		UserID:              "user-1",
		SessionID:           "sess-1",
		StudyDate:           time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local),
		TotalDuration:       3600,
		EffectiveDuration:   2000,
		InvalidDuration:     1600,
		Status:              model.StatusPending,
		IncludeInDailyTotal: true,
	}
	repos.studyRecord.Create(context.Background(), record)

	reviewed, err := svc.MarkAsReviewed(context.Background(), record.RecordID,
		&dto.ReviewRequest{Status: "invalid", Comment: "挂机嫌疑"}, "reviewer-1")
	if err != nil {
		t.Fatalf("复核失败: %v", err)
	}
	if reviewed.Status != string(model.StatusInvalid) {
		t.Errorf("期望状态 invalid，实际=%v", reviewed.Status)
	}
	if reviewed.EffectiveDuration != 0 {
		t.Errorf("复核无效应清零有效时长，实际=%v", reviewed.EffectiveDuration)
	}
	stored, _ := repos.studyRecord.GetByID(context.Background(), record.RecordID)
	if stored.IncludeInDailyTotal {
		t.Error("复核无效的记录不应计入日合计")
	}
}

// ════════════════════════════════════════════════════════════
// 日上限并发
// ════════════════════════════════════════════════════════════

func TestProcessSession_ConcurrentDailyLimit(t *testing.T) {
	svc, repos := setupTestStudyService()

	// 上限 1h；两个并发会话各产生 0.8h 有效时长，合计 1.6h > 上限
	repos.setting.settings["user-1"] = &model.UserStudySetting{UserID: "user-1", DailyLimitSeconds: 3600}
	seedSession(repos, "sess-a", "user-1", 3600, perfectEvents(3600))
	seedSession(repos, "sess-b", "user-1", 3600, perfectEvents(3600))

	var wg sync.WaitGroup
	for _, id := range []string{"sess-a", "sess-b"} {
		wg.Add(1)
		go func(sessionID string) {
			defer wg.Done()
			if _, err := svc.ProcessSession(context.Background(), sessionID); err != nil {
				t.Errorf("认定失败: %v", err)
			}
		}(id)
	}
	wg.Wait()

	// 两条记录计入日合计的有效时长之和不得超过上限
	total, err := repos.studyRecord.SumDailyEffective(context.Background(), "user-1",
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local), "")
	if err != nil {
		t.Fatalf("汇总失败: %v", err)
	}
	if total > 3600+1e-9 {
		t.Errorf("并发认定超出日上限: 合计=%v 上限=3600", total)
	}
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func TestGetDailySummary(t *testing.T) {
	svc, repos := setupTestStudyService()
	seedSession(repos, "sess-1", "user-1", 3600, perfectEvents(3600))

	if _, err := svc.ProcessSession(context.Background(), "sess-1"); err != nil {
		t.Fatalf("认定失败: %v", err)
	}

	summary, err := svc.GetDailySummary(context.Background(), "user-1",
		time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("汇总失败: %v", err)
	}
	if !almostEqual(summary.EffectiveDuration, 2880) {
		t.Errorf("期望当日有效 2880，实际=%v", summary.EffectiveDuration)
	}
	if summary.DailyLimit != 28800 {
		t.Errorf("期望上限 28800，实际=%v", summary.DailyLimit)
	}
	if !almostEqual(summary.Remaining, 25920) {
		t.Errorf("期望剩余 25920，实际=%v", summary.Remaining)
	}
	if summary.RecordCount != 1 {
		t.Errorf("期望记录数 1，实际=%d", summary.RecordCount)
	}
}
