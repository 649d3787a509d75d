package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"studytime/backend/config"
	"studytime/backend/internal/model"
	"studytime/backend/internal/repository"
)

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret-0123456789",
			AccessTokenTTL: 15 * time.Minute,
		},
		Study: config.StudyConfig{
			ConfigCacheTTL: time.Minute,
			BatchMaxSize:   100,
		},
	}
}

type testCalcRepos struct {
	studyRecord *mockStudyRecordRepo
	setting     *mockUserStudySettingRepo
	sysConfig   *mockSystemConfigRepo
}

func setupTestCalculator() (*EffectiveTimeCalculator, *testCalcRepos) {
	repos := &testCalcRepos{
		studyRecord: newMockStudyRecordRepo(),
		setting:     newMockUserStudySettingRepo(),
		sysConfig:   newMockSystemConfigRepo(),
	}
	repoAgg := &repository.Repository{
		StudyRecord:      repos.studyRecord,
		UserStudySetting: repos.setting,
		SystemConfig:     repos.sysConfig,
	}
	configSvc := NewStudyConfigService(testConfig(), repoAgg, nil, zap.NewNop())
	calc := NewEffectiveTimeCalculator(NewBehaviorProcessor(), repoAgg, configSvc, zap.NewNop())
	return calc, repos
}

func testDate() time.Time {
	return time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
}

// 全比率为 1 的理想事件：单次点击覆盖全程
func perfectEvents(totalDuration float64) []model.BehaviorEvent {
	return []model.BehaviorEvent{ev(model.ActionClick, 0, totalDuration)}
}

func TestCalculateEffectiveTime_FullRatios(t *testing.T) {
	calc, _ := setupTestCalculator()
	record := &model.EffectiveStudyRecord{TotalDuration: 3600}

	// 3600 × 0.8 × 1 × 1 × 1 = 2880
	got := calc.CalculateEffectiveTime(record, perfectEvents(3600), NewFlatDiscountFilter(0.8))
	if !almostEqual(got, 2880) {
		t.Errorf("期望 2880，实际=%v", got)
	}
}

func TestCalculateEffectiveTime_EmptyEvents(t *testing.T) {
	calc, _ := setupTestCalculator()
	record := &model.EffectiveStudyRecord{TotalDuration: 3600}

	// 空事件三比率均为 0 → 有效时长 0
	got := calc.CalculateEffectiveTime(record, nil, NewFlatDiscountFilter(0.8))
	if got != 0 {
		t.Errorf("期望 0，实际=%v", got)
	}
}

func TestCalculateEffectiveTime_ClampToTotal(t *testing.T) {
	calc, _ := setupTestCalculator()
	record := &model.EffectiveStudyRecord{TotalDuration: 100}

	// 折扣率 1.0 时结果不超过总时长
	got := calc.CalculateEffectiveTime(record, perfectEvents(100), NewFlatDiscountFilter(1.0))
	if got > record.TotalDuration {
		t.Errorf("有效时长 %v 超过总时长 %v", got, record.TotalDuration)
	}
}

func TestCheckDailyLimit_WithinLimit(t *testing.T) {
	calc, _ := setupTestCalculator()
	record := &model.EffectiveStudyRecord{
		UserID:            "user-1",
		StudyDate:         testDate(),
		TotalDuration:     3600,
		EffectiveDuration: 2880,
		Status:            model.StatusPending,
	}

	result, err := calc.CheckDailyLimit(context.Background(), record, "")
	if err != nil {
		t.Fatalf("检查出错: %v", err)
	}
	if !result.Valid {
		t.Errorf("未超限期望有效: %v", result.Description)
	}
	// 未超限不改写记录
	if record.EffectiveDuration != 2880 || record.Status != model.StatusPending {
		t.Errorf("未超限不应改写记录: effective=%v status=%v", record.EffectiveDuration, record.Status)
	}
}

func TestCheckDailyLimit_Partial(t *testing.T) {
	calc, repos := setupTestCalculator()

	// 当日已认定 7.5h，上限 8h，新会话有效 1h → PARTIAL 0.5h
	existing := &model.EffectiveStudyRecord{
		UserID:              "user-1",
		SessionID:           "sess-prev",
		StudyDate:           testDate(),
		TotalDuration:       27000,
		EffectiveDuration:   27000,
		Status:              model.StatusValid,
		IncludeInDailyTotal: true,
	}
	repos.studyRecord.Create(context.Background(), existing)

	record := &model.EffectiveStudyRecord{
		UserID:            "user-1",
		StudyDate:         testDate(),
		TotalDuration:     3600,
		EffectiveDuration: 3600,
	}
	result, err := calc.CheckDailyLimit(context.Background(), record, "")
	if err != nil {
		t.Fatalf("检查出错: %v", err)
	}
	if !result.Valid {
		t.Error("部分截断对调用方应视为成功")
	}
	if record.Status != model.StatusPartial {
		t.Errorf("期望状态 partial，实际=%v", record.Status)
	}
	if !almostEqual(record.EffectiveDuration, 1800) {
		t.Errorf("期望有效时长 1800，实际=%v", record.EffectiveDuration)
	}
	if !almostEqual(record.EffectiveDuration+record.InvalidDuration, record.TotalDuration) {
		t.Errorf("不变式破坏: %v + %v != %v", record.EffectiveDuration, record.InvalidDuration, record.TotalDuration)
	}
	if record.InvalidReason == nil || *record.InvalidReason != model.ReasonDailyLimitExceeded {
		t.Errorf("期望原因 daily_limit_exceeded，实际=%v", record.InvalidReason)
	}
}

func TestCheckDailyLimit_ExactBoundary(t *testing.T) {
	calc, repos := setupTestCalculator()

	// 当日恰好 8h 满额 → 新会话整体无效
	existing := &model.EffectiveStudyRecord{
		UserID:              "user-1",
		SessionID:           "sess-prev",
		StudyDate:           testDate(),
		TotalDuration:       28800,
		EffectiveDuration:   28800,
		Status:              model.StatusValid,
		IncludeInDailyTotal: true,
	}
	repos.studyRecord.Create(context.Background(), existing)

	record := &model.EffectiveStudyRecord{
		UserID:            "user-1",
		StudyDate:         testDate(),
		TotalDuration:     3600,
		EffectiveDuration: 2880,
	}
	result, err := calc.CheckDailyLimit(context.Background(), record, "")
	if err != nil {
		t.Fatalf("检查出错: %v", err)
	}
	if result.Valid {
		t.Error("满额后期望无效")
	}
	if record.Status != model.StatusInvalid {
		t.Errorf("期望状态 invalid，实际=%v", record.Status)
	}
	if record.EffectiveDuration != 0 {
		t.Errorf("期望有效时长 0，实际=%v", record.EffectiveDuration)
	}
	if record.IncludeInDailyTotal {
		t.Error("无效记录不应计入日合计")
	}
	if !almostEqual(record.InvalidDuration, record.TotalDuration) {
		t.Errorf("期望无效时长 %v，实际=%v", record.TotalDuration, record.InvalidDuration)
	}
}

func TestCheckDailyLimit_UserCustomLimit(t *testing.T) {
	calc, repos := setupTestCalculator()

	// 用户个性化上限 1h，覆盖系统默认 8h
	repos.setting.settings["user-1"] = &model.UserStudySetting{UserID: "user-1", DailyLimitSeconds: 3600}

	record := &model.EffectiveStudyRecord{
		UserID:            "user-1",
		StudyDate:         testDate(),
		TotalDuration:     7200,
		EffectiveDuration: 5000,
	}
	result, err := calc.CheckDailyLimit(context.Background(), record, "")
	if err != nil {
		t.Fatalf("检查出错: %v", err)
	}
	if !result.Valid {
		t.Error("部分截断应视为成功")
	}
	if !almostEqual(record.EffectiveDuration, 3600) {
		t.Errorf("期望截断到 3600，实际=%v", record.EffectiveDuration)
	}
	if record.Status != model.StatusPartial {
		t.Errorf("期望状态 partial，实际=%v", record.Status)
	}
}

func TestCheckDailyLimit_ExcludeSelf(t *testing.T) {
	calc, repos := setupTestCalculator()

	// 重算场景：排除自身后日合计为 0，不应被自身历史贡献截断
	self := &model.EffectiveStudyRecord{
		UserID:              "user-1",
		SessionID:           "sess-1",
		StudyDate:           testDate(),
		TotalDuration:       28800,
		EffectiveDuration:   28800,
		Status:              model.StatusPartial,
		IncludeInDailyTotal: true,
	}
	repos.studyRecord.Create(context.Background(), self)

	record := &model.EffectiveStudyRecord{
		RecordID:          self.RecordID,
		UserID:            "user-1",
		StudyDate:         testDate(),
		TotalDuration:     28800,
		EffectiveDuration: 20000,
	}
	result, err := calc.CheckDailyLimit(context.Background(), record, self.RecordID)
	if err != nil {
		t.Fatalf("检查出错: %v", err)
	}
	if !result.Valid || record.EffectiveDuration != 20000 {
		t.Errorf("排除自身后不应截断: valid=%v effective=%v", result.Valid, record.EffectiveDuration)
	}
}
