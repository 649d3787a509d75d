package service

import (
	"studytime/backend/internal/model"
)

// QualityAssessor 学习质量评估器
// 基于三项比率产出 0-10 综合评分，并判定是否进入人工复核
type QualityAssessor struct {
	processor *BehaviorProcessor
}

// NewQualityAssessor 创建 QualityAssessor 实例
func NewQualityAssessor(processor *BehaviorProcessor) *QualityAssessor {
	return &QualityAssessor{processor: processor}
}

// CalculateQualityScore 综合评分
// 基准 5.0，专注/交互/连续性按各自基线加减权，截断到 [0,10]
func (a *QualityAssessor) CalculateQualityScore(events []model.BehaviorEvent) float64 {
	focus := a.processor.CalculateFocusRatio(events)
	interaction := a.processor.CalculateInteractionRatio(events)
	continuity := a.processor.CalculateContinuityRatio(events)

	score := 5.0 +
		(focus-0.5)*4 +
		(interaction-0.3)*2 +
		(continuity-0.5)*3
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score
}

// CalculateQualityScores 写入记录的综合评分与三项分项分
func (a *QualityAssessor) CalculateQualityScores(record *model.EffectiveStudyRecord, events []model.BehaviorEvent) {
	record.QualityScore = a.CalculateQualityScore(events)
	record.FocusScore = a.processor.CalculateFocusRatio(events)
	record.InteractionScore = a.processor.CalculateInteractionRatio(events)
	record.ContinuityScore = a.processor.CalculateContinuityRatio(events)
}

// NeedsQualityReview 是否需要人工复核
// 综合评分低于 qualityThreshold 或专注分低于 focusThreshold 时触发
func (a *QualityAssessor) NeedsQualityReview(record *model.EffectiveStudyRecord, qualityThreshold, focusThreshold float64) bool {
	return record.QualityScore < qualityThreshold || record.FocusScore < focusThreshold
}
