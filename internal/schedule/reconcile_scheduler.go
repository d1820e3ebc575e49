package schedule

// 对账调度器：每天组织时区 RECONCILE_ARCHIVE_AT 执行一轮完整对账（标记 + 归档），
// 另以 RECONCILE_SWEEP_MINUTES 为间隔扫描缺签退的行

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"FaceTrack/config"
	"FaceTrack/internal/service"
	"FaceTrack/pkg/logger"
	"FaceTrack/utils"
)

var (
	schedulerOnce sync.Once
	schedulerInst *ReconcileScheduler
)

type ReconcileScheduler struct {
	logger *zap.Logger
}

func GetScheduler() *ReconcileScheduler {
	schedulerOnce.Do(func() {
		schedulerInst = &ReconcileScheduler{
			logger: logger.Logger,
		}
	})
	return schedulerInst
}

// RunArchivalLoop 每天组织时区内的固定时刻执行一轮完整对账
// development 环境下改为每 1 分钟执行一次，方便本地调试
func (s *ReconcileScheduler) RunArchivalLoop(ctx context.Context) {
	svc := service.Reconcile()
	loc := utils.OrgLocation()

	if config.Cfg.IsDevelopment() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		s.logger.Info("Archival loop running in development mode with 1m interval")

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx, svc)
			}
		}
	}

	for {
		now := time.Now().In(loc)
		next, err := utils.ParseTimeOfDay(config.Cfg.ReconcileArchiveAt, now)
		if err != nil {
			s.logger.Error("Invalid RECONCILE_ARCHIVE_AT, falling back to 00:05",
				zap.String("value", config.Cfg.ReconcileArchiveAt),
				zap.Error(err),
			)
			next = time.Date(now.Year(), now.Month(), now.Day(), 0, 5, 0, 0, loc)
		}
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}

		delay := time.Until(next)
		s.logger.Info("Scheduled next archival run",
			zap.Time("now", now),
			zap.Time("next_run", next),
			zap.Duration("delay", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.runOnce(ctx, svc)
		}
	}
}

// RunSweepLoop 周期性标记缺签退的行，不等到每日归档才补状态
func (s *ReconcileScheduler) RunSweepLoop(ctx context.Context) {
	svc := service.Reconcile()

	interval := time.Duration(config.Cfg.ReconcileSweepMinutes) * time.Minute
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if config.Cfg.IsDevelopment() {
		interval = 1 * time.Minute
		s.logger.Info("Sweep loop running in development mode with 1m interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			updated, err := svc.FlagMissedCheckouts(runCtx)
			if err != nil {
				s.logger.Error("No-checkout sweep run failed", zap.Error(err))
			} else if updated > 0 {
				s.logger.Info("No-checkout sweep flagged records",
					zap.Int64("updated", updated),
				)
			}
			cancel()
		}
	}
}

func (s *ReconcileScheduler) runOnce(ctx context.Context, svc *service.ReconcileService) {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	summary, err := svc.Run(runCtx)
	if err != nil {
		s.logger.Error("Reconciliation run failed", zap.Error(err))
		return
	}

	s.logger.Info("Reconciliation run finished",
		zap.Int64("archived", summary.Archived),
		zap.Int64("updated", summary.Updated),
	)
}
