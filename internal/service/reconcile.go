package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"FaceTrack/config"
	"FaceTrack/internal/cache"
	"FaceTrack/internal/model"
	"FaceTrack/internal/model/dto"
	"FaceTrack/internal/repository"
	pkgerrors "FaceTrack/pkg/errors"
	"FaceTrack/pkg/logger"
	"FaceTrack/pkg/metrics"
	"FaceTrack/storage/database"
	"FaceTrack/utils"
)

// 对账：先把所有已结束考勤日里缺签退的行标记为 no_checkout，
// 再把这些历史天的台账行搬进 attendance_histories。
// 两步都可重入：标记是幂等更新，归档是 copy（DO NOTHING）+ delete，
// copy 和 delete 之间崩溃后重跑会跳过已存在的历史行并补删存活行。

const reconcileJobKey = "reconcile_job"

type reconcileStore interface {
	ListArchivable(ctx context.Context, cutoff time.Time, limit int) ([]*model.AttendanceRecord, error)
	CopyToHistory(ctx context.Context, hist *model.AttendanceHistory) error
	DeleteRecord(ctx context.Context, id int64) error
	ListOpenForSweep(ctx context.Context, afterID int64, limit int) ([]*model.AttendanceRecord, error)
	MarkNoCheckout(ctx context.Context, ids []int64) (int64, error)
}

var (
	reconcileService *ReconcileService
	reconcileOnce    sync.Once
)

// Reconcile 获取对账服务单例
func Reconcile() *ReconcileService {
	reconcileOnce.Do(func() {
		reconcileService = &ReconcileService{
			store:     repository.NewAttendanceRepo(database.DB()),
			loc:       utils.OrgLocation(),
			batchSize: config.Cfg.ReconcileBatchSize,
			now:       time.Now,
			tryJobLock: func(ctx context.Context) (bool, error) {
				return cache.TryLock(ctx, reconcileJobKey, 10*time.Minute)
			},
			releaseJobLock: func(ctx context.Context) error {
				return cache.Unlock(ctx, reconcileJobKey)
			},
			dropScanPool: cache.InvalidateScanPool,
			logger:       logger.Logger,
		}
	})
	return reconcileService
}

// ReconcileService 台账对账服务
type ReconcileService struct {
	store     reconcileStore
	loc       *time.Location
	batchSize int
	now       func() time.Time

	tryJobLock     func(ctx context.Context) (bool, error)
	releaseJobLock func(ctx context.Context) error
	dropScanPool   func(ctx context.Context) error

	runMu   sync.Mutex
	running bool

	logger *zap.Logger
}

// Run 执行一轮完整对账：标记缺签退 + 归档历史天
// 同一进程内串行；跨进程由 redis 任务锁保护。已有任务在跑时返回 ReconcileJobRunning。
func (s *ReconcileService) Run(ctx context.Context) (*dto.ReconcileSummary, error) {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return nil, pkgerrors.ReconcileJobRunning
	}
	s.running = true
	s.runMu.Unlock()

	defer func() {
		s.runMu.Lock()
		s.running = false
		s.runMu.Unlock()
	}()

	locked, err := s.tryJobLock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire reconcile job lock: %w", err)
	}
	if !locked {
		return nil, pkgerrors.ReconcileJobRunning
	}
	defer func() {
		if err := s.releaseJobLock(ctx); err != nil {
			s.logger.Warn("Failed to release reconcile job lock", zap.Error(err))
		}
	}()

	start := s.now()

	updated, err := s.FlagMissedCheckouts(ctx)
	if err != nil {
		return nil, err
	}

	archived, err := s.ArchivePreviousDays(ctx)
	if err != nil {
		return nil, err
	}

	// 顺带丢弃候选池缓存，管理端的成员和照片变更至少每天生效一次
	if s.dropScanPool != nil {
		if err := s.dropScanPool(ctx); err != nil {
			s.logger.Warn("Failed to drop scan pool cache", zap.Error(err))
		}
	}

	duration := s.now().Sub(start).Seconds()
	s.logger.Info("Reconciliation pass finished",
		zap.Int64("archived", archived),
		zap.Int64("updated", updated),
		zap.Float64("duration_s", duration),
	)
	metrics.RecordReconcile(ctx, archived, updated, duration)

	return &dto.ReconcileSummary{Archived: archived, Updated: updated}, nil
}

// FlagMissedCheckouts 将缺签退的行标记为 no_checkout
// 命中两类行：属于历史考勤日的，以及当天生效策略的下班时间已经过点的。
// 主键游标翻页，整页都不可标记时也会继续向后扫。
func (s *ReconcileService) FlagMissedCheckouts(ctx context.Context) (int64, error) {
	now := s.now()
	today := utils.DayStart(now, s.loc)

	var total int64
	var afterID int64

	for {
		recs, err := s.store.ListOpenForSweep(ctx, afterID, s.batchSize)
		if err != nil {
			return total, err
		}
		if len(recs) == 0 {
			return total, nil
		}

		ids := make([]int64, 0, len(recs))
		for _, rec := range recs {
			afterID = rec.ID

			if rec.AttendanceDay.Before(today) || s.pastEffectiveEndTime(rec, now) {
				ids = append(ids, rec.ID)
			}
		}

		if len(ids) > 0 {
			n, err := s.store.MarkNoCheckout(ctx, ids)
			if err != nil {
				return total, err
			}
			total += n
		}

		if len(recs) < s.batchSize {
			return total, nil
		}
	}
}

// pastEffectiveEndTime 当天行的生效策略是否配置了下班时间且墙钟已经过点
// 缺成员信息或无策略的行不动，次日会按历史天标记兜底
func (s *ReconcileService) pastEffectiveEndTime(rec *model.AttendanceRecord, now time.Time) bool {
	if rec.Member == nil {
		return false
	}

	policy, err := ResolveEffectivePolicy(rec.Member)
	if err != nil || policy.EndTime == "" {
		return false
	}

	return wallClock(now, s.loc) > policy.EndTime
}

// ArchivePreviousDays 将今天之前的台账行搬进历史表
// 逐行 copy-then-delete，中途崩溃后重跑从断点继续。
func (s *ReconcileService) ArchivePreviousDays(ctx context.Context) (int64, error) {
	cutoff := utils.DayStart(s.now(), s.loc)
	var total int64

	for {
		recs, err := s.store.ListArchivable(ctx, cutoff, s.batchSize)
		if err != nil {
			return total, err
		}
		if len(recs) == 0 {
			return total, nil
		}

		for _, rec := range recs {
			hist := &model.AttendanceHistory{
				RecordID:       rec.PublicID,
				MemberID:       rec.MemberID,
				AttendanceDate: rec.AttendanceDay,
				CheckInAt:      rec.CheckInAt,
				CheckOutAt:     rec.CheckOutAt,
				Status:         rec.Status,
				Location:       rec.Location,
				ArchivedAt:     s.now(),
			}

			if err := s.store.CopyToHistory(ctx, hist); err != nil {
				return total, err
			}
			if err := s.store.DeleteRecord(ctx, rec.ID); err != nil {
				return total, err
			}
			total++
		}

		if len(recs) < s.batchSize {
			return total, nil
		}
	}
}
