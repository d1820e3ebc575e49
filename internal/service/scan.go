package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"FaceTrack/config"
	"FaceTrack/internal/cache"
	"FaceTrack/internal/geo"
	"FaceTrack/internal/model"
	"FaceTrack/internal/model/dto"
	"FaceTrack/internal/queue"
	"FaceTrack/internal/repository"
	pkgerrors "FaceTrack/pkg/errors"
	"FaceTrack/pkg/faceid"
	"FaceTrack/pkg/logger"
	"FaceTrack/pkg/metrics"
	"FaceTrack/pkg/snowflake"
	"FaceTrack/storage/database"
	"FaceTrack/utils"
)

// 决策流程：识别 -> 围栏校验 -> 动作判定 -> 状态判定 -> 台账写入
// 身份未命中和位置不匹配是预期业务结果，走 200 响应；只有基础设施故障才返回 error

type memberLister interface {
	ListScanCandidates(ctx context.Context) ([]*model.Member, error)
}

type attendanceLedger interface {
	GetByMemberAndDay(ctx context.Context, memberID int64, day time.Time) (*model.AttendanceRecord, error)
	CheckIn(ctx context.Context, rec *model.AttendanceRecord) error
	CheckOut(ctx context.Context, memberID int64, day time.Time, at time.Time, status model.AttendanceStatus) error
}

type ledgerLocker interface {
	TryLockLedger(ctx context.Context, memberID int64, day string) (bool, error)
	UnlockLedger(ctx context.Context, memberID int64, day string) error
}

var (
	scanService *ScanService
	scanOnce    sync.Once
)

// Scan 获取扫描打卡服务单例
func Scan() *ScanService {
	scanOnce.Do(func() {
		db := database.DB()
		scanService = &ScanService{
			members: cachedMemberLister{repo: repository.NewMemberRepo(db)},
			ledger:  repository.NewAttendanceRepo(db),
			locker:  redisLedgerLocker{},
			matcher: NewMatcher(faceid.GetClient(), faceid.AcceptThreshold, logger.Logger),

			loc:           utils.OrgLocation(),
			defaultRadius: config.Cfg.GeofenceDefaultRadius,
			now:           time.Now,
			nextID:        snowflake.NextID,
			publishEvent:  queue.PublishAttendanceEvent,
			logger:        logger.Logger,
		}
	})
	return scanService
}

// ScanService 扫描打卡决策服务
type ScanService struct {
	members memberLister
	ledger  attendanceLedger
	locker  ledgerLocker
	matcher *MatcherService

	loc           *time.Location
	defaultRadius float64
	now           func() time.Time
	nextID        func() (int64, error)
	publishEvent  func(queue.AttendanceEventMessage) error
	logger        *zap.Logger
}

// cachedMemberLister 候选池读取走缓存，未命中回源数据库并回填
type cachedMemberLister struct {
	repo *repository.MemberRepo
}

func (l cachedMemberLister) ListScanCandidates(ctx context.Context) ([]*model.Member, error) {
	if pool, ok := cache.GetScanPool(ctx); ok {
		return pool, nil
	}

	pool, err := l.repo.ListScanCandidates(ctx)
	if err != nil {
		return nil, err
	}

	cache.SetScanPool(ctx, pool)
	return pool, nil
}

// redisLedgerLocker 基于 redis SetNX 的台账锁
type redisLedgerLocker struct{}

func (redisLedgerLocker) TryLockLedger(ctx context.Context, memberID int64, day string) (bool, error) {
	return cache.TryLockLedger(ctx, memberID, day)
}

func (redisLedgerLocker) UnlockLedger(ctx context.Context, memberID int64, day string) error {
	return cache.UnlockLedger(ctx, memberID, day)
}

// ProcessScan 处理一次扫描打卡请求
// 返回的 ScanResponse 永远可安全序列化；error 非空表示基础设施故障（5xx）
func (s *ScanService) ProcessScan(ctx context.Context, req *dto.ScanRequest) (*dto.ScanResponse, error) {
	point, err := geo.NewCoordinate(req.UserLocation.Latitude, req.UserLocation.Longitude)
	if err != nil {
		return nil, pkgerrors.InvalidScanRequest
	}

	now := s.now()
	day := utils.DayStart(now, s.loc)

	// Matching：池序优先识别
	pool, err := s.members.ListScanCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate pool: %w", err)
	}

	match, err := s.matcher.Match(ctx, req.CapturedImageURL, pool)
	if err != nil {
		return nil, err
	}

	if match == nil {
		metrics.RecordScanDecision(ctx, "no_match", "")
		return &dto.ScanResponse{
			Match:   false,
			Error:   dto.ScanErrorUserNotFound,
			Message: "No registered member matched the captured face",
		}, nil
	}

	member := match.Member
	scanUser := &dto.ScanUser{
		UserID:    member.PublicID,
		FirstName: member.FirstName,
		LastName:  member.LastName,
	}

	// LocationCheck：解析生效策略并计算围栏距离
	policy, err := ResolveEffectivePolicy(member)
	if err != nil {
		return nil, err
	}

	center, err := geo.ParseLocation(policy.Location)
	if err != nil {
		return nil, fmt.Errorf("stored policy location is corrupt for member %d: %w", member.PublicID, err)
	}

	radius := policy.Radius
	if radius <= 0 {
		radius = s.defaultRadius
	}

	within, distance := geo.Within(center, point, radius)

	// ActionDecision：读当日台账行决定签到还是签退
	// 位置不匹配时同样需要动作，用于拒绝文案
	rec, err := s.ledger.GetByMemberAndDay(ctx, member.ID, day)
	if err != nil {
		return nil, err
	}

	action := dto.ActionCheckIn
	if rec != nil && rec.CheckInAt != nil {
		action = dto.ActionCheckOut
	}

	if !within {
		s.logger.Info("Scan rejected: outside geofence",
			zap.Int64("member_id", member.PublicID),
			zap.Float64("distance_m", distance),
			zap.Float64("radius_m", radius),
			zap.String("policy_source", string(policy.Source)),
		)
		metrics.RecordScanDecision(ctx, "location_mismatch", "")

		return &dto.ScanResponse{
			Match:      true,
			User:       scanUser,
			Confidence: match.Confidence,
			Error:      dto.ScanErrorLocationMismatch,
			Message: fmt.Sprintf("%s, you are %.0f m away from your designated location",
				member.FirstName, distance),
			Action: action,
		}, nil
	}

	// LedgerWrite：锁住 (member, day) 后重读再写，消除重复行竞态
	dayKey := day.Format("2006-01-02")
	locked, err := s.locker.TryLockLedger(ctx, member.ID, dayKey)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire ledger lock: %w", err)
	}
	if !locked {
		return nil, pkgerrors.LedgerBusy
	}
	defer func() {
		if err := s.locker.UnlockLedger(ctx, member.ID, dayKey); err != nil {
			s.logger.Warn("Failed to release ledger lock",
				zap.Int64("member_id", member.PublicID),
				zap.Error(err),
			)
		}
	}()

	rec, err = s.ledger.GetByMemberAndDay(ctx, member.ID, day)
	if err != nil {
		return nil, err
	}

	action = dto.ActionCheckIn
	if rec != nil && rec.CheckInAt != nil {
		action = dto.ActionCheckOut
	}

	// StatusClassification + 写入
	var status model.AttendanceStatus
	if action == dto.ActionCheckIn {
		status = ClassifyCheckIn(now, policy.StartTime, s.loc)

		publicID, err := s.nextID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate record id: %w", err)
		}

		newRec := &model.AttendanceRecord{
			PublicID:      publicID,
			MemberID:      member.ID,
			AttendanceDay: day,
			CheckInAt:     &now,
			Status:        status,
			Location:      point.LocationString(),
		}

		if err := s.ledger.CheckIn(ctx, newRec); err != nil {
			if errors.Is(err, repository.ErrAlreadyCheckedIn) {
				// 锁内重读后正常到不了这里：有写入者绕过锁抢先建了行，按并发冲突返回
				return nil, pkgerrors.LedgerBusy
			}
			return nil, err
		}
	} else {
		status = ClassifyCheckOut(now, policy.EndTime, s.loc)

		if err := s.ledger.CheckOut(ctx, member.ID, day, now, status); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Attendance recorded",
		zap.Int64("member_id", member.PublicID),
		zap.String("member", member.FullName()),
		zap.String("action", action),
		zap.String("status", string(status)),
		zap.Float64("confidence", match.Confidence),
		zap.Float64("distance_m", distance),
	)
	metrics.RecordScanDecision(ctx, action, string(status))

	// 事件仅用于下游统计，发布失败不影响打卡结果
	if err := s.publishEvent(queue.AttendanceEventMessage{
		MemberID:   member.PublicID,
		Action:     action,
		Status:     string(status),
		Date:       dayKey,
		OccurredAt: now.Format(time.RFC3339),
	}); err != nil {
		s.logger.Warn("Failed to publish attendance event",
			zap.Int64("member_id", member.PublicID),
			zap.Error(err),
		)
	}

	return &dto.ScanResponse{
		Match:      true,
		User:       scanUser,
		Confidence: match.Confidence,
		Action:     action,
		Status:     string(status),
	}, nil
}
