package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"FaceTrack/internal/cache"
	"FaceTrack/internal/model"
	"FaceTrack/internal/model/dto"
	"FaceTrack/internal/repository"
	pkgerrors "FaceTrack/pkg/errors"
	"FaceTrack/storage/database"
	"FaceTrack/utils"
)

type memberGetter interface {
	GetByPublicID(ctx context.Context, publicID int64) (*model.Member, error)
}

var (
	attendanceService *AttendanceService
	attendanceOnce    sync.Once
)

// Attendance 获取考勤查询服务单例
func Attendance() *AttendanceService {
	attendanceOnce.Do(func() {
		db := database.DB()
		attendanceService = &AttendanceService{
			members: cachedMemberGetter{repo: repository.NewMemberRepo(db)},
			ledger:  repository.NewAttendanceRepo(db),
			loc:     utils.OrgLocation(),
			now:     time.Now,
		}
	})
	return attendanceService
}

// cachedMemberGetter 成员读取走缓存，不存在的 ID 同样缓存，挡住穿透
type cachedMemberGetter struct {
	repo *repository.MemberRepo
}

func (g cachedMemberGetter) GetByPublicID(ctx context.Context, publicID int64) (*model.Member, error) {
	if member, hit := cache.GetMember(ctx, publicID); hit {
		if member == nil {
			return nil, repository.ErrNotFound
		}
		return member, nil
	}

	member, err := g.repo.GetByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			cache.SetMember(ctx, publicID, nil)
		}
		return nil, err
	}

	cache.SetMember(ctx, publicID, member)
	return member, nil
}

// AttendanceService 考勤查询服务
type AttendanceService struct {
	members memberGetter
	ledger  attendanceLedger
	loc     *time.Location
	now     func() time.Time
}

// GetToday 查询成员当日考勤记录
func (s *AttendanceService) GetToday(ctx context.Context, memberPublicID int64) (*dto.TodayAttendanceData, error) {
	member, err := s.members.GetByPublicID(ctx, memberPublicID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, pkgerrors.MemberNotFound
		}
		return nil, err
	}

	day := utils.DayStart(s.now(), s.loc)

	rec, err := s.ledger.GetByMemberAndDay(ctx, member.ID, day)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, pkgerrors.AttendanceNotFound
	}

	return &dto.TodayAttendanceData{
		RecordID:   rec.PublicID,
		MemberID:   member.PublicID,
		Date:       day.Format("2006-01-02"),
		CheckInAt:  rec.CheckInAt,
		CheckOutAt: rec.CheckOutAt,
		Status:     string(rec.Status),
		Location:   rec.Location,
	}, nil
}
