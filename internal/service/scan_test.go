package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"FaceTrack/internal/model"
	"FaceTrack/internal/model/dto"
	"FaceTrack/internal/queue"
	"FaceTrack/internal/repository"
	pkgerrors "FaceTrack/pkg/errors"
	"FaceTrack/pkg/faceid"
)

type fakeMemberStore struct {
	pool []*model.Member
}

func (f *fakeMemberStore) ListScanCandidates(ctx context.Context) ([]*model.Member, error) {
	return f.pool, nil
}

type fakeLedger struct {
	existing   *model.AttendanceRecord
	checkInErr error

	created  *model.AttendanceRecord
	checkOut *struct {
		memberID int64
		at       time.Time
		status   model.AttendanceStatus
	}
}

func (f *fakeLedger) GetByMemberAndDay(ctx context.Context, memberID int64, day time.Time) (*model.AttendanceRecord, error) {
	return f.existing, nil
}

func (f *fakeLedger) CheckIn(ctx context.Context, rec *model.AttendanceRecord) error {
	if f.checkInErr != nil {
		return f.checkInErr
	}
	f.created = rec
	return nil
}

func (f *fakeLedger) CheckOut(ctx context.Context, memberID int64, day time.Time, at time.Time, status model.AttendanceStatus) error {
	f.checkOut = &struct {
		memberID int64
		at       time.Time
		status   model.AttendanceStatus
	}{memberID, at, status}
	return nil
}

type fakeLocker struct {
	refuse  bool
	locks   int
	unlocks int
}

func (f *fakeLocker) TryLockLedger(ctx context.Context, memberID int64, day string) (bool, error) {
	if f.refuse {
		return false, nil
	}
	f.locks++
	return true, nil
}

func (f *fakeLocker) UnlockLedger(ctx context.Context, memberID int64, day string) error {
	f.unlocks++
	return nil
}

// 测试用固定场景：围栏中心 (116.39, 39.90)，半径 500m，09:00 上班 17:00 下班
func scanTestMember() *model.Member {
	return &model.Member{
		BaseModel: model.BaseModel{ID: 7},
		PublicID:  7001,
		FirstName: "Wei",
		LastName:  "Chen",
		Role:      model.MemberRoleMember,
		AvatarURL: "https://i.ibb.co/ref-wei.jpg",
		Department: &model.Department{
			Policy: model.LocationPolicy{
				Location:  "116.39,39.90",
				Radius:    500,
				StartTime: "09:00",
				EndTime:   "17:00",
			},
		},
	}
}

func newScanTestService(ledger *fakeLedger, locker *fakeLocker, mock *faceid.MockClient, now time.Time, published *[]queue.AttendanceEventMessage) *ScanService {
	return &ScanService{
		members: &fakeMemberStore{pool: []*model.Member{scanTestMember()}},
		ledger:  ledger,
		locker:  locker,
		matcher: NewMatcher(mock, fixedThreshold(70), zap.NewNop()),

		loc:           orgTZ,
		defaultRadius: 500,
		now:           func() time.Time { return now },
		nextID: func() (int64, error) {
			return 9001, nil
		},
		publishEvent: func(msg queue.AttendanceEventMessage) error {
			*published = append(*published, msg)
			return nil
		},
		logger: zap.NewNop(),
	}
}

func insideScanRequest() *dto.ScanRequest {
	return &dto.ScanRequest{
		CapturedImageURL: "https://i.ibb.co/capture.jpg",
		UserLocation:     dto.UserLocation{Latitude: 39.90, Longitude: 116.39},
	}
}

// 命中 + 围栏内 + 当日无记录：应签到并落一条带签到时间的台账行
func TestProcessScanCheckInCreatesRecord(t *testing.T) {
	ledger := &fakeLedger{}
	locker := &fakeLocker{}
	mock := faceid.NewMockClient()
	mock.Scores["https://i.ibb.co/ref-wei.jpg"] = 88.2

	var published []queue.AttendanceEventMessage
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, orgTZ) // 09:30，迟到
	svc := newScanTestService(ledger, locker, mock, now, &published)

	resp, err := svc.ProcessScan(context.Background(), insideScanRequest())
	if err != nil {
		t.Fatalf("ProcessScan() error = %v", err)
	}

	if !resp.Match {
		t.Fatal("expected match=true")
	}
	if resp.User == nil || resp.User.UserID != 7001 {
		t.Fatalf("unexpected user in response: %+v", resp.User)
	}
	if resp.Action != dto.ActionCheckIn {
		t.Errorf("action = %q, want %q", resp.Action, dto.ActionCheckIn)
	}
	if resp.Status != string(model.AttendanceStatusLate) {
		t.Errorf("status = %q, want late", resp.Status)
	}
	if resp.Error != "" {
		t.Errorf("unexpected error field %q", resp.Error)
	}

	if ledger.created == nil {
		t.Fatal("expected a ledger row to be created")
	}
	if ledger.created.CheckInAt == nil || !ledger.created.CheckInAt.Equal(now) {
		t.Errorf("check-in time = %v, want %v", ledger.created.CheckInAt, now)
	}
	if ledger.created.Status != model.AttendanceStatusLate {
		t.Errorf("stored status = %q, want late", ledger.created.Status)
	}
	if ledger.created.Location != "116.39,39.9" {
		t.Errorf("stored location = %q, want canonical lng,lat", ledger.created.Location)
	}
	if ledger.checkOut != nil {
		t.Error("check-out should not run on first scan of the day")
	}

	if locker.locks != 1 || locker.unlocks != 1 {
		t.Errorf("lock/unlock = %d/%d, want 1/1", locker.locks, locker.unlocks)
	}
	if len(published) != 1 || published[0].Action != dto.ActionCheckIn {
		t.Errorf("expected one check-in event, got %+v", published)
	}
}

// 命中 + 当日已有打开记录 + 围栏内：应签退，不新建行
func TestProcessScanCheckOutUpdatesRecord(t *testing.T) {
	checkIn := time.Date(2026, 3, 2, 9, 0, 0, 0, orgTZ)
	ledger := &fakeLedger{
		existing: &model.AttendanceRecord{
			MemberID:      7,
			AttendanceDay: time.Date(2026, 3, 2, 0, 0, 0, 0, orgTZ),
			CheckInAt:     &checkIn,
			Status:        model.AttendanceStatusPresent,
		},
	}
	locker := &fakeLocker{}
	mock := faceid.NewMockClient()
	mock.Scores["https://i.ibb.co/ref-wei.jpg"] = 91.0

	var published []queue.AttendanceEventMessage
	now := time.Date(2026, 3, 2, 16, 30, 0, 0, orgTZ) // 16:30，早退
	svc := newScanTestService(ledger, locker, mock, now, &published)

	resp, err := svc.ProcessScan(context.Background(), insideScanRequest())
	if err != nil {
		t.Fatalf("ProcessScan() error = %v", err)
	}

	if resp.Action != dto.ActionCheckOut {
		t.Errorf("action = %q, want %q", resp.Action, dto.ActionCheckOut)
	}
	if resp.Status != string(model.AttendanceStatusEarlyOut) {
		t.Errorf("status = %q, want early_out", resp.Status)
	}

	if ledger.created != nil {
		t.Error("check-out must not create a new ledger row")
	}
	if ledger.checkOut == nil {
		t.Fatal("expected a check-out write")
	}
	if ledger.checkOut.status != model.AttendanceStatusEarlyOut {
		t.Errorf("check-out status = %q, want early_out", ledger.checkOut.status)
	}
	if !ledger.checkOut.at.Equal(now) {
		t.Errorf("check-out time = %v, want %v", ledger.checkOut.at, now)
	}
}

// 命中但在围栏外：结构化拒绝，动作字段给出本应执行的动作，台账不动
func TestProcessScanLocationMismatchLeavesLedgerUntouched(t *testing.T) {
	checkIn := time.Date(2026, 3, 2, 9, 0, 0, 0, orgTZ)
	ledger := &fakeLedger{
		existing: &model.AttendanceRecord{
			MemberID:  7,
			CheckInAt: &checkIn,
			Status:    model.AttendanceStatusPresent,
		},
	}
	locker := &fakeLocker{}
	mock := faceid.NewMockClient()
	mock.Scores["https://i.ibb.co/ref-wei.jpg"] = 85.0

	var published []queue.AttendanceEventMessage
	now := time.Date(2026, 3, 2, 17, 10, 0, 0, orgTZ)
	svc := newScanTestService(ledger, locker, mock, now, &published)

	req := insideScanRequest()
	req.UserLocation = dto.UserLocation{Latitude: 40.50, Longitude: 116.39} // 约 66km 外

	resp, err := svc.ProcessScan(context.Background(), req)
	if err != nil {
		t.Fatalf("ProcessScan() error = %v", err)
	}

	if !resp.Match {
		t.Fatal("identity match should still be reported on geofence rejection")
	}
	if resp.Error != dto.ScanErrorLocationMismatch {
		t.Errorf("error = %q, want %q", resp.Error, dto.ScanErrorLocationMismatch)
	}
	if resp.Action != dto.ActionCheckOut {
		t.Errorf("action = %q, want %q (open row exists)", resp.Action, dto.ActionCheckOut)
	}
	if resp.Status != "" {
		t.Errorf("status must stay empty on rejection, got %q", resp.Status)
	}

	if ledger.created != nil || ledger.checkOut != nil {
		t.Error("geofence rejection must not touch the ledger")
	}
	if locker.locks != 0 {
		t.Error("geofence rejection must not acquire the ledger lock")
	}
	if len(published) != 0 {
		t.Error("geofence rejection must not publish events")
	}
}

// 无人命中：200 形状的 User not found，台账不动
func TestProcessScanNoMatch(t *testing.T) {
	ledger := &fakeLedger{}
	locker := &fakeLocker{}
	mock := faceid.NewMockClient()
	mock.Scores["https://i.ibb.co/ref-wei.jpg"] = 12.5 // 低于阈值

	var published []queue.AttendanceEventMessage
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, orgTZ)
	svc := newScanTestService(ledger, locker, mock, now, &published)

	resp, err := svc.ProcessScan(context.Background(), insideScanRequest())
	if err != nil {
		t.Fatalf("ProcessScan() error = %v", err)
	}

	if resp.Match {
		t.Error("expected match=false")
	}
	if resp.Error != dto.ScanErrorUserNotFound {
		t.Errorf("error = %q, want %q", resp.Error, dto.ScanErrorUserNotFound)
	}
	if resp.User != nil {
		t.Error("no user should be attached on miss")
	}
	if ledger.created != nil || ledger.checkOut != nil {
		t.Error("miss must not touch the ledger")
	}
}

// 台账锁被占用：返回 LedgerBusy，不写入
func TestProcessScanLedgerBusy(t *testing.T) {
	ledger := &fakeLedger{}
	locker := &fakeLocker{refuse: true}
	mock := faceid.NewMockClient()
	mock.Scores["https://i.ibb.co/ref-wei.jpg"] = 95.0

	var published []queue.AttendanceEventMessage
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, orgTZ)
	svc := newScanTestService(ledger, locker, mock, now, &published)

	_, err := svc.ProcessScan(context.Background(), insideScanRequest())
	if !errors.Is(err, pkgerrors.LedgerBusy) {
		t.Fatalf("err = %v, want LedgerBusy", err)
	}
	if ledger.created != nil || ledger.checkOut != nil {
		t.Error("busy lock must not touch the ledger")
	}
}

// 条件 upsert 报告当天已有签到（写入者绕过锁）：按并发冲突返回，不发事件
func TestProcessScanCheckInConflictReturnsLedgerBusy(t *testing.T) {
	ledger := &fakeLedger{checkInErr: repository.ErrAlreadyCheckedIn}
	locker := &fakeLocker{}
	mock := faceid.NewMockClient()
	mock.Scores["https://i.ibb.co/ref-wei.jpg"] = 95.0

	var published []queue.AttendanceEventMessage
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, orgTZ)
	svc := newScanTestService(ledger, locker, mock, now, &published)

	_, err := svc.ProcessScan(context.Background(), insideScanRequest())
	if !errors.Is(err, pkgerrors.LedgerBusy) {
		t.Fatalf("err = %v, want LedgerBusy", err)
	}
	if len(published) != 0 {
		t.Error("conflicting check-in must not publish an event")
	}
	if locker.unlocks != 1 {
		t.Errorf("unlocks = %d, want 1 (lock released on conflict)", locker.unlocks)
	}
}

// 坐标越界：直接判请求非法
func TestProcessScanInvalidCoordinates(t *testing.T) {
	ledger := &fakeLedger{}
	mock := faceid.NewMockClient()

	var published []queue.AttendanceEventMessage
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, orgTZ)
	svc := newScanTestService(ledger, &fakeLocker{}, mock, now, &published)

	req := insideScanRequest()
	req.UserLocation.Latitude = 91.0

	_, err := svc.ProcessScan(context.Background(), req)
	if !errors.Is(err, pkgerrors.InvalidScanRequest) {
		t.Fatalf("err = %v, want InvalidScanRequest", err)
	}
	if mock.CallCount() != 0 {
		t.Error("invalid request must not trigger face comparison")
	}
}
