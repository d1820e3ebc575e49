package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"FaceTrack/internal/model"
	"FaceTrack/internal/repository"
	pkgerrors "FaceTrack/pkg/errors"
)

type fakeMemberGetter struct {
	member *model.Member
}

func (f *fakeMemberGetter) GetByPublicID(ctx context.Context, publicID int64) (*model.Member, error) {
	if f.member == nil || f.member.PublicID != publicID {
		return nil, repository.ErrNotFound
	}
	return f.member, nil
}

func newAttendanceTestService(member *model.Member, rec *model.AttendanceRecord, now time.Time) *AttendanceService {
	return &AttendanceService{
		members: &fakeMemberGetter{member: member},
		ledger:  &fakeLedger{existing: rec},
		loc:     orgTZ,
		now:     func() time.Time { return now },
	}
}

func TestGetTodayReturnsRecord(t *testing.T) {
	member := scanTestMember()
	checkIn := time.Date(2026, 3, 2, 9, 10, 0, 0, orgTZ)
	rec := &model.AttendanceRecord{
		BaseModel:     model.BaseModel{ID: 11},
		PublicID:      9100,
		MemberID:      member.ID,
		AttendanceDay: time.Date(2026, 3, 2, 0, 0, 0, 0, orgTZ),
		CheckInAt:     &checkIn,
		Status:        model.AttendanceStatusLate,
		Location:      "116.39,39.9",
	}

	now := time.Date(2026, 3, 2, 14, 0, 0, 0, orgTZ)
	svc := newAttendanceTestService(member, rec, now)

	got, err := svc.GetToday(context.Background(), member.PublicID)
	if err != nil {
		t.Fatalf("GetToday() error = %v", err)
	}

	if got.RecordID != 9100 || got.MemberID != member.PublicID {
		t.Fatalf("unexpected identifiers: %+v", got)
	}
	if got.Date != "2026-03-02" {
		t.Errorf("date = %q, want 2026-03-02", got.Date)
	}
	if got.Status != string(model.AttendanceStatusLate) {
		t.Errorf("status = %q, want late", got.Status)
	}
	if got.CheckOutAt != nil {
		t.Error("check-out time should be empty before checking out")
	}
}

func TestGetTodayMemberNotFound(t *testing.T) {
	now := time.Date(2026, 3, 2, 14, 0, 0, 0, orgTZ)
	svc := newAttendanceTestService(nil, nil, now)

	_, err := svc.GetToday(context.Background(), 404)
	if !errors.Is(err, pkgerrors.MemberNotFound) {
		t.Fatalf("err = %v, want MemberNotFound", err)
	}
}

func TestGetTodayNoRecordYet(t *testing.T) {
	member := scanTestMember()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, orgTZ)
	svc := newAttendanceTestService(member, nil, now)

	_, err := svc.GetToday(context.Background(), member.PublicID)
	if !errors.Is(err, pkgerrors.AttendanceNotFound) {
		t.Fatalf("err = %v, want AttendanceNotFound", err)
	}
}
