package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"

	"FaceTrack/internal/model"
	pkgerrors "FaceTrack/pkg/errors"
)

// fakeReconcileStore 用 map 模拟存活台账和历史表，
// 历史表按 record_id 去重，模仿数据库唯一索引 + DO NOTHING 的行为
type fakeReconcileStore struct {
	records map[int64]*model.AttendanceRecord
	history map[int64]*model.AttendanceHistory

	// failDeleteOnce 第一次 DeleteRecord 调用返回错误，模拟 copy 和 delete 之间崩溃
	failDeleteOnce bool
	deleteCalls    int
}

func newFakeReconcileStore() *fakeReconcileStore {
	return &fakeReconcileStore{
		records: make(map[int64]*model.AttendanceRecord),
		history: make(map[int64]*model.AttendanceHistory),
	}
}

func (f *fakeReconcileStore) add(rec *model.AttendanceRecord) {
	f.records[rec.ID] = rec
}

func (f *fakeReconcileStore) ListArchivable(ctx context.Context, cutoff time.Time, limit int) ([]*model.AttendanceRecord, error) {
	out := make([]*model.AttendanceRecord, 0)
	for _, rec := range f.records {
		if rec.AttendanceDay.Before(cutoff) {
			out = append(out, rec)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeReconcileStore) CopyToHistory(ctx context.Context, hist *model.AttendanceHistory) error {
	if _, exists := f.history[hist.RecordID]; exists {
		return nil // DO NOTHING
	}
	f.history[hist.RecordID] = hist
	return nil
}

func (f *fakeReconcileStore) DeleteRecord(ctx context.Context, id int64) error {
	f.deleteCalls++
	if f.failDeleteOnce {
		f.failDeleteOnce = false
		return errors.New("connection reset")
	}
	delete(f.records, id)
	return nil
}

func (f *fakeReconcileStore) ListOpenForSweep(ctx context.Context, afterID int64, limit int) ([]*model.AttendanceRecord, error) {
	out := make([]*model.AttendanceRecord, 0)
	for _, rec := range f.records {
		if rec.ID > afterID && rec.CheckOutAt == nil && rec.Status != model.AttendanceStatusNoCheckout {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeReconcileStore) MarkNoCheckout(ctx context.Context, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		rec, ok := f.records[id]
		if !ok || rec.Status == model.AttendanceStatusNoCheckout {
			continue
		}
		rec.Status = model.AttendanceStatusNoCheckout
		n++
	}
	return n, nil
}

func newReconcileTestService(store *fakeReconcileStore, now time.Time) *ReconcileService {
	return &ReconcileService{
		store:     store,
		loc:       orgTZ,
		batchSize: 50,
		now:       func() time.Time { return now },
		tryJobLock: func(ctx context.Context) (bool, error) {
			return true, nil
		},
		releaseJobLock: func(ctx context.Context) error {
			return nil
		},
		logger: zap.NewNop(),
	}
}

func reconcileRec(id int64, day time.Time, checkedOut bool) *model.AttendanceRecord {
	in := day.Add(9 * time.Hour)
	rec := &model.AttendanceRecord{
		BaseModel:     model.BaseModel{ID: id},
		PublicID:      id + 1000,
		MemberID:      id,
		AttendanceDay: day,
		CheckInAt:     &in,
		Status:        model.AttendanceStatusPresent,
	}
	if checkedOut {
		out := day.Add(17 * time.Hour)
		rec.CheckOutAt = &out
	}
	return rec
}

// sweepMember 带部门下班时间策略的成员，验证当天过点标记用
func sweepMember(id int64, endTime string) *model.Member {
	return &model.Member{
		BaseModel: model.BaseModel{ID: id},
		PublicID:  id + 2000,
		Role:      model.MemberRoleMember,
		Department: &model.Department{
			Policy: model.LocationPolicy{
				Location: "116.39,39.90",
				Radius:   500,
				EndTime:  endTime,
			},
		},
	}
}

func TestReconcileRunFlagsAndArchives(t *testing.T) {
	now := time.Date(2026, 3, 3, 0, 10, 0, 0, orgTZ)
	yesterday := time.Date(2026, 3, 2, 0, 0, 0, 0, orgTZ)
	today := time.Date(2026, 3, 3, 0, 0, 0, 0, orgTZ)

	store := newFakeReconcileStore()
	store.add(reconcileRec(1, yesterday, true))  // 正常下班
	store.add(reconcileRec(2, yesterday, false)) // 忘签退
	store.add(reconcileRec(3, today, false))     // 今天仍打开，不许动

	svc := newReconcileTestService(store, now)

	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Updated != 1 {
		t.Errorf("updated = %d, want 1", summary.Updated)
	}
	if summary.Archived != 2 {
		t.Errorf("archived = %d, want 2", summary.Archived)
	}

	// 昨天的行全部进历史，忘签退的那行带 no_checkout 状态
	if len(store.history) != 2 {
		t.Fatalf("history size = %d, want 2", len(store.history))
	}
	if got := store.history[2+1000].Status; got != model.AttendanceStatusNoCheckout {
		t.Errorf("archived open row status = %q, want no_checkout", got)
	}
	if got := store.history[1+1000].Status; got != model.AttendanceStatusPresent {
		t.Errorf("archived closed row status = %q, want present", got)
	}

	// 今天的行原样保留
	if _, ok := store.records[3]; !ok {
		t.Error("today's open row must survive the pass")
	}
	if store.records[3].Status != model.AttendanceStatusPresent {
		t.Error("today's open row must not be flagged no_checkout")
	}
	if len(store.records) != 1 {
		t.Errorf("live records = %d, want 1", len(store.records))
	}
}

// 当天缺签退且生效策略下班时间已过的行也要标记，不必等到次日的历史天兜底
func TestSweepFlagsSameDayPastEndTime(t *testing.T) {
	now := time.Date(2026, 3, 3, 23, 0, 0, 0, orgTZ)
	today := time.Date(2026, 3, 3, 0, 0, 0, 0, orgTZ)

	store := newFakeReconcileStore()

	past := reconcileRec(1, today, false)
	past.Member = sweepMember(1, "17:00") // 下班时间已过
	store.add(past)

	open := reconcileRec(2, today, false)
	open.Member = sweepMember(2, "23:30") // 还没到点
	store.add(open)

	noPolicy := reconcileRec(3, today, false) // 无成员策略信息
	store.add(noPolicy)

	svc := newReconcileTestService(store, now)

	updated, err := svc.FlagMissedCheckouts(context.Background())
	if err != nil {
		t.Fatalf("FlagMissedCheckouts() error = %v", err)
	}

	if updated != 1 {
		t.Errorf("updated = %d, want 1", updated)
	}
	if store.records[1].Status != model.AttendanceStatusNoCheckout {
		t.Error("row past its end time must be flagged no_checkout")
	}
	if store.records[2].Status != model.AttendanceStatusPresent {
		t.Error("row before its end time must stay present")
	}
	if store.records[3].Status != model.AttendanceStatusPresent {
		t.Error("row without policy info must stay untouched")
	}
}

// 小组策略存在时过点判定用小组的下班时间，而不是部门的
func TestSweepSameDayUsesGroupEndTime(t *testing.T) {
	now := time.Date(2026, 3, 3, 18, 0, 0, 0, orgTZ)
	today := time.Date(2026, 3, 3, 0, 0, 0, 0, orgTZ)

	member := sweepMember(1, "17:00") // 部门 17:00 已过
	member.Group = &model.Group{
		Policy: model.LocationPolicy{
			Location: "116.40,39.91",
			Radius:   500,
			EndTime:  "19:00", // 小组 19:00 还没到
		},
	}

	rec := reconcileRec(1, today, false)
	rec.Member = member

	store := newFakeReconcileStore()
	store.add(rec)

	svc := newReconcileTestService(store, now)

	updated, err := svc.FlagMissedCheckouts(context.Background())
	if err != nil {
		t.Fatalf("FlagMissedCheckouts() error = %v", err)
	}

	if updated != 0 {
		t.Errorf("updated = %d, want 0 (group end time not reached)", updated)
	}
	if store.records[1].Status != model.AttendanceStatusPresent {
		t.Error("row must stay present while the group end time has not passed")
	}
}

// 整页都是今天未到点的行时，排在后面页的历史天行也必须被扫到
func TestSweepReachesPriorDayRowsBeyondFirstPage(t *testing.T) {
	now := time.Date(2026, 3, 3, 10, 0, 0, 0, orgTZ)
	today := time.Date(2026, 3, 3, 0, 0, 0, 0, orgTZ)
	yesterday := time.Date(2026, 3, 2, 0, 0, 0, 0, orgTZ)

	store := newFakeReconcileStore()
	for id := int64(1); id <= 4; id++ {
		store.add(reconcileRec(id, today, false)) // 今天打开，无策略信息，不可标记
	}
	store.add(reconcileRec(5, yesterday, false)) // 排在两整页今天行之后

	svc := newReconcileTestService(store, now)
	svc.batchSize = 2

	updated, err := svc.FlagMissedCheckouts(context.Background())
	if err != nil {
		t.Fatalf("FlagMissedCheckouts() error = %v", err)
	}

	if updated != 1 {
		t.Errorf("updated = %d, want 1", updated)
	}
	if store.records[5].Status != model.AttendanceStatusNoCheckout {
		t.Error("prior-day row beyond the first page must be flagged")
	}
}

// 重复执行同一轮对账不应产生新的历史行或新的标记
func TestReconcileRunIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 3, 0, 10, 0, 0, orgTZ)
	yesterday := time.Date(2026, 3, 2, 0, 0, 0, 0, orgTZ)

	store := newFakeReconcileStore()
	store.add(reconcileRec(1, yesterday, false))

	svc := newReconcileTestService(store, now)

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if summary.Archived != 0 || summary.Updated != 0 {
		t.Errorf("second run summary = %+v, want all zero", summary)
	}
	if len(store.history) != 1 {
		t.Errorf("history size = %d after rerun, want 1", len(store.history))
	}
}

// copy 成功、delete 失败（进程崩溃）后重跑：历史行不重复，存活行被补删
func TestReconcileResumesAfterCrashBetweenCopyAndDelete(t *testing.T) {
	now := time.Date(2026, 3, 3, 0, 10, 0, 0, orgTZ)
	yesterday := time.Date(2026, 3, 2, 0, 0, 0, 0, orgTZ)

	store := newFakeReconcileStore()
	store.add(reconcileRec(1, yesterday, true))
	store.failDeleteOnce = true

	svc := newReconcileTestService(store, now)

	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected first run to fail on delete")
	}

	// 崩溃点：历史行已写入，存活行还在
	if len(store.history) != 1 {
		t.Fatalf("history size after crash = %d, want 1", len(store.history))
	}
	if len(store.records) != 1 {
		t.Fatalf("live records after crash = %d, want 1", len(store.records))
	}

	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("resume Run() error = %v", err)
	}

	if summary.Archived != 1 {
		t.Errorf("resume archived = %d, want 1", summary.Archived)
	}
	if len(store.history) != 1 {
		t.Errorf("history size after resume = %d, want 1 (no duplicate)", len(store.history))
	}
	if len(store.records) != 0 {
		t.Errorf("live records after resume = %d, want 0", len(store.records))
	}
}

func TestReconcileRejectsConcurrentRun(t *testing.T) {
	store := newFakeReconcileStore()
	now := time.Date(2026, 3, 3, 0, 10, 0, 0, orgTZ)
	svc := newReconcileTestService(store, now)
	svc.tryJobLock = func(ctx context.Context) (bool, error) {
		return false, nil // 另一实例持锁
	}

	_, err := svc.Run(context.Background())
	if !errors.Is(err, pkgerrors.ReconcileJobRunning) {
		t.Fatalf("err = %v, want ReconcileJobRunning", err)
	}
}
