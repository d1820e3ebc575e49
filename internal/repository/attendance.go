package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"FaceTrack/internal/model"
)

// ErrAlreadyCheckedIn 当日已有签到时间，签到路径的条件 upsert 未命中
var ErrAlreadyCheckedIn = errors.New("member already checked in today")

// ErrNoOpenRecord 没有可签退的记录
var ErrNoOpenRecord = errors.New("no open attendance record to check out")

// AttendanceRepo 考勤台账与历史表数据访问
type AttendanceRepo struct {
	db *gorm.DB
}

func NewAttendanceRepo(db *gorm.DB) *AttendanceRepo {
	return &AttendanceRepo{db: db}
}

// GetByMemberAndDay 查询某成员某天的台账行，不存在返回 (nil, nil)
func (r *AttendanceRepo) GetByMemberAndDay(ctx context.Context, memberID int64, day time.Time) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord

	err := r.db.WithContext(ctx).
		Where("member_id = ? AND attendance_day = ?", memberID, day.Format("2006-01-02")).
		First(&rec).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query attendance record: %w", err)
	}

	return &rec, nil
}

// CheckIn 签到写入：原子条件 upsert
// 不存在则插入；存在（外部预建的 absent 行）则仅当 check_in_at 仍为空时更新。
// 两种情况都未写入说明当日已签到，返回 ErrAlreadyCheckedIn。
func (r *AttendanceRepo) CheckIn(ctx context.Context, rec *model.AttendanceRecord) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "member_id"}, {Name: "attendance_day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"check_in_at": rec.CheckInAt,
			"status":      string(rec.Status),
			"location":    rec.Location,
			"updated_at":  time.Now(),
		}),
		Where: clause.Where{
			Exprs: []clause.Expression{
				clause.Expr{SQL: "attendance_records.check_in_at IS NULL"},
			},
		},
	}).Create(rec)

	if res.Error != nil {
		return fmt.Errorf("failed to upsert check-in: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrAlreadyCheckedIn
	}

	return nil
}

// CheckOut 签退写入：仅更新签退时间和状态，可幂等覆盖
func (r *AttendanceRepo) CheckOut(ctx context.Context, memberID int64, day time.Time, at time.Time, status model.AttendanceStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("member_id = ? AND attendance_day = ?", memberID, day.Format("2006-01-02")).
		Where("check_in_at IS NOT NULL").
		Updates(map[string]interface{}{
			"check_out_at": at,
			"status":       string(status),
			"updated_at":   time.Now(),
		})

	if res.Error != nil {
		return fmt.Errorf("failed to update check-out: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrNoOpenRecord
	}

	return nil
}

// ListArchivable 列出归档候选：考勤日早于 cutoff（组织时区内今天零点）的存活行
func (r *AttendanceRepo) ListArchivable(ctx context.Context, cutoff time.Time, limit int) ([]*model.AttendanceRecord, error) {
	var recs []*model.AttendanceRecord

	err := r.db.WithContext(ctx).
		Where("attendance_day < ?", cutoff.Format("2006-01-02")).
		Order("id ASC").
		Limit(limit).
		Find(&recs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list archivable records: %w", err)
	}

	return recs, nil
}

// CopyToHistory 将台账行拷入历史表
// record_id 唯一索引 + DO NOTHING：copy 成功 delete 失败后的重跑不会写出重复行
func (r *AttendanceRepo) CopyToHistory(ctx context.Context, hist *model.AttendanceHistory) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_id"}},
		DoNothing: true,
	}).Create(hist).Error

	if err != nil {
		return fmt.Errorf("failed to copy record %d to history: %w", hist.RecordID, err)
	}

	return nil
}

// DeleteRecord 从存活台账中物理删除已归档的行
func (r *AttendanceRepo) DeleteRecord(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).
		Unscoped().
		Delete(&model.AttendanceRecord{}, id).Error

	if err != nil {
		return fmt.Errorf("failed to delete record %d: %w", id, err)
	}

	return nil
}

// ListOpenForSweep 按主键游标列出 no_checkout 扫描候选：id 大于 afterID、
// 缺签退且尚未标记的存活行。预加载成员及其部门/小组，供调用方解析生效策略
func (r *AttendanceRepo) ListOpenForSweep(ctx context.Context, afterID int64, limit int) ([]*model.AttendanceRecord, error) {
	var recs []*model.AttendanceRecord

	err := r.db.WithContext(ctx).
		Preload("Member.Department").
		Preload("Member.Group").
		Where("id > ?", afterID).
		Where("check_out_at IS NULL").
		Where("status <> ?", string(model.AttendanceStatusNoCheckout)).
		Order("id ASC").
		Limit(limit).
		Find(&recs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list open records for sweep: %w", err)
	}

	return recs, nil
}

// MarkNoCheckout 将给定记录批量标记为 no_checkout，返回实际更新行数
func (r *AttendanceRepo) MarkNoCheckout(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("id IN ?", ids).
		Where("status <> ?", string(model.AttendanceStatusNoCheckout)).
		Updates(map[string]interface{}{
			"status":     string(model.AttendanceStatusNoCheckout),
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark no_checkout: %w", res.Error)
	}

	return res.RowsAffected, nil
}
