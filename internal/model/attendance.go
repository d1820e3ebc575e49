package model

import "time"

// AttendanceStatus 考勤状态枚举
type AttendanceStatus string

const (
	AttendanceStatusPresent    AttendanceStatus = "present"
	AttendanceStatusLate       AttendanceStatus = "late"
	AttendanceStatusEarlyOut   AttendanceStatus = "early_out"
	AttendanceStatusNoCheckout AttendanceStatus = "no_checkout"
	AttendanceStatusAbsent     AttendanceStatus = "absent"
)

// AttendanceRecord 当日考勤台账行
// 每个成员每天最多一行打开的记录，(member_id, attendance_day) 唯一索引保证
// 打卡写入路径只走条件 upsert，不允许读-改-写
type AttendanceRecord struct {
	BaseModel
	PublicID      int64            `gorm:"uniqueIndex;not null" json:"record_id"`
	MemberID      int64            `gorm:"not null;uniqueIndex:idx_attendance_member_day" json:"member_id"`
	AttendanceDay time.Time        `gorm:"type:date;not null;uniqueIndex:idx_attendance_member_day" json:"attendance_day"`
	CheckInAt     *time.Time       `gorm:"type:timestamptz" json:"check_in_at,omitempty"`
	CheckOutAt    *time.Time       `gorm:"type:timestamptz" json:"check_out_at,omitempty"`
	Status        AttendanceStatus `gorm:"type:varchar(16);not null;default:'absent';index" json:"status"`
	Location      string           `gorm:"type:varchar(64)" json:"location"` // 最后一次打卡的原始坐标串 "lng,lat"

	Member *Member `gorm:"foreignKey:MemberID" json:"-"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string {
	return "attendance_records"
}

// Open 当日记录是否仍缺少签退
func (r *AttendanceRecord) Open() bool {
	return r.CheckInAt != nil && r.CheckOutAt == nil
}

// AttendanceHistory 历史考勤记录，归档后只增不改
// RecordID 唯一索引使归档操作天然幂等：copy 成功 delete 失败后重跑不会产生重复行
type AttendanceHistory struct {
	BaseModel
	RecordID       int64            `gorm:"uniqueIndex;not null" json:"record_id"`
	MemberID       int64            `gorm:"not null;index" json:"member_id"`
	AttendanceDate time.Time        `gorm:"type:date;not null;index" json:"attendance_date"`
	CheckInAt      *time.Time       `gorm:"type:timestamptz" json:"check_in_at,omitempty"`
	CheckOutAt     *time.Time       `gorm:"type:timestamptz" json:"check_out_at,omitempty"`
	Status         AttendanceStatus `gorm:"type:varchar(16);not null" json:"status"`
	Location       string           `gorm:"type:varchar(64)" json:"location"`
	ArchivedAt     time.Time        `gorm:"type:timestamptz;not null" json:"archived_at"`
}

// TableName 指定表名
func (AttendanceHistory) TableName() string {
	return "attendance_histories"
}
