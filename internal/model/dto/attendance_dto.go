package dto

import "time"

// ========== 考勤查询与对账相关 DTO ==========

// TodayAttendanceData 当日考勤记录
type TodayAttendanceData struct {
	RecordID   int64      `json:"record_id"`
	MemberID   int64      `json:"member_id"`
	Date       string     `json:"date"`
	CheckInAt  *time.Time `json:"check_in_at,omitempty"`
	CheckOutAt *time.Time `json:"check_out_at,omitempty"`
	Status     string     `json:"status"`
	Location   string     `json:"location,omitempty"`
}

// ReconcileSummary 对账任务执行摘要
type ReconcileSummary struct {
	Archived int64 `json:"archived"`
	Updated  int64 `json:"updated"`
}

// DailyStatsData 某天的打卡动作计数，由 worker 消费考勤事件累加
type DailyStatsData struct {
	CheckIns  int64 `json:"check_ins"`
	CheckOuts int64 `json:"check_outs"`
}
