package service

import (
	"time"

	"FaceTrack/internal/model"
)

// 时间状态判定：所有比较都在组织固定时区内按 HH:MM 墙钟进行。
// 边界未配置时一律 present。

// ClassifyCheckIn 签到状态判定：晚于窗口起点为 late
func ClassifyCheckIn(at time.Time, startHHMM string, loc *time.Location) model.AttendanceStatus {
	if startHHMM == "" {
		return model.AttendanceStatusPresent
	}

	if wallClock(at, loc) > startHHMM {
		return model.AttendanceStatusLate
	}
	return model.AttendanceStatusPresent
}

// ClassifyCheckOut 签退状态判定：早于窗口终点为 early_out
func ClassifyCheckOut(at time.Time, endHHMM string, loc *time.Location) model.AttendanceStatus {
	if endHHMM == "" {
		return model.AttendanceStatusPresent
	}

	if wallClock(at, loc) < endHHMM {
		return model.AttendanceStatusEarlyOut
	}
	return model.AttendanceStatusPresent
}

// wallClock 事件时刻在 loc 时区内的 HH:MM 表示
// HH:MM 的字典序与时刻先后一致，直接按字符串比较
func wallClock(at time.Time, loc *time.Location) string {
	return at.In(loc).Format("15:04")
}
