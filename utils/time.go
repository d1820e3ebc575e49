package utils

import (
	"fmt"
	"sync"
	"time"

	"FaceTrack/config"
)

var (
	orgLoc     *time.Location
	orgLocOnce sync.Once
)

// OrgLocation 返回组织固定时区，加载失败时退回 UTC+8（参考部署所在时区）
func OrgLocation() *time.Location {
	orgLocOnce.Do(func() {
		loc, err := time.LoadLocation(config.Cfg.OrgTimezone)
		if err != nil {
			loc = time.FixedZone("UTC+8", 8*3600)
		}
		orgLoc = loc
	})
	return orgLoc
}

// ParseTimeOfDay 解析 HH:MM 或 HH:MM:SS 时刻字符串并应用到指定日期
func ParseTimeOfDay(timeStr string, date time.Time) (time.Time, error) {
	if timeStr == "" {
		return date, nil
	}

	parsedTime, err := time.Parse("15:04", timeStr)
	if err != nil {
		parsedTime, err = time.Parse("15:04:05", timeStr)
		if err != nil {
			return date, fmt.Errorf("invalid time of day %q: %w", timeStr, err)
		}
	}

	return time.Date(
		date.Year(),
		date.Month(),
		date.Day(),
		parsedTime.Hour(),
		parsedTime.Minute(),
		parsedTime.Second(),
		0,
		date.Location(),
	), nil
}

// DayStart 返回 t 在 loc 时区内所属日期的零点
func DayStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
