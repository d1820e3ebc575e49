package service

import (
	"testing"
	"time"

	"FaceTrack/internal/model"
)

// 组织时区固定 UTC+8；事件时间故意用 UTC 构造，验证判定不依赖服务器时区
var orgTZ = time.FixedZone("UTC+8", 8*3600)

func at(hhmm string, t *testing.T) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02 15:04", "2024-03-11 "+hhmm, orgTZ)
	if err != nil {
		t.Fatalf("bad test time %q: %v", hhmm, err)
	}
	return parsed.UTC()
}

func TestClassifyCheckIn(t *testing.T) {
	tests := []struct {
		name     string
		event    string
		boundary string
		want     model.AttendanceStatus
	}{
		{"before start", "08:59", "09:00", model.AttendanceStatusPresent},
		{"at start", "09:00", "09:00", model.AttendanceStatusPresent},
		{"after start", "09:01", "09:00", model.AttendanceStatusLate},
		{"no boundary early", "05:00", "", model.AttendanceStatusPresent},
		{"no boundary late", "23:30", "", model.AttendanceStatusPresent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyCheckIn(at(tt.event, t), tt.boundary, orgTZ)
			if got != tt.want {
				t.Fatalf("ClassifyCheckIn(%s, %q) = %s, want %s", tt.event, tt.boundary, got, tt.want)
			}
		})
	}
}

func TestClassifyCheckOut(t *testing.T) {
	tests := []struct {
		name     string
		event    string
		boundary string
		want     model.AttendanceStatus
	}{
		{"before end", "16:59", "17:00", model.AttendanceStatusEarlyOut},
		{"at end", "17:00", "17:00", model.AttendanceStatusPresent},
		{"after end", "17:01", "17:00", model.AttendanceStatusPresent},
		{"no boundary", "12:00", "", model.AttendanceStatusPresent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyCheckOut(at(tt.event, t), tt.boundary, orgTZ)
			if got != tt.want {
				t.Fatalf("ClassifyCheckOut(%s, %q) = %s, want %s", tt.event, tt.boundary, got, tt.want)
			}
		})
	}
}

func TestClassifyTimezoneSensitive(t *testing.T) {
	// UTC 01:30 在 UTC+8 是 09:30，相对 09:00 边界应判迟到
	event := time.Date(2024, 3, 11, 1, 30, 0, 0, time.UTC)

	if got := ClassifyCheckIn(event, "09:00", orgTZ); got != model.AttendanceStatusLate {
		t.Fatalf("classification ignored org timezone: got %s", got)
	}

	// 同一时刻在 UTC 时区判定则是 present，证明时区参数生效
	if got := ClassifyCheckIn(event, "09:00", time.UTC); got != model.AttendanceStatusPresent {
		t.Fatalf("UTC control case failed: got %s", got)
	}
}
