package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"FaceTrack/internal/cache"
	"FaceTrack/internal/model/dto"
	"FaceTrack/internal/service"
	pkgerrors "FaceTrack/pkg/errors"
	"FaceTrack/pkg/response"
)

// GetTodayAttendance 查询成员当日考勤记录
// GET /v1/attendance/today/:member_id
func GetTodayAttendance(ctx context.Context, c *app.RequestContext) {
	memberID, err := strconv.ParseInt(c.Param("member_id"), 10, 64)
	if err != nil {
		response.Error(ctx, c, pkgerrors.InvalidMemberID)
		return
	}

	result, err := service.Attendance().GetToday(ctx, memberID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// GetDailyStats 查询某天的打卡动作计数
// GET /v1/attendance/stats/:date
func GetDailyStats(ctx context.Context, c *app.RequestContext) {
	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		response.Error(ctx, c, pkgerrors.InvalidDate)
		return
	}

	checkIns, err := cache.GetDailyAction(ctx, date, "check-in")
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	checkOuts, err := cache.GetDailyAction(ctx, date, "check-out")
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.SuccessWithMeta(ctx, c,
		dto.DailyStatsData{CheckIns: checkIns, CheckOuts: checkOuts},
		map[string]interface{}{"date": date},
	)
}

// TriggerReconcile 手工触发一轮对账
// POST /v1/jobs/reconcile
//
// 与调度器走同一把任务锁，重复触发返回 409
func TriggerReconcile(ctx context.Context, c *app.RequestContext) {
	summary, err := service.Reconcile().Run(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, summary)
}
