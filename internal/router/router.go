package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"FaceTrack/config"
	"FaceTrack/internal/handler"
	"FaceTrack/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	if config.Cfg.TracingEnabled {
		h.Use(middleware.OpenTelemetryMiddleware())
	}

	h.GET("/healthz", handler.Healthz)

	v1 := h.Group("/v1")

	// 考勤路由
	attendance := v1.Group("/attendance")
	{
		attendance.POST("/scan", middleware.ScanRateLimitMiddleware(), handler.ProcessScan)
		attendance.GET("/today/:member_id", handler.GetTodayAttendance)
		attendance.GET("/stats/:date", handler.GetDailyStats)
	}

	// 运维任务路由
	jobs := v1.Group("/jobs")
	{
		jobs.POST("/reconcile", middleware.ReconcileRateLimitMiddleware(), handler.TriggerReconcile)
	}
}
