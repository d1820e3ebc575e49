package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	sdkotel "go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"FaceTrack/config"
	"FaceTrack/internal/middleware"
	"FaceTrack/internal/router"
	pkgdatabase "FaceTrack/pkg/database"
	"FaceTrack/pkg/faceid"
	"FaceTrack/pkg/logger"
	"FaceTrack/pkg/metrics"
	pkgmq "FaceTrack/pkg/mq"
	"FaceTrack/pkg/otel"
	pkgredis "FaceTrack/pkg/redis"
	"FaceTrack/pkg/snowflake"
	"FaceTrack/storage"
)

func main() {
	// 日志部分
	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	// 初始化存储层，记得关闭外部连接
	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}

	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	// 初始化人脸比对服务
	if err := faceid.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize face comparison client", zap.Error(err))
	}

	// 链路追踪和指标按开关初始化
	if config.Cfg.TracingEnabled {
		shutdown, err := otel.InitOpenTelemetry(ctx, otel.Config{
			ServiceName:    config.Cfg.ServiceName,
			ServiceVersion: "1.0.0",
			Environment:    config.Cfg.Environment,
			OTLPEndpoint:   config.Cfg.TracingEndpoint,
			SampleRatio:    config.Cfg.TracingSampler,
		})
		if err != nil {
			logger.Logger.Warn("Failed to initialize OpenTelemetry, falling back to noop provider", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
				}
			}()
		}

		// SDK 初始化失败时全局 meter 退回 noop，下面的指标创建依然安全
		if err := metrics.InitMetrics(); err != nil {
			logger.Logger.Warn("Failed to initialize metrics", zap.Error(err))
		}
		if err := middleware.InitMetrics(sdkotel.Meter("facetrack-http")); err != nil {
			logger.Logger.Warn("Failed to initialize HTTP metrics", zap.Error(err))
		}
		if err := pkgmq.InitMQMetrics(sdkotel.Meter("facetrack-mq")); err != nil {
			logger.Logger.Warn("Failed to initialize MQ metrics", zap.Error(err))
		}
		if err := pkgdatabase.InitDatabaseMetrics(sdkotel.Meter("facetrack-db")); err != nil {
			logger.Logger.Warn("Failed to initialize database metrics", zap.Error(err))
		}
		if err := pkgredis.InitRedisMetrics(sdkotel.Meter("facetrack-redis")); err != nil {
			logger.Logger.Warn("Failed to initialize Redis metrics", zap.Error(err))
		}
	}

	logger.Logger.Info("Server starting",
		zap.String("service", config.Cfg.ServiceName),
		zap.String("port", config.Cfg.ServerPort),
		zap.String("environment", config.Cfg.Environment),
	)

	addr := net.JoinHostPort(config.Cfg.ServerHost, config.Cfg.ServerPort)
	opts := []hertzconfig.Option{server.WithHostPorts(addr)}

	// 追踪开启时挂载 Hertz 自带的 server tracer，负责上游 trace 上下文的提取
	var tracingHandler app.HandlerFunc
	if config.Cfg.TracingEnabled {
		tracerOpt, handler := middleware.NewServerTracerConfig()
		opts = append(opts, tracerOpt)
		tracingHandler = handler
	}

	h := server.Default(opts...)
	if tracingHandler != nil {
		h.Use(tracingHandler)
	}

	router.Register(h)

	// 优雅关闭：在单独的 goroutine 中监听关闭信号并调用 Shutdown
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	logger.Logger.Info("Server shutting down gracefully")
}
