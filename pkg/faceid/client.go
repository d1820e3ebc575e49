package faceid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"FaceTrack/config"
	"FaceTrack/pkg/logger"
)

// CompareResult 一次人脸比对的结果
type CompareResult struct {
	// Confidence 相似度评分，0-100
	Confidence float64
	// SuggestedThreshold 比对服务推荐的接受阈值，0 表示服务未提供
	SuggestedThreshold float64
}

// Client 人脸比对客户端接口
type Client interface {
	// Compare 比对两张图片中的人脸
	// capturedURL: 现场抓拍图片地址
	// referenceURL: 成员参考照片地址
	// 单次调用失败属于可恢复错误，由调用方决定跳过还是中止
	Compare(ctx context.Context, capturedURL, referenceURL string) (*CompareResult, error)
}

var (
	faceClient Client
	faceOnce   sync.Once
	faceErr    error
)

// Init 初始化人脸比对客户端
func Init() error {
	faceOnce.Do(func() {
		cfg := config.Cfg

		switch cfg.FaceProvider {
		case "facepp":
			var inner Client
			inner, faceErr = NewFaceppClient()
			if faceErr == nil {
				// 外部服务走熔断：连续失败5次后熔断，30秒后尝试恢复
				faceClient = WithBreaker(inner, 5, 30*time.Second)
			}
		case "mock":
			faceClient = NewMockClient()
		default:
			faceErr = fmt.Errorf("unsupported face provider: %s", cfg.FaceProvider)
		}

		if faceErr != nil {
			logger.Logger.Error("Failed to initialize face comparison client", zap.Error(faceErr))
			return
		}

		logger.Logger.Info("Face comparison client initialized successfully",
			zap.String("provider", cfg.FaceProvider),
			zap.String("threshold_mode", cfg.FaceThresholdMode),
			zap.Float64("threshold", cfg.FaceThreshold),
		)
	})

	return faceErr
}

func GetClient() Client {
	if faceClient == nil {
		panic("face comparison client not initialized, call faceid.Init() first")
	}
	return faceClient
}

// AcceptThreshold 根据配置的阈值策略得出本次比对的接受阈值
// fixed 模式忽略服务端推荐值；suggested 模式优先使用推荐值，缺失时退回固定值
func AcceptThreshold(result *CompareResult) float64 {
	cfg := config.Cfg

	if cfg.FaceThresholdMode == "suggested" && result != nil && result.SuggestedThreshold > 0 {
		return result.SuggestedThreshold
	}
	return cfg.FaceThreshold
}
