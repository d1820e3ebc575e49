package faceid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"FaceTrack/config"
	"FaceTrack/pkg/logger"
	"FaceTrack/pkg/metrics"
)

// 比对服务熔断器：外部 HTTP 服务连续失败后快速失败，
// 让扫描请求立刻走"服务不可用"分支而不是每个候选都挂在超时上

// breakerState 熔断器状态
type breakerState int

const (
	breakerClosed   breakerState = iota // 关闭状态：正常放行
	breakerOpen                         // 开启状态：熔断中
	breakerHalfOpen                     // 半开状态：尝试恢复
)

// breakerClient 包装底层比对客户端的熔断器，实现 Client 接口
type breakerClient struct {
	inner            Client
	maxFailures      int
	resetTimeout     time.Duration
	halfOpenMaxCalls int

	mu            sync.Mutex
	state         breakerState
	failures      int
	lastFailTime  time.Time
	halfOpenCalls int
}

// WithBreaker 给比对客户端加上熔断保护
func WithBreaker(inner Client, maxFailures int, resetTimeout time.Duration) Client {
	return &breakerClient{
		inner:            inner,
		maxFailures:      maxFailures,
		resetTimeout:     resetTimeout,
		halfOpenMaxCalls: 3, // 半开状态允许3次尝试
		state:            breakerClosed,
	}
}

func (b *breakerClient) Compare(ctx context.Context, capturedURL, referenceURL string) (*CompareResult, error) {
	if !b.allowRequest() {
		metrics.RecordFaceCompare(ctx, config.Cfg.FaceProvider, "short_circuit", 0)
		return nil, fmt.Errorf("face comparison breaker is open")
	}

	start := time.Now()
	result, err := b.inner.Compare(ctx, capturedURL, referenceURL)
	b.recordResult(err)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordFaceCompare(ctx, config.Cfg.FaceProvider, outcome, time.Since(start).Seconds())

	return result, err
}

// allowRequest 检查是否允许请求
func (b *breakerClient) allowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return true
	case breakerOpen:
		if time.Since(b.lastFailTime) >= b.resetTimeout {
			b.toHalfOpen()
			return true
		}
		return false
	case breakerHalfOpen:
		if b.halfOpenCalls < b.halfOpenMaxCalls {
			b.halfOpenCalls++
			return true
		}
		return false
	default:
		return false
	}
}

// recordResult 记录调用结果并驱动状态迁移
func (b *breakerClient) recordResult(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		switch b.state {
		case breakerClosed:
			b.failures = 0
		case breakerHalfOpen:
			b.toClosed()
		}
		return
	}

	b.failures++
	b.lastFailTime = time.Now()

	switch b.state {
	case breakerClosed:
		if b.failures >= b.maxFailures {
			b.toOpen()
		}
	case breakerHalfOpen:
		b.toOpen()
	}
}

func (b *breakerClient) toClosed() {
	b.state = breakerClosed
	b.failures = 0
	b.halfOpenCalls = 0

	logger.Logger.Info("Face comparison breaker transitioned to closed")
}

func (b *breakerClient) toOpen() {
	b.state = breakerOpen
	b.halfOpenCalls = 0

	logger.Logger.Warn("Face comparison breaker transitioned to open",
		zap.Int("failures", b.failures),
		zap.Duration("reset_timeout", b.resetTimeout),
	)
}

func (b *breakerClient) toHalfOpen() {
	b.state = breakerHalfOpen
	b.halfOpenCalls = 1

	logger.Logger.Info("Face comparison breaker transitioned to half-open")
}
