package faceid

import (
	"context"
	"errors"
	"sync"
)

type MockCall struct {
	CapturedURL  string
	ReferenceURL string
}

// MockClient 可编排的人脸比对 mock，实现 Client 接口
// Scores 按参考照片地址给出预设评分；未命中的返回 0 分
type MockClient struct {
	mu    sync.Mutex
	Calls []MockCall

	// Scores 参考照片 URL -> 预设评分
	Scores map[string]float64
	// Suggested 参考照片 URL -> 预设推荐阈值
	Suggested map[string]float64
	// FailURLs 参考照片 URL -> 置为 true 时该候选的比对调用返回错误
	FailURLs map[string]bool
}

func NewMockClient() *MockClient {
	return &MockClient{
		Calls:     make([]MockCall, 0),
		Scores:    make(map[string]float64),
		Suggested: make(map[string]float64),
		FailURLs:  make(map[string]bool),
	}
}

func (m *MockClient) Compare(ctx context.Context, capturedURL, referenceURL string) (*CompareResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{
		CapturedURL:  capturedURL,
		ReferenceURL: referenceURL,
	})

	if m.FailURLs[referenceURL] {
		return nil, errors.New("mock face compare failure")
	}

	return &CompareResult{
		Confidence:         m.Scores[referenceURL],
		SuggestedThreshold: m.Suggested[referenceURL],
	}, nil
}

// CallCount 已发生的比对调用次数
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
