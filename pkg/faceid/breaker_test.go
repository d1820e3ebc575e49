package faceid

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakyClient 可控的底层客户端：fail 为 true 时每次调用都失败
type flakyClient struct {
	fail  bool
	calls int
}

func (f *flakyClient) Compare(ctx context.Context, capturedURL, referenceURL string) (*CompareResult, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("upstream timeout")
	}
	return &CompareResult{Confidence: 90}, nil
}

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	inner := &flakyClient{fail: true}
	c := WithBreaker(inner, 3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.Compare(ctx, "a", "b"); err == nil {
			t.Fatal("expected failure from inner client")
		}
	}

	// 第4次应该被熔断器直接拒绝，不再打到底层
	if _, err := c.Compare(ctx, "a", "b"); err == nil {
		t.Fatal("expected breaker rejection")
	}
	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3 (breaker must short-circuit)", inner.calls)
	}
}

func TestBreakerRecoversAfterResetTimeout(t *testing.T) {
	inner := &flakyClient{fail: true}
	c := WithBreaker(inner, 2, 10*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		c.Compare(ctx, "a", "b")
	}
	if _, err := c.Compare(ctx, "a", "b"); err == nil {
		t.Fatal("expected breaker rejection while open")
	}

	time.Sleep(15 * time.Millisecond)
	inner.fail = false

	// 半开状态放行试探请求，成功后恢复正常
	result, err := c.Compare(ctx, "a", "b")
	if err != nil {
		t.Fatalf("expected half-open trial to pass, got %v", err)
	}
	if result.Confidence != 90 {
		t.Errorf("confidence = %v, want 90", result.Confidence)
	}

	if _, err := c.Compare(ctx, "a", "b"); err != nil {
		t.Fatalf("expected breaker to be closed again, got %v", err)
	}
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	inner := &flakyClient{fail: true}
	c := WithBreaker(inner, 2, 10*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		c.Compare(ctx, "a", "b")
	}

	time.Sleep(15 * time.Millisecond)

	// 半开试探仍失败，立即回到开启状态
	if _, err := c.Compare(ctx, "a", "b"); err == nil {
		t.Fatal("expected half-open trial to fail")
	}

	calls := inner.calls
	if _, err := c.Compare(ctx, "a", "b"); err == nil {
		t.Fatal("expected breaker rejection after failed trial")
	}
	if inner.calls != calls {
		t.Error("breaker must not forward calls right after a failed half-open trial")
	}
}
